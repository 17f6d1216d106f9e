package cluster

// Window keeps the trailing size rows in their original order.
// A nil size keeps everything; a size of 0 yields an empty window.
// The returned slice shares backing storage with rows and must not be mutated.
func Window(rows []Row, size *int) []Row {
	if size == nil {
		return rows
	}
	n := *size
	if n < 0 {
		n = 0
	}
	if n >= len(rows) {
		return rows
	}
	return rows[len(rows)-n:]
}
