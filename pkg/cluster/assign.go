package cluster

// Assign maps each dimension to the first cluster whose first row contains it.
//
// Only the first row of each group is inspected, so a dimension absent at
// that row's timestamp is reported as Unassigned even if it appears later in
// the group. Empty groups never match.
func Assign(dimensions []string, groups [][]Row) []Assignment {
	assignment := make([]Assignment, len(dimensions))
	for i, dimension := range dimensions {
		assignment[i] = Assignment{Dimension: dimension, Cluster: Unassigned}
		for g, rows := range groups {
			if len(rows) == 0 {
				continue
			}
			if _, ok := rows[0][dimension]; ok {
				assignment[i].Cluster = g
				break
			}
		}
	}
	return assignment
}
