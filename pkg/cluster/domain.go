package cluster

// ComputeDomain returns the min/max of every non-timestamp value in rows.
// Without any such value it returns EmptyDomain().
func ComputeDomain(rows []Row) Domain {
	d := EmptyDomain()
	for _, row := range rows {
		for field, v := range row {
			if field == TimestampField {
				continue
			}
			if v < d.Min {
				d.Min = v
			}
			if v > d.Max {
				d.Max = v
			}
		}
	}
	return d
}
