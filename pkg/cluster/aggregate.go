package cluster

// Aggregate reshapes each cluster back into rows.
//
// A cluster's timestamps come from its first member, in that member's key
// order. Each output row holds TimestampField plus the value of every member
// that has a sample at that timestamp. Timestamps only present in later
// members are dropped.
func Aggregate(clusters []Cluster) [][]Row {
	groups := make([][]Row, 0, len(clusters))
	for _, members := range clusters {
		if len(members) == 0 {
			groups = append(groups, []Row{})
			continue
		}

		timestamps := members[0].Keys()
		rows := make([]Row, 0, len(timestamps))
		for _, ts := range timestamps {
			row := Row{TimestampField: float64(ts)}
			for _, s := range members {
				if v, ok := s.Get(ts); ok {
					row[s.Name] = v
				}
			}
			rows = append(rows, row)
		}
		groups = append(groups, rows)
	}
	return groups
}
