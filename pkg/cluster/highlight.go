package cluster

// Highlight marks a dimension whose cluster changed compared to history
type Highlight struct {
	Dimension string

	// Opacity is the fraction of snapshots that placed the dimension elsewhere
	Opacity float64

	// Previous is the cluster index from the first differing snapshot
	Previous int
}

// HighlightChanges compares the current assignment with past snapshots.
//
// It returns one list per group. A group's dimensions are taken in
// assignment order, limited to those present in the group's first row.
// Dimensions that never changed cluster are omitted.
func HighlightChanges(groups [][]Row, current []Assignment, history []Snapshot) [][]Highlight {
	out := make([][]Highlight, len(groups))
	for g, rows := range groups {
		out[g] = []Highlight{}
		if len(rows) == 0 || len(history) == 0 {
			continue
		}

		for _, a := range current {
			if a.Cluster != g {
				continue
			}
			if _, ok := rows[0][a.Dimension]; !ok {
				continue
			}

			changed := 0
			previous := Unassigned
			for _, snap := range history {
				past := clusterIn(snap.Assignment, a.Dimension)
				if past == a.Cluster {
					continue
				}
				if changed == 0 {
					previous = past
				}
				changed++
			}

			if changed > 0 {
				out[g] = append(out[g], Highlight{
					Dimension: a.Dimension,
					Opacity:   float64(changed) / float64(len(history)),
					Previous:  previous,
				})
			}
		}
	}
	return out
}

func clusterIn(assignment []Assignment, dimension string) int {
	for _, a := range assignment {
		if a.Dimension == dimension {
			return a.Cluster
		}
	}
	return Unassigned
}
