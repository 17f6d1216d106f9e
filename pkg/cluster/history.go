package cluster

// DefaultHistoryWindow is the context window used by OverTime when
// Settings.WindowSize is unset or zero.
const DefaultHistoryWindow = 20

// Snapshot is the cluster assignment computed for one point in time
type Snapshot struct {
	// Timestamp of the row that follows the clustered window (nil if the row had none)
	Timestamp *float64

	// Index of that row in the input
	Index int

	Assignment []Assignment
}

// HistoryWindow returns the context window OverTime uses for settings
func HistoryWindow(settings Settings) int {
	if settings.WindowSize == nil || *settings.WindowSize <= 0 {
		return DefaultHistoryWindow
	}
	return *settings.WindowSize
}

// OverTime replays the clustering across the row sequence.
//
// For every index i >= w, where w = HistoryWindow(settings), the pipeline runs
// over rows[i-w:i] and the resulting assignment is recorded against row i.
// Snapshots are returned in index order; fewer than w+1 rows yield none.
func OverTime(rows []Row, dimensions []string, settings Settings) []Snapshot {
	w := HistoryWindow(settings)
	if len(rows) <= w {
		return nil
	}

	inner := settings
	inner.WindowSize = nil

	snapshots := make([]Snapshot, 0, len(rows)-w)
	for i := w; i < len(rows); i++ {
		result := Run(rows[i-w:i], dimensions, inner)

		snap := Snapshot{Index: i, Assignment: result.Assignment}
		if ts, ok := rows[i][TimestampField]; ok {
			snap.Timestamp = &ts
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots
}
