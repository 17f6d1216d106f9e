package cluster

import "maps"

// Run executes the full pipeline over one request.
//
// rows are windowed by settings.WindowSize. With settings.Eps set, the
// window is split into per-dimension series, clustered and reassembled into
// one row group per cluster. Without it, the window is returned as the only
// cluster and every dimension is assigned to cluster 0.
//
// Run never mutates rows and returns rows it owns.
func Run(rows []Row, dimensions []string, settings Settings) Result {
	window := Window(rows, settings.WindowSize)

	result := Result{
		YDomain: ComputeDomain(window),
	}

	if !settings.ClusteringEnabled() {
		result.Clusters = [][]Row{cloneRows(window)}
		result.Assignment = make([]Assignment, len(dimensions))
		for i, dimension := range dimensions {
			result.Assignment[i] = Assignment{Dimension: dimension, Cluster: 0}
		}
		return result
	}

	series := BuildSeries(window, dimensions)
	clusters := NewThresholdClusterer(*settings.Eps).Cluster(series)
	result.Clusters = Aggregate(clusters)
	result.Assignment = Assign(dimensions, result.Clusters)
	return result
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		out[i] = maps.Clone(row)
	}
	return out
}
