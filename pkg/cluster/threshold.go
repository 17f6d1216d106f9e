package cluster

// Cluster is an ordered group of series assigned together
type Cluster []*Series

// Names returns the dimension names in member order
func (c Cluster) Names() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name
	}
	return names
}

// ThresholdClusterer groups series by eps-reachability.
//
// It behaves like DBSCAN with a minimum neighbor count of one: there is no
// noise class, and a series with no neighbor inside eps becomes a singleton.
type ThresholdClusterer struct {
	eps      float64
	distance DistanceFunc
}

// NewThresholdClusterer creates a clusterer using Distance
func NewThresholdClusterer(eps float64) *ThresholdClusterer {
	return NewThresholdClustererWithDistance(eps, Distance)
}

// NewThresholdClustererWithDistance creates a clusterer with a custom distance.
// A nil distance falls back to Distance.
func NewThresholdClustererWithDistance(eps float64, distance DistanceFunc) *ThresholdClusterer {
	if distance == nil {
		distance = Distance
	}
	return &ThresholdClusterer{eps: eps, distance: distance}
}

// Neighbors returns every index j != i with distance(series[i], series[j]) <= eps,
// in index order. series[i] is the reference point.
func (c *ThresholdClusterer) Neighbors(series []*Series, i int) []int {
	var neighbors []int
	for j := range series {
		if j == i {
			continue
		}
		if c.distance(series[i], series[j]) <= c.eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// Cluster partitions series into clusters.
//
// Seeds are taken in index order. Each cluster starts with its seed and grows
// breadth-first: members are appended in the order they are first reached,
// and each new member's own neighborhood (with that member as reference) is
// explored in turn. Clusters are returned in seed order.
func (c *ThresholdClusterer) Cluster(series []*Series) []Cluster {
	n := len(series)
	visited := make([]bool, n)
	assigned := make([]bool, n)

	var clusters []Cluster
	for seed := 0; seed < n; seed++ {
		if visited[seed] || assigned[seed] {
			continue
		}
		visited[seed] = true
		assigned[seed] = true

		members := Cluster{series[seed]}
		queue := []int{seed}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			for _, j := range c.Neighbors(series, current) {
				if assigned[j] {
					continue
				}
				visited[j] = true
				assigned[j] = true
				members = append(members, series[j])
				queue = append(queue, j)
			}
		}

		clusters = append(clusters, members)
	}

	return clusters
}
