package cluster

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func names(clusters []Cluster) [][]string {
	out := make([][]string, len(clusters))
	for i, c := range clusters {
		out[i] = c.Names()
	}
	return out
}

func TestThresholdClusterer_Scenario(t *testing.T) {
	series := BuildSeries(threeRows(), []string{"A", "B", "C"})

	clusters := NewThresholdClusterer(1.0).Cluster(series)
	require.Equal(t, [][]string{{"A", "B"}, {"C"}}, names(clusters))
}

func TestThresholdClusterer_IdenticalSeriesShareCluster(t *testing.T) {
	for _, eps := range []float64{0, 0.5, 1e6} {
		series := []*Series{
			seriesOf("x", [2]float64{0, 10}, [2]float64{1, 12}),
			seriesOf("far", [2]float64{0, 1e9}),
			seriesOf("y", [2]float64{0, 10}, [2]float64{1, 12}),
		}

		clusters := NewThresholdClusterer(eps).Cluster(series)
		var xCluster, yCluster int
		for i, c := range clusters {
			for _, n := range c.Names() {
				switch n {
				case "x":
					xCluster = i
				case "y":
					yCluster = i
				}
			}
		}
		require.Equal(t, xCluster, yCluster, "eps=%v", eps)
	}
}

func TestThresholdClusterer_FarApartStaySeparate(t *testing.T) {
	series := []*Series{
		seriesOf("low", [2]float64{0, 0}),
		seriesOf("high", [2]float64{0, 100}),
	}

	clusters := NewThresholdClusterer(10).Cluster(series)
	require.Equal(t, [][]string{{"low"}, {"high"}}, names(clusters))
}

func TestThresholdClusterer_ChainedReachability(t *testing.T) {
	// a-b and b-c are within eps, a-c is not; the chain still joins them.
	series := []*Series{
		seriesOf("a", [2]float64{0, 0}),
		seriesOf("b", [2]float64{0, 1}),
		seriesOf("c", [2]float64{0, 2}),
		seriesOf("d", [2]float64{0, 50}),
	}

	clusters := NewThresholdClusterer(1).Cluster(series)
	require.Equal(t, [][]string{{"a", "b", "c"}, {"d"}}, names(clusters))
}

func TestThresholdClusterer_BrokenChain(t *testing.T) {
	series := []*Series{
		seriesOf("a", [2]float64{0, 0}),
		seriesOf("b", [2]float64{0, 1}),
		seriesOf("c", [2]float64{0, 5}),
		seriesOf("d", [2]float64{0, 6}),
	}

	clusters := NewThresholdClusterer(1).Cluster(series)
	require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, names(clusters))
}

func TestThresholdClusterer_BreadthFirstMemberOrder(t *testing.T) {
	// seed a reaches c directly and b only through c
	series := []*Series{
		seriesOf("a", [2]float64{0, 0}),
		seriesOf("b", [2]float64{0, 2}),
		seriesOf("c", [2]float64{0, 1}),
	}

	clusters := NewThresholdClusterer(1).Cluster(series)
	require.Equal(t, [][]string{{"a", "c", "b"}}, names(clusters))
}

// The neighbor graph follows the directional distance, so input order matters
// when coverage differs.
func TestThresholdClusterer_DirectionalNeighborhood(t *testing.T) {
	wide := seriesOf("wide", [2]float64{0, 0}, [2]float64{1, 5})
	narrow := seriesOf("narrow", [2]float64{0, 0})

	require.Equal(t, 5.0, Distance(wide, narrow))
	require.Equal(t, 0.0, Distance(narrow, wide))

	clusters := NewThresholdClusterer(1).Cluster([]*Series{wide, narrow})
	require.Equal(t, [][]string{{"wide"}, {"narrow"}}, names(clusters))

	clusters = NewThresholdClusterer(1).Cluster([]*Series{narrow, wide})
	require.Equal(t, [][]string{{"narrow", "wide"}}, names(clusters))
}

func TestThresholdClusterer_Empty(t *testing.T) {
	require.Empty(t, NewThresholdClusterer(1).Cluster(nil))
}

func TestThresholdClusterer_CustomDistance(t *testing.T) {
	always := func(a, b *Series) float64 { return 0 }
	series := []*Series{
		seriesOf("a", [2]float64{0, 0}),
		seriesOf("b", [2]float64{0, 1e9}),
	}

	clusters := NewThresholdClustererWithDistance(0, always).Cluster(series)
	require.Equal(t, [][]string{{"a", "b"}}, names(clusters))
}

func TestThresholdClusterer_Partition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	dims := []string{"d0", "d1", "d2", "d3", "d4", "d5", "d6", "d7", "d8", "d9", "d10", "d11"}
	rows := make([]Row, 30)
	for i := range rows {
		row := Row{TimestampField: float64(i * 10)}
		for d, dim := range dims {
			// leave some holes so coverage differs between dimensions
			if rng.Intn(5) == 0 {
				continue
			}
			row[dim] = float64(d%3)*20 + rng.Float64()*5
		}
		rows[i] = row
	}

	series := BuildSeries(rows, dims)
	for _, eps := range []float64{0, 1, 10, 30, 100, 1e9} {
		clusters := NewThresholdClusterer(eps).Cluster(series)

		var seen []string
		for _, c := range clusters {
			require.NotEmpty(t, c)
			seen = append(seen, c.Names()...)
		}

		want := append([]string(nil), dims...)
		sort.Strings(want)
		sort.Strings(seen)
		require.Equal(t, want, seen, "eps=%v", eps)
	}
}
