package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	series := BuildSeries(threeRows(), []string{"A", "B", "C"})
	groups := Aggregate(NewThresholdClusterer(1).Cluster(series))

	require.Len(t, groups, 2)
	require.Equal(t, []Row{
		{TimestampField: 0, "A": 1, "B": 1},
		{TimestampField: 1, "A": 2, "B": 2},
		{TimestampField: 2, "A": 3, "B": 3},
	}, groups[0])
	require.Equal(t, []Row{
		{TimestampField: 0, "C": 10},
		{TimestampField: 1, "C": 20},
		{TimestampField: 2, "C": 30},
	}, groups[1])
}

func TestAggregate_FirstMemberDefinesTimestamps(t *testing.T) {
	first := seriesOf("first", [2]float64{0, 1}, [2]float64{2, 3})
	second := seriesOf("second", [2]float64{0, 1}, [2]float64{1, 2}, [2]float64{2, 3})

	groups := Aggregate([]Cluster{{first, second}})
	require.Equal(t, []Row{
		{TimestampField: 0, "first": 1, "second": 1},
		{TimestampField: 2, "first": 3, "second": 3},
	}, groups[0])
}

func TestAggregate_MemberMissingAtTimestamp(t *testing.T) {
	first := seriesOf("first", [2]float64{0, 1}, [2]float64{1, 2})
	second := seriesOf("second", [2]float64{1, 2})

	groups := Aggregate([]Cluster{{first, second}})
	require.Equal(t, []Row{
		{TimestampField: 0, "first": 1},
		{TimestampField: 1, "first": 2, "second": 2},
	}, groups[0])
}

func TestAggregate_EmptyFirstMember(t *testing.T) {
	groups := Aggregate([]Cluster{{NewSeries("empty"), seriesOf("x", [2]float64{0, 1})}})
	require.Len(t, groups, 1)
	require.Empty(t, groups[0])
}
