package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/nicktill/dimcluster/pkg/codec"
)

func TestFleet_GroupsCluster(t *testing.T) {
	sim := newFleet(3, 4, 42)
	rows := make([]cluster.Row, 40)
	for i := range rows {
		rows[i] = sim.next()
	}
	require.Equal(t, float64(39), rows[39][cluster.TimestampField])

	result := cluster.Run(rows, sim.dimensions(), cluster.Settings{
		Eps:        cluster.FloatPtr(5),
		WindowSize: cluster.IntPtr(30),
	})
	require.Len(t, result.Clusters, 3)
	for _, a := range result.Assignment {
		require.Equal(t, a.Dimension[1]-'0', byte(a.Cluster))
	}
}

func TestSummarize(t *testing.T) {
	got := summarize([]codec.Pair{
		{Dimension: "a", Cluster: 0},
		{Dimension: "b", Cluster: 1},
		{Dimension: "c", Cluster: 0},
		{Dimension: "d", Cluster: codec.UnassignedIndex},
	})
	require.Equal(t, "0=[a c] 1=[b] unassigned=[d]", got)
}
