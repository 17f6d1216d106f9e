package storage

import (
	"testing"

	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/stretchr/testify/require"
)

func TestMergeFields(t *testing.T) {
	fields := MergeFields(nil, nil, []cluster.Row{
		{cluster.TimestampField: 0, "b": 1, "a": 1},
		{cluster.TimestampField: 1, "c": 1, "a": 2},
	})
	require.Equal(t, []string{"a", "b", "c"}, fields)

	fields = MergeFields([]string{"z"}, nil, []cluster.Row{{"a": 1, "z": 2}})
	require.Equal(t, []string{"z", "a"}, fields)
}

func TestMergeFields_FieldOrder(t *testing.T) {
	rows := []cluster.Row{
		{cluster.TimestampField: 0, "C": 10, "A": 1},
		{cluster.TimestampField: 1, "C": 20, "A": 2, "B": 2, "extra": 1},
	}

	// B is blank in the first row but still keeps its header position
	fields := MergeFields(nil, []string{cluster.TimestampField, "C", "A", "B", "unused"}, rows)
	require.Equal(t, []string{"C", "A", "B", "extra"}, fields)

	// Known fields keep their position
	fields = MergeFields([]string{"A"}, []string{"C", "A"}, rows)
	require.Equal(t, []string{"A", "C", "B", "extra"}, fields)
}

func TestApplyAppendOptions(t *testing.T) {
	require.Nil(t, ApplyAppendOptions(nil).FieldOrder)
	o := ApplyAppendOptions([]AppendOption{WithFieldOrder([]string{"b", "a"})})
	require.Equal(t, []string{"b", "a"}, o.FieldOrder)
}

func TestTrailing(t *testing.T) {
	rows := []cluster.Row{{"a": 1}, {"a": 2}, {"a": 3}}
	require.Len(t, Trailing(rows, 0), 3)
	require.Len(t, Trailing(rows, 5), 3)
	require.Equal(t, []cluster.Row{{"a": 2}, {"a": 3}}, Trailing(rows, 2))
}

func TestCloneRows(t *testing.T) {
	rows := []cluster.Row{{"a": 1}}
	clone := CloneRows(rows)
	clone[0]["a"] = 5
	require.Equal(t, 1.0, rows[0]["a"])
}
