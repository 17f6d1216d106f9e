package cluster

import (
	"math"
)

// TimestampField is the reserved row field holding the sample timestamp
const TimestampField = "timestamp"

// Unassigned is the cluster index reported for a dimension the Assignment
// Mapper could not locate.
const Unassigned = math.MaxInt

// Row is a single sample: field name -> value, optionally including TimestampField
type Row map[string]float64

// Timestamp resolves the row's timestamp, falling back to its position.
// Fractions are truncated. Values outside the int64 range saturate and NaN
// becomes 0.
func (r Row) Timestamp(position int) int64 {
	if ts, ok := r[TimestampField]; ok {
		return saturateInt64(ts)
	}
	return int64(position)
}

// TimestampInRange reports whether ts converts to int64 without saturating
func TimestampInRange(ts float64) bool {
	return ts >= math.MinInt64 && ts < math.MaxInt64
}

func saturateInt64(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// Settings controls windowing and clustering
type Settings struct {
	// WindowSize keeps only the trailing N rows (nil = keep all)
	WindowSize *int `json:"window_size,omitempty" yaml:"window_size,omitempty"`

	// Eps is the clustering distance threshold (nil = clustering disabled)
	Eps *float64 `json:"eps,omitempty" yaml:"eps,omitempty"`

	// ClusterCount is reserved for a count-based clustering mode.
	// It is carried through but never read by Run.
	ClusterCount *int `json:"cluster_count,omitempty" yaml:"cluster_count,omitempty"`
}

// ClusteringEnabled reports whether an eps threshold is configured
func (s Settings) ClusteringEnabled() bool {
	return s.Eps != nil
}

// Domain is the shared value range for all clusters
type Domain struct {
	Min float64
	Max float64
}

// EmptyDomain is the sentinel returned when there is no data to scale against
func EmptyDomain() Domain {
	return Domain{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Empty reports whether d is the "no data" sentinel
func (d Domain) Empty() bool {
	return d.Min > d.Max
}

// Assignment maps one dimension to the index of its cluster
type Assignment struct {
	Dimension string
	Cluster   int
}

// Assigned reports whether the dimension was found in a cluster
func (a Assignment) Assigned() bool {
	return a.Cluster != Unassigned
}

// Result is the output of Run
type Result struct {
	// Clusters holds one row group per cluster
	Clusters [][]Row

	// YDomain is shared across all clusters
	YDomain Domain

	// Assignment follows the order of the input dimensions
	Assignment []Assignment
}

// ClusterOf returns the cluster index for a dimension, or Unassigned
func (r *Result) ClusterOf(dimension string) int {
	for _, a := range r.Assignment {
		if a.Dimension == dimension {
			return a.Cluster
		}
	}
	return Unassigned
}

// IntPtr returns a pointer to v, for building Settings literals
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v
func FloatPtr(v float64) *float64 { return &v }
