package cluster

import "math"

// DistanceFunc scores the dissimilarity of b relative to the reference a
type DistanceFunc func(a, b *Series) float64

// Distance is the Euclidean distance over a's timestamps.
// A timestamp missing from b counts as 0, and b's extra timestamps are
// ignored, so Distance(a, b) and Distance(b, a) differ when coverage does.
// An empty a is at distance 0 from everything.
func Distance(a, b *Series) float64 {
	var sum float64
	for _, ts := range a.keys {
		va := a.values[ts]
		vb := b.values[ts] // zero when missing
		d := va - vb
		sum += d * d
	}
	return math.Sqrt(sum)
}
