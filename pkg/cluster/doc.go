/*
Package cluster groups numeric time-series dimensions (chart columns) into
clusters of mutually similar series so a chart can draw them on shared axes.

# Pipeline

Run executes the whole engine as one pure, synchronous call:

	rows ──► Window ──► BuildSeries ──► ThresholdClusterer ──► Aggregate
	                                                             │
	              ComputeDomain (windowed rows) ◄────────────────┤
	              Assign (dimension → cluster index) ◄───────────┘

Nothing is shared between calls and nothing is cached. Callers own all I/O;
see pkg/codec for the JSON boundary.

# Distance

Distance(a, b) is a Euclidean distance that only visits a's timestamps and
treats a timestamp missing from b as 0. It is directional:

	Distance(a, b) != Distance(b, a)   // when coverage differs

The clusterer always uses the series being expanded as the reference.

# Clustering

With Settings.Eps set, dimensions are grouped by eps-reachability: two
dimensions end up in the same cluster when a chain of neighbor hops
(Distance <= eps) connects them. Every dimension lands in exactly one
cluster; dimensions without neighbors form singleton clusters. Clusters are
emitted in the order their seed dimension appears in the input.

Without Settings.Eps, clustering is skipped and the windowed rows are
returned as the only cluster.

# Sentinels

  - Domain.Empty(): no non-timestamp values in the window (+Inf, -Inf)
  - Unassigned: the Assignment Mapper could not find a dimension in the
    first row of any cluster

Settings.ClusterCount is accepted but has no effect.
*/
package cluster
