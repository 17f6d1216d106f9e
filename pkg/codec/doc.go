// Package codec translates between JSON and the cluster engine's types.
//
// Requests look like:
//
//	{
//	  "rows": [{"timestamp": 0, "A": 1, "B": 1}, ...],
//	  "dimensions": ["A", "B"],
//	  "settings": {"window_size": 50, "eps": 1.5}
//	}
//
// Responses carry the clusters, the shared y-domain as [min, max] (null when
// the window has no values) and the assignment as [dimension, index] pairs,
// with -1 standing in for an unassigned dimension.
//
// Every decode failure is returned as a *DecodeError.
package codec
