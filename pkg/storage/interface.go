package storage

import (
	"context"
	"errors"
	"maps"
	"sort"
	"time"

	"github.com/nicktill/dimcluster/pkg/cluster"
)

// ErrDatasetNotFound is returned for operations on unknown datasets
var ErrDatasetNotFound = errors.New("dataset not found")

// Storage defines the interface for dataset storage backends.
// Implementations: memory (testing), badger (production)
type Storage interface {
	// Append adds rows to the end of a dataset, creating it if needed
	Append(ctx context.Context, name string, rows []cluster.Row, opts ...AppendOption) (*Dataset, error)

	// Rows returns a dataset's rows in insertion order
	Rows(ctx context.Context, name string, req RowsRequest) ([]cluster.Row, error)

	// Get returns dataset metadata
	Get(ctx context.Context, name string) (*Dataset, error)

	// List returns all datasets sorted by name
	List(ctx context.Context) ([]Dataset, error)

	// Delete removes a dataset and all of its rows
	Delete(ctx context.Context, name string) error

	// Stats returns storage statistics
	Stats(ctx context.Context) (*Stats, error)

	// Close cleanly shuts down the storage
	Close() error
}

// AppendOptions holds optional Append parameters
type AppendOptions struct {
	// FieldOrder ranks new fields, e.g. a CSV header. Fields it does not
	// name are added after it in sorted order.
	FieldOrder []string
}

// AppendOption configures a single Append
type AppendOption func(*AppendOptions)

// WithFieldOrder records new fields in the given order instead of sorted
func WithFieldOrder(fields []string) AppendOption {
	return func(o *AppendOptions) {
		o.FieldOrder = fields
	}
}

// ApplyAppendOptions folds opts into an AppendOptions value
func ApplyAppendOptions(opts []AppendOption) AppendOptions {
	var o AppendOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RowsRequest specifies which rows to retrieve
type RowsRequest struct {
	// Last keeps only the trailing N rows (0 = all)
	Last int
}

// Dataset describes a stored row sequence
type Dataset struct {
	Name string `json:"name"`

	// Rows is the total number of rows appended
	Rows int `json:"rows"`

	// Batches is the number of Append calls that wrote rows
	Batches int `json:"batches"`

	// Fields lists every non-timestamp field seen, in first-seen order
	Fields []string `json:"fields"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats provides storage health and usage info
type Stats struct {
	TotalDatasets uint64 `json:"total_datasets"`
	TotalRows     uint64 `json:"total_rows"`

	// Storage size in bytes (estimated for memory storage)
	SizeBytes uint64 `json:"size_bytes"`

	NewestUpdate time.Time `json:"newest_update"`
}

// MergeFields appends fields first seen in rows to known.
//
// Fields named in order that occur anywhere in rows come first, in that
// order. Remaining fields are added row by row; fields new in the same row
// are sorted, since map iteration order carries no meaning.
func MergeFields(known, order []string, rows []cluster.Row) []string {
	seen := make(map[string]bool, len(known))
	for _, f := range known {
		seen[f] = true
	}

	for _, f := range order {
		if f == cluster.TimestampField || seen[f] || !anyHas(rows, f) {
			continue
		}
		seen[f] = true
		known = append(known, f)
	}

	var fresh []string
	for _, row := range rows {
		fresh = fresh[:0]
		for field := range row {
			if field == cluster.TimestampField || seen[field] {
				continue
			}
			fresh = append(fresh, field)
		}
		sort.Strings(fresh)
		for _, f := range fresh {
			seen[f] = true
			known = append(known, f)
		}
	}
	return known
}

func anyHas(rows []cluster.Row, field string) bool {
	for _, row := range rows {
		if _, ok := row[field]; ok {
			return true
		}
	}
	return false
}

// CloneRows deep-copies rows so stored data never aliases caller maps
func CloneRows(rows []cluster.Row) []cluster.Row {
	out := make([]cluster.Row, len(rows))
	for i, row := range rows {
		out[i] = maps.Clone(row)
	}
	return out
}

// Trailing returns the last n rows (all rows when n <= 0)
func Trailing(rows []cluster.Row, n int) []cluster.Row {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[len(rows)-n:]
}
