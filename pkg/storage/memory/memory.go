package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/nicktill/dimcluster/pkg/storage"
)

// Storage stores datasets in memory. Data is lost on restart.
// Useful for testing and development.
type Storage struct {
	datasets map[string]*entry
	mu       sync.RWMutex
}

type entry struct {
	info storage.Dataset
	rows []cluster.Row
}

// New creates an in-memory storage backend
func New() *Storage {
	return &Storage{
		datasets: make(map[string]*entry),
	}
}

// Append stores a copy of rows at the end of the named dataset
func (s *Storage) Append(ctx context.Context, name string, rows []cluster.Row, opts ...storage.AppendOption) (*storage.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.datasets[name]
	if !ok {
		e = &entry{info: storage.Dataset{Name: name, CreatedAt: now}}
		s.datasets[name] = e
	}

	if len(rows) > 0 {
		e.rows = append(e.rows, storage.CloneRows(rows)...)
		e.info.Rows += len(rows)
		e.info.Batches++
		e.info.Fields = storage.MergeFields(e.info.Fields, storage.ApplyAppendOptions(opts).FieldOrder, rows)
	}
	e.info.UpdatedAt = now

	info := copyInfo(e.info)
	return &info, nil
}

// Rows returns copies of the dataset's rows
func (s *Storage) Rows(ctx context.Context, name string, req storage.RowsRequest) ([]cluster.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.datasets[name]
	if !ok {
		return nil, storage.ErrDatasetNotFound
	}
	return storage.CloneRows(storage.Trailing(e.rows, req.Last)), nil
}

// Get returns dataset metadata
func (s *Storage) Get(ctx context.Context, name string) (*storage.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.datasets[name]
	if !ok {
		return nil, storage.ErrDatasetNotFound
	}
	info := copyInfo(e.info)
	return &info, nil
}

// List returns all datasets sorted by name
func (s *Storage) List(ctx context.Context) ([]storage.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.Dataset, 0, len(s.datasets))
	for _, e := range s.datasets {
		out = append(out, copyInfo(e.info))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes a dataset
func (s *Storage) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[name]; !ok {
		return storage.ErrDatasetNotFound
	}
	delete(s.datasets, name)
	return nil
}

// Close is a no-op for memory storage
func (s *Storage) Close() error {
	return nil
}

// Stats returns storage statistics
func (s *Storage) Stats(ctx context.Context) (*storage.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &storage.Stats{
		TotalDatasets: uint64(len(s.datasets)),
	}

	for _, e := range s.datasets {
		stats.TotalRows += uint64(e.info.Rows)
		if e.info.UpdatedAt.After(stats.NewestUpdate) {
			stats.NewestUpdate = e.info.UpdatedAt
		}
		// Rough size estimate (each field ~16 bytes)
		for _, row := range e.rows {
			stats.SizeBytes += uint64(len(row)) * 16
		}
	}

	return stats, nil
}

func copyInfo(info storage.Dataset) storage.Dataset {
	info.Fields = append([]string(nil), info.Fields...)
	return info
}
