package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/nicktill/dimcluster/pkg/storage"
)

// Key prefixes
const (
	prefixMeta       byte = 0x01 // [0x01][name hash] -> JSON record
	prefixBatch      byte = 0x02 // [0x02][name hash][generation][batch seq] -> zstd JSON []cluster.Row
	prefixGeneration byte = 0x03 // [0x03][name hash] -> last generation, never deleted
)

// record is the stored metadata. Generation scopes batch keys, so a
// re-created dataset never sees batches left over from an earlier one.
type record struct {
	storage.Dataset
	Generation uint64 `json:"generation"`
}

// maxConflictRetries bounds retries when concurrent appends to one dataset collide
const maxConflictRetries = 5

// Storage implements storage.Storage using BadgerDB (LSM tree)
type Storage struct {
	db         *badger.DB
	compressor *Compressor
}

// Config holds BadgerDB configuration
type Config struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool

	// MaxMemoryMB limits BadgerDB memory usage in MB (0 = use defaults based on environment)
	MaxMemoryMB int64

	// CompressionLevel for row batches, 1 (fastest) to 4 (best). 0 = default
	CompressionLevel int
}

// New creates a BadgerDB storage backend
func New(cfg Config) (*Storage, error) {
	opts := badger.DefaultOptions(cfg.Path)

	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	// BadgerDB defaults: 64 MB memtable, 5 x 64 MB = 320 MB total.
	// Default here is 16 MB memtable + caches (~48 MB total).
	memTableSize := int64(16 * 1024 * 1024)
	if cfg.MaxMemoryMB > 0 {
		memTableSize = cfg.MaxMemoryMB * 1024 * 1024 / 3
	}

	blockCacheSize := memTableSize / 2
	indexCacheSize := memTableSize / 4

	opts = opts.
		// Batches are already zstd-compressed
		WithCompression(options.None).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize).
		WithNumMemtables(3).
		WithBlockCacheSize(blockCacheSize).
		WithIndexCacheSize(indexCacheSize).
		WithMaxLevels(4).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithNumCompactors(2).
		WithValueLogMaxEntries(5000).
		WithValueLogFileSize(64 << 20)

	compressor, err := NewCompressor(cfg.CompressionLevel)
	if err != nil {
		return nil, err
	}

	db, err := badger.Open(opts)
	if err != nil {
		compressor.Close()
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Storage{db: db, compressor: compressor}, nil
}

// Append writes rows as one compressed batch and updates dataset metadata
// in the same transaction.
func (s *Storage) Append(ctx context.Context, name string, rows []cluster.Row, opts ...storage.AppendOption) (*storage.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	appendOpts := storage.ApplyAppendOptions(opts)

	var batch []byte
	if len(rows) > 0 {
		var err error
		if batch, err = s.compressor.EncodeRows(rows); err != nil {
			return nil, err
		}
	}

	var info *storage.Dataset
	err := run(ctx, "append", func() error {
		return s.update(func(txn *badger.Txn) error {
			now := time.Now()
			current, err := getMeta(txn, name)
			if errors.Is(err, storage.ErrDatasetNotFound) {
				current, err = newRecord(txn, name, now)
			}
			if err != nil {
				return err
			}

			if batch != nil {
				key := batchKey(name, current.Generation, uint64(current.Batches))
				if err := txn.Set(key, batch); err != nil {
					return fmt.Errorf("failed to write batch: %w", err)
				}
				current.Rows += len(rows)
				current.Batches++
				current.Fields = storage.MergeFields(current.Fields, appendOpts.FieldOrder, rows)
			}
			current.UpdatedAt = now

			if err := putMeta(txn, current); err != nil {
				return err
			}
			dataset := current.Dataset
			info = &dataset
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Rows reads batches newest-first until Last rows are collected
func (s *Storage) Rows(ctx context.Context, name string, req storage.RowsRequest) ([]cluster.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []cluster.Row
	err := run(ctx, "rows", func() error {
		return s.db.View(func(txn *badger.Txn) error {
			current, err := getMeta(txn, name)
			if err != nil {
				return err
			}
			if current.Batches == 0 {
				result = []cluster.Row{}
				return nil
			}

			prefix := batchPrefix(name, current.Generation)
			opts := badger.DefaultIteratorOptions
			opts.Reverse = true
			opts.Prefix = prefix
			opts.PrefetchSize = 16

			it := txn.NewIterator(opts)
			defer it.Close()

			// Only batches the metadata accounts for are read
			seek := batchKey(name, current.Generation, uint64(current.Batches-1))

			var batches [][]cluster.Row
			total := 0
			for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}

				var rows []cluster.Row
				err := it.Item().Value(func(val []byte) error {
					var err error
					rows, err = s.compressor.DecodeRows(val)
					return err
				})
				if err != nil {
					return err
				}

				batches = append(batches, rows)
				total += len(rows)
				if req.Last > 0 && total >= req.Last {
					break
				}
			}

			result = make([]cluster.Row, 0, total)
			for i := len(batches) - 1; i >= 0; i-- {
				result = append(result, batches[i]...)
			}
			result = storage.Trailing(result, req.Last)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns dataset metadata
func (s *Storage) Get(ctx context.Context, name string) (*storage.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var info *storage.Dataset
	err := s.db.View(func(txn *badger.Txn) error {
		current, err := getMeta(txn, name)
		if err != nil {
			return err
		}
		info = &current.Dataset
		return nil
	})
	return info, err
}

// List returns all datasets sorted by name
func (s *Storage) List(ctx context.Context) ([]storage.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []storage.Dataset
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixMeta}

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("failed to decode dataset metadata: %w", err)
			}
			out = append(out, rec.Dataset)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes a dataset's metadata and all of its batches.
//
// The metadata is removed in a transaction that conflicts with any racing
// Append, so once it commits no further batch can land in the dataset's
// generation. The batches are then cleared outside the transaction, which
// keeps large datasets within badger's transaction size limit.
func (s *Storage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return run(ctx, "delete", func() error {
		var generation uint64
		err := s.update(func(txn *badger.Txn) error {
			current, err := getMeta(txn, name)
			if err != nil {
				return err
			}
			generation = current.Generation
			return txn.Delete(metaKey(name))
		})
		if err != nil {
			return err
		}
		return s.dropBatches(name, generation)
	})
}

func (s *Storage) dropBatches(name string, generation uint64) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = batchPrefix(name, generation)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil || len(keys) == 0 {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}
	}
	return wb.Flush()
}

// update runs fn in a read-write transaction, retrying on conflicts with
// concurrent writers to the same dataset.
func (s *Storage) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// Close shuts down BadgerDB cleanly
func (s *Storage) Close() error {
	err := s.db.Close()
	s.compressor.Close()
	return err
}

// RunGC runs BadgerDB's value log garbage collection
// discardRatio: run GC if this fraction of file can be discarded (0.5 = 50%)
// Returns error only if GC failed, nil if GC not needed or succeeded
func (s *Storage) RunGC(discardRatio float64) error {
	err := s.db.RunValueLogGC(discardRatio)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Stats returns storage statistics
func (s *Storage) Stats(ctx context.Context) (*storage.Stats, error) {
	datasets, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &storage.Stats{TotalDatasets: uint64(len(datasets))}
	for _, d := range datasets {
		stats.TotalRows += uint64(d.Rows)
		if d.UpdatedAt.After(stats.NewestUpdate) {
			stats.NewestUpdate = d.UpdatedAt
		}
	}

	lsmSize, vlogSize := s.db.Size()
	stats.SizeBytes = uint64(lsmSize + vlogSize)
	return stats, nil
}

// run executes fn off the caller's goroutine so a cancelled context returns
// promptly even while badger is blocked.
func run(ctx context.Context, op string, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s operation cancelled: %w", op, ctx.Err())
	}
}

func getMeta(txn *badger.Txn, name string) (*record, error) {
	item, err := txn.Get(metaKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrDatasetNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("failed to decode dataset metadata: %w", err)
	}

	if rec.Name != name {
		return nil, fmt.Errorf("dataset key collision between %q and %q", name, rec.Name)
	}
	return &rec, nil
}

func putMeta(txn *badger.Txn, rec *record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode dataset metadata: %w", err)
	}
	return txn.Set(metaKey(rec.Name), val)
}

// newRecord starts a dataset in the next unused generation
func newRecord(txn *badger.Txn, name string, now time.Time) (*record, error) {
	var generation uint64
	item, err := txn.Get(generationKey(name))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return nil, err
	default:
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt generation for %q", name)
			}
			generation = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return nil, err
		}
	}
	generation++

	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, generation)
	if err := txn.Set(generationKey(name), val); err != nil {
		return nil, fmt.Errorf("failed to write generation: %w", err)
	}

	return &record{
		Dataset:    storage.Dataset{Name: name, CreatedAt: now},
		Generation: generation,
	}, nil
}

// nameKey format: [prefix][xxhash(name) (8 bytes)]
func nameKey(prefix byte, name string) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:9], xxhash.Sum64String(name))
	return key
}

func metaKey(name string) []byte {
	return nameKey(prefixMeta, name)
}

func generationKey(name string) []byte {
	return nameKey(prefixGeneration, name)
}

// batchPrefix format: [0x02][xxhash(name) (8 bytes)][generation (8 bytes)]
func batchPrefix(name string, generation uint64) []byte {
	key := make([]byte, 17)
	copy(key, nameKey(prefixBatch, name))
	binary.BigEndian.PutUint64(key[9:17], generation)
	return key
}

// batchKey appends a big-endian sequence so batches sort in append order
func batchKey(name string, generation, seq uint64) []byte {
	key := make([]byte, 25)
	copy(key, batchPrefix(name, generation))
	binary.BigEndian.PutUint64(key[17:25], seq)
	return key
}
