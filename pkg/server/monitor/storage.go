package monitor

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/nicktill/dimcluster/pkg/storage"
)

// DefaultRefreshInterval bounds how often usage is recomputed
const DefaultRefreshInterval = 10 * time.Second

// StorageUsage is the JSON form of the current usage
type StorageUsage struct {
	UsedBytes int64   `json:"used_bytes"`
	MaxBytes  int64   `json:"max_bytes"`
	Percent   float64 `json:"percent,omitempty"`
}

// StorageMonitor tracks storage usage with caching to avoid expensive scans.
// It satisfies api.StorageChecker.
type StorageMonitor struct {
	measure       func() (int64, error)
	maxBytes      int64
	cachedUsage   int64
	lastCheck     time.Time
	cacheDuration time.Duration
	mu            sync.Mutex
}

// NewStorageMonitor measures the on-disk size of dataDir
func NewStorageMonitor(dataDir string, maxBytes int64) *StorageMonitor {
	return &StorageMonitor{
		measure:       func() (int64, error) { return dirSize(dataDir) },
		maxBytes:      maxBytes,
		cacheDuration: DefaultRefreshInterval,
	}
}

// NewStoreMonitor measures a store through its Stats, for backends
// without a data directory (memory).
func NewStoreMonitor(store storage.Storage, maxBytes int64) *StorageMonitor {
	return &StorageMonitor{
		measure: func() (int64, error) {
			stats, err := store.Stats(context.Background())
			if err != nil {
				return 0, err
			}
			return int64(stats.SizeBytes), nil
		},
		maxBytes:      maxBytes,
		cacheDuration: DefaultRefreshInterval,
	}
}

// GetUsage returns current storage usage in bytes (cached).
func (sm *StorageMonitor) GetUsage() (int64, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.lastCheck.IsZero() && time.Since(sm.lastCheck) < sm.cacheDuration {
		return sm.cachedUsage, nil
	}

	usage, err := sm.measure()
	if err != nil {
		return 0, err
	}

	sm.cachedUsage = usage
	sm.lastCheck = time.Now()
	return usage, nil
}

// GetLimit returns the configured storage limit in bytes (0 = unlimited).
func (sm *StorageMonitor) GetLimit() int64 {
	return sm.maxBytes
}

// Usage returns usage and limit together
func (sm *StorageMonitor) Usage() (StorageUsage, error) {
	used, err := sm.GetUsage()
	if err != nil {
		return StorageUsage{}, err
	}

	u := StorageUsage{UsedBytes: used, MaxBytes: sm.maxBytes}
	if sm.maxBytes > 0 {
		u.Percent = float64(used) / float64(sm.maxBytes) * 100
	}
	return u, nil
}

// dirSize sums actual disk usage (not logical size) of every file under path
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// File vanished mid-walk (badger compaction)
			return nil
		}
		size += diskUsage(p, info)
		return nil
	})
	return size, err
}
