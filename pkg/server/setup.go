package server

import (
	"fmt"
	"log"
	"os"

	"github.com/nicktill/dimcluster/pkg/api"
	"github.com/nicktill/dimcluster/pkg/config"
	"github.com/nicktill/dimcluster/pkg/export"
	"github.com/nicktill/dimcluster/pkg/server/monitor"
	"github.com/nicktill/dimcluster/pkg/storage"
	"github.com/nicktill/dimcluster/pkg/storage/badger"
	"github.com/nicktill/dimcluster/pkg/storage/memory"
)

// Handlers bundles everything SetupRoutes and main need
type Handlers struct {
	API            *api.Handler
	Export         *export.Handler
	Hub            *api.Hub
	Metrics        *api.Metrics
	StorageMonitor *monitor.StorageMonitor
	GCMonitor      *monitor.TaskMonitor
}

// InitializeStorage opens the configured storage backend.
func InitializeStorage(cfg config.Config) (storage.Storage, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		log.Println("Using in-memory storage (datasets are lost on restart)")
		return memory.New(), nil
	case config.StorageBadger:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		log.Printf("Initializing BadgerDB storage at %s (zstd row batches)...", cfg.DataDir)
		store, err := badger.New(badger.Config{
			Path:        cfg.DataDir,
			MaxMemoryMB: cfg.MaxMemoryMB,
		})
		if err != nil {
			return nil, err
		}
		log.Println("BadgerDB storage initialized successfully")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// InitializeHandlers creates and configures all request handlers.
func InitializeHandlers(cfg config.Config, store storage.Storage) *Handlers {
	var storageMonitor *monitor.StorageMonitor
	if cfg.Storage == config.StorageBadger {
		storageMonitor = monitor.NewStorageMonitor(cfg.DataDir, cfg.MaxStorageBytes())
	} else {
		storageMonitor = monitor.NewStoreMonitor(store, cfg.MaxStorageBytes())
	}

	cache := api.NewResultCache(cfg.CacheSize, cfg.CacheTTL)
	hub := api.NewHub()
	metrics := api.NewMetrics()

	apiHandler := api.NewHandler(store, cache, hub, metrics)
	apiHandler.SetStorageChecker(storageMonitor)
	log.Printf("Cluster handler created (result cache: %d entries, ttl %v)", cfg.CacheSize, cfg.CacheTTL)

	exportHandler := export.NewHandler(store)
	log.Println("Export/Import handler created (JSON & CSV)")

	return &Handlers{
		API:            apiHandler,
		Export:         exportHandler,
		Hub:            hub,
		Metrics:        metrics,
		StorageMonitor: storageMonitor,
		GCMonitor:      &monitor.TaskMonitor{},
	}
}
