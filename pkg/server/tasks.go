package server

import (
	"log"
	"sync"
	"time"

	"github.com/nicktill/dimcluster/pkg/config"
	"github.com/nicktill/dimcluster/pkg/server/monitor"
	"github.com/nicktill/dimcluster/pkg/storage"
	"github.com/nicktill/dimcluster/pkg/storage/badger"
)

// valueLogCollector is satisfied by *badger.Storage
type valueLogCollector interface {
	RunGC(discardRatio float64) error
}

var _ valueLogCollector = (*badger.Storage)(nil)

// RunBadgerGC runs value log garbage collection periodically to reclaim disk
// space left behind by deleted datasets. It returns immediately for stores
// without a value log.
func RunBadgerGC(store storage.Storage, tm *monitor.TaskMonitor, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	collector, ok := store.(valueLogCollector)
	if !ok {
		log.Println("Storage is not BadgerDB, skipping GC")
		return
	}

	runGCLoop(collector, tm, config.BadgerGCInterval, stop)
}

func runGCLoop(collector valueLogCollector, tm *monitor.TaskMonitor, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("BadgerDB GC scheduler started (runs every %v)", interval)

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			if err := collector.RunGC(config.BadgerGCDiscardRatio); err != nil {
				tm.RecordFailure(err)
				log.Printf("❌ GC failed: %v", err)
				if !tm.IsHealthy() {
					log.Printf("🚨 GC has failed %d times in a row", tm.Status().ConsecutiveErrors)
				}
				continue
			}
			tm.RecordSuccess()
			log.Printf("GC completed in %v", time.Since(start).Round(time.Millisecond))
		case <-stop:
			log.Println("Stopping BadgerDB GC scheduler")
			return
		}
	}
}
