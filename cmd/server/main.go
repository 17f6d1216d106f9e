package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/nicktill/dimcluster/pkg/config"
	"github.com/nicktill/dimcluster/pkg/server"
)

func main() {
	log.Println("🚀 Starting dimcluster server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	if cfg.MaxStorageGB > 0 {
		log.Printf("⚙️  Configuration: storage=%s, limit = %d GB, memory limit = %d MB",
			cfg.Storage, cfg.MaxStorageGB, cfg.MaxMemoryMB)
	} else {
		log.Printf("⚙️  Configuration: storage=%s, no storage limit, memory limit = %d MB",
			cfg.Storage, cfg.MaxMemoryMB)
	}

	store, err := server.InitializeStorage(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize storage: %v", err)
	}
	defer store.Close()

	handlers := server.InitializeHandlers(cfg, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		handlers.Hub.Run(ctx)
	}()
	log.Println("📡 WebSocket hub started for cluster updates")

	stopGC := make(chan struct{})
	wg.Add(1)
	go server.RunBadgerGC(store, handlers.GCMonitor, stopGC, &wg)

	router := mux.NewRouter()
	server.SetupRoutes(router, handlers)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	go func() {
		log.Printf("🌐 Server starting on http://localhost:%s", cfg.Port)
		log.Println("📡 API endpoints:")
		log.Println("   POST /v1/cluster                  - Cluster rows")
		log.Println("   POST /v1/cluster/history          - Sliding-window history")
		log.Println("   POST /v1/datasets/{name}/rows     - Append rows")
		log.Println("   POST /v1/datasets/{name}/cluster  - Cluster a stored dataset")
		log.Println("   GET  /v1/datasets/{name}/export   - Export JSON/CSV")
		log.Println("   GET  /v1/ws                       - Live cluster updates")
		log.Println("   GET  /metrics                     - Prometheus endpoint")
		log.Println("✅ Server ready to accept requests")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutdown signal received...")

	// Cancel before wg.Wait() or hub.Run never returns
	log.Println("⏸️  Stopping background tasks...")
	cancel()
	close(stopGC)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()

	log.Println("🔄 Gracefully shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown warning: %v", err)
	}

	log.Println("⏳ Waiting for background tasks to complete...")
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("✅ All background tasks stopped cleanly")
	case <-time.After(5 * time.Second):
		log.Println("⚠️  Some background tasks did not stop in time (forcing exit)")
	}

	log.Println("👋 dimcluster server exited cleanly")
}
