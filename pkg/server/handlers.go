package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nicktill/dimcluster/pkg/httpx"
	"github.com/nicktill/dimcluster/pkg/server/monitor"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

var startTime = time.Now()

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string             `json:"status"`
	Version string             `json:"version"`
	Uptime  string             `json:"uptime"`
	GC      monitor.TaskStatus `json:"gc"`
}

// handleHealth reports degraded (503) once value-log GC keeps failing.
func handleHealth(gc *monitor.TaskMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := gc.Status()

		response := HealthResponse{
			Status:  "healthy",
			Version: Version,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			GC:      status,
		}

		code := http.StatusOK
		if !status.Healthy {
			response.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		httpx.RespondJSON(w, code, response)
	}
}

func handleStorageUsage(sm *monitor.StorageMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		usage, err := sm.Usage()
		if err != nil {
			httpx.RespondError(w, http.StatusInternalServerError, err)
			return
		}
		httpx.RespondJSON(w, http.StatusOK, usage)
	}
}

// SetupRoutes configures all HTTP routes for the server.
func SetupRoutes(router *mux.Router, h *Handlers) {
	router.Use(httpx.CORS, httpx.RequestID, httpx.Logging)

	router.HandleFunc("/v1/health", handleHealth(h.GCMonitor)).Methods("GET")
	router.HandleFunc("/v1/storage", handleStorageUsage(h.StorageMonitor)).Methods("GET")

	h.API.RegisterRoutes(router, h.Export)
}
