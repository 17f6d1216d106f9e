package api

import (
	"github.com/gorilla/mux"
	"github.com/nicktill/dimcluster/pkg/export"
)

// RegisterRoutes mounts the API under /v1 and metrics at /metrics
func (h *Handler) RegisterRoutes(router *mux.Router, exportHandler *export.Handler) {
	v1 := router.PathPrefix("/v1").Subrouter()

	// Inline clustering
	v1.HandleFunc("/cluster", h.HandleCluster).Methods("POST")
	v1.HandleFunc("/cluster/history", h.HandleHistory).Methods("POST")

	// Datasets
	v1.HandleFunc("/datasets", h.HandleListDatasets).Methods("GET")

	ds := v1.PathPrefix("/datasets/{name}").Subrouter()
	ds.Use(h.ValidateName)
	ds.HandleFunc("", h.HandleGetDataset).Methods("GET")
	ds.HandleFunc("", h.HandleDeleteDataset).Methods("DELETE")
	ds.HandleFunc("/rows", h.RequireStorage(h.HandleAppend)).Methods("POST")
	ds.HandleFunc("/cluster", h.HandleDatasetCluster).Methods("POST")

	// Export/import
	if exportHandler != nil {
		ds.HandleFunc("/export", exportHandler.HandleExport).Methods("GET")
		ds.HandleFunc("/import", h.RequireStorage(exportHandler.HandleImport)).Methods("POST")
	}

	v1.HandleFunc("/stats", h.HandleStats).Methods("GET")

	if h.hub != nil {
		v1.HandleFunc("/ws", h.hub.HandleWebSocket).Methods("GET")
	}

	if h.metrics != nil {
		router.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	}
}
