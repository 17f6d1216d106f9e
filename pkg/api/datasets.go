package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/nicktill/dimcluster/pkg/codec"
	"github.com/nicktill/dimcluster/pkg/config"
	"github.com/nicktill/dimcluster/pkg/httpx"
	"github.com/nicktill/dimcluster/pkg/storage"
)

// AppendResponse is returned by dataset appends
type AppendResponse struct {
	Dataset  *storage.Dataset `json:"dataset"`
	Appended int              `json:"appended"`

	// Result is set when the request asked to watch the dataset
	Result *codec.Response `json:"result,omitempty"`
}

// DatasetList is returned by GET /v1/datasets
type DatasetList struct {
	Datasets []storage.Dataset `json:"datasets"`
	Count    int               `json:"count"`
}

// StatsResponse is returned by GET /v1/stats
type StatsResponse struct {
	Storage          *storage.Stats `json:"storage"`
	CachedResults    int            `json:"cached_results"`
	WebSocketClients int            `json:"websocket_clients"`
	UsedBytes        int64          `json:"used_bytes,omitempty"`
	MaxBytes         int64          `json:"max_bytes,omitempty"`
}

// ValidateName rejects requests whose {name} path variable is not a valid dataset name
func (h *Handler) ValidateName(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if name, ok := mux.Vars(r)["name"]; ok {
			if err := ValidateDatasetName(name); err != nil {
				httpx.RespondError(w, http.StatusBadRequest, err)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStorage refuses writes with 507 once the storage limit is reached
func (h *Handler) RequireStorage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checkStorage(h.checker); err != nil {
			if errors.Is(err, ErrStorageLimitReached) {
				h.metrics.ObserveStorageRefusal()
				log.Printf("⚠️  Refusing write: %v", err)
				httpx.RespondError(w, http.StatusInsufficientStorage, err)
				return
			}
			// Usage unknown; fail open like a missing monitor
			log.Printf("Storage check failed: %v", err)
		}
		next(w, r)
	}
}

// HandleAppend handles POST /v1/datasets/{name}/rows
func (h *Handler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	req, err := codec.DecodeAppendRequest(http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes))
	if err != nil {
		h.respondDecodeError(w, err)
		return
	}
	dims := 0
	if req.Watch != nil {
		dims = len(req.Watch.Dimensions)
	}
	if err := ValidateRequestSize(len(req.Rows), dims); err != nil {
		httpx.RespondError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	info, err := h.store.Append(r.Context(), name, req.Rows)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	h.metrics.ObserveAppend(len(req.Rows))

	resp := AppendResponse{Dataset: info, Appended: len(req.Rows)}

	if req.Watch != nil {
		warnClusterCount(req.Watch.Settings)
		result, err := h.clusterDataset(r, info, req.Watch.Dimensions, req.Watch.Settings)
		if err != nil {
			// Rows are already stored; report the append and skip the update
			log.Printf("Watch recluster of %q failed: %v", name, err)
		} else {
			encoded := codec.NewResponse(result)
			resp.Result = &encoded
			h.broadcast(info, encoded)
		}
	}

	httpx.RespondJSON(w, http.StatusOK, resp)
}

// HandleDatasetCluster handles POST /v1/datasets/{name}/cluster
func (h *Handler) HandleDatasetCluster(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	req, err := codec.DecodeDatasetClusterRequest(http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes))
	if err != nil {
		h.respondDecodeError(w, err)
		return
	}
	if err := ValidateRequestSize(0, len(req.Dimensions)); err != nil {
		httpx.RespondError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	warnClusterCount(req.Settings)

	info, err := h.store.Get(r.Context(), name)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	result, err := h.clusterDataset(r, info, req.Dimensions, req.Settings)
	if err != nil {
		if errors.Is(err, ErrClusterTimeout) || r.Context().Err() != nil {
			h.respondRunError(w, err)
			return
		}
		respondStoreError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, codec.NewResponse(result))
}

// clusterDataset reads the rows the pipeline will see and runs it.
// Without a window only the trailing MaxRowsPerRequest rows are read.
func (h *Handler) clusterDataset(r *http.Request, info *storage.Dataset, dimensions []string, settings cluster.Settings) (cluster.Result, error) {
	if len(dimensions) == 0 {
		dimensions = info.Fields
	}
	if err := ValidateRequestSize(0, len(dimensions)); err != nil {
		return cluster.Result{}, err
	}

	last := config.MaxRowsPerRequest
	if settings.WindowSize != nil {
		last = max(*settings.WindowSize, 1)
	}

	rows, err := h.store.Rows(r.Context(), info.Name, storage.RowsRequest{Last: last})
	if err != nil {
		return cluster.Result{}, err
	}
	return h.runPipeline(r.Context(), "dataset", rows, dimensions, settings)
}

func (h *Handler) broadcast(info *storage.Dataset, result codec.Response) {
	if h.hub == nil || !h.hub.HasClients() {
		return
	}

	update := ClustersUpdate{
		Type:      UpdateType,
		Dataset:   info.Name,
		Rows:      info.Rows,
		Timestamp: time.Now().Unix(),
		Result:    result,
	}
	if err := h.hub.Broadcast(update); err != nil {
		log.Printf("Failed to broadcast cluster update: %v", err)
		return
	}
	h.metrics.ObserveBroadcast()
}

// HandleListDatasets handles GET /v1/datasets
func (h *Handler) HandleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.store.List(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if datasets == nil {
		datasets = []storage.Dataset{}
	}
	httpx.RespondJSON(w, http.StatusOK, DatasetList{Datasets: datasets, Count: len(datasets)})
}

// HandleGetDataset handles GET /v1/datasets/{name}
func (h *Handler) HandleGetDataset(w http.ResponseWriter, r *http.Request) {
	info, err := h.store.Get(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondStoreError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, info)
}

// HandleDeleteDataset handles DELETE /v1/datasets/{name}
func (h *Handler) HandleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.store.Delete(r.Context(), name); err != nil {
		respondStoreError(w, err)
		return
	}
	log.Printf("Deleted dataset %q", name)
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "dataset": name})
}

// HandleStats handles GET /v1/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	resp := StatsResponse{
		Storage:       stats,
		CachedResults: h.cache.Len(),
	}
	if h.hub != nil {
		resp.WebSocketClients = h.hub.ClientCount()
	}
	if h.checker != nil {
		if used, err := h.checker.GetUsage(); err == nil {
			resp.UsedBytes = used
		}
		resp.MaxBytes = h.checker.GetLimit()
	}

	httpx.RespondJSON(w, http.StatusOK, resp)
}

func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrDatasetNotFound):
		httpx.RespondError(w, http.StatusNotFound, err)
	case errors.Is(err, ErrTooManyDimensions), errors.Is(err, ErrTooManyRows):
		httpx.RespondError(w, http.StatusRequestEntityTooLarge, err)
	default:
		log.Printf("❌ Storage error: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, err)
	}
}
