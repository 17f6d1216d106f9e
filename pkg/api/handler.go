package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/nicktill/dimcluster/pkg/codec"
	"github.com/nicktill/dimcluster/pkg/config"
	"github.com/nicktill/dimcluster/pkg/httpx"
	"github.com/nicktill/dimcluster/pkg/storage"
)

// CacheHeader reports whether an inline result came from the ResultCache
const CacheHeader = "X-Cache"

// ErrClusterTimeout is returned when a pipeline run exceeds the request budget
var ErrClusterTimeout = errors.New("clustering timed out")

// Handler serves the clustering and dataset endpoints
type Handler struct {
	store   storage.Storage
	cache   *ResultCache
	hub     *Hub
	metrics *Metrics
	checker StorageChecker
	timeout time.Duration
}

// NewHandler creates a handler. cache, hub and metrics may be nil.
func NewHandler(store storage.Storage, cache *ResultCache, hub *Hub, metrics *Metrics) *Handler {
	return &Handler{
		store:   store,
		cache:   cache,
		hub:     hub,
		metrics: metrics,
		timeout: config.ClusterTimeout,
	}
}

// SetStorageChecker enables the storage limit check on writes
func (h *Handler) SetStorageChecker(checker StorageChecker) {
	h.checker = checker
}

// HandleCluster handles POST /v1/cluster
func (h *Handler) HandleCluster(w http.ResponseWriter, r *http.Request) {
	req, err := codec.DecodeRequest(http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes))
	if err != nil {
		h.respondDecodeError(w, err)
		return
	}
	if err := ValidateRequestSize(len(req.Rows), len(req.Dimensions)); err != nil {
		httpx.RespondError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	warnClusterCount(req.Settings)

	key, cacheable := h.cache.Key(req)
	if cacheable {
		if result, ok := h.cache.Get(key); ok {
			h.metrics.ObserveCache(true)
			w.Header().Set(CacheHeader, "HIT")
			httpx.RespondJSON(w, http.StatusOK, codec.NewResponse(result))
			return
		}
		h.metrics.ObserveCache(false)
	}

	result, err := h.runPipeline(r.Context(), "cluster", req.Rows, req.Dimensions, req.Settings)
	if err != nil {
		h.respondRunError(w, err)
		return
	}

	if cacheable {
		h.cache.Put(key, result)
		w.Header().Set(CacheHeader, "MISS")
	}
	httpx.RespondJSON(w, http.StatusOK, codec.NewResponse(result))
}

// HandleHistory handles POST /v1/cluster/history
//
// The response holds one snapshot per replayed row, the current result over
// the trailing window, and per-cluster highlights comparing the current
// assignment with the last history_depth snapshots (0 = all).
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	req, err := codec.DecodeHistoryRequest(http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes))
	if err != nil {
		h.respondDecodeError(w, err)
		return
	}
	if err := ValidateRequestSize(len(req.Rows), len(req.Dimensions)); err != nil {
		httpx.RespondError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	warnClusterCount(req.Settings)

	var resp codec.HistoryResponse
	start := time.Now()
	err = h.compute(r.Context(), func() {
		resp = BuildHistory(req)
	})
	if err != nil {
		h.respondRunError(w, err)
		return
	}
	h.metrics.ObserveRun("history", req.Settings.ClusteringEnabled(), len(resp.Result.Clusters), time.Since(start))

	httpx.RespondJSON(w, http.StatusOK, resp)
}

// BuildHistory runs the pipeline, replays it over time and highlights
// dimensions whose cluster differs from the last HistoryDepth snapshots.
func BuildHistory(req codec.HistoryRequest) codec.HistoryResponse {
	result := cluster.Run(req.Rows, req.Dimensions, req.Settings)
	snapshots := cluster.OverTime(req.Rows, req.Dimensions, req.Settings)

	history := snapshots
	if req.HistoryDepth > 0 && req.HistoryDepth < len(history) {
		history = history[len(history)-req.HistoryDepth:]
	}
	highlights := cluster.HighlightChanges(result.Clusters, result.Assignment, history)

	return codec.NewHistoryResponse(snapshots, highlights, result)
}

// runPipeline runs cluster.Run under the handler's timeout and records metrics
func (h *Handler) runPipeline(ctx context.Context, endpoint string, rows []cluster.Row, dimensions []string, settings cluster.Settings) (cluster.Result, error) {
	var result cluster.Result
	start := time.Now()
	err := h.compute(ctx, func() {
		result = cluster.Run(rows, dimensions, settings)
	})
	if err != nil {
		return cluster.Result{}, err
	}
	h.metrics.ObserveRun(endpoint, settings.ClusteringEnabled(), len(result.Clusters), time.Since(start))
	return result, nil
}

// compute runs fn on its own goroutine so the request can give up on it.
// fn keeps running to completion in the background after a timeout.
func (h *Handler) compute(ctx context.Context, fn func()) error {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %v", ErrClusterTimeout, h.timeout)
		}
		return ctx.Err()
	}
}

func (h *Handler) respondDecodeError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		httpx.RespondErrorString(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body too large (max %d bytes)", maxErr.Limit))
		return
	}

	var decodeErr *codec.DecodeError
	if errors.As(err, &decodeErr) {
		h.metrics.ObserveDecodeError(decodeErr.Stage)
	}
	httpx.RespondError(w, http.StatusBadRequest, err)
}

func (h *Handler) respondRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrClusterTimeout) {
		log.Printf("⚠️  %v", err)
		httpx.RespondError(w, http.StatusServiceUnavailable, err)
		return
	}
	// Client went away
	log.Printf("Clustering abandoned: %v", err)
	httpx.RespondError(w, http.StatusServiceUnavailable, err)
}

// warnClusterCount logs requests that set the unsupported cluster_count
func warnClusterCount(settings cluster.Settings) {
	if settings.ClusterCount != nil {
		log.Printf("cluster_count=%d ignored: count-based clustering is not available, using eps", *settings.ClusterCount)
	}
}
