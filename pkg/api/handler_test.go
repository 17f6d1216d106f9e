package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/nicktill/dimcluster/pkg/codec"
	"github.com/nicktill/dimcluster/pkg/export"
	"github.com/nicktill/dimcluster/pkg/httpx"
	"github.com/nicktill/dimcluster/pkg/storage"
	"github.com/nicktill/dimcluster/pkg/storage/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const scenarioBody = `{
	"rows": [
		{"timestamp": 0, "A": 1, "B": 1, "C": 10},
		{"timestamp": 1, "A": 2, "B": 2, "C": 20},
		{"timestamp": 2, "A": 3, "B": 3, "C": 30}
	],
	"dimensions": ["A", "B", "C"],
	"settings": {"eps": 1.0}
}`

type testEnv struct {
	handler *Handler
	store   *memory.Storage
	hub     *Hub
	metrics *Metrics
	router  *mux.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	hub := NewHub()
	metrics := NewMetrics()
	h := NewHandler(store, NewResultCache(16, time.Minute), hub, metrics)

	router := mux.NewRouter()
	h.RegisterRoutes(router, export.NewHandler(store))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	return &testEnv{handler: h, store: store, hub: hub, metrics: metrics, router: router}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) codec.Response {
	t.Helper()
	var resp codec.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHandleCluster(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/v1/cluster", scenarioBody)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "MISS", w.Header().Get(CacheHeader))

	resp := decodeResponse(t, w)
	require.Len(t, resp.Clusters, 2)
	require.Equal(t, []codec.Pair{{Dimension: "A", Cluster: 0}, {Dimension: "B", Cluster: 0}, {Dimension: "C", Cluster: 1}}, resp.Assignment)
	require.NotNil(t, resp.YDomain)
	require.Equal(t, [2]float64{1, 30}, *resp.YDomain)

	// Identical request is served from the cache
	w = env.do(http.MethodPost, "/v1/cluster", scenarioBody)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "HIT", w.Header().Get(CacheHeader))
	require.Equal(t, resp, decodeResponse(t, w))

	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.cacheRequests.WithLabelValues("hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.runsTotal.WithLabelValues("cluster", "threshold")))
}

func TestHandleCluster_NoEpsAndEmptyDomain(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/v1/cluster", `{"rows": [], "dimensions": ["A"], "settings": {}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"y_domain":null`)

	resp := decodeResponse(t, w)
	require.Equal(t, []codec.Pair{{Dimension: "A", Cluster: 0}}, resp.Assignment)
	require.Len(t, resp.Clusters, 1)
	require.Empty(t, resp.Clusters[0])
}

func TestHandleCluster_DecodeErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		body    string
		kind    string
		message string
	}{
		{"malformed", `{"rows": [`, codec.StageJSON, ""},
		{"empty", ``, codec.StageJSON, "invalid json: empty body"},
		{"negative eps", `{"rows": [], "dimensions": [], "settings": {"eps": -1}}`, codec.StageSettings, "invalid settings: eps must be non-negative, got -1"},
		{"duplicate dimension", `{"rows": [], "dimensions": ["A", "A"], "settings": {}}`, codec.StageDimensions, `invalid dimensions: duplicate dimension "A"`},
		{"null row", `{"rows": [null], "dimensions": [], "settings": {}}`, codec.StageRows, "invalid rows: row 0 is null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/v1/cluster", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp httpx.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			require.Equal(t, tt.kind, resp.Kind)
			if tt.message != "" {
				require.Equal(t, tt.message, resp.Message)
			}
		})
	}

	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.decodeErrors.WithLabelValues(codec.StageSettings)))
}

func TestHandleCluster_TooManyDimensions(t *testing.T) {
	env := newTestEnv(t)

	dims := make([]string, 1001)
	for i := range dims {
		dims[i] = fmt.Sprintf("d%d", i)
	}
	body, err := json.Marshal(map[string]interface{}{"rows": []interface{}{}, "dimensions": dims, "settings": map[string]interface{}{}})
	require.NoError(t, err)

	w := env.do(http.MethodPost, "/v1/cluster", string(body))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandleCluster_ClusterCountIsInert(t *testing.T) {
	env := newTestEnv(t)

	with := strings.Replace(scenarioBody, `{"eps": 1.0}`, `{"eps": 1.0, "cluster_count": 3}`, 1)
	w := env.do(http.MethodPost, "/v1/cluster", with)
	require.Equal(t, http.StatusOK, w.Code)
	withCount := decodeResponse(t, w)

	w = env.do(http.MethodPost, "/v1/cluster", scenarioBody)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, withCount, decodeResponse(t, w))
}

func TestHandleHistory(t *testing.T) {
	env := newTestEnv(t)

	rows := make([]map[string]float64, 25)
	for i := range rows {
		rows[i] = map[string]float64{"timestamp": float64(i), "A": float64(i), "B": float64(i), "C": float64(i * 10)}
	}
	body, err := json.Marshal(map[string]interface{}{
		"rows":          rows,
		"dimensions":    []string{"A", "B", "C"},
		"settings":      map[string]interface{}{"eps": 1.0},
		"history_depth": 3,
	})
	require.NoError(t, err)

	w := env.do(http.MethodPost, "/v1/cluster/history", string(body))
	require.Equal(t, http.StatusOK, w.Code)

	var resp codec.HistoryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Snapshots, 5)
	require.Equal(t, 20, resp.Snapshots[0].Index)
	require.Len(t, resp.Result.Clusters, 2)
	require.Len(t, resp.Highlights, 2)
	for _, group := range resp.Highlights {
		require.Empty(t, group)
	}

	w = env.do(http.MethodPost, "/v1/cluster/history", `{"rows": [], "dimensions": [], "settings": {}, "history_depth": -1}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDatasets_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/v1/datasets/cpu/rows", `{"rows": [
		{"timestamp": 0, "A": 1, "B": 1, "C": 10},
		{"timestamp": 1, "A": 2, "B": 2, "C": 20}
	]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var appended AppendResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&appended))
	require.Equal(t, 2, appended.Appended)
	require.Equal(t, []string{"A", "B", "C"}, appended.Dataset.Fields)
	require.Nil(t, appended.Result)

	w = env.do(http.MethodPost, "/v1/datasets/cpu/rows", `{"rows": [{"timestamp": 2, "A": 3, "B": 3, "C": 30}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/v1/datasets/cpu", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info storage.Dataset
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	require.Equal(t, 3, info.Rows)
	require.Equal(t, 2, info.Batches)

	// Dimensions default to the dataset's fields
	w = env.do(http.MethodPost, "/v1/datasets/cpu/cluster", `{"settings": {"eps": 1.0}}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.Equal(t, []codec.Pair{{Dimension: "A", Cluster: 0}, {Dimension: "B", Cluster: 0}, {Dimension: "C", Cluster: 1}}, resp.Assignment)

	// Window limits the rows read from the store
	w = env.do(http.MethodPost, "/v1/datasets/cpu/cluster", `{"dimensions": ["A"], "settings": {"window_size": 2}}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeResponse(t, w)
	require.Len(t, resp.Clusters[0], 2)
	require.Equal(t, [2]float64{2, 30}, *resp.YDomain)

	w = env.do(http.MethodGet, "/v1/datasets", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list DatasetList
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Equal(t, 1, list.Count)

	w = env.do(http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats StatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	require.Equal(t, uint64(3), stats.Storage.TotalRows)

	w = env.do(http.MethodDelete, "/v1/datasets/cpu", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/v1/datasets/cpu", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(http.MethodPost, "/v1/datasets/cpu/cluster", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDatasets_InvalidName(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/v1/datasets/bad$name", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/v1/datasets/"+strings.Repeat("x", 200)+"/rows", `{"rows": []}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

type fullDisk struct{}

func (fullDisk) GetUsage() (int64, error) { return 2048, nil }
func (fullDisk) GetLimit() int64          { return 1024 }

func TestDatasets_StorageLimit(t *testing.T) {
	env := newTestEnv(t)
	env.handler.SetStorageChecker(fullDisk{})

	w := env.do(http.MethodPost, "/v1/datasets/cpu/rows", `{"rows": [{"A": 1}]}`)
	require.Equal(t, http.StatusInsufficientStorage, w.Code)

	w = env.do(http.MethodPost, "/v1/datasets/cpu/import?format=csv", "A\n1\n")
	require.Equal(t, http.StatusInsufficientStorage, w.Code)

	// Reads are still served
	w = env.do(http.MethodPost, "/v1/cluster", scenarioBody)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestDatasets_ExportImport(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/v1/datasets/src/import?format=csv", "timestamp,A,B\n0,1,2\n1,3,4\n")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/v1/datasets/src/export?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "timestamp,A,B\n0,1,2\n1,3,4\n", w.Body.String())
}

func TestDatasets_ImportedHeaderOrder(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/v1/datasets/cpu/import?format=csv", "timestamp,C,A,B\n0,10,1,1\n1,20,2,2\n2,30,3,3\n")
	require.Equal(t, http.StatusOK, w.Code)

	// Default dimensions follow the CSV header
	w = env.do(http.MethodPost, "/v1/datasets/cpu/cluster", `{"settings": {"eps": 1.0}}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.Equal(t, []codec.Pair{{Dimension: "C", Cluster: 0}, {Dimension: "A", Cluster: 1}, {Dimension: "B", Cluster: 1}}, resp.Assignment)

	w = env.do(http.MethodGet, "/v1/datasets/cpu/export?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.HasPrefix(w.Body.String(), "timestamp,C,A,B\n"))
}

func TestWatch_BroadcastsClusterUpdate(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, env.hub.HasClients, 2*time.Second, 10*time.Millisecond)

	body := `{
		"rows": [
			{"timestamp": 0, "A": 1, "B": 1, "C": 10},
			{"timestamp": 1, "A": 2, "B": 2, "C": 20}
		],
		"watch": {"settings": {"eps": 1.0}}
	}`
	resp, err := http.Post(srv.URL+"/v1/datasets/live/rows", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update ClustersUpdate
	require.NoError(t, conn.ReadJSON(&update))
	require.Equal(t, UpdateType, update.Type)
	require.Equal(t, "live", update.Dataset)
	require.Equal(t, 2, update.Rows)
	require.Len(t, update.Result.Clusters, 2)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/v1/cluster", scenarioBody)

	w := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "dimcluster_cluster_runs_total")
}

func TestCompute_Timeout(t *testing.T) {
	h := NewHandler(memory.New(), nil, nil, nil)
	h.timeout = 10 * time.Millisecond

	release := make(chan struct{})
	defer close(release)

	err := h.compute(context.Background(), func() { <-release })
	require.ErrorIs(t, err, ErrClusterTimeout)
}
