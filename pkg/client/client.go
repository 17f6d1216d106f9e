package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nicktill/dimcluster/pkg/api"
	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/nicktill/dimcluster/pkg/codec"
	"github.com/nicktill/dimcluster/pkg/httpx"
	"github.com/nicktill/dimcluster/pkg/storage"
)

// DefaultEndpoint is used when Config.Endpoint is empty
const DefaultEndpoint = "http://localhost:8080"

// Config holds client configuration
type Config struct {
	Endpoint string        `json:"endpoint"`
	APIKey   string        `json:"api_key"`
	Timeout  time.Duration `json:"timeout"`
}

// Client calls the dimcluster API
type Client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
}

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Response   httpx.ErrorResponse
}

func (e *APIError) Error() string {
	msg := e.Response.Message
	if msg == "" {
		msg = e.Response.Error
	}
	if e.Response.Kind != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Response.Kind, msg)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, msg)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// New creates a client
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	base, err := url.Parse(strings.TrimSuffix(cfg.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", cfg.Endpoint)
	}

	return &Client{
		base:   base,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Cluster runs the pipeline over rows sent inline
func (c *Client) Cluster(ctx context.Context, req codec.Request) (codec.Response, error) {
	var resp codec.Response
	err := c.do(ctx, http.MethodPost, "/v1/cluster", req, &resp)
	return resp, err
}

// History replays the pipeline over time
func (c *Client) History(ctx context.Context, req codec.HistoryRequest) (codec.HistoryResponse, error) {
	var resp codec.HistoryResponse
	err := c.do(ctx, http.MethodPost, "/v1/cluster/history", req, &resp)
	return resp, err
}

// Append stores rows in the named dataset. With watch set the response
// carries the reclustered result.
func (c *Client) Append(ctx context.Context, name string, rows []cluster.Row, watch *codec.Watch) (*api.AppendResponse, error) {
	body := codec.AppendRequest{Rows: rows, Watch: watch}
	if body.Rows == nil {
		body.Rows = []cluster.Row{}
	}
	var resp api.AppendResponse
	if err := c.do(ctx, http.MethodPost, datasetPath(name, "/rows"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClusterDataset clusters the trailing rows of a stored dataset
func (c *Client) ClusterDataset(ctx context.Context, name string, req codec.DatasetClusterRequest) (codec.Response, error) {
	var resp codec.Response
	err := c.do(ctx, http.MethodPost, datasetPath(name, "/cluster"), req, &resp)
	return resp, err
}

// Dataset returns dataset metadata
func (c *Client) Dataset(ctx context.Context, name string) (*storage.Dataset, error) {
	var info storage.Dataset
	if err := c.do(ctx, http.MethodGet, datasetPath(name, ""), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Datasets lists stored datasets
func (c *Client) Datasets(ctx context.Context) ([]storage.Dataset, error) {
	var list api.DatasetList
	if err := c.do(ctx, http.MethodGet, "/v1/datasets", nil, &list); err != nil {
		return nil, err
	}
	return list.Datasets, nil
}

// DeleteDataset removes a dataset and its rows
func (c *Client) DeleteDataset(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, datasetPath(name, ""), nil, nil)
}

func datasetPath(name, suffix string) string {
	return "/v1/datasets/" + url.PathEscape(name) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(httpx.RequestIDHeader, uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr.Response); err != nil {
			apiErr.Response.Error = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
