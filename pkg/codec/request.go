package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nicktill/dimcluster/pkg/cluster"
)

// Request is the decoded input of one clustering call
type Request struct {
	Rows       []cluster.Row    `json:"rows"`
	Dimensions []string         `json:"dimensions"`
	Settings   cluster.Settings `json:"settings"`
}

// HistoryRequest adds replay options to Request
type HistoryRequest struct {
	Request

	// HistoryDepth limits how many trailing snapshots feed the highlights (0 = all)
	HistoryDepth int `json:"history_depth,omitempty"`
}

// DecodeRequest reads and validates a Request
func DecodeRequest(r io.Reader) (Request, error) {
	var req Request
	if err := decodeJSON(r, &req); err != nil {
		return Request{}, err
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// DecodeHistoryRequest reads and validates a HistoryRequest
func DecodeHistoryRequest(r io.Reader) (HistoryRequest, error) {
	var req HistoryRequest
	if err := decodeJSON(r, &req); err != nil {
		return HistoryRequest{}, err
	}
	if err := req.Validate(); err != nil {
		return HistoryRequest{}, err
	}
	if req.HistoryDepth < 0 {
		return HistoryRequest{}, decodeErr(StageSettings, "history_depth must be non-negative, got %d", req.HistoryDepth)
	}
	return req, nil
}

// Validate checks the shape guarantees the engine relies on
func (r Request) Validate() error {
	if err := ValidateRows(r.Rows); err != nil {
		return err
	}
	if err := ValidateDimensions(r.Dimensions); err != nil {
		return err
	}
	return ValidateSettings(r.Settings)
}

// ValidateRows rejects null rows and timestamps that do not fit an int64
func ValidateRows(rows []cluster.Row) error {
	for i, row := range rows {
		if row == nil {
			return decodeErr(StageRows, "row %d is null", i)
		}
		if ts, ok := row[cluster.TimestampField]; ok && !cluster.TimestampInRange(ts) {
			return decodeErr(StageRows, "row %d timestamp %g is out of range", i, ts)
		}
	}
	return nil
}

// ValidateDimensions rejects empty and duplicate dimension names
func ValidateDimensions(dimensions []string) error {
	seen := make(map[string]bool, len(dimensions))
	for i, d := range dimensions {
		if d == "" {
			return decodeErr(StageDimensions, "dimension %d is empty", i)
		}
		if d == cluster.TimestampField {
			return decodeErr(StageDimensions, "%q is reserved", d)
		}
		if seen[d] {
			return decodeErr(StageDimensions, "duplicate dimension %q", d)
		}
		seen[d] = true
	}
	return nil
}

// ValidateSettings enforces the documented ranges
func ValidateSettings(s cluster.Settings) error {
	if s.WindowSize != nil && *s.WindowSize < 0 {
		return decodeErr(StageSettings, "window_size must be non-negative, got %d", *s.WindowSize)
	}
	if s.Eps != nil && *s.Eps < 0 {
		return decodeErr(StageSettings, "eps must be non-negative, got %g", *s.Eps)
	}
	if s.ClusterCount != nil && *s.ClusterCount <= 0 {
		return decodeErr(StageSettings, "cluster_count must be positive, got %d", *s.ClusterCount)
	}
	return nil
}

func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return &DecodeError{Stage: StageJSON, Err: fmt.Errorf("empty body")}
		}
		return &DecodeError{Stage: StageJSON, Err: err}
	}
	return nil
}
