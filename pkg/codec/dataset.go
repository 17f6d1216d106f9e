package codec

import (
	"bytes"
	"io"

	"github.com/nicktill/dimcluster/pkg/cluster"
)

// Watch asks the server to recluster a dataset after each append
type Watch struct {
	Dimensions []string         `json:"dimensions,omitempty"`
	Settings   cluster.Settings `json:"settings"`
}

// AppendRequest is the body of a dataset append
type AppendRequest struct {
	Rows  []cluster.Row `json:"rows"`
	Watch *Watch        `json:"watch,omitempty"`
}

// DatasetClusterRequest clusters a stored dataset.
// Empty Dimensions means every field the dataset has seen.
type DatasetClusterRequest struct {
	Dimensions []string         `json:"dimensions,omitempty"`
	Settings   cluster.Settings `json:"settings"`
}

// DecodeAppendRequest reads and validates an AppendRequest
func DecodeAppendRequest(r io.Reader) (AppendRequest, error) {
	var req AppendRequest
	if err := decodeJSON(r, &req); err != nil {
		return AppendRequest{}, err
	}
	if req.Rows == nil {
		return AppendRequest{}, decodeErr(StageRows, "rows is required")
	}
	if err := ValidateRows(req.Rows); err != nil {
		return AppendRequest{}, err
	}
	if req.Watch != nil {
		if err := ValidateDimensions(req.Watch.Dimensions); err != nil {
			return AppendRequest{}, err
		}
		if err := ValidateSettings(req.Watch.Settings); err != nil {
			return AppendRequest{}, err
		}
	}
	return req, nil
}

// DecodeDatasetClusterRequest reads and validates a DatasetClusterRequest.
// An empty body is the zero request.
func DecodeDatasetClusterRequest(r io.Reader) (DatasetClusterRequest, error) {
	var req DatasetClusterRequest

	body, err := io.ReadAll(r)
	if err != nil {
		return req, &DecodeError{Stage: StageJSON, Err: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	if err := decodeJSON(bytes.NewReader(body), &req); err != nil {
		return DatasetClusterRequest{}, err
	}
	if err := ValidateDimensions(req.Dimensions); err != nil {
		return DatasetClusterRequest{}, err
	}
	if err := ValidateSettings(req.Settings); err != nil {
		return DatasetClusterRequest{}, err
	}
	return req, nil
}
