package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nicktill/dimcluster/pkg/cluster"
)

// UnassignedIndex is the wire value for cluster.Unassigned
const UnassignedIndex = -1

// Response is the wire form of cluster.Result
type Response struct {
	Clusters   [][]cluster.Row `json:"clusters"`
	YDomain    *[2]float64     `json:"y_domain"`
	Assignment []Pair          `json:"assignment"`
}

// Pair encodes as ["dimension", index]
type Pair struct {
	Dimension string
	Cluster   int
}

// MarshalJSON implements json.Marshaler
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.Dimension, p.Cluster})
}

// UnmarshalJSON implements json.Unmarshaler
func (p *Pair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("assignment pair must have 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Dimension); err != nil {
		return fmt.Errorf("assignment dimension: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Cluster); err != nil {
		return fmt.Errorf("assignment index: %w", err)
	}
	return nil
}

// NewResponse converts an engine result into its wire form
func NewResponse(result cluster.Result) Response {
	resp := Response{
		Clusters:   result.Clusters,
		Assignment: Pairs(result.Assignment),
	}
	if resp.Clusters == nil {
		resp.Clusters = [][]cluster.Row{}
	}
	if !result.YDomain.Empty() {
		resp.YDomain = &[2]float64{result.YDomain.Min, result.YDomain.Max}
	}
	return resp
}

// Result converts the wire form back into an engine result
func (r Response) Result() cluster.Result {
	result := cluster.Result{
		Clusters:   r.Clusters,
		YDomain:    cluster.EmptyDomain(),
		Assignment: make([]cluster.Assignment, len(r.Assignment)),
	}
	if r.YDomain != nil {
		result.YDomain = cluster.Domain{Min: r.YDomain[0], Max: r.YDomain[1]}
	}
	for i, p := range r.Assignment {
		idx := p.Cluster
		if idx == UnassignedIndex {
			idx = cluster.Unassigned
		}
		result.Assignment[i] = cluster.Assignment{Dimension: p.Dimension, Cluster: idx}
	}
	return result
}

// Pairs converts an assignment list, mapping cluster.Unassigned to -1
func Pairs(assignment []cluster.Assignment) []Pair {
	pairs := make([]Pair, len(assignment))
	for i, a := range assignment {
		idx := a.Cluster
		if idx == cluster.Unassigned {
			idx = UnassignedIndex
		}
		pairs[i] = Pair{Dimension: a.Dimension, Cluster: idx}
	}
	return pairs
}

// EncodeResult writes result as JSON
func EncodeResult(w io.Writer, result cluster.Result) error {
	return json.NewEncoder(w).Encode(NewResponse(result))
}

// SnapshotJSON is the wire form of cluster.Snapshot
type SnapshotJSON struct {
	Timestamp  *float64 `json:"timestamp,omitempty"`
	Index      int      `json:"index"`
	Assignment []Pair   `json:"assignment"`
}

// HighlightJSON is the wire form of cluster.Highlight
type HighlightJSON struct {
	Dimension string  `json:"dimension"`
	Opacity   float64 `json:"opacity"`
	Previous  int     `json:"previous"`
}

// HistoryResponse is returned by history requests
type HistoryResponse struct {
	Snapshots  []SnapshotJSON    `json:"snapshots"`
	Highlights [][]HighlightJSON `json:"highlights"`
	Result     Response          `json:"result"`
}

// NewHistoryResponse converts snapshots, highlights and the current result
func NewHistoryResponse(snapshots []cluster.Snapshot, highlights [][]cluster.Highlight, result cluster.Result) HistoryResponse {
	resp := HistoryResponse{
		Snapshots:  make([]SnapshotJSON, len(snapshots)),
		Highlights: make([][]HighlightJSON, len(highlights)),
		Result:     NewResponse(result),
	}
	for i, s := range snapshots {
		resp.Snapshots[i] = SnapshotJSON{
			Timestamp:  s.Timestamp,
			Index:      s.Index,
			Assignment: Pairs(s.Assignment),
		}
	}
	for i, group := range highlights {
		resp.Highlights[i] = make([]HighlightJSON, len(group))
		for j, h := range group {
			prev := h.Previous
			if prev == cluster.Unassigned {
				prev = UnassignedIndex
			}
			resp.Highlights[i][j] = HighlightJSON{Dimension: h.Dimension, Opacity: h.Opacity, Previous: prev}
		}
	}
	return resp
}
