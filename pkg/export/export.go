package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/nicktill/dimcluster/pkg/storage"
)

// FormatVersion is written into every JSON export
const FormatVersion = "1.0"

// Exporter handles exporting datasets to various formats
type Exporter struct {
	storage storage.Storage
}

// NewExporter creates a new exporter
func NewExporter(store storage.Storage) *Exporter {
	return &Exporter{storage: store}
}

// ExportOptions configures the export operation
type ExportOptions struct {
	// Last exports only the trailing N rows (0 = all)
	Last int

	// Format: "json" or "csv"
	Format string
}

// ExportResult contains stats about the export
type ExportResult struct {
	Dataset      string    `json:"dataset"`
	RowsExported int       `json:"rows_exported"`
	Format       string    `json:"format"`
	ExportedAt   time.Time `json:"exported_at"`
}

// Metadata describes a JSON export
type Metadata struct {
	Dataset    string    `json:"dataset"`
	ExportedAt time.Time `json:"exported_at"`
	RowCount   int       `json:"row_count"`
	Fields     []string  `json:"fields"`
	Format     string    `json:"format"`
	Version    string    `json:"version"`
}

// ExportData is the JSON export document. Import accepts the same shape.
type ExportData struct {
	Metadata Metadata      `json:"metadata"`
	Rows     []cluster.Row `json:"rows"`
}

// ExportToJSON exports a dataset as JSON to the given writer
func (e *Exporter) ExportToJSON(ctx context.Context, w io.Writer, name string, opts ExportOptions) (*ExportResult, error) {
	info, rows, err := e.load(ctx, name, opts)
	if err != nil {
		return nil, err
	}

	exportData := ExportData{
		Metadata: Metadata{
			Dataset:    name,
			ExportedAt: time.Now(),
			RowCount:   len(rows),
			Fields:     info.Fields,
			Format:     "json",
			Version:    FormatVersion,
		},
		Rows: rows,
	}

	// Encode as pretty JSON
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exportData); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}

	return &ExportResult{
		Dataset:      name,
		RowsExported: len(rows),
		Format:       "json",
		ExportedAt:   exportData.Metadata.ExportedAt,
	}, nil
}

// ExportToCSV exports a dataset as CSV to the given writer.
// Columns are timestamp followed by the dataset's fields in first-seen
// order; absent values are empty cells.
func (e *Exporter) ExportToCSV(ctx context.Context, w io.Writer, name string, opts ExportOptions) (*ExportResult, error) {
	info, rows, err := e.load(ctx, name, opts)
	if err != nil {
		return nil, err
	}

	writer := csv.NewWriter(w)

	header := append([]string{cluster.TimestampField}, info.Fields...)
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range rows {
		for i, field := range header {
			if v, ok := row[field]; ok {
				record[i] = strconv.FormatFloat(v, 'f', -1, 64)
			} else {
				record[i] = ""
			}
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return &ExportResult{
		Dataset:      name,
		RowsExported: len(rows),
		Format:       "csv",
		ExportedAt:   time.Now(),
	}, nil
}

func (e *Exporter) load(ctx context.Context, name string, opts ExportOptions) (*storage.Dataset, []cluster.Row, error) {
	info, err := e.storage.Get(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	rows, err := e.storage.Rows(ctx, name, storage.RowsRequest{Last: opts.Last})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return info, rows, nil
}
