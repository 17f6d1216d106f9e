package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/nicktill/dimcluster/pkg/config"
	"github.com/nicktill/dimcluster/pkg/storage"
)

// ErrMalformedImport is returned when an import document cannot be parsed at all
var ErrMalformedImport = errors.New("malformed import")

// Importer handles importing datasets from backup files
type Importer struct {
	storage   storage.Storage
	batchSize int
}

// NewImporter creates a new importer
func NewImporter(store storage.Storage) *Importer {
	return &Importer{storage: store, batchSize: config.MaxImportBatchSize}
}

// ImportResult contains stats about the import operation
type ImportResult struct {
	Dataset        string    `json:"dataset"`
	RowsImported   int       `json:"rows_imported"`
	BatchesWritten int       `json:"batches_written"`
	ImportedAt     time.Time `json:"imported_at"`
	Errors         []string  `json:"errors,omitempty"`
}

// ImportFromJSON appends the rows of a JSON export to the named dataset
func (im *Importer) ImportFromJSON(ctx context.Context, r io.Reader, name string) (*ImportResult, error) {
	var importData ExportData
	if err := json.NewDecoder(r).Decode(&importData); err != nil {
		return nil, fmt.Errorf("%w: failed to decode JSON: %v", ErrMalformedImport, err)
	}

	var validationErrors []string
	valid := make([]cluster.Row, 0, len(importData.Rows))
	for i, row := range importData.Rows {
		if err := validateImportedRow(row); err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("row %d: %v", i, err))
			continue
		}
		valid = append(valid, row)
	}

	return im.write(ctx, name, valid, importData.Metadata.Fields, validationErrors)
}

// ImportFromCSV appends CSV rows to the named dataset.
// The header row names the fields; a timestamp column is optional.
// Blank cells are skipped, unparsable cells reject their row.
// New fields are recorded in header order.
func (im *Importer) ImportFromCSV(ctx context.Context, r io.Reader, name string) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing CSV header", ErrMalformedImport)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", ErrMalformedImport, err)
	}
	if err := validateHeader(header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}

	var (
		validationErrors []string
		valid            []cluster.Row
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedImport, err)
		}

		row, err := parseRecord(header, record)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		valid = append(valid, row)
	}

	return im.write(ctx, name, valid, header, validationErrors)
}

// write appends rows in batches to avoid overwhelming storage
func (im *Importer) write(ctx context.Context, name string, rows []cluster.Row, fieldOrder, validationErrors []string) (*ImportResult, error) {
	batchCount := 0
	for i := 0; i < len(rows); i += im.batchSize {
		end := i + im.batchSize
		if end > len(rows) {
			end = len(rows)
		}

		if _, err := im.storage.Append(ctx, name, rows[i:end], storage.WithFieldOrder(fieldOrder)); err != nil {
			return nil, fmt.Errorf("failed to write batch %d: %w", batchCount, err)
		}
		batchCount++
	}

	return &ImportResult{
		Dataset:        name,
		RowsImported:   len(rows),
		BatchesWritten: batchCount,
		ImportedAt:     time.Now(),
		Errors:         validationErrors,
	}, nil
}

func validateHeader(header []string) error {
	seen := make(map[string]bool, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == "" {
			return fmt.Errorf("CSV header column %d is empty", i+1)
		}
		if seen[col] {
			return fmt.Errorf("duplicate CSV column %q", col)
		}
		seen[col] = true
		header[i] = col
	}
	return nil
}

func parseRecord(header, record []string) (cluster.Row, error) {
	if len(record) > len(header) {
		return nil, fmt.Errorf("expected at most %d columns, got %d", len(header), len(record))
	}

	row := make(cluster.Row, len(record))
	for i, cell := range record {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("column %q: invalid number %q", header[i], cell)
		}
		row[header[i]] = v
	}

	if err := validateImportedRow(row); err != nil {
		return nil, err
	}
	return row, nil
}

// validateImportedRow validates a row before import
func validateImportedRow(row cluster.Row) error {
	if len(row) == 0 {
		return errors.New("row has no values")
	}
	for field, v := range row {
		if field == "" {
			return errors.New("field name cannot be empty")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("field %q is not finite", field)
		}
		if field == cluster.TimestampField && !cluster.TimestampInRange(v) {
			return fmt.Errorf("timestamp %g is out of range", v)
		}
	}
	return nil
}
