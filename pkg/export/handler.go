package export

import (
	"errors"
	"fmt"
	"log"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/nicktill/dimcluster/pkg/config"
	"github.com/nicktill/dimcluster/pkg/httpx"
	"github.com/nicktill/dimcluster/pkg/storage"
)

// Handler handles export/import HTTP endpoints
type Handler struct {
	exporter *Exporter
	importer *Importer
}

// NewHandler creates a new export/import handler
func NewHandler(store storage.Storage) *Handler {
	return &Handler{
		exporter: NewExporter(store),
		importer: NewImporter(store),
	}
}

// HandleExport handles GET /v1/datasets/{name}/export
// Query params:
//   - format: "json" or "csv" (default: json)
//   - last: export only the trailing N rows (optional)
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	query := r.URL.Query()

	format := query.Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		httpx.RespondErrorString(w, http.StatusBadRequest, "Invalid format. Must be 'json' or 'csv'")
		return
	}

	opts := ExportOptions{Format: format}
	if last := query.Get("last"); last != "" {
		n, err := strconv.Atoi(last)
		if err != nil || n < 0 {
			httpx.RespondErrorString(w, http.StatusBadRequest, "last must be a non-negative integer")
			return
		}
		opts.Last = n
	}

	// Resolve the dataset before headers are committed
	if _, err := h.exporter.storage.Get(r.Context(), name); err != nil {
		respondStoreError(w, err)
		return
	}

	timestamp := time.Now().Format("20060102-150405")
	if format == "json" {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/csv")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-%s.%s", name, timestamp, format))

	var result *ExportResult
	var err error
	if format == "json" {
		result, err = h.exporter.ExportToJSON(r.Context(), w, name, opts)
	} else {
		result, err = h.exporter.ExportToCSV(r.Context(), w, name, opts)
	}

	if err != nil {
		// Body may be partially written; nothing useful to send
		log.Printf("❌ Export of %q failed: %v", name, err)
		return
	}

	log.Printf("✅ Exported %d rows of %q (%s)", result.RowsExported, name, format)
}

// HandleImport handles POST /v1/datasets/{name}/import
// Format comes from ?format= or the Content-Type (text/csv or application/json).
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
		if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && mt == "text/csv" {
			format = "csv"
		}
	}

	body := http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes)

	var result *ImportResult
	var err error
	switch format {
	case "json":
		result, err = h.importer.ImportFromJSON(r.Context(), body, name)
	case "csv":
		result, err = h.importer.ImportFromCSV(r.Context(), body, name)
	default:
		httpx.RespondErrorString(w, http.StatusBadRequest, "Invalid format. Must be 'json' or 'csv'")
		return
	}

	if err != nil {
		log.Printf("❌ Import into %q failed: %v", name, err)
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			httpx.RespondError(w, http.StatusRequestEntityTooLarge, err)
		case errors.Is(err, ErrMalformedImport):
			httpx.RespondError(w, http.StatusBadRequest, err)
		default:
			httpx.RespondError(w, http.StatusInternalServerError, err)
		}
		return
	}

	if len(result.Errors) > 0 {
		log.Printf("⚠️  Import completed with %d validation errors", len(result.Errors))
		for i, e := range result.Errors {
			if i < 10 { // Log first 10 errors
				log.Printf("   - %s", e)
			}
		}
		if len(result.Errors) > 10 {
			log.Printf("   ... and %d more errors", len(result.Errors)-10)
		}
	}

	log.Printf("✅ Imported %d rows into %q in %d batches", result.RowsImported, name, result.BatchesWritten)
	httpx.RespondJSON(w, http.StatusOK, result)
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrDatasetNotFound) {
		httpx.RespondError(w, http.StatusNotFound, err)
		return
	}
	log.Printf("❌ Storage error: %v", err)
	httpx.RespondError(w, http.StatusInternalServerError, err)
}
