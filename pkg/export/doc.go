// Package export provides dataset backup and restore.
//
// # Formats
//
// JSON exports wrap the rows with metadata and can be re-imported:
//
//	{
//	  "metadata": {
//	    "dataset": "cpu",
//	    "exported_at": "2026-10-19T03:00:00Z",
//	    "row_count": 2,
//	    "fields": ["core0", "core1"],
//	    "format": "json",
//	    "version": "1.0"
//	  },
//	  "rows": [
//	    {"timestamp": 0, "core0": 12.5, "core1": 80},
//	    {"timestamp": 1, "core0": 13.1}
//	  ]
//	}
//
// CSV exports have a header of timestamp followed by the dataset's fields in
// first-seen order. Absent values are empty cells. CSV imports need a header
// row but not a timestamp column.
//
// # HTTP API
//
//	GET  /v1/datasets/{name}/export?format=json|csv&last=N
//	POST /v1/datasets/{name}/import?format=json|csv
//
// Example:
//
//	curl "http://localhost:8080/v1/datasets/cpu/export?format=csv" -o cpu.csv
//	curl -X POST -H "Content-Type: text/csv" \
//	  --data-binary @cpu.csv "http://localhost:8080/v1/datasets/cpu-copy/import"
//
// # Error Handling
//
// Rows that fail validation (no values, non-numeric cells, non-finite
// values) are skipped and reported in ImportResult.Errors. A document that
// cannot be parsed at all fails with ErrMalformedImport. Valid rows are
// appended in batches of at most config.MaxImportBatchSize.
package export
