package api

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/nicktill/dimcluster/pkg/config"
)

var datasetNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

var (
	// ErrTooManyRows is returned when a request carries too many rows
	ErrTooManyRows = fmt.Errorf("too many rows in request (max %d)", config.MaxRowsPerRequest)

	// ErrTooManyDimensions is returned when a request names too many dimensions
	ErrTooManyDimensions = fmt.Errorf("too many dimensions in request (max %d)", config.MaxDimensionsPerRequest)

	// ErrDatasetNameEmpty is returned when a dataset name is empty
	ErrDatasetNameEmpty = errors.New("dataset name cannot be empty")

	// ErrDatasetNameTooLong is returned when a dataset name is too long
	ErrDatasetNameTooLong = fmt.Errorf("dataset name too long (max %d chars)", config.MaxDatasetNameLength)

	// ErrDatasetNameInvalid is returned when a dataset name has characters outside [A-Za-z0-9_.-]
	ErrDatasetNameInvalid = errors.New("dataset name may only contain letters, digits, '_', '.' and '-'")

	// ErrStorageLimitReached is returned when writes would exceed the storage limit
	ErrStorageLimitReached = errors.New("storage limit reached")
)

// ValidateDatasetName checks a dataset name from the URL path
func ValidateDatasetName(name string) error {
	if name == "" {
		return ErrDatasetNameEmpty
	}
	if len(name) > config.MaxDatasetNameLength {
		return fmt.Errorf("%w: %d chars", ErrDatasetNameTooLong, len(name))
	}
	if !datasetNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrDatasetNameInvalid, name)
	}
	return nil
}

// ValidateRequestSize enforces per-request row and dimension limits
func ValidateRequestSize(rows, dimensions int) error {
	if rows > config.MaxRowsPerRequest {
		return fmt.Errorf("%w: got %d", ErrTooManyRows, rows)
	}
	if dimensions > config.MaxDimensionsPerRequest {
		return fmt.Errorf("%w: got %d", ErrTooManyDimensions, dimensions)
	}
	return nil
}

// StorageChecker reports disk usage against the configured limit
type StorageChecker interface {
	GetUsage() (int64, error)
	GetLimit() int64
}

// checkStorage returns ErrStorageLimitReached when usage is at or over the limit.
// A limit <= 0 disables the check.
func checkStorage(checker StorageChecker) error {
	if checker == nil || checker.GetLimit() <= 0 {
		return nil
	}
	used, err := checker.GetUsage()
	if err != nil {
		return fmt.Errorf("failed to check storage usage: %w", err)
	}
	if used >= checker.GetLimit() {
		return fmt.Errorf("%w: %d of %d bytes used", ErrStorageLimitReached, used, checker.GetLimit())
	}
	return nil
}
