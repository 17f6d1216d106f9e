package codec

import (
	"errors"
	"fmt"
)

// Decode stages reported by DecodeError
const (
	StageJSON       = "json"
	StageRows       = "rows"
	StageDimensions = "dimensions"
	StageSettings   = "settings"
)

// DecodeError reports malformed input at the boundary.
// The message is surfaced to callers verbatim.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err (or anything it wraps) is a DecodeError
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func decodeErr(stage string, format string, args ...interface{}) error {
	return &DecodeError{Stage: stage, Err: fmt.Errorf(format, args...)}
}
