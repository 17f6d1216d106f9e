package api

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDatasetName(t *testing.T) {
	for _, name := range []string{"cpu", "host-1.metrics", "A_b.C-9"} {
		require.NoError(t, ValidateDatasetName(name), name)
	}

	require.ErrorIs(t, ValidateDatasetName(""), ErrDatasetNameEmpty)
	require.ErrorIs(t, ValidateDatasetName(strings.Repeat("a", 129)), ErrDatasetNameTooLong)
	require.ErrorIs(t, ValidateDatasetName("with space"), ErrDatasetNameInvalid)
	require.ErrorIs(t, ValidateDatasetName("slash/name"), ErrDatasetNameInvalid)
}

func TestValidateRequestSize(t *testing.T) {
	require.NoError(t, ValidateRequestSize(50000, 1000))
	require.ErrorIs(t, ValidateRequestSize(50001, 1), ErrTooManyRows)
	require.ErrorIs(t, ValidateRequestSize(1, 1001), ErrTooManyDimensions)
}

type stubChecker struct {
	used, limit int64
	err         error
}

func (s stubChecker) GetUsage() (int64, error) { return s.used, s.err }
func (s stubChecker) GetLimit() int64          { return s.limit }

func TestCheckStorage(t *testing.T) {
	require.NoError(t, checkStorage(nil))
	require.NoError(t, checkStorage(stubChecker{used: 10, limit: 0}))
	require.NoError(t, checkStorage(stubChecker{used: 10, limit: 100}))
	require.ErrorIs(t, checkStorage(stubChecker{used: 100, limit: 100}), ErrStorageLimitReached)

	err := checkStorage(stubChecker{limit: 100, err: errors.New("stat failed")})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrStorageLimitReached)
}
