package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/errs"
)

func TestError_MessageFormatting(t *testing.T) {
	bare := errs.New(errs.CodeCorpusEmpty, "nothing to mutate")
	require.Equal(t, "[CORPUS_EMPTY] nothing to mutate", bare.Error())

	cause := fmt.Errorf("disk full")
	wrapped := errs.Wrap(errs.CodeCorpusIO, "writing entry", cause)
	require.Equal(t, "[CORPUS_IO] writing entry: disk full", wrapped.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	wrapped := errs.Wrap(errs.CodeExecutorSpawn, "starting child", cause)
	require.True(t, errors.Is(wrapped, cause))
	require.Equal(t, cause, wrapped.Unwrap())
}

func TestError_WithContextChains(t *testing.T) {
	e := errs.New(errs.CodeSyncBadFrame, "truncated frame").
		WithContext("len", 3).
		WithContext("want", 8)
	require.Equal(t, 3, e.Context["len"])
	require.Equal(t, 8, e.Context["want"])
}

func TestConstructors(t *testing.T) {
	to := errs.Timeout("mutate", 1000)
	require.Equal(t, errs.CodeExecutorTimeout, to.Code)
	require.Equal(t, "mutate", to.Context["operation"])

	crashed := errs.ExecutorCrashed(11, "segfault")
	require.Equal(t, errs.CodeExecutorCrashed, crashed.Code)
	require.Equal(t, 11, crashed.Context["signal"])

	dup := errs.CorpusDuplicate("abc123")
	require.True(t, errs.CorpusDuplicate("abc123") != nil)
	require.Equal(t, "abc123", dup.Context["fingerprint"])

	dialErr := errs.SyncDialFailed("1.2.3.4:9000", fmt.Errorf("refused"))
	require.Equal(t, errs.CodeSyncDialFailed, dialErr.Code)
	require.Equal(t, "1.2.3.4:9000", dialErr.Context["addr"])

	cfgErr := errs.ConfigInvalid("workers", "must be positive")
	require.Equal(t, errs.CodeConfigInvalid, cfgErr.Code)
	require.Equal(t, "workers", cfgErr.Context["field"])
}
