package execution_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/execution"
	"github.com/jsfuzz/jsfuzz/internal/logging"
)

func TestNewPool_SpawnFailureReturnsError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-engine-binary")
	log := logging.New(logging.Config{Level: logging.FATAL})

	p, err := execution.NewPool(missing, 2, 4096, log)
	require.Error(t, err)
	require.Nil(t, p)
}

func TestPool_ZeroValueSizeAndCloseAreSafe(t *testing.T) {
	p := &execution.Pool{}
	require.Equal(t, 0, p.Size())
	p.Close()
}
