package execution_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/execution"
)

func TestPosixSharedMemory_ReadWriteRoundTrip(t *testing.T) {
	shm, err := execution.NewPosixSharedMemory("jsfuzz-test-shm", 16)
	require.NoError(t, err)
	defer shm.Close()

	require.Equal(t, uint32(16), shm.Size())
	require.Greater(t, shm.FD(), 0)

	snap := shm.Snapshot()
	require.Equal(t, make([]byte, 16), snap)

	var out [4]byte
	require.NoError(t, shm.ReadAt(0, out[:]))
	require.Equal(t, [4]byte{}, out)
}

func TestPosixSharedMemory_ReadAtOutOfBounds(t *testing.T) {
	shm, err := execution.NewPosixSharedMemory("jsfuzz-test-shm-oob", 8)
	require.NoError(t, err)
	defer shm.Close()

	buf := make([]byte, 9)
	require.ErrorIs(t, shm.ReadAt(0, buf), execution.ErrOutOfBounds)
}

func TestPosixSharedMemory_SnapshotIsACopy(t *testing.T) {
	shm, err := execution.NewPosixSharedMemory("jsfuzz-test-shm-reset", 8)
	require.NoError(t, err)
	defer shm.Close()

	snap := shm.Snapshot()
	for i := range snap {
		snap[i] = 0xFF
	}
	// Mutating a Snapshot must not affect the underlying segment.
	require.Equal(t, make([]byte, 8), shm.Snapshot())

	shm.Reset()
	require.Equal(t, make([]byte, 8), shm.Snapshot())
}

func TestPosixSharedMemory_CloseReturnsNoError(t *testing.T) {
	shm, err := execution.NewPosixSharedMemory("jsfuzz-test-shm-close", 4)
	require.NoError(t, err)
	require.NoError(t, shm.Close())
}

func TestInMemory_ReadWriteRoundTrip(t *testing.T) {
	m := execution.NewInMemory(8)
	require.Equal(t, uint32(8), m.Size())

	m.Write(2, []byte{1, 2, 3})
	out := make([]byte, 3)
	require.NoError(t, m.ReadAt(2, out))
	require.Equal(t, []byte{1, 2, 3}, out)

	require.ErrorIs(t, m.ReadAt(6, make([]byte, 4)), execution.ErrOutOfBounds)
	require.NoError(t, m.Close())
}
