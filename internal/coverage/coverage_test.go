package coverage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/coverage"
)

func TestDiff_FirstHitIsNew(t *testing.T) {
	m := coverage.New(4)
	bits := []byte{1, 0, 0, 0}
	edges := m.Diff(bits)
	require.Equal(t, []uint32{0}, edges)
}

func TestDiff_SameBucketIsNotNewTwice(t *testing.T) {
	m := coverage.New(4)
	m.Diff([]byte{1, 0, 0, 0})

	// 1 is already bucket 1 and cleared; hitting it again with count 1
	// stays in the same bucket and should not register as new again.
	edges := m.Diff([]byte{1, 0, 0, 0})
	require.Empty(t, edges)
}

func TestDiff_CrossingBucketBoundaryIsNew(t *testing.T) {
	m := coverage.New(4)
	m.Diff([]byte{1, 0, 0, 0})

	// Going from count 1 (bucket 1) to count 4 (bucket 8) crosses a
	// boundary and should register as new coverage on the same edge.
	edges := m.Diff([]byte{4, 0, 0, 0})
	require.Equal(t, []uint32{0}, edges)
}

func TestInteresting(t *testing.T) {
	m := coverage.New(2)
	require.True(t, m.Interesting([]byte{1, 0}))
	require.False(t, m.Interesting([]byte{1, 0}))
}

func TestCovers(t *testing.T) {
	bits := []byte{0, 5, 0, 2}
	require.True(t, coverage.Covers(bits, []uint32{1, 3}))
	require.False(t, coverage.Covers(bits, []uint32{0}))
	require.False(t, coverage.Covers(bits, []uint32{99}))
}

func TestCoveredFractionAndTotalHits(t *testing.T) {
	m := coverage.New(4)
	require.Equal(t, 0.0, m.CoveredFraction())

	m.Diff([]byte{1, 1, 0, 0})
	require.Equal(t, 0.5, m.CoveredFraction())
	require.Equal(t, uint64(2), m.TotalHits())

	m.Diff([]byte{0, 0, 1, 0})
	require.Equal(t, 0.75, m.CoveredFraction())
}

func TestReset(t *testing.T) {
	m := coverage.New(2)
	m.Diff([]byte{1, 1})
	require.Equal(t, 1.0, m.CoveredFraction())

	m.Reset()
	require.Equal(t, 0.0, m.CoveredFraction())
	require.Equal(t, uint64(0), m.TotalHits())

	edges := m.Diff([]byte{1, 0})
	require.Equal(t, []uint32{0}, edges)
}

func TestEdgeCount(t *testing.T) {
	m := coverage.New(128)
	require.Equal(t, uint32(128), m.EdgeCount())
}
