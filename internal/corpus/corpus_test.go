package corpus_test

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/corpus"
	"github.com/jsfuzz/jsfuzz/internal/environment"
)

func newEnv() *environment.Environment {
	e := environment.New()
	e.Load(environment.DefaultProfile{})
	return e
}

func TestCorpus_InsertAndLen(t *testing.T) {
	dir := t.TempDir()
	c, err := corpus.New(dir, 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, 0, c.Len())

	p1 := builder.New(newEnv(), rand.New(rand.NewSource(1)))
	p1.BuildPrefix(2)
	prog1 := p1.Finalize()
	require.NoError(t, c.Insert(prog1))
	require.Equal(t, 1, c.Len())
	require.True(t, c.Contains(prog1))
}

func TestCorpus_InsertDuplicateRejected(t *testing.T) {
	dir := t.TempDir()
	c, err := corpus.New(dir, 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	b := builder.New(newEnv(), rand.New(rand.NewSource(7)))
	b.BuildPrefix(3)
	prog := b.Finalize()

	require.NoError(t, c.Insert(prog))
	err = c.Insert(prog)
	require.Error(t, err)
	require.True(t, corpus.IsDuplicate(err))
	require.Equal(t, 1, c.Len())
}

func TestCorpus_RandomForMutating_EmptyIsFalse(t *testing.T) {
	dir := t.TempDir()
	c, err := corpus.New(dir, 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	_, ok := c.RandomForMutating()
	require.False(t, ok)
}

func TestCorpus_RandomForMutating_ReturnsMember(t *testing.T) {
	dir := t.TempDir()
	c, err := corpus.New(dir, 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	b := builder.New(newEnv(), rand.New(rand.NewSource(9)))
	b.BuildPrefix(2)
	prog := b.Finalize()
	require.NoError(t, c.Insert(prog))

	got, ok := c.RandomForMutating()
	require.True(t, ok)
	require.NotNil(t, got)
}

func TestCorpus_EvictionByMaxSize(t *testing.T) {
	dir := t.TempDir()
	c, err := corpus.New(dir, 2, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		b := builder.New(newEnv(), rand.New(rand.NewSource(int64(100+i))))
		b.BuildPrefix(i + 2)
		require.NoError(t, c.Insert(b.Finalize()))
	}
	require.Equal(t, 2, c.Len())
}

func TestCorpus_LoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := corpus.New(dir, 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	b := builder.New(newEnv(), rand.New(rand.NewSource(42)))
	b.BuildPrefix(4)
	prog := b.Finalize()
	require.NoError(t, c.Insert(prog))

	reloaded, err := corpus.Load(dir, 0, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.Len())
	require.True(t, reloaded.Contains(prog))
}

func TestCorpus_All(t *testing.T) {
	dir := t.TempDir()
	c, err := corpus.New(dir, 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Empty(t, c.All())

	b := builder.New(newEnv(), rand.New(rand.NewSource(55)))
	b.BuildPrefix(2)
	require.NoError(t, c.Insert(b.Finalize()))
	require.Len(t, c.All(), 1)
}

func TestCrashStore_RecordDedupsBySignature(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crashes")
	cs, err := corpus.NewCrashStore(dir)
	require.NoError(t, err)
	require.Equal(t, 0, cs.Count())

	b := builder.New(newEnv(), rand.New(rand.NewSource(1)))
	b.BuildPrefix(2)
	prog := b.Finalize()

	c1 := &corpus.Crash{Program: prog, Stderr: "Assertion failed: x != nil\n   at frame 1", Signal: 11}
	isNew, err := cs.Record(c1)
	require.NoError(t, err)
	require.True(t, isNew)
	require.Equal(t, 1, cs.Count())

	c2 := &corpus.Crash{Program: prog, Stderr: "Assertion failed: x != nil\n   at frame 2 (different trace)", Signal: 11}
	isNew, err = cs.Record(c2)
	require.NoError(t, err)
	require.False(t, isNew, "same first stderr line + signal should dedup")
	require.Equal(t, 1, cs.Count())
}

func TestCrashStore_ReopenPreservesSeenSignatures(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crashes")
	cs, err := corpus.NewCrashStore(dir)
	require.NoError(t, err)

	b := builder.New(newEnv(), rand.New(rand.NewSource(1)))
	b.BuildPrefix(2)
	prog := b.Finalize()

	_, err = cs.Record(&corpus.Crash{Program: prog, Stderr: "boom", Signal: 6})
	require.NoError(t, err)

	reopened, err := corpus.NewCrashStore(dir)
	require.NoError(t, err)
	require.Equal(t, 1, reopened.Count())

	isNew, err := reopened.Record(&corpus.Crash{Program: prog, Stderr: "boom", Signal: 6})
	require.NoError(t, err)
	require.False(t, isNew)
}

func TestSignature_DependsOnSignalAndFirstLine(t *testing.T) {
	a := corpus.Signature(11, "first\nsecond")
	b := corpus.Signature(11, "first\nother-second")
	require.Equal(t, a, b)

	c := corpus.Signature(6, "first\nsecond")
	require.NotEqual(t, a, c)
}
