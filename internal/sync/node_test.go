package sync_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/config"
	"github.com/jsfuzz/jsfuzz/internal/corpus"
	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/il"
	jsync "github.com/jsfuzz/jsfuzz/internal/sync"
	"github.com/jsfuzz/jsfuzz/internal/templates"
)

func seedProgram(t *testing.T, seed int64) *il.Program {
	t.Helper()
	env := environment.New()
	env.Load(environment.DefaultProfile{})
	reg := templates.Default()
	tpl, ok := reg.Get("ObjectPropertyChurn")
	require.True(t, ok)
	return tpl.Generate(env, rand.New(rand.NewSource(seed)))
}

func newTestCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c, err := corpus.New(t.TempDir(), 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return c
}

// TestNode_LeafDiscoveryPropagatesToRoot mirrors spec.md §8's S6: a leaf
// discovers an interesting program and, within one sync round, the root
// has it in its corpus too.
func TestNode_LeafDiscoveryPropagatesToRoot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rootCorpus := newTestCorpus(t)
	rootCrashes, err := corpus.NewCrashStore(t.TempDir())
	require.NoError(t, err)

	root, err := jsync.NewNode(ctx, jsync.Config{
		Role:       config.RoleRoot,
		StorageDir: t.TempDir(),
		ListenAddr: "127.0.0.1:0",
		Corpus:     rootCorpus,
		Crashes:    rootCrashes,
	})
	require.NoError(t, err)
	defer root.Stop()
	root.Start()

	addrs := root.ListenAddrs()
	require.NotEmpty(t, addrs)

	leafCorpus := newTestCorpus(t)
	leaf, err := jsync.NewNode(ctx, jsync.Config{
		Role:       config.RoleLeaf,
		StorageDir: t.TempDir(),
		ParentAddr: addrs[0],
		Corpus:     leafCorpus,
	})
	require.NoError(t, err)
	defer leaf.Stop()
	leaf.Start()

	require.Eventually(t, func() bool {
		return len(root.ListenAddrs()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	prog := seedProgram(t, 1)
	require.NoError(t, leafCorpus.Insert(prog))
	leaf.NotifyLocal(prog)

	assert.Eventually(t, func() bool {
		return rootCorpus.Contains(prog)
	}, 5*time.Second, 20*time.Millisecond, "root never received the leaf's sample")
}

// TestNode_ConnectReplaysCorpus exercises the corpus replay a child runs
// each time it connects to its parent, using the first connection of a
// leaf whose corpus is already non-empty before it dials the running root.
func TestNode_ConnectReplaysCorpus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rootCorpus := newTestCorpus(t)
	rootCrashes, err := corpus.NewCrashStore(t.TempDir())
	require.NoError(t, err)

	root, err := jsync.NewNode(ctx, jsync.Config{
		Role:       config.RoleRoot,
		StorageDir: t.TempDir(),
		ListenAddr: "127.0.0.1:0",
		Corpus:     rootCorpus,
		Crashes:    rootCrashes,
	})
	require.NoError(t, err)
	defer root.Stop()
	root.Start()

	leafCorpus := newTestCorpus(t)
	prog := seedProgram(t, 2)
	require.NoError(t, leafCorpus.Insert(prog))

	leaf, err := jsync.NewNode(ctx, jsync.Config{
		Role:       config.RoleLeaf,
		StorageDir: t.TempDir(),
		ParentAddr: root.ListenAddrs()[0],
		Corpus:     leafCorpus,
	})
	require.NoError(t, err)
	defer leaf.Stop()
	leaf.Start()

	assert.Eventually(t, func() bool {
		return rootCorpus.Contains(prog)
	}, 5*time.Second, 20*time.Millisecond, "root never received the leaf's pre-existing corpus on connect")
}

func TestNode_DialParentWithoutPeerIDFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n, err := jsync.NewNode(ctx, jsync.Config{
		Role:       config.RoleLeaf,
		StorageDir: t.TempDir(),
		ParentAddr: "/ip4/127.0.0.1/tcp/1",
		Corpus:     newTestCorpus(t),
	})
	require.NoError(t, err)
	defer n.Stop()
	n.Start()

	// No assertion beyond "does not panic and keeps retrying": an
	// address with no /p2p/<id> suffix can never resolve to a peer, so
	// maintainParentConnection should just keep backing off forever.
	time.Sleep(50 * time.Millisecond)
}
