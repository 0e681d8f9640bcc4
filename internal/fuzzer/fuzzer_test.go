package fuzzer

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/config"
	"github.com/jsfuzz/jsfuzz/internal/corpus"
	"github.com/jsfuzz/jsfuzz/internal/coverage"
	"github.com/jsfuzz/jsfuzz/internal/engine"
	"github.com/jsfuzz/jsfuzz/internal/execution"
	"github.com/jsfuzz/jsfuzz/internal/logging"
	"github.com/jsfuzz/jsfuzz/internal/stats"
)

func TestProfileFor_AlwaysDefaultProfile(t *testing.T) {
	require.NotNil(t, profileFor("anything"))
	require.NotNil(t, profileFor("default"))
}

func TestBuildEngine_SelectsByKind(t *testing.T) {
	deps := &engine.Deps{Log: logging.Default("test")}

	cases := map[config.EngineKind]string{
		config.EngineMutation:   "mutation",
		config.EngineHybrid:     "hybrid",
		config.EngineGenerative: "generative",
		config.EngineMulti:      "multi",
	}
	for kind := range cases {
		eng, err := buildEngine(&config.Settings{Engine: kind}, deps, nil)
		require.NoError(t, err)
		require.NotNil(t, eng)
	}
}

func TestBuildEngine_UnknownKindErrors(t *testing.T) {
	deps := &engine.Deps{Log: logging.Default("test")}
	_, err := buildEngine(&config.Settings{Engine: "nonsense"}, deps, nil)
	require.Error(t, err)
}

// countingEngine is a fake engine.Engine that counts iterations instead of
// lifting/executing real programs, so Run's worker-pool and snapshot-loop
// logic can be exercised without a real REPRL child process.
type countingEngine struct {
	n atomic.Int64
}

func (e *countingEngine) Name() string { return "counting" }

func (e *countingEngine) Iteration(ctx context.Context, rng *rand.Rand) (*engine.Outcome, error) {
	e.n.Add(1)
	time.Sleep(time.Millisecond)
	return &engine.Outcome{Executed: 1}, nil
}

func newTestFuzzer(t *testing.T) (*Fuzzer, *countingEngine) {
	t.Helper()
	dir := t.TempDir()

	cp, err := corpus.New(filepath.Join(dir, "corpus"), 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	cs, err := corpus.NewCrashStore(filepath.Join(dir, "crashes"))
	require.NoError(t, err)

	eng := &countingEngine{}
	f := &Fuzzer{
		cfg: &config.Settings{
			StorageDir: dir,
			Workers:    2,
			Engine:     config.EngineMutation,
			Role:       config.RoleLeaf,
		},
		log:      logging.Default("test"),
		corpus:   cp,
		crashes:  cs,
		coverage: coverage.New(1 << 10),
		execPool: &execution.Pool{},
		eng:      eng,
		stats:    stats.New(),
	}
	return f, eng
}

func TestFuzzer_RunStopLifecycle(t *testing.T) {
	f, eng := newTestFuzzer(t)

	errCh := make(chan error, 1)
	go func() { errCh <- f.Run(context.Background()) }()

	// Let a handful of iterations happen before asking for shutdown.
	require.Eventually(t, func() bool { return eng.n.Load() > 0 }, time.Second, time.Millisecond)

	f.Stop()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	require.Greater(t, eng.n.Load(), int64(0))

	snapPath := filepath.Join(f.cfg.StorageDir, "stats.json")
	data, err := os.ReadFile(snapPath)
	require.NoError(t, err)
	var snap stats.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
}

func TestFuzzer_RunTwiceErrors(t *testing.T) {
	f, _ := newTestFuzzer(t)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- f.Run(ctx) }()
	require.Eventually(t, func() bool { return state(f.state.Load()) == stateRunning }, time.Second, time.Millisecond)

	err := f.Run(context.Background())
	require.Error(t, err)

	cancel()
	require.NoError(t, <-errCh)
}

func TestFuzzer_StopBeforeRunIsNoop(t *testing.T) {
	f, _ := newTestFuzzer(t)
	f.Stop()
	require.Equal(t, stateNew, state(f.state.Load()))
}
