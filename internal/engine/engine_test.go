package engine_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/codegen"
	"github.com/jsfuzz/jsfuzz/internal/corpus"
	"github.com/jsfuzz/jsfuzz/internal/coverage"
	"github.com/jsfuzz/jsfuzz/internal/engine"
	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/execution"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/lifter"
	"github.com/jsfuzz/jsfuzz/internal/logging"
	"github.com/jsfuzz/jsfuzz/internal/mutation"
	"github.com/jsfuzz/jsfuzz/internal/templates"
)

// fakeExecutor stands in for a REPRL *execution.Pool so engine tests never
// spawn a real child process; it always returns a copy of result.
type fakeExecutor struct {
	result execution.Result
	calls  int
}

func (f *fakeExecutor) Execute(ctx context.Context, script []byte, timeout time.Duration) (*execution.Result, error) {
	f.calls++
	r := f.result
	return &r, nil
}

func newEnv() *environment.Environment {
	env := environment.New()
	env.Load(environment.DefaultProfile{})
	return env
}

func seedProgram(t *testing.T, seed int64) *il.Program {
	t.Helper()
	reg := templates.Default()
	tpl, ok := reg.Get("ObjectPropertyChurn")
	require.True(t, ok)
	return tpl.Generate(newEnv(), rand.New(rand.NewSource(seed)))
}

func newDeps(t *testing.T, exec engine.Executor) *engine.Deps {
	t.Helper()
	env := newEnv()
	c, err := corpus.New(t.TempDir(), 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	crashes, err := corpus.NewCrashStore(t.TempDir())
	require.NoError(t, err)
	sources := func() []*il.Program { return c.All() }
	return &engine.Deps{
		Env:      env,
		Corpus:   c,
		Crashes:  crashes,
		Coverage: coverage.New(64),
		Executor: exec,
		Lifter:   lifter.Stub{},
		Mutators: mutation.Default(env, sources),
		Log:      logging.Default("test"),
		Timeout:  time.Second,
	}
}

func TestMutationEngine_EmptyCorpusIsNoOp(t *testing.T) {
	deps := newDeps(t, &fakeExecutor{})
	eng := engine.NewMutationEngine(deps, 3)
	out, err := eng.Iteration(context.Background(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Executed)
}

func TestMutationEngine_InterestingParentPopulatesCorpus(t *testing.T) {
	deps := newDeps(t, &fakeExecutor{result: execution.Result{Coverage: onesOfLen(64)}})
	require.NoError(t, deps.Corpus.Insert(seedProgram(t, 1)))
	require.Equal(t, 1, deps.Corpus.Len())

	eng := engine.NewMutationEngine(deps, 5)
	out, err := eng.Iteration(context.Background(), rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.Executed, 0)
}

func TestMutationEngine_CrashAbortsChain(t *testing.T) {
	deps := newDeps(t, &fakeExecutor{result: execution.Result{Crashed: true, Signal: 11, Stderr: "SEGV"}})
	require.NoError(t, deps.Corpus.Insert(seedProgram(t, 1)))

	eng := engine.NewMutationEngine(deps, 5)
	out, err := eng.Iteration(context.Background(), rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	if out.Executed > 0 {
		assert.True(t, out.Crashed)
		assert.Equal(t, 1, deps.Crashes.Count())
	}
}

func TestGenerativeEngine_ProducesOutcome(t *testing.T) {
	deps := newDeps(t, &fakeExecutor{})
	eng := engine.NewGenerativeEngine(deps, codegen.Default(), 8)
	out, err := eng.Iteration(context.Background(), rand.New(rand.NewSource(4)))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Executed)
}

func TestHybridEngine_RunsTemplateThenMutates(t *testing.T) {
	deps := newDeps(t, &fakeExecutor{})
	reg := templates.Default()
	fixup := mutation.NewFixupMutator()
	eng := engine.NewHybridEngine(deps, reg, fixup, 3)

	out, err := eng.Iteration(context.Background(), rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.Executed, 1)

	var totalRuns int64
	for _, tpl := range reg.All() {
		totalRuns += tpl.Stats.Runs()
	}
	assert.Equal(t, int64(1), totalRuns)
}

func TestHybridEngine_NilFixupIsSkippedSafely(t *testing.T) {
	deps := newDeps(t, &fakeExecutor{})
	reg := templates.Default()
	eng := engine.NewHybridEngine(deps, reg, nil, 1)
	_, err := eng.Iteration(context.Background(), rand.New(rand.NewSource(6)))
	assert.NoError(t, err)
}

type fakeEngine struct {
	name string
}

func (f *fakeEngine) Name() string { return f.name }
func (f *fakeEngine) Iteration(ctx context.Context, rng *rand.Rand) (*engine.Outcome, error) {
	return &engine.Outcome{Executed: 1}, nil
}

func TestMultiEngine_RotatesAndAggregatesCounts(t *testing.T) {
	a := &fakeEngine{name: "A"}
	b := &fakeEngine{name: "B"}
	m := engine.NewMultiEngine(2, []engine.Engine{a, b}, []int{1, 1})

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 6; i++ {
		_, err := m.Iteration(context.Background(), rng)
		require.NoError(t, err)
	}

	counts := m.IterationCounts()
	var total int64
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, int64(6), total)
}

func TestMultiEngine_EmptyIsNoOp(t *testing.T) {
	m := engine.NewMultiEngine(10, nil, nil)
	out, err := m.Iteration(context.Background(), rand.New(rand.NewSource(8)))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Executed)
}

func onesOfLen(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 1
	}
	return b
}
