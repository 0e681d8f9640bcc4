package engine

import (
	"context"
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/builder"
)

// DefaultGenerativeLength is N in spec.md §4.5's GenerativeEngine
// description ("N (default 10) generated instructions").
const DefaultGenerativeLength = 10

// GenerativeEngine builds a buildPrefix followed by N freshly generated
// instructions and executes the result once (spec.md §4.5 "Used for
// cold-start corpora" — before any parent exists for Mutation/Hybrid to
// draw on).
type GenerativeEngine struct {
	deps       *Deps
	generators []builder.Generator
	n          int
}

// NewGenerativeEngine builds a GenerativeEngine emitting n instructions
// (<=0 uses DefaultGenerativeLength) from generators.
func NewGenerativeEngine(deps *Deps, generators []builder.Generator, n int) *GenerativeEngine {
	if n <= 0 {
		n = DefaultGenerativeLength
	}
	return &GenerativeEngine{deps: deps, generators: generators, n: n}
}

func (e *GenerativeEngine) Name() string { return "GenerativeEngine" }

func (e *GenerativeEngine) Iteration(ctx context.Context, rng *rand.Rand) (*Outcome, error) {
	b := builder.New(e.deps.Env, rng)
	b.BuildPrefix(6)
	b.Build(e.n, builder.BuildGenerating, e.generators, nil)
	prog := b.Finalize()

	return e.deps.runAndEvaluate(ctx, prog, e.deps.Timeout)
}
