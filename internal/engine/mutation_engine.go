package engine

import (
	"context"
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/mutation"
)

// DefaultChainLength is K in spec.md §4.5's MutationEngine description
// ("apply up to K (default 5) consecutive mutations").
const DefaultChainLength = 5

// MutationEngine picks a corpus parent and applies up to K consecutive
// mutations, re-rooting at each successful mutant and executing every
// mutant along the way; a crash or timeout aborts the rest of the chain
// (spec.md §4.5 "MutationEngine").
type MutationEngine struct {
	deps *Deps
	k    int
}

// NewMutationEngine builds a MutationEngine with chain length k (<=0 uses
// DefaultChainLength).
func NewMutationEngine(deps *Deps, k int) *MutationEngine {
	if k <= 0 {
		k = DefaultChainLength
	}
	return &MutationEngine{deps: deps, k: k}
}

func (e *MutationEngine) Name() string { return "MutationEngine" }

func (e *MutationEngine) Iteration(ctx context.Context, rng *rand.Rand) (*Outcome, error) {
	parent, ok := e.deps.Corpus.RandomForMutating()
	if !ok {
		return &Outcome{}, nil
	}
	current := withFreshPrefix(e.deps.Env, rng, parent, 6)

	total := &Outcome{}
	for i := 0; i < e.k; i++ {
		mutator := e.deps.Mutators.Pick(rng)
		if mutator == nil {
			break
		}
		mutant, ok := mutation.Apply(mutator, current, rng)
		if !ok {
			continue
		}

		out, err := e.deps.runAndEvaluate(ctx, mutant, e.deps.Timeout)
		if err != nil {
			return total, err
		}
		total.Executed += out.Executed
		total.Interesting = total.Interesting || out.Interesting
		total.Crashed = total.Crashed || out.Crashed
		total.TimedOut = total.TimedOut || out.TimedOut

		current = mutant
		if out.Crashed || out.TimedOut {
			break
		}
	}
	return total, nil
}
