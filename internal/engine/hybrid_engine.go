package engine

import (
	"context"
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/mutation"
	"github.com/jsfuzz/jsfuzz/internal/templates"
)

// HybridEngine generates a full program from a template, executes it with
// a doubled timeout (templates may be slow), runs FixupMutator on success,
// then continues with up to K ordinary mutations just like MutationEngine
// (spec.md §4.5 "HybridEngine"). Per-template outcome counts live on the
// templates themselves (templates.Template.Stats), not duplicated here.
type HybridEngine struct {
	deps      *Deps
	templates *templates.Registry
	fixup     *mutation.FixupMutator
	k         int
}

// NewHybridEngine builds a HybridEngine. fixup may be nil, in which case
// the post-template fixup step is skipped.
func NewHybridEngine(deps *Deps, reg *templates.Registry, fixup *mutation.FixupMutator, k int) *HybridEngine {
	if k <= 0 {
		k = DefaultChainLength
	}
	return &HybridEngine{deps: deps, templates: reg, fixup: fixup, k: k}
}

func (e *HybridEngine) Name() string { return "HybridEngine" }

func (e *HybridEngine) Iteration(ctx context.Context, rng *rand.Rand) (*Outcome, error) {
	all := e.templates.All()
	if len(all) == 0 {
		return &Outcome{}, nil
	}
	tpl := all[rng.Intn(len(all))]
	prog := tpl.Generate(e.deps.Env, rng)

	total, err := e.deps.runAndEvaluate(ctx, prog, e.deps.Timeout*2)
	if err != nil {
		tpl.Stats.Record(false, false, false, prog.Size())
		return nil, err
	}
	tpl.Stats.Record(!total.Crashed && !total.TimedOut, total.Interesting, total.TimedOut, prog.Size())

	if total.Crashed || total.TimedOut {
		return total, nil
	}

	current := prog
	if e.fixup != nil {
		if fixed, ok := e.fixup.Mutate(current, rng); ok {
			current = fixed
		}
	}

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
