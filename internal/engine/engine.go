// Package engine implements the four fuzz engines of spec.md §4.5:
// Mutation, Hybrid, Generative, and Multi — named strategy objects behind
// one Engine interface, the same shape as
// kernel/threads/intelligence/optimization.OptimizationEngine (one struct
// holding several named sub-strategies, each with its own stats, reached
// through a small set of entry points).
package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/corpus"
	"github.com/jsfuzz/jsfuzz/internal/coverage"
	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/execution"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/lifter"
	"github.com/jsfuzz/jsfuzz/internal/logging"
	"github.com/jsfuzz/jsfuzz/internal/minimize"
	"github.com/jsfuzz/jsfuzz/internal/mutation"
	"github.com/jsfuzz/jsfuzz/internal/wasmext"
)

// Executor is the subset of *execution.Pool engines depend on — narrowed
// to an interface so tests can exercise engine logic against a fake
// executor instead of spawning real REPRL child processes, the same
// narrow-interface-over-REPRL pattern internal/minimize's Checker and
// internal/lifter's Lifter already use.
type Executor interface {
	Execute(ctx context.Context, script []byte, timeout time.Duration) (*execution.Result, error)
}

// Deps bundles the already-constructed collaborators every engine needs.
// internal/fuzzer owns and wires one Deps per run; engines never
// construct their own corpus, executor, or coverage map.
type Deps struct {
	Env      *environment.Environment
	Corpus   *corpus.Corpus
	Crashes  *corpus.CrashStore
	Coverage *coverage.Map
	Executor Executor
	Lifter   lifter.Lifter
	Mutators *mutation.Pool
	Log      *logging.Logger

	// Timeout is the default per-execution deadline (spec.md §4.6, "default
	// 1s"). Callers that need the doubled template timeout pass their own.
	Timeout time.Duration

	// OnInsert, if set, is called after a program is newly added to Corpus
	// (not for a duplicate rejected by fingerprint) — internal/fuzzer wires
	// this to internal/sync.Node.NotifyLocal so locally discovered programs
	// propagate to the rest of the sync tree without the engine package
	// depending on internal/sync.
	OnInsert func(*il.Program)

	// OnCrash, if set, is called after a crash is newly recorded (not for
	// a duplicate signature) — internal/fuzzer wires this to
	// internal/sync.Node.NotifyCrash.
	OnCrash func(*corpus.Crash)
}

// Outcome summarizes one executed program, for engines' own stats and for
// internal/stats' counters.
type Outcome struct {
	Executed    int
	Interesting bool
	Crashed     bool
	TimedOut    bool
}

// Engine is one of spec.md §4.5's per-iteration policies.
type Engine interface {
	Name() string
	// Iteration runs one unit of work — one mutation chain, one template
	// run, or one generated program — and reports what happened.
	Iteration(ctx context.Context, rng *rand.Rand) (*Outcome, error)
}

// runAndEvaluate lifts p, executes it, and — per spec.md §4.6 step 4-5 and
// §4.7 — records a crash, or diffs the coverage bitmap and, on new edges,
// minimizes and inserts p into the corpus. Every engine funnels its
// generated/mutated programs through this single path so crash recording,
// coverage evaluation, and corpus insertion are never reimplemented per
// engine.
func (d *Deps) runAndEvaluate(ctx context.Context, p *il.Program, timeout time.Duration) (*Outcome, error) {
	if err := wasmext.ValidateProgram(p); err != nil {
		d.Log.Debug("discarding program with invalid wasm fragment", logging.Err(err))
		return &Outcome{}, nil
	}

	src, err := d.Lifter.Lift(p)
	if err != nil {
		return nil, err
	}

	res, err := d.Executor.Execute(ctx, []byte(src), timeout)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Executed: 1, Crashed: res.Crashed, TimedOut: res.TimedOut}

	if res.Crashed {
		crash := &corpus.Crash{Program: p, Stderr: res.Stderr, Signal: res.Signal}
		isNew, err := d.Crashes.Record(crash)
		if err != nil {
			d.Log.Warn("failed to record crash", logging.Err(err))
		}
		if isNew && d.OnCrash != nil {
			d.OnCrash(crash)
		}
		return out, nil
	}
	if res.TimedOut {
		return out, nil
	}

	newEdges := d.Coverage.Diff(res.Coverage)
	if len(newEdges) == 0 {
		return out, nil
	}
	out.Interesting = true

	minimized := minimize.Minimize(p, func(candidate *il.Program) bool {
		csrc, err := d.Lifter.Lift(candidate)
		if err != nil {
			return false
		}
		cres, err := d.Executor.Execute(ctx, []byte(csrc), timeout)
		if err != nil || cres.Crashed || cres.TimedOut {
			return false
		}
		return coverage.Covers(cres.Coverage, newEdges)
	})

	if err := d.Corpus.Insert(minimized); err != nil {
		// Already-present (duplicate fingerprint) is expected and not an
		// error a caller needs to see; anything else propagates.
		if !corpus.IsDuplicate(err) {
			return out, err
		}
		return out, nil
	}
	if d.OnInsert != nil {
		d.OnInsert(minimized)
	}
	return out, nil
}

// withFreshPrefix prepends count buildPrefix literals (spec.md §4.8
// "caller is expected to apply buildPrefix before mutating") ahead of p's
// own instructions, rebasing p onto the prefix's fresh variable range.
// Falls back to p unchanged if the combination somehow fails validation —
// MutationEngine treats that as "no prefix available" rather than a hard
// error.
func withFreshPrefix(env *environment.Environment, rng *rand.Rand, p *il.Program, count int) *il.Program {
	pb := builder.New(env, rng)
	pb.BuildPrefix(count)
	prefix := pb.Instructions()

	var offset il.Variable
	for _, instr := range prefix {
		for _, v := range instr.AllOutputs() {
			if v+1 > offset {
				offset = v + 1
			}
		}
	}

	rebased := make([]il.Instruction, len(p.Code.Instructions))
	for i, instr := range p.Code.Instructions {
		rebased[i] = il.Instruction{
			Op:           instr.Op,
			Inputs:       shiftVars(instr.Inputs, offset),
			Outputs:      shiftVars(instr.Outputs, offset),
			InnerOutputs: shiftVars(instr.InnerOutputs, offset),
		}
	}

	code := il.Code{Instructions: append(append([]il.Instruction{}, prefix...), rebased...)}
	code.Renumber()
	if code.Validate() != nil {
		return p
	}

	prog := il.New(code)
	prog.Contributors = append([]string(nil), p.Contributors...)
	return prog
}

func shiftVars(vars []il.Variable, offset il.Variable) []il.Variable {
	if len(vars) == 0 {
		return nil
	}
	out := make([]il.Variable, len(vars))
	for i, v := range vars {
		out[i] = v + offset
	}
	return out
}
