// Package mutation implements the nine mutators of spec.md §4.4: each is a
// transformation `(Program, *rand.Rand) -> (*Program, bool)` that either
// returns a structurally valid derived program or reports failure without
// touching its input. Every mutator tracks its own success/failure counts,
// grounded on kernel/threads/supervisor/protocol.go's
// AckManager — one struct per independent retry-tracked strategy, all
// driven through a single dispatch point (here, Apply).
package mutation

import (
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/il"
)

// Mutator transforms p into a derived program. It must not mutate p in
// place — callers always see either an unrelated clone or (nil, false),
// with p left as it was. A mutator that would violate an IL invariant
// returns (nil, false) instead of panicking; Builder.Finalize, not the
// mutator, is the place invariant violations are fatal. Apply, not
// Mutate, is what hands p itself back on failure.
type Mutator interface {
	Name() string
	Mutate(p *il.Program, rng *rand.Rand) (*il.Program, bool)
	Stats() *Stats
}

// Stats mirrors internal/templates.Stats' shape but tracks the two
// counters a mutator itself needs: how often it was tried and how often
// it actually produced a derived program (spec.md §4.4 "Each records
// success/failure statistics").
type Stats struct {
	attempts  int64
	successes int64
}

// Pool is the ordered set of mutators an engine samples from — the
// "single dispatch point" the package doc refers to.
type Pool struct {
	mutators []Mutator
}

// NewPool builds a Pool over ms in the given order.
func NewPool(ms ...Mutator) *Pool { return &Pool{mutators: ms} }

// All returns every mutator in the pool, in registration order.
func (p *Pool) All() []Mutator { return p.mutators }

// Pick chooses one mutator uniformly at random. Engines that want
// weighted selection (e.g. by success rate) should iterate All()
// themselves instead.
func (p *Pool) Pick(rng *rand.Rand) Mutator {
	if len(p.mutators) == 0 {
		return nil
	}
	return p.mutators[rng.Intn(len(p.mutators))]
}

// Apply runs mutator against p, recording the attempt and, on success,
// tagging the result with mutator's name as a contributor (SPEC_FULL.md §C.3's
// "propagate" decision for the open question on contributor sets).
func Apply(mutator Mutator, p *il.Program, rng *rand.Rand) (*il.Program, bool) {
	stats := mutator.Stats()
	stats.recordAttempt()
	out, ok := mutator.Mutate(p, rng)
	if !ok {
		return p, false
	}
	stats.recordSuccess()
	return out.WithContributor(mutator.Name()), true
}

func (s *Stats) recordAttempt() { s.attempts++ }
func (s *Stats) recordSuccess() { s.successes++ }

// Attempts is how many times Apply invoked this mutator.
func (s *Stats) Attempts() int64 { return s.attempts }

// Successes is how many of those attempts produced a derived program.
func (s *Stats) Successes() int64 { return s.successes }

// SuccessRate is Successes/Attempts, 0 when Attempts is 0.
func (s *Stats) SuccessRate() float64 {
	if s.attempts == 0 {
		return 0
	}
	return float64(s.successes) / float64(s.attempts)
}

// Default builds the pool of all nine mutators named in spec.md §4.4. env
// seeds the type analysis InputMutator and CodeGenMutator need; sources
// supplies the donor-program pool SpliceMutator, CombineMutator, and
// ConcatMutator draw from — both are expected to be wired by the caller to
// the running corpus (internal/fuzzer), not fabricated here.
func Default(env *environment.Environment, sources Sources) *Pool {
	return NewPool(
		NewOperationMutator(),
		NewInputMutator(),
		NewSpliceMutator(sources),
		NewCombineMutator(sources),
		NewConcatMutator(sources),
		NewCodeGenMutator(env),
		NewExplorationMutator(),
		NewProbeMutator(),
		NewFixupMutator(),
	)
}
