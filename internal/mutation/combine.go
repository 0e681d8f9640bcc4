package mutation

import (
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/il"
)

// CombineMutator appends another corpus program after it, rebasing the
// appended program's variables above the destination's highest variable
// so no collision is possible (spec.md §4.4 "Append another program after
// rebasing variables"). Unlike SpliceMutator it never reaches into the
// destination's scope: the appended program is whole and self-contained,
// so it is only ever inserted at the outermost (ContextScript) depth —
// i.e. after the destination's last top-level instruction.
type CombineMutator struct {
	stats   Stats
	sources Sources
}

// NewCombineMutator wires sources as the pool of programs to append from.
func NewCombineMutator(sources Sources) *CombineMutator {
	return &CombineMutator{sources: sources}
}

func (m *CombineMutator) Name() string   { return "CombineMutator" }
func (m *CombineMutator) Stats() *Stats { return &m.stats }

func (m *CombineMutator) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, bool) {
	if m.sources == nil {
		return nil, false
	}
	srcs := m.sources()
	if len(srcs) == 0 {
		return nil, false
	}
	src := srcs[rng.Intn(len(srcs))]

	clone := p.Clone()
	offset := nextFreeVar(&clone.Code)
	rebased := rebaseInstructions(src.Code.Instructions, offset)
	clone.Code.Instructions = append(clone.Code.Instructions, rebased...)
	clone.Code.Renumber()

	if clone.Code.Validate() != nil {
		return nil, false
	}
	return clone, true
}
