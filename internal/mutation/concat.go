package mutation

import (
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/il"
)

// ConcatMutator concatenates two programs, but first reconciles their
// leading prefixes (spec.md §4.4 "Concatenate two programs with prefix
// reconciliation"): rather than duplicating the appended program's own
// buildPrefix-style literals, it remaps references to them onto the
// destination's own prefix variables of matching type where one exists,
// and only appends the appended program's prefix literals it couldn't
// match plus the whole non-prefix remainder.
type ConcatMutator struct {
	stats   Stats
	sources Sources
}

// NewConcatMutator wires sources as the pool of programs to concatenate.
func NewConcatMutator(sources Sources) *ConcatMutator {
	return &ConcatMutator{sources: sources}
}

func (m *ConcatMutator) Name() string   { return "ConcatMutator" }
func (m *ConcatMutator) Stats() *Stats { return &m.stats }

func (m *ConcatMutator) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, bool) {
	if m.sources == nil {
		return nil, false
	}
	srcs := m.sources()
	if len(srcs) == 0 {
		return nil, false
	}
	src := srcs[rng.Intn(len(srcs))]

	clone := p.Clone()
	destPrefixLen := prefixLength(clone.Code.Instructions)
	srcPrefixLen := prefixLength(src.Code.Instructions)

	destPrefixByBits := make(map[string]il.Variable)
	for i := 0; i < destPrefixLen; i++ {
		instr := clone.Code.Instructions[i]
		destPrefixByBits[instr.Op.Name()] = instr.Outputs[0]
	}

	offset := nextFreeVar(&clone.Code)
	remap := make(map[il.Variable]il.Variable)
	var kept []il.Instruction

	for i := 0; i < srcPrefixLen; i++ {
		instr := src.Code.Instructions[i]
		if dv, ok := destPrefixByBits[instr.Op.Name()]; ok {
			remap[instr.Outputs[0]] = dv
			continue
		}
		rebasedOut := instr.Outputs[0] + offset
		remap[instr.Outputs[0]] = rebasedOut
		kept = append(kept, il.Instruction{Op: instr.Op, Outputs: []il.Variable{rebasedOut}})
	}

	for _, instr := range src.Code.Instructions[srcPrefixLen:] {
		inputs := make([]il.Variable, len(instr.Inputs))
		for i, v := range instr.Inputs {
			if nv, ok := remap[v]; ok {
				inputs[i] = nv
			} else {
				inputs[i] = v + offset
			}
		}
		newInstr := il.Instruction{
			Op:           instr.Op,
			Inputs:       inputs,
			Outputs:      shiftVars(instr.Outputs, offset),
			InnerOutputs: shiftVars(instr.InnerOutputs, offset),
		}
		for i, ov := range instr.Outputs {
			remap[ov] = newInstr.Outputs[i]
		}
		for i, ov := range instr.InnerOutputs {
			remap[ov] = newInstr.InnerOutputs[i]
		}
		kept = append(kept, newInstr)
	}

	clone.Code.Instructions = append(clone.Code.Instructions, kept...)
	clone.Code.Renumber()

	if clone.Code.Validate() != nil {
		return nil, false
	}
	return clone, true
}
