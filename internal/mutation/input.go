package mutation

import (
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/analysis"
	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// InputMutator replaces one input variable of a random instruction with
// another in-scope variable of compatible type (spec.md §4.4 "Replace one
// input variable with another of compatible type"). "Compatible" is
// defined as having exactly the same analyzed base bits, which is
// stricter than the subset rule internal/iltype.Type.Is uses elsewhere
// in this module.
type InputMutator struct {
	stats Stats
	env   *environment.Environment
}

// NewInputMutator analyzes candidate programs with a scratch Environment
// (no builtins needed — the analyzer only needs operation rules, not a
// loaded profile) so it can compute variable types on demand.
func NewInputMutator() *InputMutator {
	return &InputMutator{env: environment.New()}
}

func (m *InputMutator) Name() string   { return "InputMutator" }
func (m *InputMutator) Stats() *Stats { return &m.stats }

func (m *InputMutator) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, bool) {
	analyzer := analysis.New(m.env)
	result := analyzer.Analyze(&p.Code, analysis.State{})

	clone := p.Clone()
	indices := rng.Perm(len(clone.Code.Instructions))
	for _, idx := range indices {
		instr := &clone.Code.Instructions[idx]
		if len(instr.Inputs) == 0 {
			continue
		}
		slots := rng.Perm(len(instr.Inputs))
		for _, slot := range slots {
			old := instr.Inputs[slot]
			wantBits := result.TypeOf(old).Bits
			candidates := candidatesOfType(visibleAt(&clone.Code, idx), result, wantBits, old)
			if len(candidates) == 0 {
				continue
			}
			instr.Inputs[slot] = candidates[rng.Intn(len(candidates))]
			if clone.Code.Validate() == nil {
				return clone, true
			}
			instr.Inputs[slot] = old
		}
	}
	return nil, false
}

func candidatesOfType(vars []il.Variable, result *analysis.Result, bits iltype.Bits, exclude il.Variable) []il.Variable {
	var out []il.Variable
	for _, v := range vars {
		if v == exclude {
			continue
		}
		if result.TypeOf(v).Bits == bits {
			out = append(out, v)
		}
	}
	return out
}
