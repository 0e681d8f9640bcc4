package mutation

import (
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/analysis"
	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// SpliceMutator inserts a contiguous, block-balanced slice of another
// corpus program at a random point in p (spec.md §4.4 "Insert a slice of
// another corpus program at a random point"). Inputs the slice needs from
// outside itself are filled from variables already visible at the
// insertion point, or — failing that — a freshly synthesized literal, the
// same strategy internal/builder.Builder.Splice uses during generation.
type SpliceMutator struct {
	stats   Stats
	sources Sources
	env     *environment.Environment
}

// NewSpliceMutator wires sources as the pool of donor programs.
func NewSpliceMutator(sources Sources) *SpliceMutator {
	return &SpliceMutator{sources: sources, env: environment.New()}
}

func (m *SpliceMutator) Name() string   { return "SpliceMutator" }
func (m *SpliceMutator) Stats() *Stats { return &m.stats }

func (m *SpliceMutator) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, bool) {
	if m.sources == nil {
		return nil, false
	}
	srcs := m.sources()
	if len(srcs) == 0 {
		return nil, false
	}
	src := srcs[rng.Intn(len(srcs))]

	start, end, ok := balancedRange(&src.Code, rng)
	if !ok {
		return nil, false
	}
	slice := src.Code.Instructions[start:end]

	clone := p.Clone()
	idx := rng.Intn(len(clone.Code.Instructions) + 1)
	destContext := clone.Code.ContextAt(idx)
	for _, instr := range slice {
		if !destContext.Contains(instr.Op.Info().RequiredContext) {
			return nil, false
		}
	}

	analyzer := analysis.New(m.env)
	srcResult := analyzer.Analyze(&src.Code, analysis.State{})
	destResult := analyzer.Analyze(&clone.Code, analysis.State{})
	visible := visibleAt(&clone.Code, idx)

	definedInSlice := make(map[il.Variable]bool)
	for _, instr := range slice {
		for _, v := range instr.AllOutputs() {
			definedInSlice[v] = true
		}
	}

	nextVar := nextFreeVar(&clone.Code)
	remap := make(map[il.Variable]il.Variable)
	var newInstrs []il.Instruction

	for _, instr := range slice {
		inputs := make([]il.Variable, len(instr.Inputs))
		for i, v := range instr.Inputs {
			if nv, ok := remap[v]; ok {
				inputs[i] = nv
				continue
			}
			if definedInSlice[v] {
				hole := nextVar
				nextVar++
				newInstrs = append(newInstrs, il.Instruction{Op: &il.LoadUndefined{}, Outputs: []il.Variable{hole}})
				remap[v] = hole
				inputs[i] = hole
				continue
			}
			want := srcResult.TypeOf(v)
			hole, holeInstr := findHole(visible, destResult, want, nextVar)
			if holeInstr != nil {
				newInstrs = append(newInstrs, *holeInstr)
				nextVar++
			}
			remap[v] = hole
			inputs[i] = hole
		}

		outs := make([]il.Variable, len(instr.Outputs))
		for i := range outs {
			outs[i] = nextVar
			nextVar++
		}
		inner := make([]il.Variable, len(instr.InnerOutputs))
		for i := range inner {
			inner[i] = nextVar
			nextVar++
		}
		newInstrs = append(newInstrs, il.Instruction{Op: instr.Op, Inputs: inputs, Outputs: outs, InnerOutputs: inner})
		for i, ov := range instr.Outputs {
			remap[ov] = outs[i]
		}
		for i, ov := range instr.InnerOutputs {
			remap[ov] = inner[i]
		}
	}

	out := make([]il.Instruction, 0, len(clone.Code.Instructions)+len(newInstrs))
	out = append(out, clone.Code.Instructions[:idx]...)
	out = append(out, newInstrs...)
	out = append(out, clone.Code.Instructions[idx:]...)
	clone.Code.Instructions = out
	clone.Code.Renumber()

	if clone.Code.Validate() != nil {
		return nil, false
	}
	return clone, true
}

// balancedRange finds a random contiguous, block-balanced slice of code:
// one whose net nesting-depth change is zero and never dips negative
// partway through, so splicing it anywhere leaves the surrounding
// program's block structure intact. Returns ok=false if none is found
// within a bounded number of attempts.
func balancedRange(code *il.Code, rng *rand.Rand) (int, int, bool) {
	n := len(code.Instructions)
	if n == 0 {
		return 0, 0, false
	}
	for attempt := 0; attempt < 20; attempt++ {
		start := rng.Intn(n)
		depth := 0
		for end := start; end < n; end++ {
			info := code.Instructions[end].Op.Info()
			if info.IsBlockEnd {
				depth--
			}
			if depth < 0 {
				break
			}
			if info.IsBlockStart {
				depth++
			}
			if depth == 0 && (rng.Intn(3) == 0 || end == n-1 || end == start) {
				return start, end + 1, true
			}
		}
	}
	return 0, 0, false
}

// findHole returns an existing visible variable of the same base bits as
// want, or a freshly synthesized literal instruction producing one.
func findHole(visible []il.Variable, destResult *analysis.Result, want iltype.Type, freshVar il.Variable) (il.Variable, *il.Instruction) {
	for _, v := range visible {
		if destResult.TypeOf(v).Bits == want.Bits {
			return v, nil
		}
	}
	switch {
	case want.Is(iltype.Of(iltype.Integer)):
		return freshVar, &il.Instruction{Op: &il.LoadInteger{Value: 0}, Outputs: []il.Variable{freshVar}}
	case want.Is(iltype.Of(iltype.String)):
		return freshVar, &il.Instruction{Op: &il.LoadString{Value: ""}, Outputs: []il.Variable{freshVar}}
	case want.Is(iltype.Of(iltype.Boolean)):
		return freshVar, &il.Instruction{Op: &il.LoadBoolean{Value: false}, Outputs: []il.Variable{freshVar}}
	default:
		return freshVar, &il.Instruction{Op: &il.LoadUndefined{}, Outputs: []il.Variable{freshVar}}
	}
}
