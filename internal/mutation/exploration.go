package mutation

import (
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/il"
)

// Observation is what a second, instrumented execution reported back for
// one InstallProbe ID: the property and method names actually observed
// flowing through the probed value (spec.md §4.4 "records observed
// types/values").
type Observation struct {
	ID            uint32
	PropertyNames []string
	MethodNames   []string
}

// ExplorationMutator instruments a random value-producing point with an
// InstallProbe on its first pass (Mutate); once the executor has run the
// instrumented program and reported Observations, Resolve rewrites each
// probed point in place with a concrete, probe-informed GetProperty or
// CallMethod (spec.md §4.4 "on a second execution, rewrite probed points
// with concrete actions informed by probe output").
type ExplorationMutator struct {
	stats  Stats
	nextID uint32
}

// NewExplorationMutator returns an ExplorationMutator with a fresh probe
// ID counter.
func NewExplorationMutator() *ExplorationMutator { return &ExplorationMutator{} }

func (m *ExplorationMutator) Name() string   { return "ExplorationMutator" }
func (m *ExplorationMutator) Stats() *Stats { return &m.stats }

func (m *ExplorationMutator) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, bool) {
	clone := p.Clone()
	candidates := valueProducingIndices(clone.Code.Instructions)
	if len(candidates) == 0 {
		return nil, false
	}
	idx := candidates[rng.Intn(len(candidates))]
	v := clone.Code.Instructions[idx].Outputs[0]

	id := m.nextID
	m.nextID++
	probe := il.Instruction{
		Op:      &il.InstallProbe{ID: id},
		Inputs:  []il.Variable{v},
		Outputs: []il.Variable{nextFreeVar(&clone.Code)},
	}

	insertAt := idx + 1
	out := make([]il.Instruction, 0, len(clone.Code.Instructions)+1)
	out = append(out, clone.Code.Instructions[:insertAt]...)
	out = append(out, probe)
	out = append(out, clone.Code.Instructions[insertAt:]...)
	clone.Code.Instructions = out
	clone.Code.Renumber()

	if clone.Code.Validate() != nil {
		return nil, false
	}
	return clone, true
}

// Resolve rewrites every InstallProbe instruction in p whose ID appears in
// observations into a concrete CallMethod (when any method name was
// observed) or else a GetProperty on the probed value, in place — the instruction count is
// unchanged so no renumbering of surrounding variables is needed. Probes
// with no matching observation, or whose observation carries no names,
// are left untouched for a later run to resolve.
func (m *ExplorationMutator) Resolve(p *il.Program, observations []Observation) (*il.Program, bool) {
	byID := make(map[uint32]Observation, len(observations))
	for _, o := range observations {
		byID[o.ID] = o
	}

	clone := p.Clone()
	changed := false
	for i, instr := range clone.Code.Instructions {
		probe, ok := instr.Op.(*il.InstallProbe)
		if !ok {
			continue
		}
		obs, ok := byID[probe.ID]
		if !ok {
			continue
		}
		base := instr.Inputs[0]
		switch {
		case len(obs.MethodNames) > 0:
			clone.Code.Instructions[i] = il.Instruction{
				Op:      &il.CallMethod{Name_: obs.MethodNames[0], Arity: 0, Guarded: true},
				Inputs:  []il.Variable{base},
				Outputs: instr.Outputs,
			}
			changed = true
		case len(obs.PropertyNames) > 0:
			clone.Code.Instructions[i] = il.Instruction{
				Op:      &il.GetProperty{Name_: obs.PropertyNames[0], Guarded: true},
				Inputs:  []il.Variable{base},
				Outputs: instr.Outputs,
			}
			changed = true
		}
	}
	if !changed {
		return nil, false
	}
	if clone.Code.Validate() != nil {
		return nil, false
	}
	return clone, true
}

func valueProducingIndices(instrs []il.Instruction) []int {
	var out []int
	for i, instr := range instrs {
		if len(instr.Outputs) > 0 {
			out = append(out, i)
		}
	}
	return out
}
