package mutation

import (
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/il"
)

// ShapeObservation is what a second, instrumented execution reported back
// for one InstallProbe ID: the property names actually present on the
// probed object at the moment it was observed (spec.md §4.4 "records
// object shapes/properties to guide later property accesses").
type ShapeObservation struct {
	ID         uint32
	Properties []string
}

// ProbeMutator instruments a random object-producing point with an
// InstallProbe; once the executor reports back ShapeObservations, Resolve
// appends a concrete GetProperty reading one of the observed properties
// right after the probe, rather than rewriting the probe itself — unlike
// ExplorationMutator, the probe's own output may still be useful to later
// instructions, so it is kept rather than replaced.
type ProbeMutator struct {
	stats  Stats
	nextID uint32
}

// NewProbeMutator returns a ProbeMutator with a fresh probe ID counter.
func NewProbeMutator() *ProbeMutator { return &ProbeMutator{} }

func (m *ProbeMutator) Name() string   { return "ProbeMutator" }
func (m *ProbeMutator) Stats() *Stats { return &m.stats }

func (m *ProbeMutator) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, bool) {
	clone := p.Clone()
	candidates := objectProducingIndices(clone.Code.Instructions)
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

// Resolve appends a guarded GetProperty for one observed property right
// after each InstallProbe whose ID appears in shapes, reading from the
// probe's own output. Probes with no matching observation, or an
// observation with no properties, are left untouched.
func (m *ProbeMutator) Resolve(p *il.Program, shapes []ShapeObservation) (*il.Program, bool) {
	byID := make(map[uint32]ShapeObservation, len(shapes))
	for _, s := range shapes {
		byID[s.ID] = s
	}

	clone := p.Clone()
	nextVar := nextFreeVar(&clone.Code)
	out := make([]il.Instruction, 0, len(clone.Code.Instructions))
	changed := false

	for _, instr := range clone.Code.Instructions {
		out = append(out, instr)
		probe, ok := instr.Op.(*il.InstallProbe)
		if !ok {
			continue
		}
		obs, ok := byID[probe.ID]
		if !ok || len(obs.Properties) == 0 {
			continue
		}
		resultVar := nextVar
		nextVar++
		out = append(out, il.Instruction{
			Op:      &il.GetProperty{Name_: obs.Properties[0], Guarded: true},
			Inputs:  []il.Variable{instr.Outputs[0]},
			Outputs: []il.Variable{resultVar},
		})
		changed = true
	}
	if !changed {
		return nil, false
	}

	clone.Code.Instructions = out
	clone.Code.Renumber()
	if clone.Code.Validate() != nil {
		return nil, false
	}
	return clone, true
}

func objectProducingIndices(instrs []il.Instruction) []int {
	var out []int
	for i, instr := range instrs {
		if len(instr.Outputs) == 0 {
			continue
		}
		switch instr.Op.(type) {
		case *il.CreateObject, *il.CreateArray, *il.CreateTypedArray, *il.GetProperty, *il.CallMethod, *il.Construct:
			out = append(out, i)
		}
	}
	return out
}
