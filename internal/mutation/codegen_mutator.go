package mutation

import (
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/codegen"
	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/il"
)

// CodeGenMutator inserts a freshly generated block at a random point
// (spec.md §4.4 "Insert a freshly generated block at a random point"). It
// reuses internal/codegen's weighted registry by replaying p through a
// fresh Builder up to the insertion point, emitting one generator call,
// and replaying the remainder — the same incremental-state machine
// internal/builder.Builder already maintains for ordinary generation.
// Replaying (rather than splicing Code slices directly) is what lets the
// Builder's analyzer and variable pool stay consistent for the inserted
// block's own FindOrGenerate calls.
type CodeGenMutator struct {
	stats      Stats
	env        *environment.Environment
	generators []builder.Generator
}

// NewCodeGenMutator builds a CodeGenMutator whose Builder is seeded with
// env and whose generator registry defaults to codegen.Default().
func NewCodeGenMutator(env *environment.Environment) *CodeGenMutator {
	return &CodeGenMutator{env: env, generators: codegen.Default()}
}

func (m *CodeGenMutator) Name() string   { return "CodeGenMutator" }
func (m *CodeGenMutator) Stats() *Stats { return &m.stats }

func (m *CodeGenMutator) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, bool) {
	instrs := p.Code.Instructions
	idx := rng.Intn(len(instrs) + 1)

	b := builder.New(m.env, rng)
	remap := make(map[il.Variable]il.Variable, len(instrs))

	if !replay(b, instrs[:idx], remap) {
		return nil, false
	}

	before := len(b.Instructions())
	b.Build(1, builder.BuildGenerating, m.generators, nil)
	if len(b.Instructions()) == before {
		return nil, false
	}

	if !replay(b, instrs[idx:], remap) {
		return nil, false
	}

	result := b.Finalize()
	if result.Code.Validate() != nil {
		return nil, false
	}
	return result, true
}

// replay re-emits instrs against b, translating each instruction's inputs
// through remap (built from the outputs of instructions already replayed)
// and recording the fresh variables the Builder assigns this instruction's
// outputs and inner-outputs. It reports false the moment an instruction
// fails to append — e.g. because the inserted block changed the current
// context in a way the remainder no longer satisfies.
func replay(b *builder.Builder, instrs []il.Instruction, remap map[il.Variable]il.Variable) bool {
	for _, instr := range instrs {
		inputs := make([]il.Variable, len(instr.Inputs))
		for i, v := range instr.Inputs {
			nv, ok := remap[v]
			if !ok {
				return false
			}
			inputs[i] = nv
		}

		before := len(b.Instructions())
		outs := b.Append(instr.Op, inputs)
		if len(b.Instructions()) == before {
			return false
		}

		for i, ov := range instr.Outputs {
			remap[ov] = outs[i]
		}
		last := b.Instructions()[len(b.Instructions())-1]
		for i, ov := range instr.InnerOutputs {
			remap[ov] = last.InnerOutputs[i]
		}
	}
	return true
}
