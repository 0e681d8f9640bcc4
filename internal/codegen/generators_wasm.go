package codegen

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
)

// wasmGenerators covers spec.md §4.3's "Wasm module construction" — the
// minimal inventory in internal/il's ops_wasm.go is enough to build a
// module with one two-parameter function that adds its parameters.
func wasmGenerators() []builder.Generator {
	return []builder.Generator{
		newGenerator("WasmModule", il.ContextEmpty, 1, func(b *builder.Builder) bool {
			b.Append(&il.BeginWasmModule{}, nil)
			b.Append(&il.BeginWasmFunction{NumParams: 2}, nil)
			// Builder.Append only returns an instruction's Outputs, not its
			// InnerOutputs, so the function's own formal parameters are read
			// back from the instruction just appended.
			instrs := b.Instructions()
			params := instrs[len(instrs)-1].InnerOutputs
			if len(params) == 2 {
				sum := b.Append(&il.WasmBinaryOperation{Op: il.OpAdd}, []il.Variable{params[0], params[1]})
				if len(sum) > 0 {
					b.Append(&il.WasmReturn{}, []il.Variable{sum[0]})
				}
			}
			b.Append(&il.EndWasmFunction{}, nil)
			b.Append(&il.EndWasmModule{}, nil)
			return true
		}),
	}
}
