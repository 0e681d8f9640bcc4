package codegen

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// functionGenerators covers spec.md §4.3's "function definitions of each
// subkind (plain/strict/arrow/async/generator)" plus the statements only
// legal inside one (Return, Yield, Await).
func functionGenerators() []builder.Generator {
	return []builder.Generator{
		beginFunctionGenerator("PlainFunction", il.FuncPlain),
		beginFunctionGenerator("ArrowFunction", il.FuncArrow),
		beginFunctionGenerator("AsyncFunction", il.FuncAsync),
		beginFunctionGenerator("GeneratorFunction", il.FuncGenerator),
		beginFunctionGenerator("AsyncGeneratorFunction", il.FuncAsyncGenerator),
		newGenerator("Return", il.ContextFunction, 6, func(b *builder.Builder) bool {
			if b.Rng.Intn(3) == 0 {
				b.Append(&il.Return{}, nil)
				return true
			}
			v, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			b.Append(&il.Return{HasValue: true}, []il.Variable{v})
			return true
		}),
		newGenerator("Yield", il.ContextGenerator, 4, func(b *builder.Builder) bool {
			v, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			b.Append(&il.Yield{HasValue: true}, []il.Variable{v})
			return true
		}),
		newGenerator("Await", il.ContextAsync, 4, func(b *builder.Builder) bool {
			v, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			b.Append(&il.Await{}, []il.Variable{v})
			return true
		}),
	}
}

// beginFunctionGenerator builds a zero-to-three-parameter function of kind
// and immediately closes it with EndPlainFunction, so each invocation
// produces one self-contained function value — the builder's block-scope
// handling (Builder.Append pushes/pops a scope on IsBlockStart/IsBlockEnd)
// does the rest.
func beginFunctionGenerator(label string, kind il.FunctionKind) builder.Generator {
	return newGenerator(label, il.ContextEmpty, 3, func(b *builder.Builder) bool {
		n := b.Rng.Intn(4)
		params := make([]iltype.Parameter, n)
		for i := range params {
			params[i] = iltype.Plain(iltype.Anything)
		}
		sig := iltype.Signature{Params: params, Return: iltype.Anything}
		b.Append(&il.BeginPlainFunction{Signature: sig, Kind: kind, IsStrict: b.Rng.Intn(2) == 0}, nil)
		if b.Rng.Intn(2) == 0 {
			if v, ok := input(b, iltype.Anything); ok {
				b.Append(&il.Return{HasValue: true}, []il.Variable{v})
			}
		}
		b.Append(&il.EndPlainFunction{}, nil)
		return true
	})
}
