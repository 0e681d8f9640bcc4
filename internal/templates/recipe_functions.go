package templates

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// functionRecompileLoop defines a small arithmetic function and calls it
// many times with an alternating argument type, aimed at JIT tier-up and
// the deopt path a type-feedback mismatch triggers partway through
// warmup.
func functionRecompileLoop() *Template {
	return newTemplate("FunctionRecompileLoop", func(b *builder.Builder) {
		sig := iltype.Signature{
			Params: []iltype.Parameter{iltype.Plain(iltype.Anything)},
			Return: iltype.Anything,
		}
		fn := b.Append(&il.BeginPlainFunction{Signature: sig, Kind: il.FuncPlain}, nil)[0]
		one := b.Append(&il.LoadInteger{Value: 1}, nil)[0]
		// The function's own parameter isn't part of Append's return value
		// (only Outputs, not InnerOutputs, are returned), so the body takes
		// a jsAnything value from the pool instead; that may be the formal
		// parameter itself or another jsAnything variable in scope.
		lhs, ok := b.FindOrGenerate(iltype.Anything, nil)
		if !ok {
			lhs = one
		}
		sum := b.Append(&il.BinaryOperation{Op: il.OpAdd}, []il.Variable{lhs, one})[0]
		b.Append(&il.Return{HasValue: true}, []il.Variable{sum})
		b.Append(&il.EndPlainFunction{}, nil)

		initV := b.Append(&il.LoadInteger{Value: 0}, nil)[0]
		condV := b.Append(&il.LoadBoolean{Value: true}, nil)[0]
		updV := b.Append(&il.LoadInteger{Value: 1}, nil)[0]
		b.Append(&il.BeginFor{}, []il.Variable{initV, condV, updV})

		intArg := b.Append(&il.LoadInteger{Value: 3}, nil)[0]
		strArg := b.Append(&il.LoadString{Value: "x"}, nil)[0]
		b.Append(&il.CallFunction{Arity: 1, Guarded: true}, []il.Variable{fn, intArg})
		b.Append(&il.CallFunction{Arity: 1, Guarded: true}, []il.Variable{fn, strArg})

		b.Append(&il.EndFor{}, nil)
	})
}
