package codegen

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// controlFlowGenerators covers spec.md §4.3's "control flow (if, while,
// for, for-in, for-of, switch, try-catch-finally)".
func controlFlowGenerators() []builder.Generator {
	return []builder.Generator{
		newGenerator("IfElse", il.ContextEmpty, 6, func(b *builder.Builder) bool {
			cond, ok := input(b, anyOf(iltype.Boolean))
			if !ok {
				return false
			}
			b.Append(&il.BeginIf{}, []il.Variable{cond})
			fillBody(b, 1)
			if b.Rng.Intn(2) == 0 {
				b.Append(&il.BeginElse{}, nil)
				fillBody(b, 1)
			}
			b.Append(&il.EndIf{}, nil)
			return true
		}),
		newGenerator("While", il.ContextEmpty, 3, func(b *builder.Builder) bool {
			cond, ok := input(b, anyOf(iltype.Boolean))
			if !ok {
				return false
			}
			b.Append(&il.BeginWhile{}, []il.Variable{cond})
			fillBody(b, 1)
			b.Append(&il.EndWhile{}, nil)
			return true
		}),
		newGenerator("DoWhile", il.ContextEmpty, 2, func(b *builder.Builder) bool {
			b.Append(&il.BeginDoWhile{}, nil)
			fillBody(b, 1)
			cond, ok := input(b, anyOf(iltype.Boolean))
			if !ok {
				cond = b.Append(&il.LoadBoolean{Value: false}, nil)[0]
			}
			b.Append(&il.EndDoWhile{}, []il.Variable{cond})
			return true
		}),
		newGenerator("For", il.ContextEmpty, 4, func(b *builder.Builder) bool {
			initV, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			condV, ok := input(b, anyOf(iltype.Boolean))
			if !ok {
				return false
			}
			updV, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			b.Append(&il.BeginFor{}, []il.Variable{initV, condV, updV})
			fillBody(b, 1)
			b.Append(&il.EndFor{}, nil)
			return true
		}),
		newGenerator("ForIn", il.ContextEmpty, 3, func(b *builder.Builder) bool {
			obj, ok := input(b, anyOf(iltype.Object))
			if !ok {
				return false
			}
			b.Append(&il.BeginForIn{}, []il.Variable{obj})
			fillBody(b, 1)
			b.Append(&il.EndForIn{}, nil)
			return true
		}),
		newGenerator("ForOf", il.ContextEmpty, 3, func(b *builder.Builder) bool {
			// CreateArray/CreateTypedArray both produce Object|Iterable
			// together, so that combination — not the bare Iterable bit —
			// is what Type.Is's subset check actually matches.
			iter, ok := input(b, iltype.Of(iltype.Object|iltype.Iterable))
			if !ok {
				return false
			}
			b.Append(&il.BeginForOf{}, []il.Variable{iter})
			fillBody(b, 1)
			b.Append(&il.EndForOf{}, nil)
			return true
		}),
		newGenerator("Break", il.ContextLoop, 2, func(b *builder.Builder) bool {
			b.Append(&il.Break{}, nil)
			return true
		}),
		newGenerator("Continue", il.ContextLoop, 2, func(b *builder.Builder) bool {
			b.Append(&il.Continue{}, nil)
			return true
		}),
		newGenerator("Switch", il.ContextEmpty, 2, func(b *builder.Builder) bool {
			disc, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			b.Append(&il.BeginSwitch{}, []il.Variable{disc})
			cases := 1 + b.Rng.Intn(3)
			for i := 0; i < cases; i++ {
				isDefault := i == cases-1 && b.Rng.Intn(2) == 0
				var inputs []il.Variable
				if !isDefault {
					v, ok := input(b, iltype.Anything)
					if !ok {
						continue
					}
					inputs = []il.Variable{v}
				}
				b.Append(&il.BeginSwitchCase{IsDefault: isDefault}, inputs)
				fillBody(b, 1)
			}
			b.Append(&il.EndSwitch{}, nil)
			return true
		}),
		newGenerator("TryCatchFinally", il.ContextEmpty, 3, func(b *builder.Builder) bool {
			b.Append(&il.BeginTry{}, nil)
			fillBody(b, 1)
			b.Append(&il.BeginCatch{}, nil)
			fillBody(b, 1)
			if b.Rng.Intn(2) == 0 {
				b.Append(&il.BeginFinally{}, nil)
				fillBody(b, 1)
			}
			b.Append(&il.EndTryCatchFinally{}, nil)
			return true
		}),
		newGenerator("Throw", il.ContextEmpty, 2, func(b *builder.Builder) bool {
			v, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			b.Append(&il.Throw{}, []il.Variable{v})
			return true
		}),
	}
}

// fillBody emits a handful of simple literal-producing instructions as a
// block body, the cheapest possible way to give a block non-empty content
// without recursing into the full generator pool (avoiding unbounded
// generator-calling-generator recursion depth).
func fillBody(b *builder.Builder, n int) {
	for i := 0; i < n; i++ {
		v := b.Env.InterestingIntegers[b.Rng.Intn(len(b.Env.InterestingIntegers))]
		b.Append(&il.LoadInteger{Value: v}, nil)
	}
}
