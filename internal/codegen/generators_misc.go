package codegen

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// miscGenerators covers spec.md §4.3's "destructuring... `with`...
// typed array ops" plus element access and the ExplorationMutator/
// ProbeMutator instrumentation point (InstallProbe).
func miscGenerators() []builder.Generator {
	return []builder.Generator{
		newGenerator("DestructureArray", il.ContextEmpty, 2, func(b *builder.Builder) bool {
			arr, ok := input(b, anyOf(iltype.Object))
			if !ok {
				return false
			}
			b.Append(&il.DestructureArray{HasRest: b.Rng.Intn(3) == 0}, []il.Variable{arr})
			return true
		}),
		newGenerator("DestructureObject", il.ContextEmpty, 2, func(b *builder.Builder) bool {
			obj, ok := input(b, anyOf(iltype.Object))
			if !ok {
				return false
			}
			n := 1 + b.Rng.Intn(2)
			keys := make([]string, n)
			for i := range keys {
				keys[i] = b.Env.PropertyNamePool[b.Rng.Intn(len(b.Env.PropertyNamePool))]
			}
			b.Append(&il.DestructureObject{Keys: keys, HasRest: b.Rng.Intn(3) == 0}, []il.Variable{obj})
			return true
		}),
		newGenerator("With", il.ContextEmpty, 1, func(b *builder.Builder) bool {
			obj, ok := input(b, anyOf(iltype.Object))
			if !ok {
				return false
			}
			b.Append(&il.With{}, []il.Variable{obj})
			fillBody(b, 1)
			b.Append(&il.EndWith{}, nil)
			return true
		}),
		newGenerator("CreateTypedArray", il.ContextEmpty, 3, func(b *builder.Builder) bool {
			length, ok := input(b, anyOf(iltype.Integer))
			if !ok {
				return false
			}
			kinds := []il.TypedArrayKind{il.TAInt8, il.TAUint8, il.TAInt32, il.TAUint32, il.TAFloat32, il.TAFloat64}
			kind := kinds[b.Rng.Intn(len(kinds))]
			b.Append(&il.CreateTypedArray{Kind: kind}, []il.Variable{length})
			return true
		}),
		newGenerator("LoadElement", il.ContextEmpty, 5, func(b *builder.Builder) bool {
			base, ok := input(b, anyOf(iltype.Object))
			if !ok {
				return false
			}
			idx, ok := input(b, anyOf(iltype.Integer))
			if !ok {
				return false
			}
			b.Append(&il.LoadElement{Guarded: b.Rng.Intn(3) == 0}, []il.Variable{base, idx})
			return true
		}),
		newGenerator("StoreElement", il.ContextEmpty, 5, func(b *builder.Builder) bool {
			base, ok := input(b, anyOf(iltype.Object))
			if !ok {
				return false
			}
			idx, ok := input(b, anyOf(iltype.Integer))
			if !ok {
				return false
			}
			val, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			b.Append(&il.StoreElement{Guarded: b.Rng.Intn(3) == 0}, []il.Variable{base, idx, val})
			return true
		}),
		newGenerator("InstallProbe", il.ContextEmpty, 1, func(b *builder.Builder) bool {
			v, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			out := b.Append(&il.InstallProbe{ID: b.Rng.Uint32()}, []il.Variable{v})
			if len(out) > 0 {
				b.MarkProbing(out[0])
			}
			return true
		}),
	}
}
