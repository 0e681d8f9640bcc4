package codegen

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// objectGenerators covers spec.md §4.3's "property load/store/delete
// (plain and guarded); method calls; array/object literals" and the
// adjacent call forms (CallFunction, Construct, Eval).
func objectGenerators() []builder.Generator {
	return []builder.Generator{
		newGenerator("CreateArray", il.ContextEmpty, 5, func(b *builder.Builder) bool {
			n := b.Rng.Intn(4)
			elems := make([]il.Variable, 0, n)
			for i := 0; i < n; i++ {
				v, ok := input(b, iltype.Anything)
				if !ok {
					break
				}
				elems = append(elems, v)
			}
			b.Append(&il.CreateArray{}, elems)
			return true
		}),
		newGenerator("CreateObject", il.ContextEmpty, 5, func(b *builder.Builder) bool {
			n := 1 + b.Rng.Intn(3)
			keys := make([]string, 0, n)
			vals := make([]il.Variable, 0, n)
			for i := 0; i < n; i++ {
				v, ok := input(b, iltype.Anything)
				if !ok {
					break
				}
				keys = append(keys, b.Env.PropertyNamePool[b.Rng.Intn(len(b.Env.PropertyNamePool))])
				vals = append(vals, v)
			}
			b.Append(&il.CreateObject{Keys: keys}, vals)
			return true
		}),
		newGenerator("GetProperty", il.ContextEmpty, 8, func(b *builder.Builder) bool {
			base, ok := input(b, anyOf(iltype.Object))
			if !ok {
				return false
			}
			name := b.Env.PropertyNamePool[b.Rng.Intn(len(b.Env.PropertyNamePool))]
			b.Append(&il.GetProperty{Name_: name, Guarded: b.Rng.Intn(4) == 0}, []il.Variable{base})
			return true
		}),
		newGenerator("SetProperty", il.ContextEmpty, 8, func(b *builder.Builder) bool {
			base, ok := input(b, anyOf(iltype.Object))
			if !ok {
				return false
			}
			val, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			name := b.Env.PropertyNamePool[b.Rng.Intn(len(b.Env.PropertyNamePool))]
			b.Append(&il.SetProperty{Name_: name, Guarded: b.Rng.Intn(4) == 0}, []il.Variable{base, val})
			return true
		}),
		newGenerator("DeleteProperty", il.ContextEmpty, 3, func(b *builder.Builder) bool {
			base, ok := input(b, anyOf(iltype.Object))
			if !ok {
				return false
			}
			name := b.Env.PropertyNamePool[b.Rng.Intn(len(b.Env.PropertyNamePool))]
			b.Append(&il.DeleteProperty{Name_: name, Guarded: true}, []il.Variable{base})
			return true
		}),
		newGenerator("CallMethod", il.ContextEmpty, 6, func(b *builder.Builder) bool {
			base, ok := input(b, anyOf(iltype.Object))
			if !ok {
				return false
			}
			arity := b.Rng.Intn(3)
			args := []il.Variable{base}
			for i := 0; i < arity; i++ {
				v, ok := input(b, iltype.Anything)
				if !ok {
					return false
				}
				args = append(args, v)
			}
			name := b.Env.MethodNamePool[b.Rng.Intn(len(b.Env.MethodNamePool))]
			b.Append(&il.CallMethod{Name_: name, Arity: arity, Guarded: b.Rng.Intn(3) == 0}, args)
			return true
		}),
		newGenerator("CallFunction", il.ContextEmpty, 8, func(b *builder.Builder) bool {
			fn, ok := input(b, callableType)
			if !ok {
				return false
			}
			arity := b.Rng.Intn(3)
			args := []il.Variable{fn}
			for i := 0; i < arity; i++ {
				v, ok := input(b, iltype.Anything)
				if !ok {
					return false
				}
				args = append(args, v)
			}
			b.Append(&il.CallFunction{Arity: arity, Guarded: b.Rng.Intn(3) == 0}, args)
			return true
		}),
		newGenerator("Construct", il.ContextEmpty, 4, func(b *builder.Builder) bool {
			ctor, ok := input(b, callableType)
			if !ok {
				return false
			}
			arity := b.Rng.Intn(3)
			args := []il.Variable{ctor}
			for i := 0; i < arity; i++ {
				v, ok := input(b, iltype.Anything)
				if !ok {
					return false
				}
				args = append(args, v)
			}
			b.Append(&il.Construct{Arity: arity, Guarded: b.Rng.Intn(3) == 0}, args)
			return true
		}),
		newGenerator("Eval", il.ContextEmpty, 1, func(b *builder.Builder) bool {
			src, ok := input(b, anyOf(iltype.String))
			if !ok {
				return false
			}
			b.Append(&il.Eval{Arity: 1}, []il.Variable{src})
			return true
		}),
	}
}
