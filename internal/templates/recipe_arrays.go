package templates

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// arrayBuiltinStress builds a numeric array and repeatedly calls array
// builtins on it inside a counted loop, aimed at array-storage-kind
// transitions (packed-smi -> packed-double -> holey -> dictionary) that
// engines re-derive lazily on each shape change.
func arrayBuiltinStress() *Template {
	return newTemplate("ArrayBuiltinStress", func(b *builder.Builder) {
		elems := make([]il.Variable, 0, 4)
		for i := 0; i < 4; i++ {
			v := b.Append(&il.LoadInteger{Value: b.Env.InterestingIntegers[i%len(b.Env.InterestingIntegers)]}, nil)
			elems = append(elems, v[0])
		}
		arr := b.Append(&il.CreateArray{}, elems)[0]

		initV := b.Append(&il.LoadInteger{Value: 0}, nil)[0]
		condV := b.Append(&il.LoadBoolean{Value: true}, nil)[0]
		updV := b.Append(&il.LoadInteger{Value: 1}, nil)[0]
		b.Append(&il.BeginFor{}, []il.Variable{initV, condV, updV})

		hole, ok := b.FindOrGenerate(iltype.Anything, nil)
		if !ok {
			hole = b.Append(&il.LoadFloat{Value: 0.5}, nil)[0]
		}
		b.Append(&il.CallMethod{Name_: "push", Arity: 1, Guarded: true}, []il.Variable{arr, hole})
		b.Append(&il.CallMethod{Name_: "pop", Arity: 0, Guarded: true}, []il.Variable{arr})
		idx := b.Append(&il.LoadInteger{Value: 0}, nil)[0]
		b.Append(&il.LoadElement{Guarded: true}, []il.Variable{arr, idx})

		b.Append(&il.EndFor{}, nil)
	})
}
