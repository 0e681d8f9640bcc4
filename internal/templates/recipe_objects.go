package templates

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
)

// objectPropertyChurn repeatedly adds and removes the same property name
// on a fresh object inside a loop, aimed at hidden-class / shape-cache
// transitions engines re-derive on add/delete cycles.
func objectPropertyChurn() *Template {
	return newTemplate("ObjectPropertyChurn", func(b *builder.Builder) {
		seed := b.Append(&il.LoadInteger{Value: 1}, nil)[0]
		obj := b.Append(&il.CreateObject{Keys: []string{"x"}}, []il.Variable{seed})[0]

		initV := b.Append(&il.LoadInteger{Value: 0}, nil)[0]
		condV := b.Append(&il.LoadBoolean{Value: true}, nil)[0]
		updV := b.Append(&il.LoadInteger{Value: 1}, nil)[0]
		b.Append(&il.BeginFor{}, []il.Variable{initV, condV, updV})

		name := b.Env.PropertyNamePool[0]
		val := b.Append(&il.LoadString{Value: "churn"}, nil)[0]
		b.Append(&il.SetProperty{Name_: name, Guarded: true}, []il.Variable{obj, val})
		b.Append(&il.GetProperty{Name_: name, Guarded: true}, []il.Variable{obj})
		b.Append(&il.DeleteProperty{Name_: name, Guarded: true}, []il.Variable{obj})

		b.Append(&il.EndFor{}, nil)
	})
}
