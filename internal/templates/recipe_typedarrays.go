package templates

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
)

// typedArrayElementAccess builds a small typed array and stores/loads
// across indices that straddle its declared length, aimed at bounds-check
// elimination bugs around typed-array element access.
func typedArrayElementAccess() *Template {
	return newTemplate("TypedArrayElementAccess", func(b *builder.Builder) {
		length := b.Append(&il.LoadInteger{Value: 8}, nil)[0]
		ta := b.Append(&il.CreateTypedArray{Kind: il.TAInt32}, []il.Variable{length})[0]

		initV := b.Append(&il.LoadInteger{Value: 0}, nil)[0]
		condV := b.Append(&il.LoadBoolean{Value: true}, nil)[0]
		updV := b.Append(&il.LoadInteger{Value: 1}, nil)[0]
		b.Append(&il.BeginFor{}, []il.Variable{initV, condV, updV})

		for _, idxVal := range []int64{-1, 0, 7, 8, 4294967295} {
			idx := b.Append(&il.LoadInteger{Value: idxVal}, nil)[0]
			val := b.Append(&il.LoadInteger{Value: idxVal}, nil)[0]
			b.Append(&il.StoreElement{Guarded: true}, []il.Variable{ta, idx, val})
			b.Append(&il.LoadElement{Guarded: true}, []il.Variable{ta, idx})
		}

		b.Append(&il.EndFor{}, nil)
	})
}
