package templates

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
)

// tryCatchExceptionStorm nests a throw inside a loop inside a
// try/catch/finally, aimed at exception-unwinding bugs where a loop's
// induction state or a finally block's cleanup interacts badly with a
// non-local jump.
func tryCatchExceptionStorm() *Template {
	return newTemplate("TryCatchExceptionStorm", func(b *builder.Builder) {
		b.Append(&il.BeginTry{}, nil)

		initV := b.Append(&il.LoadInteger{Value: 0}, nil)[0]
		condV := b.Append(&il.LoadBoolean{Value: true}, nil)[0]
		updV := b.Append(&il.LoadInteger{Value: 1}, nil)[0]
		b.Append(&il.BeginFor{}, []il.Variable{initV, condV, updV})
		errVal := b.Append(&il.LoadString{Value: "storm"}, nil)[0]
		b.Append(&il.Throw{}, []il.Variable{errVal})
		b.Append(&il.EndFor{}, nil)

		b.Append(&il.BeginCatch{}, nil)
		b.Append(&il.LoadUndefined{}, nil)
		b.Append(&il.BeginFinally{}, nil)
		b.Append(&il.LoadInteger{Value: 0}, nil)
		b.Append(&il.EndTryCatchFinally{}, nil)
	})
}
