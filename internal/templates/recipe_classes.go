package templates

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// classInheritanceChain builds a base class and a derived class, then
// constructs and calls into the derived instance, aimed at prototype-chain
// and vtable-cache bugs along an inheritance edge.
func classInheritanceChain() *Template {
	return newTemplate("ClassInheritanceChain", func(b *builder.Builder) {
		base := b.Append(&il.BeginClassDefinition{}, nil)[0]
		emitClassMethod(b, "speak")
		b.Append(&il.EndClassDefinition{}, nil)

		derived := b.Append(&il.BeginClassDefinition{HasSuperclass: true}, []il.Variable{base})[0]
		emitClassMethod(b, "speak")
		emitClassMethod(b, "extra")
		b.Append(&il.EndClassDefinition{}, nil)

		instance := b.Append(&il.Construct{Arity: 0, Guarded: true}, []il.Variable{derived})[0]
		b.Append(&il.CallMethod{Name_: "speak", Arity: 0, Guarded: true}, []il.Variable{instance})
	})
}

func emitClassMethod(b *builder.Builder, name string) {
	sig := iltype.Signature{Return: iltype.Anything}
	b.Append(&il.BeginMethodDefinition{Name_: name, Kind: il.MethodPlain, Signature: sig}, nil)
	v := b.Append(&il.LoadInteger{Value: 1}, nil)[0]
	b.Append(&il.Return{HasValue: true}, []il.Variable{v})
	b.Append(&il.EndMethodDefinition{}, nil)
}
