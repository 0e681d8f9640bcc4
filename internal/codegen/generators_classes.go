package codegen

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// classGenerators covers spec.md §4.3's "class definitions with methods,
// getters, setters, constructors".
func classGenerators() []builder.Generator {
	return []builder.Generator{
		newGenerator("ClassDefinition", il.ContextEmpty, 2, func(b *builder.Builder) bool {
			hasSuper := b.Rng.Intn(3) == 0
			var inputs []il.Variable
			if hasSuper {
				super, ok := input(b, callableType)
				if !ok {
					return false
				}
				inputs = []il.Variable{super}
			}
			b.Append(&il.BeginClassDefinition{HasSuperclass: hasSuper}, inputs)

			if b.Rng.Intn(2) == 0 {
				ctorSig := iltype.Signature{Return: iltype.Anything}
				b.Append(&il.BeginMethodDefinition{Name_: "constructor", Kind: il.MethodConstructor, Signature: ctorSig}, nil)
				b.Append(&il.EndMethodDefinition{}, nil)
			}

			members := 1 + b.Rng.Intn(3)
			for i := 0; i < members; i++ {
				emitMember(b)
			}
			b.Append(&il.EndClassDefinition{}, nil)
			return true
		}),
	}
}

func emitMember(b *builder.Builder) {
	kinds := []il.MethodKind{il.MethodPlain, il.MethodGetter, il.MethodSetter, il.MethodStatic}
	kind := kinds[b.Rng.Intn(len(kinds))]
	n := 0
	if kind == il.MethodPlain || kind == il.MethodStatic {
		n = b.Rng.Intn(3)
	} else if kind == il.MethodSetter {
		n = 1
	}
	params := make([]iltype.Parameter, n)
	for i := range params {
		params[i] = iltype.Plain(iltype.Anything)
	}
	name := b.Env.MethodNamePool[b.Rng.Intn(len(b.Env.MethodNamePool))]
	sig := iltype.Signature{Params: params, Return: iltype.Anything}
	b.Append(&il.BeginMethodDefinition{Name_: name, Kind: kind, Signature: sig}, nil)
	if b.Rng.Intn(2) == 0 {
		if v, ok := input(b, iltype.Anything); ok {
			b.Append(&il.Return{HasValue: true}, []il.Variable{v})
		}
	}
	b.Append(&il.EndMethodDefinition{}, nil)
}
