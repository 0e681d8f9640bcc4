package codegen

import (
	"fmt"

	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
)

// literalGenerators covers spec.md §4.3's "integer/float/string/bigint
// literal loaders" plus the remaining zero-input value loaders (boolean,
// undefined, null, regexp, builtin).
func literalGenerators() []builder.Generator {
	return []builder.Generator{
		newGenerator("LoadInteger", il.ContextEmpty, 8, func(b *builder.Builder) bool {
			v := b.Env.InterestingIntegers[b.Rng.Intn(len(b.Env.InterestingIntegers))]
			b.Append(&il.LoadInteger{Value: v}, nil)
			return true
		}),
		newGenerator("LoadFloat", il.ContextEmpty, 4, func(b *builder.Builder) bool {
			v := b.Env.InterestingFloats[b.Rng.Intn(len(b.Env.InterestingFloats))]
			b.Append(&il.LoadFloat{Value: v}, nil)
			return true
		}),
		newGenerator("LoadString", il.ContextEmpty, 4, func(b *builder.Builder) bool {
			v := b.Env.InterestingStrings[b.Rng.Intn(len(b.Env.InterestingStrings))]
			b.Append(&il.LoadString{Value: v}, nil)
			return true
		}),
		newGenerator("LoadBigInt", il.ContextEmpty, 2, func(b *builder.Builder) bool {
			v := b.Env.InterestingIntegers[b.Rng.Intn(len(b.Env.InterestingIntegers))]
			b.Append(&il.LoadBigInt{Value: fmt.Sprintf("%d", v)}, nil)
			return true
		}),
		newGenerator("LoadBoolean", il.ContextEmpty, 4, func(b *builder.Builder) bool {
			b.Append(&il.LoadBoolean{Value: b.Rng.Intn(2) == 0}, nil)
			return true
		}),
		newGenerator("LoadUndefined", il.ContextEmpty, 1, func(b *builder.Builder) bool {
			b.Append(&il.LoadUndefined{}, nil)
			return true
		}),
		newGenerator("LoadNull", il.ContextEmpty, 1, func(b *builder.Builder) bool {
			b.Append(&il.LoadNull{}, nil)
			return true
		}),
		newGenerator("LoadRegExp", il.ContextEmpty, 1, func(b *builder.Builder) bool {
			patterns := []string{"a+", "[0-9]*", "(ab|cd)", ".*", "^x$"}
			flagSets := []string{"", "g", "i", "gi", "gimsu"}
			b.Append(&il.LoadRegExp{
				Pattern: patterns[b.Rng.Intn(len(patterns))],
				Flags:   flagSets[b.Rng.Intn(len(flagSets))],
			}, nil)
			return true
		}),
		newGenerator("LoadBuiltin", il.ContextEmpty, 6, func(b *builder.Builder) bool {
			names := b.Env.BuiltinNames()
			if len(names) == 0 {
				return false
			}
			b.Append(&il.LoadBuiltin{Name_: names[b.Rng.Intn(len(names))]}, nil)
			return true
		}),
	}
}
