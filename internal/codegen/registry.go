// Package codegen is the weighted registry of named code generators of
// spec.md §4.3: small recipes that each append one operation (or a whole
// block) to a builder.Builder. It implements builder.Generator against
// concrete il operations, grounded on threads/registry.Loader's
// pattern of named, independently weighted units registered into one
// runtime table.
package codegen

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// generator is the concrete builder.Generator implementation every
// constructor in this package returns: a name, a context requirement, a
// sampling weight, and the closure that does the actual appending.
type generator struct {
	name   string
	ctx    il.Context
	weight int
	emit   func(b *builder.Builder) bool
}

func (g *generator) Name() string               { return g.name }
func (g *generator) RequiredContext() il.Context { return g.ctx }
func (g *generator) Weight() int                { return g.weight }
func (g *generator) Emit(b *builder.Builder) bool { return g.emit(b) }

// newGenerator is the shared constructor used by every file in this
// package; weight defaults to 1 when unset by a caller's table.
func newGenerator(name string, ctx il.Context, weight int, emit func(b *builder.Builder) bool) *generator {
	if weight <= 0 {
		weight = 1
	}
	return &generator{name: name, ctx: ctx, weight: weight, emit: emit}
}

// Default returns the full, non-exhaustive registry named in spec.md §4.3:
// literal loaders, operators, property/element access, calls, function and
// class definitions, control flow, destructuring, and the extension-point
// operations (eval, with, typed arrays, Wasm). Callers may filter or
// reweight the slice before handing it to builder.Build.
func Default() []builder.Generator {
	var out []builder.Generator
	out = append(out, literalGenerators()...)
	out = append(out, operatorGenerators()...)
	out = append(out, objectGenerators()...)
	out = append(out, functionGenerators()...)
	out = append(out, classGenerators()...)
	out = append(out, controlFlowGenerators()...)
	out = append(out, miscGenerators()...)
	out = append(out, wasmGenerators()...)
	return out
}

// input finds or produces a variable of type t, falling back to the
// registry's own producing generators when the builder's pool has none
// (spec.md §4.2 "findOrGenerate(type)"). Generators in this package use it
// instead of calling builder.FindOrGenerate directly so they always see
// the full registry as potential producers, including each other.
func input(b *builder.Builder, t iltype.Type) (il.Variable, bool) {
	return b.FindOrGenerate(t, Default())
}

func anyOf(bits iltype.Bits) iltype.Type { return iltype.Of(bits) }

// callableType is the type requested whenever a generator needs something
// to call or construct. BeginPlainFunction and LoadBuiltin constructors
// both produce Function|Constructor together (a function value is always
// constructible in this lattice), so matching exactly that combination —
// rather than either bit alone — is what actually satisfies Type.Is's
// subset check against values the builder can produce.
var callableType = iltype.Of(iltype.Function | iltype.Constructor)
