// Package templates implements the program templates of spec.md §4.3: a
// ProgramTemplate is a named recipe that builds an entire program rather
// than a single instruction, aimed at a specific engine subsystem (array
// storage transitions, property shape churn, JIT tiering, typed-array
// bounds, exception unwinding). Each template owns per-instance statistics
// used by the hybrid engine for diagnostics, the same shape as the
// teacher's per-unit supervisors in
// kernel/threads/supervisor/units/*_supervisor.go: one named unit, one
// embedded stats struct, registered into a central table the engine can
// list by capability.
package templates

import (
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/il"
)

// Template is a named whole-program recipe plus its run statistics.
type Template struct {
	name  string
	build func(b *builder.Builder)
	Stats *Stats
}

func newTemplate(name string, build func(b *builder.Builder)) *Template {
	return &Template{name: name, build: build, Stats: NewStats()}
}

// Name identifies the template for logging and hybrid-engine selection.
func (t *Template) Name() string { return t.name }

// Generate runs the recipe against a fresh Builder over env, seeded with
// rng, and finalizes the result. Generate itself does not record
// statistics — callers report the outcome of actually running the
// resulting program via Stats.Record once it's known.
func (t *Template) Generate(env *environment.Environment, rng *rand.Rand) *il.Program {
	b := builder.New(env, rng)
	b.BuildPrefix(6)
	t.build(b)
	return b.Finalize()
}

// Registry is a name-keyed set of templates, the construction the hybrid
// engine iterates to pick the next recipe (spec.md §4.5).
type Registry struct {
	byName map[string]*Template
	order  []*Template
}

// NewRegistry builds a Registry from templates, preserving their order for
// deterministic iteration (matters for weighted selection when every
// template's stats start identical).
func NewRegistry(templates ...*Template) *Registry {
	r := &Registry{byName: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		r.byName[t.name] = t
		r.order = append(r.order, t)
	}
	return r
}

// Get returns the template registered under name, if any.
func (r *Registry) Get(name string) (*Template, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// All returns every registered template in registration order.
func (r *Registry) All() []*Template { return r.order }

// Default returns the registry of built-in templates, each aimed at a
// distinct engine-bug-prone subsystem (listed in DESIGN.md's
// internal/templates entry).
func Default() *Registry {
	return NewRegistry(
		arrayBuiltinStress(),
		objectPropertyChurn(),
		functionRecompileLoop(),
		typedArrayElementAccess(),
		classInheritanceChain(),
		tryCatchExceptionStorm(),
	)
}
