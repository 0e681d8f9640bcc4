// Package environment is the static registry of object groups, builtins,
// interesting constants, and custom property/method name pools that the
// builder and code generators query when they need to know "what type does
// this builtin have" or "what could I call on a value of this type".
//
// A Profile is the extension point: adding support for a new engine or a
// new slice of the JS standard library is a matter of registering more
// builtins and groups on an Environment, the way a
// threads/registry.Loader registers named units into a running kernel.
package environment

import (
	"fmt"
	"math"
	"sort"

	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// ObjectGroup is a named, reusable shape: a set of properties and methods
// plus, optionally, a parent group it extends (e.g. "Array.prototype"
// extending "Object.prototype").
type ObjectGroup struct {
	Name       string
	Properties map[string]iltype.Type
	Methods    map[string]*iltype.Signature
	Parent     string
}

// Builtin is a named global value (e.g. "Math", "Object", "Array") together
// with its static type.
type Builtin struct {
	Name string
	Type iltype.Type
}

// Environment is the query surface used by the analyzer and the builder.
// It is a plain value threaded through explicitly (per spec.md §9, no
// process-wide singleton).
type Environment struct {
	groups   map[string]*ObjectGroup
	builtins map[string]*Builtin

	// InterestingIntegers is configuration, not a hardcoded constant table
	// (§C.4 / open question (b)): profiles may opt in or out of kInt64Max.
	InterestingIntegers []int64
	InterestingFloats   []float64
	InterestingStrings  []string
	PropertyNamePool    []string
	MethodNamePool      []string
}

// Profile adds builtins and object groups to an Environment. Concrete
// profiles (e.g. "v8", "jsc", "spidermonkey" flavored builtin sets) are an
// external extension point; the core only depends on this signature.
type Profile interface {
	Name() string
	Apply(*Environment)
}

// New creates an empty Environment with just the interesting-constants
// table populated (§C.4) and no builtins; call Load to bring in a Profile.
func New() *Environment {
	return &Environment{
		groups:   make(map[string]*ObjectGroup),
		builtins: make(map[string]*Builtin),
		InterestingIntegers: []int64{
			-9223372036854775808, // kInt64Min
			-2147483649,
			-2147483648, // kInt32Min
			-1073741824,
			-1,
			0,
			1,
			1073741824,
			2147483647, // kInt32Max
			2147483648,
			4294967295, // kUint32Max
			4294967296,
			9223372036854775807, // kInt64Max — included by default per §C.4
		},
		InterestingFloats: []float64{
			-1.7976931348623157e+308, // kFloat64Min (approx, largest magnitude negative)
			0.0,
			-0.0,
			math.SmallestNonzeroFloat64,
			1.0,
			math.Pi,
			math.NaN(),
			math.Inf(1),
			math.Inf(-1),
		},
		InterestingStrings: []string{
			"", "0", "-0", "undefined", "null", "NaN", "Infinity",
			"constructor", "__proto__", "length", "toString",
		},
		PropertyNamePool: []string{
			"a", "b", "c", "d", "e", "length", "size", "value", "x", "y",
		},
		MethodNamePool: []string{
			"m0", "m1", "m2", "valueOf", "toString",
		},
	}
}

// Load applies a Profile to this Environment.
func (e *Environment) Load(p Profile) {
	p.Apply(e)
}

// DropInt64Max removes kInt64Max from the interesting-integers table,
// the profile-overridable half of §C.4's open-question decision.
func (e *Environment) DropInt64Max() {
	filtered := e.InterestingIntegers[:0:0]
	for _, v := range e.InterestingIntegers {
		if v != math.MaxInt64 {
			filtered = append(filtered, v)
		}
	}
	e.InterestingIntegers = filtered
}

// RegisterGroup adds or overwrites a named object group.
func (e *Environment) RegisterGroup(g *ObjectGroup) {
	e.groups[g.Name] = g
}

// RegisterBuiltin adds or overwrites a named global.
func (e *Environment) RegisterBuiltin(b *Builtin) {
	e.builtins[b.Name] = b
}

// Group looks up an object group by name, following Parent chains when
// resolving properties/methods (see PropertyOf/MethodOf).
func (e *Environment) Group(name string) (*ObjectGroup, bool) {
	g, ok := e.groups[name]
	return g, ok
}

// GroupNames returns all registered group names, sorted, for deterministic
// iteration in generators that need to "pick a random known group".
func (e *Environment) GroupNames() []string {
	names := make([]string, 0, len(e.groups))
	for n := range e.groups {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TypeOfBuiltin returns the registered type of a global, or Anything if the
// builtin is unknown to this environment (a profile gap, not an error).
func (e *Environment) TypeOfBuiltin(name string) iltype.Type {
	if b, ok := e.builtins[name]; ok {
		return b.Type
	}
	return iltype.Anything
}

// BuiltinNames returns every registered builtin name, sorted.
func (e *Environment) BuiltinNames() []string {
	names := make([]string, 0, len(e.builtins))
	for n := range e.builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TypeOfProperty resolves `base.name`'s type: walk the object group chain
// rooted at base's extension group (if any), otherwise fall back to
// jsAnything. guarded unions the result with undefined per spec.md §4.1.
func (e *Environment) TypeOfProperty(name string, base iltype.Type, guarded bool) iltype.Type {
	t := e.lookupProperty(name, base)
	if guarded {
		return iltype.Union(t, iltype.Of(iltype.Undefined))
	}
	return t
}

func (e *Environment) lookupProperty(name string, base iltype.Type) iltype.Type {
	if base.Ext == nil || base.Ext.Group == "" {
		return iltype.Anything
	}
	group := base.Ext.Group
	seen := map[string]bool{}
	for group != "" && !seen[group] {
		seen[group] = true
		g, ok := e.groups[group]
		if !ok {
			break
		}
		if t, ok := g.Properties[name]; ok {
			return t
		}
		group = g.Parent
	}
	return iltype.Anything
}

// MethodSignature resolves `base.name(...)`'s signature, walking the group
// chain the same way TypeOfProperty does.
func (e *Environment) MethodSignature(name string, base iltype.Type) (*iltype.Signature, bool) {
	if base.Ext == nil || base.Ext.Group == "" {
		return nil, false
	}
	group := base.Ext.Group
	seen := map[string]bool{}
	for group != "" && !seen[group] {
		seen[group] = true
		g, ok := e.groups[group]
		if !ok {
			break
		}
		if sig, ok := g.Methods[name]; ok {
			return sig, true
		}
		group = g.Parent
	}
	return nil, false
}

// TypeForGroup builds a Type whose extension names the given group, with
// the base bits the group naturally inhabits (objects by default).
func (e *Environment) TypeForGroup(group string, base iltype.Bits) iltype.Type {
	return iltype.WithExtension(base, iltype.NewExtension(group, nil, nil, nil))
}

// ProducingMethodsFor returns (group, methodName) pairs known to produce a
// value compatible with want — used by builder.findOrGenerate when no
// existing variable of the requested type is available in the pool.
func (e *Environment) ProducingMethodsFor(want iltype.Type) []ProducerMethod {
	var out []ProducerMethod
	names := e.GroupNames()
	for _, gname := range names {
		g := e.groups[gname]
		methodNames := make([]string, 0, len(g.Methods))
		for m := range g.Methods {
			methodNames = append(methodNames, m)
		}
		sort.Strings(methodNames)
		for _, m := range methodNames {
			sig := g.Methods[m]
			if sig.Return.MayBe(want) {
				out = append(out, ProducerMethod{Group: gname, Method: m, Signature: sig})
			}
		}
	}
	return out
}

// ProducerMethod names a method known to the environment that can be called
// to obtain a value of (or overlapping) a desired type.
type ProducerMethod struct {
	Group     string
	Method    string
	Signature *iltype.Signature
}

func (p ProducerMethod) String() string {
	return fmt.Sprintf("%s.%s", p.Group, p.Method)
}
