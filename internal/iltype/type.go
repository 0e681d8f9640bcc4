// Package iltype implements the JavaScript type lattice used by the type
// analyzer, the program builder, and every code generator to decide what
// inputs an operation needs and what it produces.
package iltype

import (
	"sort"
	"strings"
)

// Bits is the base-type bitset. A Type can be a union of several bases at
// once (e.g. "integer | float" is a legal operand type for an addition).
type Bits uint16

const (
	Undefined Bits = 1 << iota
	Integer
	Float
	BigInt
	Boolean
	String
	Symbol
	RegExp
	Iterable
	Object
	Function
	Constructor

	nothing Bits = 0
	allBits Bits = Undefined | Integer | Float | BigInt | Boolean | String |
		Symbol | RegExp | Iterable | Object | Function | Constructor
)

var bitNames = []struct {
	bit  Bits
	name string
}{
	{Undefined, "undefined"},
	{Integer, "integer"},
	{Float, "float"},
	{BigInt, "bigint"},
	{Boolean, "boolean"},
	{String, "string"},
	{Symbol, "symbol"},
	{RegExp, "regexp"},
	{Iterable, "iterable"},
	{Object, "object"},
	{Function, "function"},
	{Constructor, "constructor"},
}

// Signature describes a callable's parameters and return type.
type Signature struct {
	Params []Parameter
	Return Type
}

// ParameterKind distinguishes plain, optional, and rest parameters.
type ParameterKind int

const (
	ParamPlain ParameterKind = iota
	ParamOpt
	ParamRest
)

// Parameter is one formal parameter of a Signature.
type Parameter struct {
	Kind ParameterKind
	Type Type
}

func Plain(t Type) Parameter { return Parameter{Kind: ParamPlain, Type: t} }
func Opt(t Type) Parameter   { return Parameter{Kind: ParamOpt, Type: t} }
func Rest(t Type) Parameter  { return Parameter{Kind: ParamRest, Type: t} }

// Extension carries the refinements a base-type bitset alone cannot: which
// object group a value belongs to, the named properties/methods known to be
// present on it, and (for function/constructor types) its call signature.
type Extension struct {
	Group      string
	Properties []string // kept sorted; see NewExtension
	Methods    []string // kept sorted; see NewExtension
	Signature  *Signature
}

// NewExtension builds an Extension with properties/methods sorted and
// de-duplicated, matching the SortedSet requirement.
func NewExtension(group string, properties, methods []string, sig *Signature) *Extension {
	return &Extension{
		Group:      group,
		Properties: sortedUnique(properties),
		Methods:    sortedUnique(methods),
		Signature:  sig,
	}
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Type is the pair (base bitset, optional extension) from spec.md §3.
type Type struct {
	Bits Bits
	Ext  *Extension
}

// Anything is the top type for JS values: any base, no extension.
var Anything = Type{Bits: allBits}

// Nothing is the bottom type: matches no value.
var Nothing = Type{Bits: nothing}

func Of(b Bits) Type { return Type{Bits: b} }

func WithExtension(b Bits, ext *Extension) Type { return Type{Bits: b, Ext: ext} }

// Is reports whether t is exactly (a subtype of, extension-compatible with)
// other — used for "this variable definitely has this type".
func (t Type) Is(other Type) bool {
	if t.Bits&^other.Bits != 0 {
		return false
	}
	if other.Ext == nil {
		return true
	}
	if t.Ext == nil {
		return false
	}
	return extensionSatisfies(t.Ext, other.Ext)
}

// MayBe reports whether t overlaps other at all — used for "this variable
// could have this type on at least one path".
func (t Type) MayBe(other Type) bool {
	return t.Bits&other.Bits != 0
}

func extensionSatisfies(have, want *Extension) bool {
	if want.Group != "" && want.Group != have.Group {
		return false
	}
	if !containsAll(have.Properties, want.Properties) {
		return false
	}
	if !containsAll(have.Methods, want.Methods) {
		return false
	}
	return true
}

func containsAll(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

// Union merges the base bitsets; extensions are kept only when both sides
// agree on them exactly (an approximation documented for callers: a union
// of two differently-shaped objects degrades to the bare "object" base).
func Union(a, b Type) Type {
	bits := a.Bits | b.Bits
	if a.Ext != nil && b.Ext != nil && sameExtension(a.Ext, b.Ext) {
		return Type{Bits: bits, Ext: a.Ext}
	}
	return Type{Bits: bits}
}

// Intersect narrows the base bitset and merges extensions (union of known
// properties/methods — anything known on either branch is known on the
// intersection of value-space, since intersection only removes values, not
// information already observed about the type).
func Intersect(a, b Type) Type {
	bits := a.Bits & b.Bits
	if bits == nothing {
		return Nothing
	}
	switch {
	case a.Ext == nil:
		return Type{Bits: bits, Ext: b.Ext}
	case b.Ext == nil:
		return Type{Bits: bits, Ext: a.Ext}
	default:
		merged := NewExtension(
			pickGroup(a.Ext.Group, b.Ext.Group),
			append(append([]string{}, a.Ext.Properties...), b.Ext.Properties...),
			append(append([]string{}, a.Ext.Methods...), b.Ext.Methods...),
			pickSignature(a.Ext.Signature, b.Ext.Signature),
		)
		return Type{Bits: bits, Ext: merged}
	}
}

func pickGroup(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func pickSignature(a, b *Signature) *Signature {
	if a != nil {
		return a
	}
	return b
}

func sameExtension(a, b *Extension) bool {
	if a.Group != b.Group {
		return false
	}
	return strings.Join(a.Properties, ",") == strings.Join(b.Properties, ",") &&
		strings.Join(a.Methods, ",") == strings.Join(b.Methods, ",")
}

// MergeBranches implements the analyzer's control-flow join rule (§4.1): the
// result is the union of every incoming branch's type, and if a variable is
// missing from a branch entirely the caller is expected to have already
// widened that branch's type with Undefined before calling MergeBranches.
func MergeBranches(types ...Type) Type {
	if len(types) == 0 {
		return Nothing
	}
	result := types[0]
	for _, t := range types[1:] {
		result = Union(result, t)
	}
	return result
}

// String renders a Type for diagnostics and golden-file tests.
func (t Type) String() string {
	if t.Bits == nothing {
		return "nothing"
	}
	if t.Bits == allBits {
		return "anything"
	}
	parts := make([]string, 0, len(bitNames))
	for _, bn := range bitNames {
		if t.Bits&bn.bit != 0 {
			parts = append(parts, bn.name)
		}
	}
	base := strings.Join(parts, "|")
	if t.Ext == nil {
		return base
	}
	if t.Ext.Group != "" {
		return base + "{" + t.Ext.Group + "}"
	}
	return base
}

// Equal is structural equality, used by Program equality checks (§3).
func Equal(a, b Type) bool {
	if a.Bits != b.Bits {
		return false
	}
	if (a.Ext == nil) != (b.Ext == nil) {
		return false
	}
	if a.Ext == nil {
		return true
	}
	return sameExtension(a.Ext, b.Ext) && samePtrOrEqualSig(a.Ext.Signature, b.Ext.Signature)
}

func samePtrOrEqualSig(a, b *Signature) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Params) != len(b.Params) || !Equal(a.Return, b.Return) {
		return false
	}
	for i := range a.Params {
		if a.Params[i].Kind != b.Params[i].Kind || !Equal(a.Params[i].Type, b.Params[i].Type) {
			return false
		}
	}
	return true
}
