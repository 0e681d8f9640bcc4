package environment

import "github.com/jsfuzz/jsfuzz/internal/iltype"

// DefaultProfile registers a small, representative slice of the JS standard
// library: enough object groups and builtins for the code generators and
// templates in internal/codegen/internal/templates to have real types to
// work with. A full per-engine profile (the complete builtin surface of a
// concrete JS engine) is an external collaborator per spec.md §2; this is
// the in-tree baseline used by tests and the CLI's --profile=default.
type DefaultProfile struct{}

func (DefaultProfile) Name() string { return "default" }

func (DefaultProfile) Apply(e *Environment) {
	anyT := iltype.Anything
	numT := iltype.Union(iltype.Of(iltype.Integer), iltype.Of(iltype.Float))
	strT := iltype.Of(iltype.String)
	boolT := iltype.Of(iltype.Boolean)

	objectProto := &ObjectGroup{
		Name: "Object.prototype",
		Properties: map[string]iltype.Type{
			"constructor": anyT,
		},
		Methods: map[string]*iltype.Signature{
			"toString":        {Return: strT},
			"valueOf":         {Return: anyT},
			"hasOwnProperty":  {Params: []iltype.Parameter{iltype.Plain(strT)}, Return: boolT},
			"isPrototypeOf":   {Params: []iltype.Parameter{iltype.Plain(anyT)}, Return: boolT},
			"propertyIsEnumerable": {Params: []iltype.Parameter{iltype.Plain(strT)}, Return: boolT},
		},
	}
	e.RegisterGroup(objectProto)

	arrayProto := &ObjectGroup{
		Name: "Array.prototype",
		Properties: map[string]iltype.Type{
			"length": iltype.Of(iltype.Integer),
		},
		Methods: map[string]*iltype.Signature{
			"push":    {Params: []iltype.Parameter{iltype.Rest(anyT)}, Return: iltype.Of(iltype.Integer)},
			"pop":     {Return: anyT},
			"shift":   {Return: anyT},
			"slice":   {Params: []iltype.Parameter{iltype.Opt(numT), iltype.Opt(numT)}, Return: e.TypeForGroup("Array.prototype", iltype.Object|iltype.Iterable)},
			"join":    {Params: []iltype.Parameter{iltype.Opt(strT)}, Return: strT},
			"forEach": {Params: []iltype.Parameter{iltype.Plain(iltype.Of(iltype.Function))}, Return: iltype.Of(iltype.Undefined)},
			"map":     {Params: []iltype.Parameter{iltype.Plain(iltype.Of(iltype.Function))}, Return: e.TypeForGroup("Array.prototype", iltype.Object|iltype.Iterable)},
		},
		Parent: "Object.prototype",
	}
	e.RegisterGroup(arrayProto)

	stringProto := &ObjectGroup{
		Name: "String.prototype",
		Properties: map[string]iltype.Type{
			"length": iltype.Of(iltype.Integer),
		},
		Methods: map[string]*iltype.Signature{
			"charAt":     {Params: []iltype.Parameter{iltype.Plain(numT)}, Return: strT},
			"indexOf":    {Params: []iltype.Parameter{iltype.Plain(strT)}, Return: iltype.Of(iltype.Integer)},
			"slice":      {Params: []iltype.Parameter{iltype.Opt(numT), iltype.Opt(numT)}, Return: strT},
			"split":      {Params: []iltype.Parameter{iltype.Opt(strT)}, Return: e.TypeForGroup("Array.prototype", iltype.Object|iltype.Iterable)},
			"toUpperCase": {Return: strT},
		},
		Parent: "Object.prototype",
	}
	e.RegisterGroup(stringProto)

	mapProto := &ObjectGroup{
		Name: "Map.prototype",
		Methods: map[string]*iltype.Signature{
			"get": {Params: []iltype.Parameter{iltype.Plain(anyT)}, Return: anyT},
			"set": {Params: []iltype.Parameter{iltype.Plain(anyT), iltype.Plain(anyT)}, Return: e.TypeForGroup("Map.prototype", iltype.Object)},
			"has": {Params: []iltype.Parameter{iltype.Plain(anyT)}, Return: boolT},
		},
		Parent: "Object.prototype",
	}
	e.RegisterGroup(mapProto)

	// Date: `now` lives ONLY on the static/constructor group, never on the
	// instance group — §C.5 / open question (c). Older Fuzzilli-family
	// models duplicated `now` onto the instance prototype; that is a bug
	// this profile deliberately does not reproduce.
	dateProto := &ObjectGroup{
		Name: "Date.prototype",
		Methods: map[string]*iltype.Signature{
			"getTime": {Return: iltype.Of(iltype.Float)},
			"toISOString": {Return: strT},
		},
		Parent: "Object.prototype",
	}
	e.RegisterGroup(dateProto)

	dateConstructor := &ObjectGroup{
		Name: "Date.constructor",
		Methods: map[string]*iltype.Signature{
			"now": {Return: iltype.Of(iltype.Float)},
		},
	}
	e.RegisterGroup(dateConstructor)

	mathGroup := &ObjectGroup{
		Name: "Math",
		Properties: map[string]iltype.Type{
			"PI": iltype.Of(iltype.Float),
		},
		Methods: map[string]*iltype.Signature{
			"floor":  {Params: []iltype.Parameter{iltype.Plain(numT)}, Return: iltype.Of(iltype.Integer)},
			"random": {Return: iltype.Of(iltype.Float)},
			"max":    {Params: []iltype.Parameter{iltype.Rest(numT)}, Return: numT},
			"min":    {Params: []iltype.Parameter{iltype.Rest(numT)}, Return: numT},
		},
	}
	e.RegisterGroup(mathGroup)

	e.RegisterBuiltin(&Builtin{Name: "Object", Type: e.TypeForGroup("Object.constructor", iltype.Constructor|iltype.Function)})
	e.RegisterBuiltin(&Builtin{Name: "Array", Type: e.TypeForGroup("Array.constructor", iltype.Constructor|iltype.Function)})
	e.RegisterBuiltin(&Builtin{Name: "String", Type: e.TypeForGroup("String.constructor", iltype.Constructor|iltype.Function)})
	e.RegisterBuiltin(&Builtin{Name: "Map", Type: e.TypeForGroup("Map.constructor", iltype.Constructor|iltype.Function)})
	e.RegisterBuiltin(&Builtin{Name: "Date", Type: e.TypeForGroup("Date.constructor", iltype.Constructor|iltype.Function)})
	e.RegisterBuiltin(&Builtin{Name: "Math", Type: e.TypeForGroup("Math", iltype.Object)})
}

// InstanceType returns the Type a `new <ctor>()` expression on the given
// constructor builtin name produces, defaulting to a plain object shaped by
// the matching ".prototype" group.
func InstanceType(e *Environment, ctorName string) iltype.Type {
	proto := ctorName + ".prototype"
	if _, ok := e.Group(proto); ok {
		return e.TypeForGroup(proto, iltype.Object)
	}
	return iltype.Of(iltype.Object)
}
