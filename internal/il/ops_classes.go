package il

import "github.com/jsfuzz/jsfuzz/internal/iltype"

// BeginClassDefinition opens a class body. If HasSuperclass, input[0] is
// the superclass constructor value.
type BeginClassDefinition struct {
	HasSuperclass bool
}

func (BeginClassDefinition) Name() string { return "BeginClassDefinition" }
func (o BeginClassDefinition) Info() OpInfo {
	n := 0
	if o.HasSuperclass {
		n = 1
	}
	return OpInfo{
		MinInputs: n, MaxInputs: n, NumOutputs: 1,
		IsBlockStart: true, ContributedContext: ContextClassBody,
	}
}

// EndClassDefinition closes a class body.
type EndClassDefinition struct{}

func (EndClassDefinition) Name() string { return "EndClassDefinition" }
func (EndClassDefinition) Info() OpInfo { return OpInfo{IsBlockEnd: true} }

// BeginMethodDefinition opens a class member: a plain method, a getter, a
// setter, or the constructor, distinguished by Kind. InnerOutputs are the
// method's formal parameters.
type MethodKind int

const (
	MethodPlain MethodKind = iota
	MethodGetter
	MethodSetter
	MethodConstructor
	MethodStatic
)

type BeginMethodDefinition struct {
	Name_     string
	Kind      MethodKind
	Signature iltype.Signature
}

func (BeginMethodDefinition) Name() string { return "BeginMethodDefinition" }
func (o BeginMethodDefinition) Info() OpInfo {
	return OpInfo{
		NumInnerOutputs: len(o.Signature.Params),
		IsBlockStart:    true,
		ContributedContext: ContextFunction,
	}
}

// EndMethodDefinition closes a class member body.
type EndMethodDefinition struct{}

func (EndMethodDefinition) Name() string { return "EndMethodDefinition" }
func (EndMethodDefinition) Info() OpInfo { return OpInfo{IsBlockEnd: true} }
