package il

import "github.com/jsfuzz/jsfuzz/internal/iltype"

// FunctionKind distinguishes the function subkinds spec.md §4.3 names.
type FunctionKind int

const (
	FuncPlain FunctionKind = iota
	FuncArrow
	FuncAsync
	FuncGenerator
	FuncAsyncGenerator
)

// BeginPlainFunction opens a function body (any of the subkinds above;
// Kind distinguishes plain/arrow/async/generator so a single opcode family
// doesn't need one Begin* variant per combination). Inner-outputs are the
// function's formal parameters — one per entry in Signature.Params.
type BeginPlainFunction struct {
	Signature iltype.Signature
	Kind      FunctionKind
	IsStrict  bool
}

func (BeginPlainFunction) Name() string { return "BeginPlainFunction" }
func (o BeginPlainFunction) Info() OpInfo {
	ctx := ContextFunction
	switch o.Kind {
	case FuncGenerator, FuncAsyncGenerator:
		ctx |= ContextGenerator
	}
	if o.Kind == FuncAsync || o.Kind == FuncAsyncGenerator {
		ctx |= ContextAsync
	}
	return OpInfo{
		MinInputs: 0, MaxInputs: 0,
		NumOutputs:         1, // the function value itself, usable by the enclosing scope
		NumInnerOutputs:    len(o.Signature.Params),
		IsBlockStart:       true,
		ContributedContext: ctx,
	}
}

// EndPlainFunction closes a function body opened by BeginPlainFunction.
type EndPlainFunction struct{}

func (EndPlainFunction) Name() string { return "EndPlainFunction" }
func (EndPlainFunction) Info() OpInfo { return OpInfo{IsBlockEnd: true} }

// Return returns input[0] (or no input for a bare `return;`).
type Return struct{ HasValue bool }

func (Return) Name() string { return "Return" }
func (o Return) Info() OpInfo {
	n := 0
	if o.HasValue {
		n = 1
	}
	return OpInfo{
		MinInputs: n, MaxInputs: n, NumOutputs: 0,
		RequiredContext: ContextFunction, IsJump: true,
	}
}

// Yield yields input[0] inside a generator body.
type Yield struct{ HasValue bool }

func (Yield) Name() string { return "Yield" }
func (o Yield) Info() OpInfo {
	n := 0
	if o.HasValue {
		n = 1
	}
	return OpInfo{
		MinInputs: n, MaxInputs: n, NumOutputs: 1,
		RequiredContext: ContextGenerator,
	}
}

// Await awaits input[0] inside an async function body.
type Await struct{}

func (Await) Name() string { return "Await" }
func (Await) Info() OpInfo {
	return OpInfo{MinInputs: 1, MaxInputs: 1, NumOutputs: 1, RequiredContext: ContextAsync}
}
