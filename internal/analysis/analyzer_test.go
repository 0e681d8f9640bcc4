package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/analysis"
	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

func newAnalyzer() *analysis.Analyzer {
	e := environment.New()
	e.Load(environment.DefaultProfile{})
	return analysis.New(e)
}

func instr(op il.Operation, inputs []il.Variable, outputs ...il.Variable) il.Instruction {
	return il.Instruction{Op: op, Inputs: inputs, Outputs: outputs}
}

func TestAnalyze_LiteralsAreTypedByKind(t *testing.T) {
	a := newAnalyzer()
	code := &il.Code{Instructions: []il.Instruction{
		instr(&il.LoadInteger{Value: 5}, nil, 0),
		instr(&il.LoadString{Value: "x"}, nil, 1),
		instr(&il.LoadBoolean{Value: true}, nil, 2),
	}}
	res := a.Analyze(code, analysis.State{})
	require.True(t, res.OutputTypes[0][0].Is(iltype.Of(iltype.Integer)))
	require.True(t, res.OutputTypes[1][0].Is(iltype.Of(iltype.String)))
	require.True(t, res.OutputTypes[2][0].Is(iltype.Of(iltype.Boolean)))
	require.True(t, res.TypeOf(0).Is(iltype.Of(iltype.Integer)))
}

func TestAnalyze_BinaryAddWithStringOperandIsString(t *testing.T) {
	a := newAnalyzer()
	code := &il.Code{Instructions: []il.Instruction{
		instr(&il.LoadInteger{Value: 1}, nil, 0),
		instr(&il.LoadString{Value: "y"}, nil, 1),
		instr(&il.BinaryOperation{Op: il.OpAdd}, []il.Variable{0, 1}, 2),
	}}
	res := a.Analyze(code, analysis.State{})
	require.True(t, res.OutputTypes[2][0].Is(iltype.Of(iltype.String)))
}

func TestAnalyze_BinaryAddTwoIntegersIsInteger(t *testing.T) {
	a := newAnalyzer()
	code := &il.Code{Instructions: []il.Instruction{
		instr(&il.LoadInteger{Value: 1}, nil, 0),
		instr(&il.LoadInteger{Value: 2}, nil, 1),
		instr(&il.BinaryOperation{Op: il.OpAdd}, []il.Variable{0, 1}, 2),
	}}
	res := a.Analyze(code, analysis.State{})
	require.True(t, res.OutputTypes[2][0].Is(iltype.Of(iltype.Integer)))
}

func TestAnalyze_BinaryAddIntAndFloatIsFloat(t *testing.T) {
	a := newAnalyzer()
	code := &il.Code{Instructions: []il.Instruction{
		instr(&il.LoadInteger{Value: 1}, nil, 0),
		instr(&il.LoadFloat{Value: 1.5}, nil, 1),
		instr(&il.BinaryOperation{Op: il.OpAdd}, []il.Variable{0, 1}, 2),
	}}
	res := a.Analyze(code, analysis.State{})
	require.True(t, res.OutputTypes[2][0].Is(iltype.Of(iltype.Float)))
}

func TestAnalyze_BitwiseBinaryIsAlwaysInteger(t *testing.T) {
	a := newAnalyzer()
	code := &il.Code{Instructions: []il.Instruction{
		instr(&il.LoadFloat{Value: 1.5}, nil, 0),
		instr(&il.LoadFloat{Value: 2.5}, nil, 1),
		instr(&il.BinaryOperation{Op: il.OpBitAnd}, []il.Variable{0, 1}, 2),
	}}
	res := a.Analyze(code, analysis.State{})
	require.True(t, res.OutputTypes[2][0].Is(iltype.Of(iltype.Integer)))
}

func TestAnalyze_UnaryLogicNotIsBoolean(t *testing.T) {
	a := newAnalyzer()
	code := &il.Code{Instructions: []il.Instruction{
		instr(&il.LoadInteger{Value: 1}, nil, 0),
		instr(&il.UnaryOperation{Op: il.OpLogicNot}, []il.Variable{0}, 1),
	}}
	res := a.Analyze(code, analysis.State{})
	require.True(t, res.OutputTypes[1][0].Is(iltype.Of(iltype.Boolean)))
}

func TestAnalyze_CompareIsAlwaysBoolean(t *testing.T) {
	a := newAnalyzer()
	code := &il.Code{Instructions: []il.Instruction{
		instr(&il.LoadInteger{Value: 1}, nil, 0),
		instr(&il.LoadInteger{Value: 2}, nil, 1),
		instr(&il.CompareOperation{}, []il.Variable{0, 1}, 2),
	}}
	res := a.Analyze(code, analysis.State{})
	require.True(t, res.OutputTypes[2][0].Is(iltype.Of(iltype.Boolean)))
}

// TestAnalyze_IfMergeAddsUndefinedOnUntakenBranch exercises spec.md §4.1's
// documented merge rule: a variable only defined on one incoming branch of
// a join becomes T|undefined afterward.
func TestAnalyze_IfMergeAddsUndefinedOnUntakenBranch(t *testing.T) {
	a := newAnalyzer()
	code := &il.Code{Instructions: []il.Instruction{
		instr(&il.LoadBoolean{Value: true}, nil, 0),
		{Op: &il.BeginIf{}, Inputs: []il.Variable{0}},
		instr(&il.LoadInteger{Value: 7}, nil, 1),
		{Op: &il.EndIf{}},
	}}
	res := a.Analyze(code, analysis.State{})
	merged := res.TypeOf(1)
	require.True(t, merged.MayBe(iltype.Of(iltype.Integer)))
	require.True(t, merged.MayBe(iltype.Of(iltype.Undefined)))
}

// TestAnalyze_IfElseMergeUnionsBothBranches checks that when both arms
// define the same variable, the merged type is their union without an
// undefined alternative being added.
func TestAnalyze_IfElseMergeUnionsBothBranches(t *testing.T) {
	a := newAnalyzer()
	code := &il.Code{Instructions: []il.Instruction{
		instr(&il.LoadBoolean{Value: true}, nil, 0),
		{Op: &il.BeginIf{}, Inputs: []il.Variable{0}},
		instr(&il.LoadInteger{Value: 1}, nil, 1),
		{Op: &il.BeginElse{}},
		instr(&il.LoadString{Value: "s"}, nil, 1),
		{Op: &il.EndIf{}},
	}}
	res := a.Analyze(code, analysis.State{})
	merged := res.TypeOf(1)
	require.True(t, merged.MayBe(iltype.Of(iltype.Integer)))
	require.True(t, merged.MayBe(iltype.Of(iltype.String)))
	require.False(t, merged.MayBe(iltype.Of(iltype.Undefined)))
}

// TestAnalyze_ForInInnerOutputIsAnything exercises the loop-header handling
// that assigns a loop's InnerOutputs jsAnything before the body is
// analyzed, since the environment has no static basis to narrow a for-in
// binding's type.
func TestAnalyze_ForInInnerOutputIsAnything(t *testing.T) {
	a := newAnalyzer()
	code := &il.Code{Instructions: []il.Instruction{
		instr(&il.CreateObject{}, nil, 0),
		{Op: &il.BeginForIn{}, Inputs: []il.Variable{0}, InnerOutputs: []il.Variable{1}},
		{Op: &il.EndForIn{}},
	}}
	res := a.Analyze(code, analysis.State{})
	require.Equal(t, iltype.Anything, res.TypeOf(1))
}

// TestAnalyze_NestedIfInsideWhileBody confirms the recursive block handling
// composes: an if-join inside a while body still merges correctly, and the
// loop's own widening re-pass doesn't corrupt the inner merge.
func TestAnalyze_NestedIfInsideWhileBody(t *testing.T) {
	a := newAnalyzer()
	code := &il.Code{Instructions: []il.Instruction{
		instr(&il.LoadBoolean{Value: true}, nil, 0),
		{Op: &il.BeginWhile{}, Inputs: []il.Variable{0}},
		{Op: &il.BeginIf{}, Inputs: []il.Variable{0}},
		instr(&il.LoadInteger{Value: 3}, nil, 1),
		{Op: &il.EndIf{}},
		{Op: &il.EndWhile{}},
	}}
	res := a.Analyze(code, analysis.State{})
	merged := res.TypeOf(1)
	require.True(t, merged.MayBe(iltype.Of(iltype.Integer)))
	require.True(t, merged.MayBe(iltype.Of(iltype.Undefined)))
}

func TestAnalyze_ControlFlowOpsHaveNoOutputType(t *testing.T) {
	a := newAnalyzer()
	code := &il.Code{Instructions: []il.Instruction{
		instr(&il.LoadBoolean{Value: true}, nil, 0),
		{Op: &il.BeginWhile{}, Inputs: []il.Variable{0}},
		{Op: &il.Continue{}},
		{Op: &il.EndWhile{}},
	}}
	res := a.Analyze(code, analysis.State{})
	require.Nil(t, res.OutputTypes[2])
}

func TestAnalyze_PrefixStateIsHonored(t *testing.T) {
	a := newAnalyzer()
	prefix := analysis.State{5: iltype.Of(iltype.String)}
	code := &il.Code{Instructions: []il.Instruction{
		instr(&il.UnaryOperation{Op: il.OpTypeOf}, []il.Variable{5}, 6),
	}}
	res := a.Analyze(code, prefix)
	require.True(t, res.OutputTypes[0][0].Is(iltype.Of(iltype.String)))
	require.Equal(t, iltype.Of(iltype.String), res.Final.TypeOf(5))
}

func TestState_TypeOfUnknownVariableIsAnything(t *testing.T) {
	s := analysis.State{}
	require.Equal(t, iltype.Anything, s.TypeOf(42))
}

func TestState_CloneIsIndependent(t *testing.T) {
	s := analysis.State{1: iltype.Of(iltype.Integer)}
	c := s.Clone()
	c[1] = iltype.Of(iltype.String)
	require.True(t, s.TypeOf(1).Is(iltype.Of(iltype.Integer)))
	require.True(t, c.TypeOf(1).Is(iltype.Of(iltype.String)))
}
