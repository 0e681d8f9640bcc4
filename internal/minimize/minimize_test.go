package minimize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/minimize"
)

// buildProgram constructs:
//
//	v0 = LoadInteger(1234)
//	v1 = LoadString("hello world")
//	v2 = LoadInteger(7)       // "interesting" literal required by the check
//	BeginIf v2
//	  v3 = LoadInteger(99)    // dead: removable by reducePass
//	EndIf
//	v4 = LoadBoolean(true)
func buildProgram(t *testing.T) *il.Program {
	t.Helper()
	var code il.Code
	code.Instructions = []il.Instruction{
		{Op: &il.LoadInteger{Value: 1234}, Outputs: []il.Variable{0}},
		{Op: &il.LoadString{Value: "hello world"}, Outputs: []il.Variable{1}},
		{Op: &il.LoadInteger{Value: 7}, Outputs: []il.Variable{2}},
		{Op: &il.BeginIf{}, Inputs: []il.Variable{2}},
		{Op: &il.LoadInteger{Value: 99}, Outputs: []il.Variable{3}},
		{Op: &il.EndIf{}},
		{Op: &il.LoadBoolean{Value: true}, Outputs: []il.Variable{4}},
	}
	require.NoError(t, code.Validate())
	return il.New(code)
}

// checkPreservesMarker treats the program as "interesting" as long as some
// instruction still loads the integer 7 — a stand-in for "still covers edge
// E", satisfiable without a real executor.
func checkPreservesMarker(p *il.Program) bool {
	for _, instr := range p.Code.Instructions {
		if li, ok := instr.Op.(*il.LoadInteger); ok && li.Value == 7 {
			return true
		}
	}
	return false
}

func TestMinimize_RemovesDeadBlock(t *testing.T) {
	p := buildProgram(t)
	out := minimize.Minimize(p, checkPreservesMarker)

	assert.True(t, checkPreservesMarker(out))
	assert.NoError(t, out.Code.Validate())
	assert.LessOrEqual(t, out.Size(), p.Size())

	for _, instr := range out.Code.Instructions {
		if li, ok := instr.Op.(*il.LoadInteger); ok {
			assert.NotEqual(t, int64(99), li.Value, "dead literal should have been reduced away")
		}
	}
}

func TestMinimize_NeverDropsMarker(t *testing.T) {
	p := buildProgram(t)
	out := minimize.Minimize(p, checkPreservesMarker)
	assert.True(t, checkPreservesMarker(out))
}

func TestMinimize_ShrinksUnrelatedStringLiteral(t *testing.T) {
	p := buildProgram(t)
	out := minimize.Minimize(p, checkPreservesMarker)

	for _, instr := range out.Code.Instructions {
		if ls, ok := instr.Op.(*il.LoadString); ok {
			assert.Empty(t, ls.Value, "string unrelated to the marker should shrink to empty")
		}
	}
}

func TestMinimize_IsIdempotentOnAlreadyMinimalProgram(t *testing.T) {
	p := buildProgram(t)
	once := minimize.Minimize(p, checkPreservesMarker)
	twice := minimize.Minimize(once, checkPreservesMarker)
	assert.True(t, il.Equal(once, twice))
}
