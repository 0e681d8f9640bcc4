package il_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/il"
)

// buildSimple constructs: v0 = LoadInteger(1); v1 = LoadInteger(2);
// v2 = BinaryOperation(Add, v0, v1).
func buildSimple() il.Code {
	return il.Code{Instructions: []il.Instruction{
		{Op: &il.LoadInteger{Value: 1}, Outputs: []il.Variable{0}},
		{Op: &il.LoadInteger{Value: 2}, Outputs: []il.Variable{1}},
		{Op: &il.BinaryOperation{Op: il.OpAdd}, Inputs: []il.Variable{0, 1}, Outputs: []il.Variable{2}},
	}}
}

func TestCode_Validate_Simple(t *testing.T) {
	c := buildSimple()
	assert.NoError(t, c.Validate())
}

func TestCode_Validate_UseBeforeDefine(t *testing.T) {
	c := il.Code{Instructions: []il.Instruction{
		{Op: &il.BinaryOperation{Op: il.OpAdd}, Inputs: []il.Variable{0, 1}, Outputs: []il.Variable{2}},
		{Op: &il.LoadInteger{Value: 1}, Outputs: []il.Variable{0}},
	}}
	err := c.Validate()
	require.Error(t, err)
	var ierr *il.InvariantError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, 0, ierr.Index)
}

func TestCode_Validate_DoubleDefinition(t *testing.T) {
	c := il.Code{Instructions: []il.Instruction{
		{Op: &il.LoadInteger{Value: 1}, Outputs: []il.Variable{0}},
		{Op: &il.LoadInteger{Value: 2}, Outputs: []il.Variable{0}},
	}}
	err := c.Validate()
	require.Error(t, err)
}

func TestCode_Validate_ScopeEscape(t *testing.T) {
	// v1 is defined inside an if-block and must not be visible afterwards.
	c := il.Code{Instructions: []il.Instruction{
		{Op: &il.LoadBoolean{Value: true}, Outputs: []il.Variable{0}},
		{Op: &il.BeginIf{}, Inputs: []il.Variable{0}},
		{Op: &il.LoadInteger{Value: 5}, Outputs: []il.Variable{1}},
		{Op: &il.EndIf{}},
		{Op: &il.Return{HasValue: true}, Inputs: []il.Variable{1}},
	}}
	err := c.Validate()
	require.Error(t, err)
}

func TestCode_Validate_UnclosedBlock(t *testing.T) {
	c := il.Code{Instructions: []il.Instruction{
		{Op: &il.LoadBoolean{Value: true}, Outputs: []il.Variable{0}},
		{Op: &il.BeginIf{}, Inputs: []il.Variable{0}},
		{Op: &il.LoadInteger{Value: 5}, Outputs: []il.Variable{1}},
	}}
	err := c.Validate()
	require.Error(t, err)
}

func TestCode_Validate_ContextRequirement(t *testing.T) {
	// Return requires ContextFunction; at script scope it must fail.
	c := il.Code{Instructions: []il.Instruction{
		{Op: &il.LoadInteger{Value: 1}, Outputs: []il.Variable{0}},
		{Op: &il.Return{HasValue: true}, Inputs: []il.Variable{0}},
	}}
	err := c.Validate()
	require.Error(t, err)
}

func TestCode_Validate_NestedBlockInnerOutputsVisibleInsideOnly(t *testing.T) {
	// for-loop induction variable is visible inside the loop body only.
	c := il.Code{Instructions: []il.Instruction{
		{Op: &il.LoadInteger{Value: 0}, Outputs: []il.Variable{0}},
		{Op: &il.LoadBoolean{Value: true}, Outputs: []il.Variable{1}},
		{Op: &il.LoadInteger{Value: 1}, Outputs: []il.Variable{2}},
		{Op: &il.BeginFor{}, Inputs: []il.Variable{0, 1, 2}, InnerOutputs: []il.Variable{3}},
		{Op: &il.LoadInteger{Value: 9}, Inputs: nil, Outputs: []il.Variable{4}},
		{Op: &il.BinaryOperation{Op: il.OpAdd}, Inputs: []il.Variable{3, 4}, Outputs: []il.Variable{5}},
		{Op: &il.EndFor{}},
	}}
	assert.NoError(t, c.Validate())
}

func TestCode_Renumber(t *testing.T) {
	c := buildSimple()
	c.Instructions[0].Index = 41
	c.Instructions[1].Index = 42
	c.Instructions[2].Index = 43
	c.Renumber()
	for i, instr := range c.Instructions {
		assert.Equal(t, i, instr.Index)
	}
}
