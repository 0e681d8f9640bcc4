package mutation

import "github.com/jsfuzz/jsfuzz/internal/il"

// nextFreeVar returns the smallest variable index guaranteed unused in
// code, so a rebase offset never collides with an existing variable.
func nextFreeVar(code *il.Code) il.Variable {
	var max il.Variable
	seen := false
	for _, instr := range code.Instructions {
		for _, v := range instr.AllOutputs() {
			if !seen || v > max {
				max = v
				seen = true
			}
		}
	}
	if !seen {
		return 0
	}
	return max + 1
}

// rebaseInstructions returns a deep copy of instrs with every variable
// shifted up by offset, used whenever a whole program (or a whole
// remainder of one) is appended into another without needing per-variable
// remapping (spec.md §4.4 "Append another program after rebasing
// variables").
func rebaseInstructions(instrs []il.Instruction, offset il.Variable) []il.Instruction {
	out := make([]il.Instruction, len(instrs))
	for i, instr := range instrs {
		out[i] = il.Instruction{
			Op:           instr.Op,
			Inputs:       shiftVars(instr.Inputs, offset),
			Outputs:      shiftVars(instr.Outputs, offset),
			InnerOutputs: shiftVars(instr.InnerOutputs, offset),
		}
	}
	return out
}

func shiftVars(vars []il.Variable, offset il.Variable) []il.Variable {
	if len(vars) == 0 {
		return nil
	}
	out := make([]il.Variable, len(vars))
	for i, v := range vars {
		out[i] = v + offset
	}
	return out
}

// isPrefixLiteral reports whether instr looks like one of
// internal/builder.BuildPrefix's emissions: a zero-input, pure,
// single-output value producer. Both ConcatMutator and corpus-seeded
// programs share this shape at their very start.
func isPrefixLiteral(instr il.Instruction) bool {
	info := instr.Op.Info()
	return len(instr.Inputs) == 0 && info.IsPure && len(instr.Outputs) == 1 && !info.IsBlockStart
}

// prefixLength returns the length of the leading run of instructions in
// instrs that satisfy isPrefixLiteral.
func prefixLength(instrs []il.Instruction) int {
	n := 0
	for n < len(instrs) && isPrefixLiteral(instrs[n]) {
		n++
	}
	return n
}
