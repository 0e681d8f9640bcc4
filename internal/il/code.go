package il

import "fmt"

// Code is an ordered sequence of instructions (spec.md §3). Code on its own
// is mutable scratch; Program wraps a finalized, immutable Code.
type Code struct {
	Instructions []Instruction
}

// InvariantError reports a violation of one of the invariants in spec.md §3
// / §8. Builders and mutators treat this as a programmer bug (panic/assert
// in debug, per spec.md §7) rather than a recoverable runtime condition.
type InvariantError struct {
	Reason string
	Index  int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("IL invariant violated at instruction %d: %s", e.Index, e.Reason)
}

// blockFrame tracks one open block during a linear scan.
type blockFrame struct {
	openerIndex int
	context     Context // cumulative context inside this block
}

// Validate checks every invariant in spec.md §3: well-nested blocks, inputs
// referring to in-scope earlier outputs, single-definition, and context
// satisfaction at each instruction. It returns the first violation found.
func (c *Code) Validate() error {
	defined := make(map[Variable]int) // variable -> defining instruction index
	// definedDepth[v] = the block-nesting depth at which v was defined; a use
	// is legal only while that depth (or an ancestor) is still open.
	definedDepth := make(map[Variable]int)
	var stack []blockFrame
	rootContext := ContextScript

	currentContext := func() Context {
		if len(stack) == 0 {
			return rootContext
		}
		return stack[len(stack)-1].context
	}

	for idx, instr := range instr_(c) {
		info := instr.Op.Info()

		// 1. Context requirement is a subset of cumulative context (§3 inv 4).
		if !currentContext().Contains(info.RequiredContext) {
			return &InvariantError{Reason: fmt.Sprintf("%s requires context %d, have %d", instr.Op.Name(), info.RequiredContext, currentContext()), Index: idx}
		}

		// 2. Closing: pop before validating further if this op ends a block.
		if info.IsBlockEnd {
			if len(stack) == 0 {
				return &InvariantError{Reason: fmt.Sprintf("%s closes a block but none is open", instr.Op.Name()), Index: idx}
			}
			stack = stack[:len(stack)-1]
		}

		// 3. Arity.
		if !instr.ArityOK() {
			return &InvariantError{Reason: fmt.Sprintf("%s has %d inputs, want [%d,%d]", instr.Op.Name(), len(instr.Inputs), info.MinInputs, info.MaxInputs), Index: idx}
		}

		// 4. Inputs must refer to earlier, still-in-scope definitions.
		for _, v := range instr.Inputs {
			defIdx, ok := defined[v]
			if !ok {
				return &InvariantError{Reason: fmt.Sprintf("variable %d used before definition", v), Index: idx}
			}
			if defIdx >= idx {
				return &InvariantError{Reason: fmt.Sprintf("variable %d used at or before its own definition", v), Index: idx}
			}
			depth := definedDepth[v]
			if depth > len(stack) {
				return &InvariantError{Reason: fmt.Sprintf("variable %d used outside the scope it was defined in", v), Index: idx}
			}
		}

		// 5. Single definition + record outputs.
		for _, v := range instr.AllOutputs() {
			if _, dup := defined[v]; dup {
				return &InvariantError{Reason: fmt.Sprintf("variable %d defined more than once", v), Index: idx}
			}
			defined[v] = idx
		}

		// 6. Opening: push after recording this instruction's own outputs,
		// recording inner-outputs' scope as the new (about-to-open) depth.
		if info.IsBlockStart {
			stack = append(stack, blockFrame{openerIndex: idx, context: currentContext().Add(info.ContributedContext)})
			for _, v := range instr.InnerOutputs {
				definedDepth[v] = len(stack)
			}
			for _, v := range instr.Outputs {
				definedDepth[v] = len(stack) - 1
			}
		} else {
			for _, v := range instr.AllOutputs() {
				definedDepth[v] = len(stack)
			}
		}
	}

	if len(stack) != 0 {
		return &InvariantError{Reason: "unclosed block(s) at end of code", Index: len(c.Instructions)}
	}
	return nil
}

// instr_ is a tiny indirection so Validate reads naturally as "for idx,
// instr := range instructions"; kept as a function (not inlined) so future
// streaming validation (over a Code suffix) has one place to change.
func instr_(c *Code) []Instruction { return c.Instructions }

// Renumber assigns dense instruction indices in source order, per spec.md
// §3 "Operations are renumbered densely on finalize."
func (c *Code) Renumber() {
	for i := range c.Instructions {
		c.Instructions[i].Index = i
	}
}

// ContextAt computes the cumulative context active immediately before
// instruction i executes, by linear scan of block opens/closes up to i
// (spec.md §3 "Context at each instruction (computed by linear scan...)").
func (c *Code) ContextAt(i int) Context {
	ctx := ContextScript
	for j := 0; j < i && j < len(c.Instructions); j++ {
		info := c.Instructions[j].Op.Info()
		if info.IsBlockStart {
			ctx = ctx.Add(info.ContributedContext)
		}
		// Note: this simple running sum over-approximates context after a
		// sibling block closes (it does not pop). Callers needing exact
		// per-instruction context during construction should use the
		// Builder's maintained context stack instead; ContextAt is for
		// diagnostics and tests on already-finalized Code.
	}
	return ctx
}

// Len is the number of instructions.
func (c *Code) Len() int { return len(c.Instructions) }
