package mutation

import "github.com/jsfuzz/jsfuzz/internal/il"

// visibleAt walks code from the start up to (not including) idx, tracking
// block nesting depth the same way il.Code.Validate does, and returns
// every variable that would still be a legal input at idx: defined before
// idx, at a block depth no deeper than the one open at idx. Reusing this
// logic (instead of re-deriving it ad hoc per mutator) keeps InputMutator
// and SpliceMutator from ever handing Validate a program it will reject
// for a scoping violation they could have checked up front.
func visibleAt(code *il.Code, idx int) []il.Variable {
	definedDepth := make(map[il.Variable]int)
	order := make([]il.Variable, 0)
	depth := 0

	for i, instr := range code.Instructions {
		if i >= idx {
			break
		}
		info := instr.Op.Info()
		if info.IsBlockEnd {
			depth--
		}
		if info.IsBlockStart {
			depth++
			for _, v := range instr.InnerOutputs {
				definedDepth[v] = depth
				order = append(order, v)
			}
			for _, v := range instr.Outputs {
				definedDepth[v] = depth - 1
				order = append(order, v)
			}
		} else {
			for _, v := range instr.AllOutputs() {
				definedDepth[v] = depth
				order = append(order, v)
			}
		}
	}

	out := make([]il.Variable, 0, len(order))
	for _, v := range order {
		if definedDepth[v] <= depth {
			out = append(out, v)
		}
	}
	return out
}

// depthAt returns the block nesting depth open immediately before
// instruction idx executes.
func depthAt(code *il.Code, idx int) int {
	depth := 0
	for i, instr := range code.Instructions {
		if i >= idx {
			break
		}
		info := instr.Op.Info()
		if info.IsBlockEnd {
			depth--
		}
		if info.IsBlockStart {
			depth++
		}
	}
	return depth
}
