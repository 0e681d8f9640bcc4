// Package minimize implements the minimizer of spec.md §4.9: given an
// interesting program, shrink it through repeated reduce/inline/simplify
// passes to a fixpoint, always preserving the coverage that made it
// interesting. Structured as an iterative pass-to-fixpoint loop, the same
// shape as a delta-replication reduce loop
// (kernel/core/mesh/optimization/replication.go builds successively finer
// deltas until no further reduction is possible).
package minimize

import (
	"github.com/jsfuzz/jsfuzz/internal/il"
)

// Checker reports whether candidate still reproduces whatever made the
// original program interesting (typically: re-execute and confirm the
// original's covered edges are still hit). Minimize never inspects how
// Checker decides this — the same narrow-interface-over-REPRL pattern used
// throughout this module.
type Checker func(candidate *il.Program) bool

// Minimize repeatedly reduces, inlines, and simplifies p, stopping when one
// full pass makes no further progress (spec.md §4.9). It is pure with
// respect to the IL invariants and always returns a program for which
// check returns true (a copy of p, if no reduction was possible).
func Minimize(p *il.Program, check Checker) *il.Program {
	current := p
	for {
		next := reducePass(current, check)
		next = inlinePass(next, check)
		next = simplifyPass(next, check)
		if next.Size() == current.Size() && il.Equal(next, current) {
			return compactNops(next)
		}
		current = next
	}
}

// reducePass attempts to replace each block (working from the end of the
// program forward, per spec.md §4.9 step 1) with Nop, keeping the change
// only if the result still validates and still checks out. Nop.go
// documents why a replacement rather than an outright splice is used here:
// it keeps variable numbering stable across the pass; compactNops strips
// the accumulated Nops once the whole minimizer has converged.
func reducePass(p *il.Program, check Checker) *il.Program {
	current := p
	for i := len(current.Code.Instructions) - 1; i >= 0; i-- {
		candidate := tryReplaceWithNop(current, i)
		if candidate == nil {
			continue
		}
		if candidate.Code.Validate() == nil && check(candidate) {
			current = candidate
		}
	}
	return current
}

// tryReplaceWithNop replaces instruction i (and, if it opens a block, the
// block's matching end and everything between) with a single Nop — a
// conservative whole-block replacement, since partially removing a
// block's interior without its opener would violate the well-nestedness
// invariant. The replacement is rejected up front if anything later in
// the program still references a variable the range defines.
func tryReplaceWithNop(p *il.Program, i int) *il.Program {
	instrs := p.Code.Instructions
	if i >= len(instrs) {
		return nil
	}
	info := instrs[i].Op.Info()
	if _, alreadyNop := instrs[i].Op.(*il.Nop); alreadyNop {
		return nil
	}

	end := i
	if info.IsBlockStart {
		depth := 0
		for j := i; j < len(instrs); j++ {
			jinfo := instrs[j].Op.Info()
			if jinfo.IsBlockEnd {
				depth--
			}
			if jinfo.IsBlockStart {
				depth++
			}
			if depth == 0 {
				end = j
				break
			}
		}
	}
	definedHere := map[il.Variable]bool{}
	for j := i; j <= end; j++ {
		for _, v := range instrs[j].AllOutputs() {
			definedHere[v] = true
		}
	}
	for j := end + 1; j < len(instrs); j++ {
		for _, v := range instrs[j].Inputs {
			if definedHere[v] {
				return nil
			}
		}
	}

	clone := p.Clone()
	newInstrs := make([]il.Instruction, 0, len(clone.Code.Instructions)-(end-i))
	newInstrs = append(newInstrs, clone.Code.Instructions[:i]...)
	newInstrs = append(newInstrs, il.Instruction{Op: &il.Nop{}})
	newInstrs = append(newInstrs, clone.Code.Instructions[end+1:]...)
	clone.Code.Instructions = newInstrs
	clone.Code.Renumber()
	return clone
}

// compactNops drops every Nop left behind by reducePass once the minimizer
// has reached a fixpoint; they carry no outputs and nothing can reference
// them, so removing them needs no re-check against check.
func compactNops(p *il.Program) *il.Program {
	clone := p.Clone()
	kept := clone.Code.Instructions[:0]
	for _, instr := range clone.Code.Instructions {
		if _, isNop := instr.Op.(*il.Nop); isNop {
			continue
		}
		kept = append(kept, instr)
	}
	clone.Code.Instructions = kept
	clone.Code.Renumber()
	return clone
}

// inlinePass attempts to replace inner blocks with their bodies where
// doing so is safe — i.e. the block opener/closer carry no semantics that
// survive removal. BeginIf, which takes a condition input, is therefore
// never inlined. A conservative implementation: only
// zero-input, zero-output block pairs with no intervening jump are
// inlined, since those are the only ones removable without further
// rewriting references to the opener's outputs.
func inlinePass(p *il.Program, check Checker) *il.Program {
	current := p
	for i := 0; i < len(current.Code.Instructions); i++ {
		instr := current.Code.Instructions[i]
		info := instr.Op.Info()
		if !info.IsBlockStart || len(instr.Outputs) != 0 || len(instr.InnerOutputs) != 0 || info.MinInputs != 0 {
			continue
		}
		end := matchingEnd(current.Code.Instructions, i)
		if end < 0 {
			continue
		}
		hasJump := false
		for j := i + 1; j < end; j++ {
			if current.Code.Instructions[j].IsJump() {
				hasJump = true
				break
			}
		}
		if hasJump {
			continue
		}
		clone := current.Clone()
		newInstrs := make([]il.Instruction, 0, len(clone.Code.Instructions))
		newInstrs = append(newInstrs, clone.Code.Instructions[:i]...)
		newInstrs = append(newInstrs, clone.Code.Instructions[i+1:end]...)
		newInstrs = append(newInstrs, clone.Code.Instructions[end+1:]...)
		clone.Code.Instructions = newInstrs
		clone.Code.Renumber()
		if clone.Code.Validate() == nil && check(clone) {
			current = clone
		}
	}
	return current
}

// simplifyPass shrinks scalar literal attributes toward zero/empty,
// repeating until no further shrink helps (spec.md §4.9 step 3).
func simplifyPass(p *il.Program, check Checker) *il.Program {
	current := p
	for i, instr := range current.Code.Instructions {
		switch o := instr.Op.(type) {
		case *il.LoadInteger:
			current = shrinkInt(current, i, o, check)
		case *il.LoadString:
			current = shrinkString(current, i, o, check)
		}
	}
	return current
}

func shrinkInt(p *il.Program, i int, orig *il.LoadInteger, check Checker) *il.Program {
	v := orig.Value
	for v != 0 {
		candidate := v / 2
		clone := p.Clone()
		clone.Code.Instructions[i].Op = &il.LoadInteger{Value: candidate}
		if clone.Code.Validate() == nil && check(clone) {
			p = clone
			v = candidate
			continue
		}
		break
	}
	return p
}

func shrinkString(p *il.Program, i int, orig *il.LoadString, check Checker) *il.Program {
	s := orig.Value
	for len(s) > 0 {
		candidate := s[:len(s)-1]
		clone := p.Clone()
		clone.Code.Instructions[i].Op = &il.LoadString{Value: candidate}
		if clone.Code.Validate() == nil && check(clone) {
			p = clone
			s = candidate
			continue
		}
		break
	}
	return p
}

func matchingEnd(instrs []il.Instruction, start int) int {
	depth := 0
	for i := start; i < len(instrs); i++ {
		info := instrs[i].Op.Info()
		if info.IsBlockEnd {
			depth--
			if depth == 0 {
				return i
			}
		}
		if info.IsBlockStart {
			depth++
		}
	}
	return -1
}
