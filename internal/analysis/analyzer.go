// Package analysis implements the forward type analyzer described in
// spec.md §4.1: given a program and a starting variable→type map, it
// derives per-instruction input/output types. The pass is single-pass
// except at loop headers, which get one widening re-analysis.
package analysis

import (
	"fmt"

	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// State is a variable→type map, the "prefix state" spec.md §4.1 refers to.
// It is cheap to copy: callers branch it at control-flow joins.
type State map[il.Variable]iltype.Type

// Clone returns an independent copy of s.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// TypeOf returns the type recorded for v, or jsAnything if v is unknown to
// this state (e.g. it was defined in a sibling branch not taken here).
func (s State) TypeOf(v il.Variable) iltype.Type {
	if t, ok := s[v]; ok {
		return t
	}
	return iltype.Anything
}

// Result is the per-instruction output of a completed analysis pass.
type Result struct {
	// OutputTypes[i] holds the type assigned to each output (including
	// inner-outputs, appended after outputs) of Instructions[i].
	OutputTypes [][]iltype.Type
	Final       State
}

// TypeOf returns the analyzed type of v, looking it up in the Final state,
// i.e. after the whole pass with every branch merge and loop widening
// applied.
func (r *Result) TypeOf(v il.Variable) iltype.Type {
	return r.Final.TypeOf(v)
}

// Analyzer runs the forward pass against a fixed Environment (property and
// builtin type lookups, per spec.md §4.1 "env.type_of_property").
type Analyzer struct {
	Env *environment.Environment
}

// New builds an Analyzer bound to env.
func New(env *environment.Environment) *Analyzer {
	return &Analyzer{Env: env}
}

// Analyze runs the single forward pass (plus one loop-widening re-pass per
// nested loop) over code, starting from prefix. Inconsistent IL is a
// programming bug in callers — Analyze panics rather than erroring, per
// spec.md §4.1 "Error conditions".
func (a *Analyzer) Analyze(code *il.Code, prefix State) *Result {
	st := prefix.Clone()
	outTypes := make([][]iltype.Type, len(code.Instructions))
	a.run(code.Instructions, 0, len(code.Instructions), st, outTypes)
	return &Result{OutputTypes: outTypes, Final: st}
}

// run analyzes instructions [lo, hi) in st, mutating st in place and filling
// outTypes for every instruction in range. It recurses into nested blocks,
// applying branch-merge at joins and loop widening at loop headers.
func (a *Analyzer) run(instrs []il.Instruction, lo, hi int, st State, outTypes [][]iltype.Type) int {
	i := lo
	for i < hi {
		instr := instrs[i]
		switch instr.Op.(type) {
		case *il.BeginIf:
			end := matchingEnd(instrs, i)
			elseAt := findElse(instrs, i, end)
			thenEnd := end
			if elseAt >= 0 {
				thenEnd = elseAt
			}
			thenState := st.Clone()
			a.run(instrs, i+1, thenEnd, thenState, outTypes)
			elseState := st.Clone()
			if elseAt >= 0 {
				a.run(instrs, elseAt+1, end, elseState, outTypes)
			}
			mergeInto(st, thenState, elseState)
			outTypes[i] = nil
			i = end + 1
			continue

		case *il.BeginWhile, *il.BeginFor, *il.BeginForIn, *il.BeginForOf, *il.BeginDoWhile:
			end := matchingEnd(instrs, i)
			a.applyInnerOutputs(instr, st, outTypes, i)
			// First pass.
			bodyState := st.Clone()
			a.run(instrs, i+1, end, bodyState, outTypes)
			// Widen: union body-exit state back into loop entry, re-analyze once.
			widened := st.Clone()
			for v, t := range bodyState {
				widened[v] = iltype.Union(widened.TypeOf(v), t)
			}
			bodyState2 := widened.Clone()
			a.run(instrs, i+1, end, bodyState2, outTypes)
			for v, t := range bodyState2 {
				st[v] = t
			}
			i = end + 1
			continue

		case *il.BeginTry:
			end := matchingEnd(instrs, i)
			tryState := st.Clone()
			a.run(instrs, i+1, end, tryState, outTypes)
			mergeInto(st, tryState, st.Clone())
			i = end + 1
			continue

		case *il.BeginSwitch:
			end := matchingEnd(instrs, i)
			branches := []State{}
			j := i + 1
			for j < end {
				if _, ok := instrs[j].Op.(*il.BeginSwitchCase); ok {
					caseEnd := matchingEnd(instrs, j)
					bst := st.Clone()
					a.run(instrs, j+1, caseEnd, bst, outTypes)
					branches = append(branches, bst)
					j = caseEnd
					continue
				}
				j++
			}
			merged := st.Clone()
			for _, b := range branches {
				mergeInto(merged, merged.Clone(), b)
			}
			for k, v := range merged {
				st[k] = v
			}
			i = end + 1
			continue

		default:
			a.applyInstruction(instr, st, outTypes, i)
			if instr.Op.Info().IsBlockStart {
				// Any block-start opcode not special-cased above (classes,
				// functions nested via generators, with-blocks) is treated
				// as a straight-line scope: recurse without branching.
				end := matchingEnd(instrs, i)
				a.run(instrs, i+1, end, st, outTypes)
				i = end + 1
				continue
			}
			i++
		}
	}
	return i
}

// StepOutputTypes computes the output (and inner-output) types of a single
// instruction against st, without looking past it for a matching block end.
// Builder.analysisResultFor uses this to type one instruction at a time as
// it appends to an in-progress, not-yet-closed program: routing a
// block-start through the full recursive Analyze would send it into run's
// block-start cases, which call matchingEnd and need a closing instruction
// that doesn't exist yet.
func (a *Analyzer) StepOutputTypes(instr il.Instruction, st State) []iltype.Type {
	outTypes := make([][]iltype.Type, 1)
	switch instr.Op.(type) {
	case *il.BeginWhile, *il.BeginFor, *il.BeginForIn, *il.BeginForOf, *il.BeginDoWhile:
		a.applyInnerOutputs(instr, st, outTypes, 0)
	default:
		a.applyInstruction(instr, st, outTypes, 0)
	}
	return outTypes[0]
}

// applyInnerOutputs types a loop's induction/binding variables as
// jsAnything before the body is analyzed — spec.md doesn't constrain their
// static type, and the environment has no basis to narrow it further.
func (a *Analyzer) applyInnerOutputs(instr il.Instruction, st State, outTypes [][]iltype.Type, idx int) {
	types := make([]iltype.Type, 0, len(instr.Outputs)+len(instr.InnerOutputs))
	for range instr.Outputs {
		types = append(types, iltype.Anything)
	}
	for _, v := range instr.InnerOutputs {
		st[v] = iltype.Anything
		types = append(types, iltype.Anything)
	}
	outTypes[idx] = types
}

// applyInstruction computes and records the output type(s) of a single
// non-block-structured instruction, per the operation-specific rules in
// spec.md §4.1.
func (a *Analyzer) applyInstruction(instr il.Instruction, st State, outTypes [][]iltype.Type, idx int) {
	var result iltype.Type
	switch o := instr.Op.(type) {
	case *il.LoadInteger:
		result = iltype.Of(iltype.Integer)
	case *il.LoadFloat:
		result = iltype.Of(iltype.Float)
	case *il.LoadBigInt:
		result = iltype.Of(iltype.BigInt)
	case *il.LoadString:
		result = iltype.Of(iltype.String)
	case *il.LoadBoolean:
		result = iltype.Of(iltype.Boolean)
	case *il.LoadUndefined:
		result = iltype.Of(iltype.Undefined)
	case *il.LoadNull:
		result = iltype.Of(iltype.Object)
	case *il.LoadRegExp:
		result = iltype.Of(iltype.RegExp)
	case *il.LoadBuiltin:
		result = a.Env.TypeOfBuiltin(o.Name_)
	case *il.CreateArray:
		result = iltype.Of(iltype.Iterable | iltype.Object)
	case *il.CreateObject:
		result = iltype.Of(iltype.Object)
	case *il.Nop:
		outTypes[idx] = nil
		return
	case *il.BinaryOperation:
		result = binaryResultType(o.Op, st.TypeOf(instr.Inputs[0]), st.TypeOf(instr.Inputs[1]))
	case *il.UnaryOperation:
		result = unaryResultType(o.Op, st.TypeOf(instr.Inputs[0]))
	case *il.CompareOperation:
		result = iltype.Of(iltype.Boolean)
	case *il.GetProperty:
		result = a.Env.TypeOfProperty(o.Name_, st.TypeOf(instr.Inputs[0]), o.Guarded)
	case *il.SetProperty, *il.DeleteProperty:
		// No output beyond the one DeleteProperty declares; handled below.
		if dp, ok := instr.Op.(*il.DeleteProperty); ok {
			_ = dp
			result = iltype.Of(iltype.Boolean)
		}
	case *il.CallMethod:
		if sig, ok := a.Env.MethodSignature(o.Name_, st.TypeOf(instr.Inputs[0])); ok {
			result = sig.Return
		} else {
			result = iltype.Anything
		}
		if o.Guarded {
			result = iltype.Union(result, iltype.Of(iltype.Undefined))
		}
	case *il.CallFunction:
		result = iltype.Anything
		if o.Guarded {
			result = iltype.Union(result, iltype.Of(iltype.Undefined))
		}
	case *il.Construct:
		result = iltype.Of(iltype.Object)
	case *il.Eval:
		result = iltype.Anything
	case *il.BeginPlainFunction:
		result = iltype.Of(iltype.Function | iltype.Constructor)
	case *il.Return, *il.Break, *il.Continue, *il.Throw:
		outTypes[idx] = nil
		return
	case *il.Yield, *il.Await:
		result = iltype.Anything
	case *il.LoadElement:
		result = iltype.Anything
		if o.Guarded {
			result = iltype.Union(result, iltype.Of(iltype.Undefined))
		}
	case *il.StoreElement:
		outTypes[idx] = nil
		return
	case *il.CreateTypedArray:
		result = iltype.Of(iltype.Object | iltype.Iterable)
	case *il.DestructureArray, *il.DestructureObject:
		result = iltype.Anything
	case *il.InstallProbe:
		outTypes[idx] = nil
		return
	default:
		result = iltype.Anything
	}

	types := make([]iltype.Type, 0, len(instr.Outputs))
	for _, v := range instr.Outputs {
		st[v] = result
		types = append(types, result)
	}
	outTypes[idx] = types
}

func binaryResultType(op il.BinaryOp, a, b iltype.Type) iltype.Type {
	switch op {
	case il.OpAdd:
		if a.Is(iltype.Of(iltype.String)) || b.Is(iltype.Of(iltype.String)) {
			return iltype.Of(iltype.String)
		}
		return numericUnion(a, b)
	case il.OpSub, il.OpMul, il.OpDiv, il.OpMod:
		return numericUnion(a, b)
	case il.OpBitAnd, il.OpBitOr, il.OpBitXor, il.OpLShift, il.OpRShift:
		return iltype.Of(iltype.Integer)
	case il.OpLogicAnd, il.OpLogicOr:
		return iltype.Union(a, b)
	default:
		return iltype.Anything
	}
}

// numericUnion produces integer, float, or their union according to the
// input bases, per spec.md §4.1 "Arithmetic binaries produce integer,
// float, or their union".
func numericUnion(a, b iltype.Type) iltype.Type {
	aInt, bInt := a.Is(iltype.Of(iltype.Integer)), b.Is(iltype.Of(iltype.Integer))
	aFloat, bFloat := a.Is(iltype.Of(iltype.Float)), b.Is(iltype.Of(iltype.Float))
	switch {
	case aInt && bInt:
		return iltype.Of(iltype.Integer)
	case (aInt || aFloat) && (bInt || bFloat):
		return iltype.Of(iltype.Float)
	default:
		return iltype.Of(iltype.Integer | iltype.Float)
	}
}

func unaryResultType(op il.UnaryOp, t iltype.Type) iltype.Type {
	switch op {
	case il.OpLogicNot:
		return iltype.Of(iltype.Boolean)
	case il.OpTypeOf:
		return iltype.Of(iltype.String)
	case il.OpVoid:
		return iltype.Of(iltype.Undefined)
	case il.OpBitNot:
		return iltype.Of(iltype.Integer)
	default:
		return t
	}
}

// mergeInto writes, into dst, the per-variable union of a and b (spec.md
// §4.1 "the analyzer unions the per-variable types from all incoming
// branches; variables defined only on some branches become T | undefined").
func mergeInto(dst, a, b State) {
	seen := make(map[il.Variable]bool, len(a)+len(b))
	for v := range a {
		seen[v] = true
	}
	for v := range b {
		seen[v] = true
	}
	for v := range seen {
		ta, inA := a[v]
		tb, inB := b[v]
		switch {
		case inA && inB:
			dst[v] = iltype.MergeBranches(ta, tb)
		case inA:
			dst[v] = iltype.Union(ta, iltype.Of(iltype.Undefined))
		case inB:
			dst[v] = iltype.Union(tb, iltype.Of(iltype.Undefined))
		}
	}
}

// matchingEnd scans forward from a block-start instruction at index start
// and returns the index of the instruction that closes it, accounting for
// nesting. A block continuation (BeginElse, BeginCatch, BeginFinally,
// BeginSwitchCase) both closes a block and opens the next one: scanning
// from an ordinary opener such as BeginIf passes over its continuations
// and returns the final end (EndIf), while scanning from a continuation
// returns the next continuation or end at the same level. Malformed
// (unclosed) IL is a caller bug and panics, matching spec.md §4.1's
// "Error conditions".
func matchingEnd(instrs []il.Instruction, start int) int {
	startIsContinuation := instrs[start].Op.Info().IsBlockEnd
	depth := 0
	for i := start; i < len(instrs); i++ {
		info := instrs[i].Op.Info()
		if info.IsBlockEnd && i > start {
			depth--
			if depth == 0 && (!info.IsBlockStart || startIsContinuation) {
				return i
			}
		}
		if info.IsBlockStart {
			depth++
		}
	}
	panic(fmt.Sprintf("analysis: unclosed block starting at instruction %d", start))
}

// findElse returns the index of a BeginElse directly inside [start, end) at
// the same nesting depth as start, or -1 if there is none.
func findElse(instrs []il.Instruction, start, end int) int {
	depth := 0
	for i := start + 1; i < end; i++ {
		info := instrs[i].Op.Info()
		if depth == 0 {
			if _, ok := instrs[i].Op.(*il.BeginElse); ok {
				return i
			}
		}
		if info.IsBlockEnd {
			depth--
		}
		if info.IsBlockStart {
			depth++
		}
	}
	return -1
}
