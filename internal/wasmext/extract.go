package wasmext

import "github.com/jsfuzz/jsfuzz/internal/il"

// mapBinaryOp translates an internal/il.BinaryOp into this package's own
// BinaryOp explicitly, rather than relying on the two enums' ordinals
// happening to line up, since il.BinaryOp also carries JS-only operators
// (logical &&/||) with no i32 wasm opcode.
func mapBinaryOp(op il.BinaryOp) (BinaryOp, bool) {
	switch op {
	case il.OpAdd:
		return OpAdd, true
	case il.OpSub:
		return OpSub, true
	case il.OpMul:
		return OpMul, true
	case il.OpDiv:
		return OpDiv, true
	case il.OpMod:
		return OpMod, true
	case il.OpBitAnd:
		return OpBitAnd, true
	case il.OpBitOr:
		return OpBitOr, true
	case il.OpBitXor:
		return OpBitXor, true
	case il.OpLShift:
		return OpLShift, true
	case il.OpRShift:
		return OpRShift, true
	default:
		return 0, false
	}
}

// ExtractModules scans p for every BeginWasmModule..EndWasmModule block
// and flattens its BeginWasmFunction..EndWasmFunction children into
// Modules this package can Encode and validate. ok is false if p contains
// no Wasm IL at all, letting callers skip the wasmext pass entirely for
// the (overwhelmingly common) all-JS program.
func ExtractModules(p *il.Program) (modules []Module, ok bool) {
	instrs := p.Code.Instructions

	for i := 0; i < len(instrs); i++ {
		if _, isModule := instrs[i].Op.(*il.BeginWasmModule); !isModule {
			continue
		}
		ok = true

		var mod Module
		j := i + 1
		for j < len(instrs) {
			if _, isEnd := instrs[j].Op.(*il.EndWasmModule); isEnd {
				break
			}
			if begin, isFn := instrs[j].Op.(*il.BeginWasmFunction); isFn {
				fn, next, err := extractFunction(instrs, j, *begin)
				if err == nil {
					mod.Functions = append(mod.Functions, fn)
				}
				j = next
				continue
			}
			j++
		}
		modules = append(modules, mod)
		i = j
	}
	return modules, ok
}

// extractFunction reads the BeginWasmFunction at instrs[start] and
// everything up to (and including) its matching EndWasmFunction, and
// returns the Function it describes plus the index just past
// EndWasmFunction.
func extractFunction(instrs []il.Instruction, start int, begin il.BeginWasmFunction) (Function, int, error) {
	fn := Function{NumParams: begin.NumParams}
	values := make(map[il.Variable]ValueRef, begin.NumParams)
	for p, v := range instrs[start].InnerOutputs {
		values[v] = ValueRef{IsParam: true, Index: p}
	}

	k := start + 1
	for ; k < len(instrs); k++ {
		switch op := instrs[k].Op.(type) {
		case *il.WasmBinaryOperation:
			lhs, lok := values[instrs[k].Inputs[0]]
			rhs, rok := values[instrs[k].Inputs[1]]
			mapped, mok := mapBinaryOp(op.Op)
			if !lok || !rok || !mok {
				return Function{}, k + 1, errUnresolvedValue
			}
			fn.Ops = append(fn.Ops, Op{BinOp: mapped, Lhs: lhs, Rhs: rhs})
			values[instrs[k].Outputs[0]] = ValueRef{IsParam: false, Index: len(fn.Ops) - 1}
		case *il.WasmReturn:
			ref, rok := values[instrs[k].Inputs[0]]
			if !rok {
				return Function{}, k + 1, errUnresolvedValue
			}
			fn.Return = ref
		case *il.EndWasmFunction:
			return fn, k + 1, nil
		}
	}
	return fn, k, errUnterminatedFunction
}
