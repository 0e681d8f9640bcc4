package mutation

import (
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/il"
)

// OperationMutator rewrites the immediate attributes of a random
// instruction without touching its arity: a different literal value, a
// flipped Guarded flag, a swapped property/method name, or a different
// operator within the same operator family (spec.md §4.4 "different
// literal, flag flip, property name swap"). Arity-changing rewrites
// (e.g. BeginSwitchCase's IsDefault) are left to CodeGenMutator/
// SpliceMutator, which can restructure surrounding instructions too.
type OperationMutator struct {
	stats      Stats
	propPool   []string
	methodPool []string
}

// NewOperationMutator returns an OperationMutator using a small built-in
// pool of alternate property/method names; callers wanting
// environment-specific names can use NewOperationMutatorWithPools.
func NewOperationMutator() *OperationMutator {
	return NewOperationMutatorWithPools(
		[]string{"a", "b", "c", "length", "constructor"},
		[]string{"toString", "valueOf", "hasOwnProperty"},
	)
}

// NewOperationMutatorWithPools lets callers supply the property/method
// name pools a real Environment knows about (spec.md's environment model
// names these pools; this package stays independent of internal/environment
// so it can be tested in isolation).
func NewOperationMutatorWithPools(propPool, methodPool []string) *OperationMutator {
	return &OperationMutator{propPool: propPool, methodPool: methodPool}
}

func (m *OperationMutator) Name() string   { return "OperationMutator" }
func (m *OperationMutator) Stats() *Stats { return &m.stats }

func (m *OperationMutator) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, bool) {
	clone := p.Clone()
	indices := rng.Perm(len(clone.Code.Instructions))
	for _, i := range indices {
		if newOp, ok := m.mutateOp(clone.Code.Instructions[i].Op, rng); ok {
			clone.Code.Instructions[i].Op = newOp
			if clone.Code.Validate() == nil {
				return clone, true
			}
			// Shouldn't happen for attribute-only rewrites, but stay
			// defensive: try the next candidate instruction instead of
			// handing back an invalid program.
			clone = p.Clone()
		}
	}
	return nil, false
}

func (m *OperationMutator) mutateOp(op il.Operation, rng *rand.Rand) (il.Operation, bool) {
	switch o := op.(type) {
	case *il.LoadInteger:
		return &il.LoadInteger{Value: mutateInt(o.Value, rng)}, true
	case *il.LoadFloat:
		return &il.LoadFloat{Value: o.Value * 2}, true
	case *il.LoadString:
		return &il.LoadString{Value: o.Value + "x"}, true
	case *il.LoadBoolean:
		return &il.LoadBoolean{Value: !o.Value}, true
	case *il.GetProperty:
		return &il.GetProperty{Name_: m.randomProp(rng), Guarded: !o.Guarded}, true
	case *il.SetProperty:
		return &il.SetProperty{Name_: m.randomProp(rng), Guarded: !o.Guarded}, true
	case *il.DeleteProperty:
		return &il.DeleteProperty{Name_: m.randomProp(rng), Guarded: !o.Guarded}, true
	case *il.CallMethod:
		return &il.CallMethod{Name_: m.randomMethod(rng), Arity: o.Arity, Guarded: !o.Guarded}, true
	case *il.CallFunction:
		return &il.CallFunction{Arity: o.Arity, Guarded: !o.Guarded}, true
	case *il.Construct:
		return &il.Construct{Arity: o.Arity, Guarded: !o.Guarded}, true
	case *il.LoadElement:
		return &il.LoadElement{Guarded: !o.Guarded}, true
	case *il.StoreElement:
		return &il.StoreElement{Guarded: !o.Guarded}, true
	case *il.BinaryOperation:
		return &il.BinaryOperation{Op: randomOtherBinaryOp(o.Op, rng)}, true
	case *il.UnaryOperation:
		return &il.UnaryOperation{Op: randomOtherUnaryOp(o.Op, rng)}, true
	case *il.CompareOperation:
		return &il.CompareOperation{Op: randomOtherCompareOp(o.Op, rng)}, true
	default:
		return nil, false
	}
}

func (m *OperationMutator) randomProp(rng *rand.Rand) string {
	return m.propPool[rng.Intn(len(m.propPool))]
}

func (m *OperationMutator) randomMethod(rng *rand.Rand) string {
	return m.methodPool[rng.Intn(len(m.methodPool))]
}

func mutateInt(v int64, rng *rand.Rand) int64 {
	switch rng.Intn(4) {
	case 0:
		return v + 1
	case 1:
		return v - 1
	case 2:
		return -v
	default:
		return v * 2
	}
}

func randomOtherBinaryOp(cur il.BinaryOp, rng *rand.Rand) il.BinaryOp {
	all := []il.BinaryOp{
		il.OpAdd, il.OpSub, il.OpMul, il.OpDiv, il.OpMod,
		il.OpBitAnd, il.OpBitOr, il.OpBitXor, il.OpLShift, il.OpRShift,
		il.OpLogicAnd, il.OpLogicOr,
	}
	return pickOther(all, cur, rng)
}

func randomOtherUnaryOp(cur il.UnaryOp, rng *rand.Rand) il.UnaryOp {
	all := []il.UnaryOp{
		il.OpNeg, il.OpPlus, il.OpLogicNot, il.OpBitNot,
		il.OpIncrement, il.OpDecrement, il.OpTypeOf, il.OpVoid,
	}
	return pickOther(all, cur, rng)
}

func randomOtherCompareOp(cur il.CompareOp, rng *rand.Rand) il.CompareOp {
	all := []il.CompareOp{
		il.CmpEqual, il.CmpNotEqual, il.CmpStrictEqual, il.CmpStrictNotEqual,
		il.CmpLessThan, il.CmpLessThanOrEqual, il.CmpGreaterThan, il.CmpGreaterThanOrEqual,
	}
	return pickOther(all, cur, rng)
}

func pickOther[T comparable](all []T, cur T, rng *rand.Rand) T {
	for tries := 0; tries < len(all)*2; tries++ {
		candidate := all[rng.Intn(len(all))]
		if candidate != cur {
			return candidate
		}
	}
	return cur
}
