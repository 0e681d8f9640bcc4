package codegen

import (
	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

var binaryOps = []il.BinaryOp{
	il.OpAdd, il.OpSub, il.OpMul, il.OpDiv, il.OpMod,
	il.OpBitAnd, il.OpBitOr, il.OpBitXor, il.OpLShift, il.OpRShift,
	il.OpLogicAnd, il.OpLogicOr,
}

var unaryOps = []il.UnaryOp{
	il.OpNeg, il.OpPlus, il.OpLogicNot, il.OpBitNot,
	il.OpIncrement, il.OpDecrement, il.OpTypeOf, il.OpVoid,
}

var compareOps = []il.CompareOp{
	il.CmpEqual, il.CmpNotEqual, il.CmpStrictEqual, il.CmpStrictNotEqual,
	il.CmpLessThan, il.CmpLessThanOrEqual, il.CmpGreaterThan, il.CmpGreaterThanOrEqual,
}

// operatorGenerators covers spec.md §4.3's "binary/unary/comparison ops".
func operatorGenerators() []builder.Generator {
	return []builder.Generator{
		newGenerator("BinaryOperation", il.ContextEmpty, 10, func(b *builder.Builder) bool {
			lhs, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			rhs, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			op := binaryOps[b.Rng.Intn(len(binaryOps))]
			b.Append(&il.BinaryOperation{Op: op}, []il.Variable{lhs, rhs})
			return true
		}),
		newGenerator("UnaryOperation", il.ContextEmpty, 6, func(b *builder.Builder) bool {
			v, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			op := unaryOps[b.Rng.Intn(len(unaryOps))]
			b.Append(&il.UnaryOperation{Op: op}, []il.Variable{v})
			return true
		}),
		newGenerator("CompareOperation", il.ContextEmpty, 6, func(b *builder.Builder) bool {
			lhs, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			rhs, ok := input(b, iltype.Anything)
			if !ok {
				return false
			}
			op := compareOps[b.Rng.Intn(len(compareOps))]
			b.Append(&il.CompareOperation{Op: op}, []il.Variable{lhs, rhs})
			return true
		}),
	}
}
