package il

// Variable is an opaque, non-negative index unique within one program
// (spec.md §3). It is a dense integer, never a pointer, so rewriting
// variables during splicing is an O(n) table lookup (spec.md §9).
type Variable uint32

// Invalid marks "no variable" (e.g. an unused inner-output slot).
const Invalid Variable = ^Variable(0)

func (v Variable) Valid() bool { return v != Invalid }
