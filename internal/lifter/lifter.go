// Package lifter defines the narrow interface between the IL and a real
// JavaScript source emitter (spec.md §6: "Lifting... is an external
// collaborator"). The core fuzzer depends only on this interface, the same
// way shared-memory access sits behind sab.MemoryProvider
// ("implementations may be backed by mmap, SharedArrayBuffer, or in-memory
// buffers") rather than a concrete type.
package lifter

import (
	"fmt"
	"strings"

	"github.com/jsfuzz/jsfuzz/internal/il"
)

// Lifter turns a finalized Program into executable JavaScript source. A
// full implementation (operator precedence, ASI-safe formatting, name
// mangling) is outside this module's scope; this package provides only
// the interface and a deterministic stub, which is also the Lifter that
// internal/fuzzer wires into every run.
type Lifter interface {
	Lift(p *il.Program) (string, error)
}

// Stub is a deterministic, non-executable lifter: it renders one line per
// instruction naming the opcode and its variable bindings rather than real
// JS syntax. internal/fuzzer uses it as the run's Lifter, internal/engine
// tests use it to exercise the pipeline, and it gives the Lifter contract
// one concrete, testable implementation in tree.
type Stub struct{}

func (Stub) Lift(p *il.Program) (string, error) {
	var b strings.Builder
	for _, instr := range p.Code.Instructions {
		fmt.Fprintf(&b, "/* %s */ v%v = op(%s, in=%v);\n", instr.Op.Name(), instr.Outputs, instr.Op.Name(), instr.Inputs)
	}
	return b.String(), nil
}
