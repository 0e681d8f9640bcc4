package mutation

import "github.com/jsfuzz/jsfuzz/internal/il"

// Sources supplies candidate programs to mutators that borrow material
// from elsewhere in the corpus (spec.md §4.4's Splice/Combine/Concat
// mutators). The fuzzer wires this to its corpus's sampling method;
// tests can wire it to a fixed slice. A Sources that returns an empty
// slice makes the owning mutator a reliable no-op rather than a panic.
type Sources func() []*il.Program
