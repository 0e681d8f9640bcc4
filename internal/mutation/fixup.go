package mutation

import (
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/il"
)

// FixupMutator removes guards that runtime feedback showed never fire
// (spec.md §4.4 "Given runtime information recorded during execution,
// remove guards that did not trigger and correct known-wrong operations").
// Outcomes are reported externally, once per real execution, via
// RecordGuardOutcome — this package never executes anything itself.
type FixupMutator struct {
	stats Stats

	// neverFired maps a program's structural fingerprint to the set of
	// instruction indices whose guard has been observed never to fire.
	// Keying on the fingerprint rather than *il.Program lets outcomes
	// recorded against one clone apply to any later clone with the same
	// structure, since Mutate always hands back a fresh Program.
	neverFired map[il.Fingerprint]map[int]bool
}

// NewFixupMutator returns a FixupMutator with no guard history yet.
func NewFixupMutator() *FixupMutator {
	return &FixupMutator{neverFired: make(map[il.Fingerprint]map[int]bool)}
}

func (m *FixupMutator) Name() string   { return "FixupMutator" }
func (m *FixupMutator) Stats() *Stats { return &m.stats }

// RecordGuardOutcome reports whether the guarded operation at index fired
// its exception path during a real execution of the program with
// fingerprint fp. An observed firing clears the index from the
// never-fired set, even if earlier runs never triggered it; a later
// non-firing report adds it back.
func (m *FixupMutator) RecordGuardOutcome(fp il.Fingerprint, index int, fired bool) {
	if fired {
		if m.neverFired[fp] != nil {
			delete(m.neverFired[fp], index)
		}
		return
	}
	if m.neverFired[fp] == nil {
		m.neverFired[fp] = make(map[int]bool)
	}
	m.neverFired[fp][index] = true
}

func (m *FixupMutator) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, bool) {
	fp := il.ComputeFingerprint(p)
	never := m.neverFired[fp]
	if len(never) == 0 {
		return nil, false
	}

	clone := p.Clone()
	changed := false
	for idx := range never {
		if idx < 0 || idx >= len(clone.Code.Instructions) {
			continue
		}
		if newOp, ok := stripGuard(clone.Code.Instructions[idx].Op); ok {
			clone.Code.Instructions[idx].Op = newOp
			changed = true
		}
	}
	if !changed {
		return nil, false
	}
	if clone.Code.Validate() != nil {
		return nil, false
	}
	return clone, true
}

// stripGuard returns an unguarded copy of op's guardable operations, or
// ok=false for an operation that isn't guardable or is already unguarded.
func stripGuard(op il.Operation) (newOp il.Operation, ok bool) {
	switch o := op.(type) {
	case *il.GetProperty:
		if !o.Guarded {
			return nil, false
		}
		return &il.GetProperty{Name_: o.Name_, Guarded: false}, true
	case *il.SetProperty:
		if !o.Guarded {
			return nil, false
		}
		return &il.SetProperty{Name_: o.Name_, Guarded: false}, true
	case *il.DeleteProperty:
		if !o.Guarded {
			return nil, false
		}
		return &il.DeleteProperty{Name_: o.Name_, Guarded: false}, true
	case *il.CallMethod:
		if !o.Guarded {
			return nil, false
		}
		return &il.CallMethod{Name_: o.Name_, Guarded: false, Arity: o.Arity}, true
	case *il.CallFunction:
		if !o.Guarded {
			return nil, false
		}
		return &il.CallFunction{Guarded: false, Arity: o.Arity}, true
	case *il.Construct:
		if !o.Guarded {
			return nil, false
		}
		return &il.Construct{Guarded: false, Arity: o.Arity}, true
	case *il.LoadElement:
		if !o.Guarded {
			return nil, false
		}
		return &il.LoadElement{Guarded: false}, true
	case *il.StoreElement:
		if !o.Guarded {
			return nil, false
		}
		return &il.StoreElement{Guarded: false}, true
	default:
		return nil, false
	}
}
