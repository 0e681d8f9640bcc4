package il

import (
	"crypto/sha256"
	"encoding/binary"
)

// Fingerprint is a structural content hash used for corpus dedup (spec.md
// §4.8 "Duplicates (by structural fingerprint) are rejected.") and as the
// optional parent pointer recorded on derived programs.
type Fingerprint [32]byte

// Program is the immutable bundle spec.md §3 describes: a finalized Code,
// an optional parent fingerprint, the set of templates/mutators that
// touched it ("contributors"), and optional analyzer caches. Programs are
// value types: Clone is O(n), equality is structural.
type Program struct {
	Code         Code
	Parent       *Fingerprint
	Contributors []string // template/mutator names; only ever grows (§C.3)

	// cached is populated lazily by internal/analysis and invalidated by
	// any mutation (mutators always operate on a cloned Program).
	cached *analysisCache
}

// analysisCache is an opaque pointer type from internal/il's perspective;
// internal/analysis populates and reads it via CachedAnalysis/SetCachedAnalysis
// so the analyzer doesn't need an import cycle with il.
type analysisCache struct {
	payload any
}

// CachedAnalysis returns the previously attached analysis payload, if any.
func (p *Program) CachedAnalysis() (any, bool) {
	if p.cached == nil {
		return nil, false
	}
	return p.cached.payload, true
}

// SetCachedAnalysis attaches an analysis payload (opaque to il).
func (p *Program) SetCachedAnalysis(payload any) {
	p.cached = &analysisCache{payload: payload}
}

// New wraps code into a fresh Program with no parent and no contributors.
func New(code Code) *Program {
	return &Program{Code: code}
}

// WithContributor returns a clone of p with name appended to Contributors
// if not already present — contributor sets only grow across mutations
// (spec.md §C.3's chosen semantics for the propagation open question).
func (p *Program) WithContributor(name string) *Program {
	clone := p.Clone()
	for _, c := range clone.Contributors {
		if c == name {
			return clone
		}
	}
	clone.Contributors = append(clone.Contributors, name)
	return clone
}

// Clone deep-copies a Program; O(n) in instruction count per spec.md §3.
func (p *Program) Clone() *Program {
	instrs := make([]Instruction, len(p.Code.Instructions))
	for i, instr := range p.Code.Instructions {
		instrs[i] = Instruction{
			Op:           instr.Op,
			Inputs:       append([]Variable(nil), instr.Inputs...),
			Outputs:      append([]Variable(nil), instr.Outputs...),
			InnerOutputs: append([]Variable(nil), instr.InnerOutputs...),
			Index:        instr.Index,
		}
	}
	var parent *Fingerprint
	if p.Parent != nil {
		fp := *p.Parent
		parent = &fp
	}
	return &Program{
		Code:         Code{Instructions: instrs},
		Parent:       parent,
		Contributors: append([]string(nil), p.Contributors...),
	}
}

// Size is the instruction count, used by corpus weighting (smaller
// preferred, spec.md §4.8).
func (p *Program) Size() int { return len(p.Code.Instructions) }

// Equal is structural equality over the finalized Code (spec.md §8 inv 5's
// round-trip check compares programs this way).
func Equal(a, b *Program) bool {
	if a.Size() != b.Size() {
		return false
	}
	for i := range a.Code.Instructions {
		ia, ib := a.Code.Instructions[i], b.Code.Instructions[i]
		if ia.Op.Name() != ib.Op.Name() {
			return false
		}
		if !equalVars(ia.Inputs, ib.Inputs) || !equalVars(ia.Outputs, ib.Outputs) || !equalVars(ia.InnerOutputs, ib.InnerOutputs) {
			return false
		}
	}
	return true
}

func equalVars(a, b []Variable) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ComputeFingerprint hashes a stable encoding of the program's structure
// (opcode name + input/output variable indices per instruction) — not its
// binary wire form, so two programs that encode to different byte-exact
// wire payloads (e.g. due to attribute ordering) but the same structure
// still collide, matching spec.md §4.8's dedup intent.
func ComputeFingerprint(p *Program) Fingerprint {
	h := sha256.New()
	var buf [4]byte
	for _, instr := range p.Code.Instructions {
		h.Write([]byte(instr.Op.Name()))
		for _, v := range instr.Inputs {
			binary.LittleEndian.PutUint32(buf[:], uint32(v))
			h.Write(buf[:])
		}
		h.Write([]byte{0xff})
		for _, v := range instr.AllOutputs() {
			binary.LittleEndian.PutUint32(buf[:], uint32(v))
			h.Write(buf[:])
		}
		h.Write([]byte{0xfe})
	}
	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}
