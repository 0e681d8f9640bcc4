// Package builder implements the Program Builder of spec.md §4.2: a
// scratchpad for constructing a new program incrementally, tracking the
// context stack, scope stack, analyzer state, a variable pool indexed by
// type, and a probing set for later splicing.
package builder

import (
	"math/rand"

	"github.com/jsfuzz/jsfuzz/internal/analysis"
	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// Generator is the minimal shape a code generator must have to be invoked
// by build()/findOrGenerate() — the full registry lives in internal/codegen,
// kept as a separate package so mutators can depend on one without the
// other. Builder only needs to call Emit against itself.
type Generator interface {
	Name() string
	RequiredContext() il.Context
	Weight() int
	Emit(b *Builder) bool
}

// scope is one entry of the scope stack: the variables introduced while it
// was the innermost scope, plus the context bits active within it.
type scope struct {
	vars    []il.Variable
	context il.Context
}

// Builder accumulates Code for a single program under construction. It is
// not safe for concurrent use; callers own one Builder per goroutine (the
// same shape as the per-connection state in
// internal/network/mesh.go — one mutable scratchpad, explicitly owned).
type Builder struct {
	Env *environment.Environment
	Rng *rand.Rand

	code         il.Code
	contextStack []il.Context
	scopes       []scope
	nextVar      il.Variable

	// pool indexes variables by the base bits of their analyzed type, for
	// cheap findOrGenerate lookups (spec.md §4.2 "variable pool by type").
	pool map[iltype.Bits][]il.Variable

	// probing is the set of variables marked "loose" so that splicing may
	// replace them later (spec.md §4.2).
	probing map[il.Variable]bool

	types map[il.Variable]iltype.Type

	analyzer *analysis.Analyzer
}

// New creates an empty Builder over env, seeded with rng for any
// randomized decisions (constant picks, splice points, generator choice).
func New(env *environment.Environment, rng *rand.Rand) *Builder {
	b := &Builder{
		Env:          env,
		Rng:          rng,
		contextStack: []il.Context{il.ContextScript},
		pool:         make(map[iltype.Bits][]il.Variable),
		probing:      make(map[il.Variable]bool),
		types:        make(map[il.Variable]iltype.Type),
		analyzer:     analysis.New(env),
	}
	b.scopes = []scope{{context: il.ContextScript}}
	return b
}

// CurrentContext is the cumulative context at the builder's current
// position (top of contextStack).
func (b *Builder) CurrentContext() il.Context {
	return b.contextStack[len(b.contextStack)-1]
}

// freshVar allocates the next unused variable index.
func (b *Builder) freshVar() il.Variable {
	v := b.nextVar
	b.nextVar++
	return v
}

// recordType tracks v's analyzed type and registers it in the pool so
// later findOrGenerate calls can reuse it.
func (b *Builder) recordType(v il.Variable, t iltype.Type) {
	b.types[v] = t
	b.pool[t.Bits] = append(b.pool[t.Bits], v)
	b.scopes[len(b.scopes)-1].vars = append(b.scopes[len(b.scopes)-1].vars, v)
}

// TypeOf returns the analyzed type of v, or jsAnything if unknown.
func (b *Builder) TypeOf(v il.Variable) iltype.Type {
	if t, ok := b.types[v]; ok {
		return t
	}
	return iltype.Anything
}

// Append validates arity and context for op against inputs, assigns fresh
// output/inner-output variables, appends the instruction, and updates the
// analyzer state — spec.md §4.2 "append(operation, inputs)". It returns the
// newly assigned outputs (not including inner outputs).
func (b *Builder) Append(op il.Operation, inputs []il.Variable) []il.Variable {
	info := op.Info()
	if !b.CurrentContext().Contains(info.RequiredContext) {
		return nil
	}
	if len(inputs) < info.MinInputs || (info.MaxInputs >= 0 && len(inputs) > info.MaxInputs) {
		return nil
	}

	outputs := make([]il.Variable, info.NumOutputs)
	for i := range outputs {
		outputs[i] = b.freshVar()
	}
	innerOutputs := make([]il.Variable, info.NumInnerOutputs)
	for i := range innerOutputs {
		innerOutputs[i] = b.freshVar()
	}

	instr := il.Instruction{Op: op, Inputs: inputs, Outputs: outputs, InnerOutputs: innerOutputs, Index: len(b.code.Instructions)}
	b.code.Instructions = append(b.code.Instructions, instr)

	result := analysisResultFor(b, op, inputs)
	for i, v := range outputs {
		b.recordType(v, result(i))
	}

	if info.IsBlockStart {
		newCtx := b.CurrentContext().Add(info.ContributedContext)
		b.contextStack = append(b.contextStack, newCtx)
		b.scopes = append(b.scopes, scope{context: newCtx})
		for i, v := range innerOutputs {
			b.types[v] = result(len(outputs) + i)
			b.pool[b.types[v].Bits] = append(b.pool[b.types[v].Bits], v)
			b.scopes[len(b.scopes)-1].vars = append(b.scopes[len(b.scopes)-1].vars, v)
		}
	} else {
		for i, v := range innerOutputs {
			b.recordType(v, result(len(outputs)+i))
		}
	}

	if info.IsBlockEnd {
		b.popScope()
	}

	return outputs
}

// popScope closes the innermost scope, dropping its variables from the
// pool so later lookups don't reach into a closed block (spec.md §3's
// scoping invariant mirrored on the construction side).
func (b *Builder) popScope() {
	if len(b.scopes) <= 1 {
		return
	}
	top := b.scopes[len(b.scopes)-1]
	for _, v := range top.vars {
		bits := b.types[v].Bits
		b.pool[bits] = removeVar(b.pool[bits], v)
		delete(b.probing, v)
	}
	b.scopes = b.scopes[:len(b.scopes)-1]
	if len(b.contextStack) > 1 {
		b.contextStack = b.contextStack[:len(b.contextStack)-1]
	}
}

func removeVar(vars []il.Variable, v il.Variable) []il.Variable {
	out := vars[:0]
	for _, x := range vars {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// analysisResultFor returns a function mapping output index -> analyzed
// type for a single about-to-be-appended instruction, reusing
// internal/analysis's per-operation rules directly (Analyzer.StepOutputTypes)
// rather than wrapping the instruction in an il.Code and running the full
// Analyze: a block-start instruction has no matching end yet at append time,
// and Analyze's block-aware dispatch requires one.
func analysisResultFor(b *Builder, op il.Operation, inputs []il.Variable) func(int) iltype.Type {
	info := op.Info()
	tmp := il.Instruction{
		Op:           op,
		Inputs:       inputs,
		Outputs:      makeSeq(b.nextVar-il.Variable(info.NumOutputs+info.NumInnerOutputs), info.NumOutputs),
		InnerOutputs: makeSeq(b.nextVar-il.Variable(info.NumInnerOutputs), info.NumInnerOutputs),
	}
	st := make(analysis.State, len(b.types))
	for v, t := range b.types {
		st[v] = t
	}
	types := b.analyzer.StepOutputTypes(tmp, st)
	return func(i int) iltype.Type {
		if i < len(types) {
			return types[i]
		}
		return iltype.Anything
	}
}

func makeSeq(start il.Variable, n int) []il.Variable {
	if n == 0 {
		return nil
	}
	out := make([]il.Variable, n)
	for i := range out {
		out[i] = start + il.Variable(i)
	}
	return out
}

// Instructions exposes the instructions appended so far, for callers that
// need to inspect variable assignments mid-construction rather than wait
// for Finalize — internal/mutation's CodeGenMutator replays an existing
// program's instructions through a Builder and needs to see exactly which
// inner-output variables each replayed instruction was just assigned,
// since Append only returns Outputs.
func (b *Builder) Instructions() []il.Instruction {
	return b.code.Instructions
}

// BuildMode selects how build() fills its budget.
type BuildMode int

const (
	BuildGenerating BuildMode = iota
	BuildSplicing
)

// Build appends approximately n instructions using generators (spec.md
// §4.2 "build(n, by)"). Budgets are approximate because a generator may
// open a block that must be closed, consuming more than one instruction
// slot. Splicing mode is handled by Splice directly; Build(n, BuildSplicing)
// with no source programs is a no-op.
func (b *Builder) Build(n int, mode BuildMode, generators []Generator, sources []*il.Program) {
	switch mode {
	case BuildSplicing:
		for i := 0; i < n && len(sources) > 0; i++ {
			src := sources[b.Rng.Intn(len(sources))]
			b.Splice(src)
		}
	default:
		b.buildGenerating(n, generators)
	}
}

func (b *Builder) buildGenerating(n int, generators []Generator) {
	if len(generators) == 0 {
		return
	}
	total := 0
	for _, g := range generators {
		total += g.Weight()
	}
	if total <= 0 {
		return
	}
	emitted := 0
	for emitted < n {
		pick := b.Rng.Intn(total)
		var chosen Generator
		for _, g := range generators {
			pick -= g.Weight()
			if pick < 0 {
				chosen = g
				break
			}
		}
		if chosen == nil || !b.CurrentContext().Contains(chosen.RequiredContext()) {
			emitted++
			continue
		}
		before := len(b.code.Instructions)
		chosen.Emit(b)
		emitted += max(1, len(b.code.Instructions)-before)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// BuildPrefix seeds the program with a small pool of typed variables (one
// literal per interesting base type) so subsequent generators have inputs
// to work with — spec.md §4.2 "buildPrefix()". count defaults to 4 when 0.
func (b *Builder) BuildPrefix(count int) {
	if count <= 0 {
		count = 4
	}
	kinds := []iltype.Bits{iltype.Integer, iltype.Float, iltype.String, iltype.Boolean, iltype.Object}
	for i := 0; i < count; i++ {
		kind := kinds[i%len(kinds)]
		b.emitPrefixLiteral(kind)
	}
}

func (b *Builder) emitPrefixLiteral(kind iltype.Bits) {
	switch kind {
	case iltype.Integer:
		v := b.Env.InterestingIntegers[b.Rng.Intn(len(b.Env.InterestingIntegers))]
		b.Append(&il.LoadInteger{Value: v}, nil)
	case iltype.Float:
		v := b.Env.InterestingFloats[b.Rng.Intn(len(b.Env.InterestingFloats))]
		b.Append(&il.LoadFloat{Value: v}, nil)
	case iltype.String:
		v := b.Env.InterestingStrings[b.Rng.Intn(len(b.Env.InterestingStrings))]
		b.Append(&il.LoadString{Value: v}, nil)
	case iltype.Boolean:
		b.Append(&il.LoadBoolean{Value: b.Rng.Intn(2) == 0}, nil)
	default:
		b.Append(&il.CreateObject{}, nil)
	}
}

// FindOrGenerate returns an existing pool variable whose type bits equal
// the requested type's, or else tries generators (in random order, skipping
// those whose context is not met) and returns the first new output whose
// type is t. When neither yields one it returns (0, false); it does not
// fall back to a jsAnything-typed variable.
func (b *Builder) FindOrGenerate(t iltype.Type, generators []Generator) (il.Variable, bool) {
	if vars, ok := b.pool[t.Bits]; ok && len(vars) > 0 {
		return vars[b.Rng.Intn(len(vars))], true
	}
	for _, name := range shuffledProducerOrder(b, generators) {
		g := name
		if !b.CurrentContext().Contains(g.RequiredContext()) {
			continue
		}
		before := len(b.code.Instructions)
		if g.Emit(b) && len(b.code.Instructions) > before {
			last := b.code.Instructions[len(b.code.Instructions)-1]
			if len(last.Outputs) > 0 && b.TypeOf(last.Outputs[0]).Is(t) {
				return last.Outputs[0], true
			}
		}
	}
	return 0, false
}

func shuffledProducerOrder(b *Builder, generators []Generator) []Generator {
	out := append([]Generator(nil), generators...)
	b.Rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// MarkProbing flags v as loose — a candidate for later replacement by
// SpliceMutator (spec.md §4.2's "probing set").
func (b *Builder) MarkProbing(v il.Variable) { b.probing[v] = true }

// IsProbing reports whether v was marked loose.
func (b *Builder) IsProbing(v il.Variable) bool { return b.probing[v] }

// Splice picks a contiguous slice of instructions from src whose required
// context is satisfiable at the builder's current position, renames its
// variables to fresh ones, and appends it; holes for inputs whose source
// was defined outside the slice are filled from the current variable pool
// by type (spec.md §4.2 "splice(from: Program)"). A slice whose context
// cannot be met here, or whose blocks are not balanced, is silently
// skipped.
func (b *Builder) Splice(src *il.Program) bool {
	instrs := src.Code.Instructions
	if len(instrs) == 0 {
		return false
	}
	start := b.Rng.Intn(len(instrs))
	end := start + 1 + b.Rng.Intn(len(instrs)-start)

	depth := 0
	for _, instr := range instrs[start:end] {
		info := instr.Op.Info()
		if !b.CurrentContext().Contains(info.RequiredContext) {
			return false
		}
		// A slice that closes a block it did not open, or leaves one open,
		// would break block nesting once appended.
		if info.IsBlockEnd {
			depth--
			if depth < 0 {
				return false
			}
		}
		if info.IsBlockStart {
			depth++
		}
	}
	if depth != 0 {
		return false
	}

	remap := make(map[il.Variable]il.Variable)
	definedInSlice := make(map[il.Variable]bool)
	for _, instr := range instrs[start:end] {
		for _, v := range instr.AllOutputs() {
			definedInSlice[v] = true
		}
	}

	for _, instr := range instrs[start:end] {
		remappedInputs := make([]il.Variable, len(instr.Inputs))
		for i, v := range instr.Inputs {
			if nv, ok := remap[v]; ok {
				remappedInputs[i] = nv
				continue
			}
			if definedInSlice[v] {
				// Forward reference inside the slice to something not yet
				// remapped (shouldn't normally happen, single-definition
				// order guarantees this is seen first) — fall back to a
				// fresh hole.
				remappedInputs[i] = b.freshHole(iltype.Anything)
				continue
			}
			hole := b.findHoleFor(src, v)
			remappedInputs[i] = hole
			remap[v] = hole
		}
		out := b.Append(instr.Op, remappedInputs)
		for i, ov := range instr.AllOutputs() {
			if i < len(out) {
				remap[ov] = out[i]
			}
		}
	}
	return true
}

// findHoleFor fills a splice input whose defining instruction was outside
// the spliced slice, preferring a pool variable of the same type the
// source program recorded for v.
func (b *Builder) findHoleFor(src *il.Program, v il.Variable) il.Variable {
	want := iltype.Anything
	if payload, ok := src.CachedAnalysis(); ok {
		if res, ok := payload.(*analysis.Result); ok {
			want = res.TypeOf(v)
		}
	}
	if vars, ok := b.pool[want.Bits]; ok && len(vars) > 0 {
		return vars[b.Rng.Intn(len(vars))]
	}
	return b.freshHole(want)
}

// freshHole manufactures a placeholder value of type t when the pool has
// nothing usable — always satisfiable since jsAnything covers everything.
func (b *Builder) freshHole(t iltype.Type) il.Variable {
	switch {
	case t.Is(iltype.Of(iltype.Integer)):
		return b.Append(&il.LoadInteger{Value: 0}, nil)[0]
	case t.Is(iltype.Of(iltype.String)):
		return b.Append(&il.LoadString{Value: ""}, nil)[0]
	default:
		return b.Append(&il.LoadUndefined{}, nil)[0]
	}
}

// Finalize renumbers instruction indices densely, verifies
// invariants, and returns an immutable Program — spec.md §4.2 "finalize()".
// It panics if the accumulated Code violates an IL invariant, since that
// indicates a bug in a generator or mutator, not malformed user input.
func (b *Builder) Finalize() *il.Program {
	b.code.Renumber()
	if err := b.code.Validate(); err != nil {
		panic(err)
	}
	prog := il.New(b.code)
	result := b.analyzer.Analyze(&prog.Code, analysis.State{})
	prog.SetCachedAnalysis(result)
	return prog
}
