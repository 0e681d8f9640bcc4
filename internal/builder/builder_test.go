package builder_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

func newEnv() *environment.Environment {
	e := environment.New()
	e.Load(environment.DefaultProfile{})
	return e
}

func newBuilder(seed int64) *builder.Builder {
	return builder.New(newEnv(), rand.New(rand.NewSource(seed)))
}

func TestNew_StartsInScriptContext(t *testing.T) {
	b := newBuilder(1)
	require.Equal(t, il.ContextScript, b.CurrentContext())
}

func TestAppend_AssignsOutputsAndRecordsType(t *testing.T) {
	b := newBuilder(1)
	outs := b.Append(&il.LoadInteger{Value: 42}, nil)
	require.Len(t, outs, 1)
	require.True(t, b.TypeOf(outs[0]).Is(iltype.Of(iltype.Integer)))
	require.Len(t, b.Instructions(), 1)
}

func TestAppend_UnknownVariableIsAnything(t *testing.T) {
	b := newBuilder(1)
	require.Equal(t, iltype.Anything, b.TypeOf(il.Variable(999)))
}

func TestAppend_RejectsWrongContext(t *testing.T) {
	b := newBuilder(1)
	// Break requires ContextLoop, which the top-level script context lacks.
	outs := b.Append(&il.Break{}, nil)
	require.Nil(t, outs)
	require.Empty(t, b.Instructions())
}

func TestAppend_RejectsArityViolation(t *testing.T) {
	b := newBuilder(1)
	v := b.Append(&il.LoadInteger{Value: 1}, nil)[0]
	// BeginIf wants exactly one input; give it two.
	outs := b.Append(&il.BeginIf{}, []il.Variable{v, v})
	require.Nil(t, outs)
}

func TestAppend_BlockOpensAndContributesContext(t *testing.T) {
	b := newBuilder(1)
	cond := b.Append(&il.LoadBoolean{Value: true}, nil)[0]

	require.Empty(t, b.Append(&il.Continue{}, nil))

	b.Append(&il.BeginWhile{}, []il.Variable{cond})
	require.True(t, b.CurrentContext().Contains(il.ContextLoop))

	// Continue is now legal because BeginWhile contributed ContextLoop.
	out := b.Append(&il.Continue{}, nil)
	require.NotNil(t, out)

	b.Append(&il.EndWhile{}, nil)
	require.False(t, b.CurrentContext().Contains(il.ContextLoop))
}

func TestAppend_PopScopeDropsVarsFromPool(t *testing.T) {
	b := newBuilder(1)
	cond := b.Append(&il.LoadBoolean{Value: true}, nil)[0]
	b.Append(&il.BeginWhile{}, []il.Variable{cond})
	inner := b.Append(&il.LoadString{Value: "inside"}, nil)[0]
	b.Append(&il.EndWhile{}, nil)

	// inner was defined inside the loop body; FindOrGenerate with no
	// generators must not be able to see it once the scope closed.
	got, ok := b.FindOrGenerate(iltype.Of(iltype.String), nil)
	require.False(t, ok)
	require.NotEqual(t, inner, got)
}

func TestBuildPrefix_DefaultsToFourAndSeedsTypedPool(t *testing.T) {
	b := newBuilder(1)
	b.BuildPrefix(0)
	require.Len(t, b.Instructions(), 4)

	_, ok := b.FindOrGenerate(iltype.Of(iltype.Integer), nil)
	require.True(t, ok)
}

func TestBuildPrefix_CustomCount(t *testing.T) {
	b := newBuilder(1)
	b.BuildPrefix(6)
	require.Len(t, b.Instructions(), 6)
}

func TestFindOrGenerate_ReturnsPoolMemberWithoutGenerating(t *testing.T) {
	b := newBuilder(2)
	want := b.Append(&il.LoadInteger{Value: 7}, nil)[0]
	before := len(b.Instructions())

	got, ok := b.FindOrGenerate(iltype.Of(iltype.Integer), nil)
	require.True(t, ok)
	require.Equal(t, want, got)
	require.Len(t, b.Instructions(), before, "must not append new instructions when the pool already satisfies the request")
}

func TestFindOrGenerate_NotFoundWithoutProducer(t *testing.T) {
	b := newBuilder(3)
	_, ok := b.FindOrGenerate(iltype.Of(iltype.Boolean), nil)
	require.False(t, ok)
}

// stubGenerator always emits a single pure instruction of a fixed kind, for
// exercising Build/FindOrGenerate's generator-driving paths without pulling
// in the full internal/codegen registry.
type stubGenerator struct {
	name   string
	weight int
	reqCtx il.Context
	emit   func(b *builder.Builder) bool
}

func (g stubGenerator) Name() string              { return g.name }
func (g stubGenerator) RequiredContext() il.Context { return g.reqCtx }
func (g stubGenerator) Weight() int                { return g.weight }
func (g stubGenerator) Emit(b *builder.Builder) bool { return g.emit(b) }

func loadStringGen() stubGenerator {
	return stubGenerator{
		name:   "loadString",
		weight: 1,
		emit: func(b *builder.Builder) bool {
			b.Append(&il.LoadString{Value: "generated"}, nil)
			return true
		},
	}
}

func TestBuild_GeneratingModeInvokesGenerators(t *testing.T) {
	b := newBuilder(4)
	gens := []builder.Generator{loadStringGen()}
	b.Build(3, builder.BuildGenerating, gens, nil)
	require.Len(t, b.Instructions(), 3)
}

func TestBuild_GeneratingModeNoGeneratorsIsNoop(t *testing.T) {
	b := newBuilder(4)
	b.Build(3, builder.BuildGenerating, nil, nil)
	require.Empty(t, b.Instructions())
}

func TestFindOrGenerate_UsesProducingGenerator(t *testing.T) {
	b := newBuilder(5)
	gens := []builder.Generator{loadStringGen()}
	got, ok := b.FindOrGenerate(iltype.Of(iltype.String), gens)
	require.True(t, ok)
	require.True(t, b.TypeOf(got).Is(iltype.Of(iltype.String)))
}

func TestMarkProbingAndIsProbing(t *testing.T) {
	b := newBuilder(1)
	v := b.Append(&il.LoadInteger{Value: 1}, nil)[0]
	require.False(t, b.IsProbing(v))
	b.MarkProbing(v)
	require.True(t, b.IsProbing(v))
}

func TestSplice_AppendsRemappedInstructions(t *testing.T) {
	src := newBuilder(10)
	src.BuildPrefix(4)
	srcProg := src.Finalize()

	dst := newBuilder(11)
	ok := dst.Splice(srcProg)
	require.True(t, ok)
	require.NotEmpty(t, dst.Instructions())
}

func TestSplice_EmptySourceIsFalse(t *testing.T) {
	src := newBuilder(1)
	srcProg := src.Finalize()

	dst := newBuilder(2)
	require.False(t, dst.Splice(srcProg))
}

func TestFinalize_RenumbersAndValidates(t *testing.T) {
	b := newBuilder(1)
	b.BuildPrefix(3)
	prog := b.Finalize()

	for i, instr := range prog.Code.Instructions {
		require.Equal(t, i, instr.Index)
	}
	_, ok := prog.CachedAnalysis()
	require.True(t, ok)
}

func TestBuild_SplicingModeWithSources(t *testing.T) {
	src := newBuilder(20)
	src.BuildPrefix(4)
	srcProg := src.Finalize()

	dst := newBuilder(21)
	dst.Build(2, builder.BuildSplicing, nil, []*il.Program{srcProg})
	require.NotEmpty(t, dst.Instructions())
}

func TestBuild_SplicingModeNoSourcesIsNoop(t *testing.T) {
	dst := newBuilder(1)
	dst.Build(2, builder.BuildSplicing, nil, nil)
	require.Empty(t, dst.Instructions())
}
