package codegen_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/codegen"
	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/il"
)

func newEnv() *environment.Environment {
	env := environment.New()
	env.Load(environment.DefaultProfile{})
	return env
}

func TestDefault_NonEmptyAndNamed(t *testing.T) {
	gens := codegen.Default()
	require.NotEmpty(t, gens)
	seen := map[string]bool{}
	for _, g := range gens {
		assert.NotEmpty(t, g.Name())
		assert.False(t, seen[g.Name()], "duplicate generator name %q", g.Name())
		seen[g.Name()] = true
		assert.GreaterOrEqual(t, g.Weight(), 1)
	}
}

func TestBuild_GeneratingProducesValidProgram(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		b := builder.New(newEnv(), rand.New(rand.NewSource(seed)))
		b.BuildPrefix(6)
		b.Build(30, builder.BuildGenerating, codegen.Default(), nil)
		prog := b.Finalize()
		require.NoError(t, prog.Code.Validate())
		assert.Greater(t, prog.Size(), 0)
	}
}

func TestBuild_SplicingFromPriorProgram(t *testing.T) {
	src := builder.New(newEnv(), rand.New(rand.NewSource(1)))
	src.BuildPrefix(6)
	src.Build(30, builder.BuildGenerating, codegen.Default(), nil)
	srcProg := src.Finalize()

	dst := builder.New(newEnv(), rand.New(rand.NewSource(2)))
	dst.BuildPrefix(6)
	dst.Build(5, builder.BuildSplicing, nil, []*il.Program{srcProg})
	prog := dst.Finalize()
	require.NoError(t, prog.Code.Validate())
}
