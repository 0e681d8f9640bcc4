package templates_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/templates"
)

func newEnv() *environment.Environment {
	env := environment.New()
	env.Load(environment.DefaultProfile{})
	return env
}

func TestDefault_AllTemplatesProduceValidPrograms(t *testing.T) {
	reg := templates.Default()
	require.NotEmpty(t, reg.All())
	for _, tpl := range reg.All() {
		for seed := int64(0); seed < 5; seed++ {
			prog := tpl.Generate(newEnv(), rand.New(rand.NewSource(seed)))
			require.NoError(t, prog.Code.Validate(), "template %s seed %d", tpl.Name(), seed)
			assert.Greater(t, prog.Size(), 0)
		}
	}
}

func TestDefault_NoDuplicateNames(t *testing.T) {
	reg := templates.Default()
	seen := map[string]bool{}
	for _, tpl := range reg.All() {
		assert.False(t, seen[tpl.Name()], "duplicate template name %q", tpl.Name())
		seen[tpl.Name()] = true
	}
}

func TestGet_ReturnsRegisteredTemplate(t *testing.T) {
	reg := templates.Default()
	tpl, ok := reg.Get("ArrayBuiltinStress")
	require.True(t, ok)
	assert.Equal(t, "ArrayBuiltinStress", tpl.Name())

	_, ok = reg.Get("does-not-exist")
	assert.False(t, ok)
}

func TestStats_RecordAccumulatesRates(t *testing.T) {
	s := templates.NewStats()
	s.Record(true, true, false, 10)
	s.Record(true, false, false, 20)
	s.Record(false, false, true, 30)

	assert.Equal(t, int64(3), s.Runs())
	assert.InDelta(t, 2.0/3.0, s.CorrectnessRate(), 1e-9)
	assert.InDelta(t, 1.0/3.0, s.InterestingRate(), 1e-9)
	assert.InDelta(t, 1.0/3.0, s.TimeoutRate(), 1e-9)
	assert.InDelta(t, 20.0, s.AverageSize(), 1e-9)
}

func TestStats_ZeroRunsReportsZero(t *testing.T) {
	s := templates.NewStats()
	assert.Zero(t, s.Runs())
	assert.Zero(t, s.CorrectnessRate())
	assert.Zero(t, s.AverageSize())
}
