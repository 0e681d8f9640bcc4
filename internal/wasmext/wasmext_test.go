package wasmext_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/builder"
	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/wasmext"
)

func newEnv() *environment.Environment {
	env := environment.New()
	env.Load(environment.DefaultProfile{})
	return env
}

// buildAddModule builds BeginWasmModule { BeginWasmFunction(2) {
// WasmBinaryOperation(+); WasmReturn } EndWasmFunction } EndWasmModule —
// a Wasm fragment computing the sum of its two i32 parameters.
func buildAddModule(t *testing.T) *il.Program {
	t.Helper()
	b := builder.New(newEnv(), rand.New(rand.NewSource(1)))

	b.Append(&il.BeginWasmModule{}, nil)
	b.Append(&il.BeginWasmFunction{NumParams: 2}, nil)
	params := b.Instructions()[len(b.Instructions())-1].InnerOutputs
	require.Len(t, params, 2)

	sum := b.Append(&il.WasmBinaryOperation{Op: il.OpAdd}, params)
	require.Len(t, sum, 1)
	b.Append(&il.WasmReturn{}, sum)
	b.Append(&il.EndWasmFunction{}, nil)
	b.Append(&il.EndWasmModule{}, nil)

	return b.Finalize()
}

func TestExtractModules_NoWasmIL(t *testing.T) {
	b := builder.New(newEnv(), rand.New(rand.NewSource(1)))
	b.BuildPrefix(4)
	prog := b.Finalize()

	modules, ok := wasmext.ExtractModules(prog)
	assert.False(t, ok)
	assert.Empty(t, modules)
}

func TestExtractModules_SimpleAddFunction(t *testing.T) {
	prog := buildAddModule(t)

	modules, ok := wasmext.ExtractModules(prog)
	require.True(t, ok)
	require.Len(t, modules, 1)
	require.Len(t, modules[0].Functions, 1)

	fn := modules[0].Functions[0]
	assert.Equal(t, 2, fn.NumParams)
	require.Len(t, fn.Ops, 1)
	assert.Equal(t, wasmext.OpAdd, fn.Ops[0].BinOp)
}

func TestModule_EncodeValidateExecute(t *testing.T) {
	prog := buildAddModule(t)
	modules, ok := wasmext.ExtractModules(prog)
	require.True(t, ok)
	require.Len(t, modules, 1)

	blob, err := modules[0].Encode()
	require.NoError(t, err)
	require.NotEmpty(t, blob)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}, blob[:8])

	require.NoError(t, wasmext.Validate(blob))

	result, err := wasmext.Execute(blob, "f0", 3, 4)
	require.NoError(t, err)
	assert.Equal(t, int32(7), result)
}

func TestValidateProgram_NoWasmILIsNoOp(t *testing.T) {
	b := builder.New(newEnv(), rand.New(rand.NewSource(2)))
	b.BuildPrefix(4)
	prog := b.Finalize()

	assert.NoError(t, wasmext.ValidateProgram(prog))
}

func TestValidateProgram_ValidatesEmbeddedModule(t *testing.T) {
	prog := buildAddModule(t)
	assert.NoError(t, wasmext.ValidateProgram(prog))
}
