package wasmext

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/jsfuzz/jsfuzz/internal/il"
)

// Validate compiles wasmBytes with wasmer, the same
// engine/store/module sequence wasm/executor.go opens
// with, stopping short of instantiation: a module that merely fails to
// compile (malformed section, bad opcode) is rejected here without
// needing an import object or an exported entry point.
func Validate(wasmBytes []byte) error {
	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)
	if _, err := wasmer.NewModule(store, wasmBytes); err != nil {
		return fmt.Errorf("wasmext: module failed to compile: %w", err)
	}
	return nil
}

// Execute compiles, instantiates, and calls the named export with args,
// generalizing the fixed-"main"-export, single-[]byte-argument/result
// Execute shape to wasmext's own encoder output: every Encode-produced
// function takes i32 parameters and returns a single i32.
func Execute(wasmBytes []byte, export string, args ...int32) (int32, error) {
	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)
	module, err := wasmer.NewModule(store, wasmBytes)
	if err != nil {
		return 0, fmt.Errorf("wasmext: module failed to compile: %w", err)
	}
	instance, err := wasmer.NewInstance(module, wasmer.NewImportObject())
	if err != nil {
		return 0, fmt.Errorf("wasmext: instantiation failed: %w", err)
	}
	fn, err := instance.Exports.GetFunction(export)
	if err != nil {
		return 0, fmt.Errorf("wasmext: export %q not found: %w", export, err)
	}

	callArgs := make([]interface{}, len(args))
	for i, a := range args {
		callArgs[i] = a
	}
	result, err := fn(callArgs...)
	if err != nil {
		return 0, fmt.Errorf("wasmext: call to %q failed: %w", export, err)
	}
	r, ok := result.(int32)
	if !ok {
		return 0, fmt.Errorf("wasmext: export %q returned %T, want int32", export, result)
	}
	return r, nil
}

// ValidateProgram extracts every Wasm module embedded in p and validates
// that each compiles; it returns the first encoding or compile error
// encountered, or nil if p carries no Wasm IL at all. internal/engine
// calls this before handing a generated program to the lifter, so a
// malformed Wasm fragment is caught host-side instead of surfacing as a
// REPRL-level crash with no diagnostic value.
func ValidateProgram(p *il.Program) error {
	modules, ok := ExtractModules(p)
	if !ok {
		return nil
	}
	for i, mod := range modules {
		blob, err := mod.Encode()
		if err != nil {
			return fmt.Errorf("wasmext: encoding module %d: %w", i, err)
		}
		if err := Validate(blob); err != nil {
			return fmt.Errorf("wasmext: module %d: %w", i, err)
		}
	}
	return nil
}
