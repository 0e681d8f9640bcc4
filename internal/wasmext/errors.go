package wasmext

import "errors"

var (
	errUnresolvedValue      = errors.New("wasmext: operand referenced a value not yet live in this function")
	errUnterminatedFunction = errors.New("wasmext: BeginWasmFunction with no matching EndWasmFunction")
)
