package il

// Wasm operations are an extension point, not a core concern (spec.md §2):
// the inventory here is intentionally minimal — enough for the builder and
// a profile to construct a trivial module and call into it — with the rest
// of a full Wasm instruction set left to internal/wasmext and future
// profiles to grow as needed.

// BeginWasmModule opens a Wasm module definition.
type BeginWasmModule struct{}

func (BeginWasmModule) Name() string { return "BeginWasmModule" }
func (BeginWasmModule) Info() OpInfo {
	return OpInfo{NumOutputs: 1, IsBlockStart: true}
}

// EndWasmModule closes a Wasm module definition. It has no outputs; the
// module's one output is defined by the matching BeginWasmModule.
type EndWasmModule struct{}

func (EndWasmModule) Name() string { return "EndWasmModule" }
func (EndWasmModule) Info() OpInfo { return OpInfo{IsBlockEnd: true} }

// BeginWasmFunction opens a function body inside a Wasm module.
type BeginWasmFunction struct{ NumParams int }

func (BeginWasmFunction) Name() string { return "BeginWasmFunction" }
func (o BeginWasmFunction) Info() OpInfo {
	return OpInfo{
		NumInnerOutputs:     o.NumParams,
		IsBlockStart:        true,
		ContributedContext:  ContextWasmFunction,
		RequiredContext:     ContextEmpty,
	}
}

// EndWasmFunction closes a Wasm function body.
type EndWasmFunction struct{}

func (EndWasmFunction) Name() string { return "EndWasmFunction" }
func (EndWasmFunction) Info() OpInfo { return OpInfo{IsBlockEnd: true} }

// WasmReturn returns input[0] from the current Wasm function.
type WasmReturn struct{}

func (WasmReturn) Name() string { return "WasmReturn" }
func (WasmReturn) Info() OpInfo {
	return OpInfo{MinInputs: 1, MaxInputs: 1, RequiredContext: ContextWasmFunction, IsJump: true}
}

// WasmBinaryOperation computes a numeric binary op within Wasm code.
type WasmBinaryOperation struct{ Op BinaryOp }

func (WasmBinaryOperation) Name() string { return "WasmBinaryOperation" }
func (WasmBinaryOperation) Info() OpInfo {
	return OpInfo{MinInputs: 2, MaxInputs: 2, NumOutputs: 1, RequiredContext: ContextWasmFunction, IsPure: true}
}
