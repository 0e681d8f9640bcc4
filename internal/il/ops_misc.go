package il

// DestructureArray binds input[0]'s elements positionally; InnerOutputs
// holds one variable per destructured slot (spec.md §4.3 "destructuring").
type DestructureArray struct{ HasRest bool }

func (DestructureArray) Name() string { return "DestructureArray" }
func (o DestructureArray) Info() OpInfo {
	return OpInfo{MinInputs: 1, MaxInputs: 1}
}

// DestructureObject binds input[0]'s named properties; Keys pairs each
// inner-output with the property name it was bound from.
type DestructureObject struct {
	Keys    []string
	HasRest bool
}

func (DestructureObject) Name() string { return "DestructureObject" }
func (DestructureObject) Info() OpInfo {
	return OpInfo{MinInputs: 1, MaxInputs: 1}
}

// CreateTypedArray builds e.g. `new Int32Array(input[0])`.
type TypedArrayKind int

const (
	TAInt8 TypedArrayKind = iota
	TAUint8
	TAInt32
	TAUint32
	TAFloat32
	TAFloat64
)

type CreateTypedArray struct{ Kind TypedArrayKind }

func (CreateTypedArray) Name() string { return "CreateTypedArray" }
func (CreateTypedArray) Info() OpInfo {
	return OpInfo{MinInputs: 1, MaxInputs: 1, NumOutputs: 1, IsPure: true}
}

// LoadElement reads `input[0][input[1]]` (integer-indexed element access,
// distinct from GetProperty's named-property access).
type LoadElement struct{ Guarded bool }

func (LoadElement) Name() string { return "LoadElement" }
func (LoadElement) Info() OpInfo {
	return OpInfo{MinInputs: 2, MaxInputs: 2, NumOutputs: 1, IsGuardable: true}
}

// StoreElement writes `input[0][input[1]] = input[2]`.
type StoreElement struct{ Guarded bool }

func (StoreElement) Name() string { return "StoreElement" }
func (StoreElement) Info() OpInfo {
	return OpInfo{MinInputs: 3, MaxInputs: 3, IsGuardable: true}
}

// InstallProbe instruments the value produced at this point so that a
// second execution of the (instrumented) program reports back what types
// and shapes actually flowed through it. ExplorationMutator and
// ProbeMutator insert these and later replace them with concrete,
// probe-informed operations (spec.md §4.4).
type InstallProbe struct {
	// ID correlates this probe with its runtime-reported observation.
	ID uint32
}

func (InstallProbe) Name() string { return "InstallProbe" }
func (InstallProbe) Info() OpInfo {
	return OpInfo{MinInputs: 1, MaxInputs: 1, NumOutputs: 1}
}
