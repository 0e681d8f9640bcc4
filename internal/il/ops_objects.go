package il

// GetProperty reads `input[0].Name_`. A guarded GetProperty is emitted
// wrapped in an implicit try/catch so a throw (e.g. on a getter) does not
// abort the surrounding program (spec.md §4.3 "Guarded operations").
type GetProperty struct {
	Name_   string
	Guarded bool
}

func (GetProperty) Name() string { return "GetProperty" }
func (o GetProperty) Info() OpInfo {
	return OpInfo{MinInputs: 1, MaxInputs: 1, NumOutputs: 1, IsGuardable: true, IsPure: !o.Guarded}
}

// SetProperty writes `input[0].Name_ = input[1]`.
type SetProperty struct {
	Name_   string
	Guarded bool
}

func (SetProperty) Name() string { return "SetProperty" }
func (SetProperty) Info() OpInfo {
	return OpInfo{MinInputs: 2, MaxInputs: 2, NumOutputs: 0, IsGuardable: true}
}

// DeleteProperty deletes `input[0].Name_`.
type DeleteProperty struct {
	Name_   string
	Guarded bool
}

func (DeleteProperty) Name() string { return "DeleteProperty" }
func (DeleteProperty) Info() OpInfo {
	return OpInfo{MinInputs: 1, MaxInputs: 1, NumOutputs: 1, IsGuardable: true}
}

// CallMethod calls `input[0].Name_(input[1:]...)`.
type CallMethod struct {
	Name_   string
	Guarded bool
	// Arity is the number of explicit arguments, i.e. len(inputs)-1.
	Arity int
}

func (CallMethod) Name() string { return "CallMethod" }
func (o CallMethod) Info() OpInfo {
	n := 1 + o.Arity
	return OpInfo{MinInputs: n, MaxInputs: n, NumOutputs: 1, IsGuardable: true}
}

// CallFunction calls `input[0](input[1:]...)`.
type CallFunction struct {
	Guarded bool
	Arity   int
}

func (CallFunction) Name() string { return "CallFunction" }
func (o CallFunction) Info() OpInfo {
	n := 1 + o.Arity
	return OpInfo{MinInputs: n, MaxInputs: n, NumOutputs: 1, IsGuardable: true}
}

// Construct calls `new input[0](input[1:]...)`.
type Construct struct {
	Guarded bool
	Arity   int
}

func (Construct) Name() string { return "Construct" }
func (o Construct) Info() OpInfo {
	n := 1 + o.Arity
	return OpInfo{MinInputs: n, MaxInputs: n, NumOutputs: 1, IsGuardable: true}
}

// Throw throws input[0].
type Throw struct{}

func (Throw) Name() string { return "Throw" }
func (Throw) Info() OpInfo {
	return OpInfo{MinInputs: 1, MaxInputs: 1, NumOutputs: 0, IsJump: true}
}

// With opens a `with (input[0])` block. Rarely generated; kept for
// completeness of the operation catalogue named in spec.md §4.3.
type With struct{}

func (With) Name() string { return "With" }
func (With) Info() OpInfo {
	return OpInfo{MinInputs: 1, MaxInputs: 1, NumOutputs: 0, IsBlockStart: true}
}

// EndWith closes a With block.
type EndWith struct{}

func (EndWith) Name() string { return "EndWith" }
func (EndWith) Info() OpInfo { return OpInfo{IsBlockEnd: true} }

// Eval calls the global `eval` on a freshly lifted source string.
type Eval struct{ Arity int }

func (Eval) Name() string { return "Eval" }
func (o Eval) Info() OpInfo {
	return OpInfo{MinInputs: o.Arity, MaxInputs: o.Arity, NumOutputs: 1}
}
