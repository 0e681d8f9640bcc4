package il

// BeginTry opens a try block.
type BeginTry struct{}

func (BeginTry) Name() string { return "BeginTry" }
func (BeginTry) Info() OpInfo { return OpInfo{IsBlockStart: true, ContributedContext: ContextTry} }

// BeginCatch closes the try block and opens the catch block.
// InnerOutputs[0] is the catch parameter (spec.md §3 "catch parameter").
type BeginCatch struct{}

func (BeginCatch) Name() string { return "BeginCatch" }
func (BeginCatch) Info() OpInfo {
	return OpInfo{IsBlockStart: true, IsBlockEnd: true, NumInnerOutputs: 1}
}

// BeginFinally closes whichever of try/catch was open and opens finally.
type BeginFinally struct{}

func (BeginFinally) Name() string { return "BeginFinally" }
func (BeginFinally) Info() OpInfo { return OpInfo{IsBlockStart: true, IsBlockEnd: true} }

// EndTryCatchFinally closes the whole try/catch/finally statement.
type EndTryCatchFinally struct{}

func (EndTryCatchFinally) Name() string { return "EndTryCatchFinally" }
func (EndTryCatchFinally) Info() OpInfo { return OpInfo{IsBlockEnd: true} }
