// Binary Program format (spec.md §6): self-describing, versioned, ordered
// list of (opcode, attr-blob, input-count, output-count) records plus a
// closing checksum, round-tripping to a structurally identical Program.
//
// Built on google.golang.org/protobuf/encoding/protowire's low-level
// varint/length-delimited primitives — the same wire-encoding building
// blocks proto.Marshal/proto.Unmarshal calls
// (cmd/inos-node/main.go) compile down to — rather than a bespoke format.
package il

import (
	"crypto/sha256"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

const formatVersion = 1

// opcodeTable assigns each concrete Operation a stable numeric tag. Order
// matters for wire compatibility across versions; new opcodes are appended,
// never inserted, and never reused after removal.
var opcodeTable = []struct {
	tag  uint64
	name string
	new  func() Operation
}{
	{1, "LoadInteger", func() Operation { return &LoadInteger{} }},
	{2, "LoadFloat", func() Operation { return &LoadFloat{} }},
	{3, "LoadBigInt", func() Operation { return &LoadBigInt{} }},
	{4, "LoadString", func() Operation { return &LoadString{} }},
	{5, "LoadBoolean", func() Operation { return &LoadBoolean{} }},
	{6, "LoadUndefined", func() Operation { return &LoadUndefined{} }},
	{7, "LoadNull", func() Operation { return &LoadNull{} }},
	{8, "LoadRegExp", func() Operation { return &LoadRegExp{} }},
	{9, "LoadBuiltin", func() Operation { return &LoadBuiltin{} }},
	{10, "CreateArray", func() Operation { return &CreateArray{} }},
	{11, "CreateObject", func() Operation { return &CreateObject{} }},
	{12, "Nop", func() Operation { return &Nop{} }},
	{13, "BinaryOperation", func() Operation { return &BinaryOperation{} }},
	{14, "UnaryOperation", func() Operation { return &UnaryOperation{} }},
	{15, "CompareOperation", func() Operation { return &CompareOperation{} }},
	{16, "GetProperty", func() Operation { return &GetProperty{} }},
	{17, "SetProperty", func() Operation { return &SetProperty{} }},
	{18, "DeleteProperty", func() Operation { return &DeleteProperty{} }},
	{19, "CallMethod", func() Operation { return &CallMethod{} }},
	{20, "CallFunction", func() Operation { return &CallFunction{} }},
	{21, "Construct", func() Operation { return &Construct{} }},
	{22, "Throw", func() Operation { return &Throw{} }},
	{23, "With", func() Operation { return &With{} }},
	{24, "EndWith", func() Operation { return &EndWith{} }},
	{25, "Eval", func() Operation { return &Eval{} }},
	{26, "BeginPlainFunction", func() Operation { return &BeginPlainFunction{} }},
	{27, "EndPlainFunction", func() Operation { return &EndPlainFunction{} }},
	{28, "Return", func() Operation { return &Return{} }},
	{29, "Yield", func() Operation { return &Yield{} }},
	{30, "Await", func() Operation { return &Await{} }},
	{31, "BeginIf", func() Operation { return &BeginIf{} }},
	{32, "BeginElse", func() Operation { return &BeginElse{} }},
	{33, "EndIf", func() Operation { return &EndIf{} }},
	{34, "BeginWhile", func() Operation { return &BeginWhile{} }},
	{35, "EndWhile", func() Operation { return &EndWhile{} }},
	{36, "BeginDoWhile", func() Operation { return &BeginDoWhile{} }},
	{37, "EndDoWhile", func() Operation { return &EndDoWhile{} }},
	{38, "BeginFor", func() Operation { return &BeginFor{} }},
	{39, "EndFor", func() Operation { return &EndFor{} }},
	{40, "BeginForIn", func() Operation { return &BeginForIn{} }},
	{41, "EndForIn", func() Operation { return &EndForIn{} }},
	{42, "BeginForOf", func() Operation { return &BeginForOf{} }},
	{43, "EndForOf", func() Operation { return &EndForOf{} }},
	{44, "Break", func() Operation { return &Break{} }},
	{45, "Continue", func() Operation { return &Continue{} }},
	{46, "BeginSwitch", func() Operation { return &BeginSwitch{} }},
	{47, "BeginSwitchCase", func() Operation { return &BeginSwitchCase{} }},
	{48, "EndSwitch", func() Operation { return &EndSwitch{} }},
	{49, "BeginTry", func() Operation { return &BeginTry{} }},
	{50, "BeginCatch", func() Operation { return &BeginCatch{} }},
	{51, "BeginFinally", func() Operation { return &BeginFinally{} }},
	{52, "EndTryCatchFinally", func() Operation { return &EndTryCatchFinally{} }},
	{53, "BeginClassDefinition", func() Operation { return &BeginClassDefinition{} }},
	{54, "EndClassDefinition", func() Operation { return &EndClassDefinition{} }},
	{55, "BeginMethodDefinition", func() Operation { return &BeginMethodDefinition{} }},
	{56, "EndMethodDefinition", func() Operation { return &EndMethodDefinition{} }},
	{57, "DestructureArray", func() Operation { return &DestructureArray{} }},
	{58, "DestructureObject", func() Operation { return &DestructureObject{} }},
	{59, "CreateTypedArray", func() Operation { return &CreateTypedArray{} }},
	{60, "LoadElement", func() Operation { return &LoadElement{} }},
	{61, "StoreElement", func() Operation { return &StoreElement{} }},
	{62, "InstallProbe", func() Operation { return &InstallProbe{} }},
	{63, "BeginWasmModule", func() Operation { return &BeginWasmModule{} }},
	{64, "EndWasmModule", func() Operation { return &EndWasmModule{} }},
	{65, "BeginWasmFunction", func() Operation { return &BeginWasmFunction{} }},
	{66, "EndWasmFunction", func() Operation { return &EndWasmFunction{} }},
	{67, "WasmReturn", func() Operation { return &WasmReturn{} }},
	{68, "WasmBinaryOperation", func() Operation { return &WasmBinaryOperation{} }},
}

func tagForName(name string) (uint64, bool) {
	for _, e := range opcodeTable {
		if e.name == name {
			return e.tag, true
		}
	}
	return 0, false
}

func newForTag(tag uint64) (Operation, bool) {
	for _, e := range opcodeTable {
		if e.tag == tag {
			return e.new(), true
		}
	}
	return nil, false
}

// Encode serializes a Program to the stable binary format described in
// spec.md §6.
func (p *Program) Encode() ([]byte, error) {
	var body []byte
	body = protowire.AppendVarint(body, formatVersion)
	body = protowire.AppendVarint(body, uint64(len(p.Code.Instructions)))

	for idx, instr := range p.Code.Instructions {
		tag, ok := tagForName(instr.Op.Name())
		if !ok {
			return nil, fmt.Errorf("encode: unknown opcode %q at instruction %d", instr.Op.Name(), idx)
		}
		body = protowire.AppendVarint(body, tag)
		attrs := encodeAttrs(instr.Op)
		body = protowire.AppendBytes(body, attrs)
		body = appendVarVars(body, instr.Inputs)
		body = appendVarVars(body, instr.Outputs)
		body = appendVarVars(body, instr.InnerOutputs)
	}

	body = protowire.AppendVarint(body, uint64(len(p.Contributors)))
	for _, c := range p.Contributors {
		body = protowire.AppendString(body, c)
	}
	if p.Parent != nil {
		body = protowire.AppendVarint(body, 1)
		body = protowire.AppendBytes(body, p.Parent[:])
	} else {
		body = protowire.AppendVarint(body, 0)
	}

	checksum := sha256.Sum256(body)
	out := append(body, checksum[:]...)
	return out, nil
}

func appendVarVars(b []byte, vars []Variable) []byte {
	b = protowire.AppendVarint(b, uint64(len(vars)))
	for _, v := range vars {
		b = protowire.AppendVarint(b, uint64(v))
	}
	return b
}

func consumeVarVars(b []byte) ([]Variable, []byte, error) {
	n, m := protowire.ConsumeVarint(b)
	if m < 0 {
		return nil, nil, protowire.ParseError(m)
	}
	b = b[m:]
	vars := make([]Variable, n)
	for i := range vars {
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return nil, nil, protowire.ParseError(m)
		}
		vars[i] = Variable(v)
		b = b[m:]
	}
	return vars, b, nil
}

// DecodeProgram parses the wire format written by Program.Encode, verifying
// the trailing checksum before touching the body (spec.md §6 "closing
// checksum").
func DecodeProgram(data []byte) (*Program, error) {
	const sumLen = sha256.Size
	if len(data) < sumLen {
		return nil, fmt.Errorf("decode: truncated program (%d bytes)", len(data))
	}
	body, wantSum := data[:len(data)-sumLen], data[len(data)-sumLen:]
	gotSum := sha256.Sum256(body)
	if string(gotSum[:]) != string(wantSum) {
		return nil, fmt.Errorf("decode: checksum mismatch")
	}

	b := body
	version, m := protowire.ConsumeVarint(b)
	if m < 0 {
		return nil, protowire.ParseError(m)
	}
	b = b[m:]
	if version != formatVersion {
		return nil, fmt.Errorf("decode: unsupported format version %d", version)
	}

	count, m := protowire.ConsumeVarint(b)
	if m < 0 {
		return nil, protowire.ParseError(m)
	}
	b = b[m:]

	instrs := make([]Instruction, count)
	for i := range instrs {
		tag, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return nil, protowire.ParseError(m)
		}
		b = b[m:]

		op, ok := newForTag(tag)
		if !ok {
			return nil, fmt.Errorf("decode: unknown opcode tag %d", tag)
		}
		attrs, m := protowire.ConsumeBytes(b)
		if m < 0 {
			return nil, protowire.ParseError(m)
		}
		b = b[m:]
		if err := decodeAttrs(op, attrs); err != nil {
			return nil, fmt.Errorf("decode: instruction %d: %w", i, err)
		}

		var inputs, outputs, inner []Variable
		var err error
		if inputs, b, err = consumeVarVars(b); err != nil {
			return nil, err
		}
		if outputs, b, err = consumeVarVars(b); err != nil {
			return nil, err
		}
		if inner, b, err = consumeVarVars(b); err != nil {
			return nil, err
		}

		instrs[i] = Instruction{Op: op, Inputs: inputs, Outputs: outputs, InnerOutputs: inner, Index: i}
	}

	ncontrib, m := protowire.ConsumeVarint(b)
	if m < 0 {
		return nil, protowire.ParseError(m)
	}
	b = b[m:]
	contributors := make([]string, ncontrib)
	for i := range contributors {
		s, m := protowire.ConsumeString(b)
		if m < 0 {
			return nil, protowire.ParseError(m)
		}
		contributors[i] = s
		b = b[m:]
	}

	hasParent, m := protowire.ConsumeVarint(b)
	if m < 0 {
		return nil, protowire.ParseError(m)
	}
	b = b[m:]
	var parent *Fingerprint
	if hasParent == 1 {
		fpBytes, m := protowire.ConsumeBytes(b)
		if m < 0 {
			return nil, protowire.ParseError(m)
		}
		var fp Fingerprint
		copy(fp[:], fpBytes)
		parent = &fp
		b = b[m:]
	}

	return &Program{
		Code:         Code{Instructions: instrs},
		Contributors: contributors,
		Parent:       parent,
	}, nil
}
