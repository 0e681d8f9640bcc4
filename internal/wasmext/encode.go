package wasmext

import "fmt"

// Wasm binary format section identifiers this encoder emits (the Wasm
// core spec's module-level section IDs).
const (
	sectionType     = 1
	sectionFunction = 3
	sectionExport   = 7
	sectionCode     = 10
)

const (
	valTypeI32   = 0x7F
	funcTypeForm = 0x60
	exportKindFn = 0x00

	opLocalGet = 0x20
	opLocalSet = 0x21
	opReturn   = 0x0F
	opEnd      = 0x0B
)

// Encode renders m as a minimal, valid WebAssembly binary module: one
// function type, one function, and one export per Function, wasmer-go
// can load directly.
func (m Module) Encode() ([]byte, error) {
	var typeSec, funcSec, exportSec, codeSec []byte
	typeSec = appendULEB128(typeSec, uint64(len(m.Functions)))
	funcSec = appendULEB128(funcSec, uint64(len(m.Functions)))
	exportSec = appendULEB128(exportSec, uint64(len(m.Functions)))
	codeSec = appendULEB128(codeSec, uint64(len(m.Functions)))

	for i, fn := range m.Functions {
		typeSec = append(typeSec, funcTypeForm)
		typeSec = appendULEB128(typeSec, uint64(fn.NumParams))
		for p := 0; p < fn.NumParams; p++ {
			typeSec = append(typeSec, valTypeI32)
		}
		typeSec = appendULEB128(typeSec, 1)
		typeSec = append(typeSec, valTypeI32)

		funcSec = appendULEB128(funcSec, uint64(i))

		name := fn.Export
		if name == "" {
			name = fmt.Sprintf("f%d", i)
		}
		exportSec = appendULEB128(exportSec, uint64(len(name)))
		exportSec = append(exportSec, name...)
		exportSec = append(exportSec, exportKindFn)
		exportSec = appendULEB128(exportSec, uint64(i))

		body, err := fn.encodeBody()
		if err != nil {
			return nil, fmt.Errorf("wasmext: encoding function %d: %w", i, err)
		}
		codeSec = append(codeSec, body...)
	}

	out := make([]byte, 0, 8+len(typeSec)+len(funcSec)+len(exportSec)+len(codeSec)+16)
	out = append(out, 0x00, 0x61, 0x73, 0x6D) // magic: "\0asm"
	out = append(out, 0x01, 0x00, 0x00, 0x00) // version 1
	out = appendSection(out, sectionType, typeSec)
	out = appendSection(out, sectionFunction, funcSec)
	out = appendSection(out, sectionExport, exportSec)
	out = appendSection(out, sectionCode, codeSec)
	return out, nil
}

func (fn Function) localIndex(ref ValueRef) uint64 {
	if ref.IsParam {
		return uint64(ref.Index)
	}
	return uint64(fn.NumParams + ref.Index)
}

// encodeBody renders one size-prefixed function body: its locals
// declaration (one extra i32 per Op, beyond the NumParams locals implied
// by the function's parameters) followed by the instructions implementing
// Ops in order and finally Return.
func (fn Function) encodeBody() ([]byte, error) {
	var code []byte
	for i, op := range fn.Ops {
		opcode, err := op.BinOp.wasmOpcode()
		if err != nil {
			return nil, err
		}
		code = append(code, opLocalGet)
		code = appendULEB128(code, fn.localIndex(op.Lhs))
		code = append(code, opLocalGet)
		code = appendULEB128(code, fn.localIndex(op.Rhs))
		code = append(code, opcode)
		code = append(code, opLocalSet)
		code = appendULEB128(code, uint64(fn.NumParams+i))
	}
	code = append(code, opLocalGet)
	code = appendULEB128(code, fn.localIndex(fn.Return))
	code = append(code, opReturn, opEnd)

	var locals []byte
	if len(fn.Ops) == 0 {
		locals = appendULEB128(locals, 0)
	} else {
		locals = appendULEB128(locals, 1)
		locals = appendULEB128(locals, uint64(len(fn.Ops)))
		locals = append(locals, valTypeI32)
	}

	full := append(locals, code...)
	sized := appendULEB128(nil, uint64(len(full)))
	return append(sized, full...), nil
}

func appendSection(b []byte, id byte, content []byte) []byte {
	b = append(b, id)
	b = appendULEB128(b, uint64(len(content)))
	return append(b, content...)
}

// appendULEB128 appends v to b as an unsigned LEB128 varint, the Wasm
// binary format's integer encoding for section sizes, vector counts, and
// indices.
func appendULEB128(b []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b = append(b, c|0x80)
		} else {
			return append(b, c)
		}
	}
}
