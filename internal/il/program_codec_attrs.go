package il

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

// encodeAttrs serializes a concrete Operation's mutable attributes (spec.md
// §3 "fixed attributes"). Operations with no attributes (most control-flow
// and block-end opcodes) encode to an empty blob.
func encodeAttrs(op Operation) []byte {
	var b []byte
	switch o := op.(type) {
	case *LoadInteger:
		b = protowire.AppendVarint(b, uint64(o.Value))
	case *LoadFloat:
		b = protowire.AppendFixed64(b, math.Float64bits(o.Value))
	case *LoadBigInt:
		b = protowire.AppendString(b, o.Value)
	case *LoadString:
		b = protowire.AppendString(b, o.Value)
	case *LoadBoolean:
		b = protowire.AppendVarint(b, boolToVarint(o.Value))
	case *LoadRegExp:
		b = protowire.AppendString(b, o.Pattern)
		b = protowire.AppendString(b, o.Flags)
	case *LoadBuiltin:
		b = protowire.AppendString(b, o.Name_)
	case *CreateObject:
		b = appendStrings(b, o.Keys)
	case *BinaryOperation:
		b = protowire.AppendVarint(b, uint64(o.Op))
	case *UnaryOperation:
		b = protowire.AppendVarint(b, uint64(o.Op))
	case *CompareOperation:
		b = protowire.AppendVarint(b, uint64(o.Op))
	case *GetProperty:
		b = protowire.AppendString(b, o.Name_)
		b = protowire.AppendVarint(b, boolToVarint(o.Guarded))
	case *SetProperty:
		b = protowire.AppendString(b, o.Name_)
		b = protowire.AppendVarint(b, boolToVarint(o.Guarded))
	case *DeleteProperty:
		b = protowire.AppendString(b, o.Name_)
		b = protowire.AppendVarint(b, boolToVarint(o.Guarded))
	case *CallMethod:
		b = protowire.AppendString(b, o.Name_)
		b = protowire.AppendVarint(b, boolToVarint(o.Guarded))
		b = protowire.AppendVarint(b, uint64(o.Arity))
	case *CallFunction:
		b = protowire.AppendVarint(b, boolToVarint(o.Guarded))
		b = protowire.AppendVarint(b, uint64(o.Arity))
	case *Construct:
		b = protowire.AppendVarint(b, boolToVarint(o.Guarded))
		b = protowire.AppendVarint(b, uint64(o.Arity))
	case *Eval:
		b = protowire.AppendVarint(b, uint64(o.Arity))
	case *BeginPlainFunction:
		b = appendSignature(b, o.Signature)
		b = protowire.AppendVarint(b, uint64(o.Kind))
		b = protowire.AppendVarint(b, boolToVarint(o.IsStrict))
	case *Return:
		b = protowire.AppendVarint(b, boolToVarint(o.HasValue))
	case *Yield:
		b = protowire.AppendVarint(b, boolToVarint(o.HasValue))
	case *BeginSwitchCase:
		b = protowire.AppendVarint(b, boolToVarint(o.IsDefault))
	case *BeginClassDefinition:
		b = protowire.AppendVarint(b, boolToVarint(o.HasSuperclass))
	case *BeginMethodDefinition:
		b = protowire.AppendString(b, o.Name_)
		b = protowire.AppendVarint(b, uint64(o.Kind))
		b = appendSignature(b, o.Signature)
	case *DestructureArray:
		b = protowire.AppendVarint(b, boolToVarint(o.HasRest))
	case *DestructureObject:
		b = appendStrings(b, o.Keys)
		b = protowire.AppendVarint(b, boolToVarint(o.HasRest))
	case *CreateTypedArray:
		b = protowire.AppendVarint(b, uint64(o.Kind))
	case *LoadElement:
		b = protowire.AppendVarint(b, boolToVarint(o.Guarded))
	case *StoreElement:
		b = protowire.AppendVarint(b, boolToVarint(o.Guarded))
	case *InstallProbe:
		b = protowire.AppendVarint(b, uint64(o.ID))
	case *BeginWasmFunction:
		b = protowire.AppendVarint(b, uint64(o.NumParams))
	case *WasmBinaryOperation:
		b = protowire.AppendVarint(b, uint64(o.Op))
	}
	return b
}

// decodeAttrs populates a freshly allocated Operation (from newForTag) with
// the attributes encoded by encodeAttrs.
func decodeAttrs(op Operation, b []byte) error {
	switch o := op.(type) {
	case *LoadInteger:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Value = int64(v)
	case *LoadFloat:
		v, m := protowire.ConsumeFixed64(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Value = math.Float64frombits(v)
	case *LoadBigInt:
		s, m := protowire.ConsumeString(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Value = s
	case *LoadString:
		s, m := protowire.ConsumeString(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Value = s
	case *LoadBoolean:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Value = v != 0
	case *LoadRegExp:
		rest := b
		var m int
		o.Pattern, m = protowire.ConsumeString(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		rest = rest[m:]
		o.Flags, m = protowire.ConsumeString(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
	case *LoadBuiltin:
		s, m := protowire.ConsumeString(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Name_ = s
	case *CreateObject:
		keys, _, err := consumeStrings(b)
		if err != nil {
			return err
		}
		o.Keys = keys
	case *BinaryOperation:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Op = BinaryOp(v)
	case *UnaryOperation:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Op = UnaryOp(v)
	case *CompareOperation:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Op = CompareOp(v)
	case *GetProperty:
		rest := b
		var m int
		o.Name_, m = protowire.ConsumeString(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		rest = rest[m:]
		g, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Guarded = g != 0
	case *SetProperty:
		rest := b
		var m int
		o.Name_, m = protowire.ConsumeString(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		rest = rest[m:]
		g, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Guarded = g != 0
	case *DeleteProperty:
		rest := b
		var m int
		o.Name_, m = protowire.ConsumeString(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		rest = rest[m:]
		g, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Guarded = g != 0
	case *CallMethod:
		rest := b
		var m int
		o.Name_, m = protowire.ConsumeString(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		rest = rest[m:]
		g, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Guarded = g != 0
		rest = rest[m:]
		a, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Arity = int(a)
	case *CallFunction:
		rest := b
		g, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Guarded = g != 0
		rest = rest[m:]
		a, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Arity = int(a)
	case *Construct:
		rest := b
		g, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Guarded = g != 0
		rest = rest[m:]
		a, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Arity = int(a)
	case *Eval:
		a, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Arity = int(a)
	case *BeginPlainFunction:
		sig, rest, err := consumeSignature(b)
		if err != nil {
			return err
		}
		o.Signature = sig
		k, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Kind = FunctionKind(k)
		rest = rest[m:]
		s, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.IsStrict = s != 0
	case *Return:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.HasValue = v != 0
	case *Yield:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.HasValue = v != 0
	case *BeginSwitchCase:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.IsDefault = v != 0
	case *BeginClassDefinition:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.HasSuperclass = v != 0
	case *BeginMethodDefinition:
		rest := b
		var m int
		o.Name_, m = protowire.ConsumeString(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		rest = rest[m:]
		k, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Kind = MethodKind(k)
		rest = rest[m:]
		sig, _, err := consumeSignature(rest)
		if err != nil {
			return err
		}
		o.Signature = sig
	case *DestructureArray:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.HasRest = v != 0
	case *DestructureObject:
		keys, rest, err := consumeStrings(b)
		if err != nil {
			return err
		}
		o.Keys = keys
		v, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.HasRest = v != 0
	case *CreateTypedArray:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Kind = TypedArrayKind(v)
	case *LoadElement:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Guarded = v != 0
	case *StoreElement:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Guarded = v != 0
	case *InstallProbe:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.ID = uint32(v)
	case *BeginWasmFunction:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.NumParams = int(v)
	case *WasmBinaryOperation:
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		o.Op = BinaryOp(v)
	}
	return nil
}

func boolToVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func appendStrings(b []byte, strs []string) []byte {
	b = protowire.AppendVarint(b, uint64(len(strs)))
	for _, s := range strs {
		b = protowire.AppendString(b, s)
	}
	return b
}

func consumeStrings(b []byte) ([]string, []byte, error) {
	n, m := protowire.ConsumeVarint(b)
	if m < 0 {
		return nil, nil, protowire.ParseError(m)
	}
	b = b[m:]
	out := make([]string, n)
	for i := range out {
		s, m := protowire.ConsumeString(b)
		if m < 0 {
			return nil, nil, protowire.ParseError(m)
		}
		out[i] = s
		b = b[m:]
	}
	return out, b, nil
}

// appendSignature/consumeSignature encode an iltype.Signature: a count of
// parameters, each (kind, type-bits, group-name), followed by the return
// type's (bits, group-name). Only the base bits and group name round-trip
// through the wire format — sufficient for the analyzer to re-derive
// everything else a generator needs, matching how the rest of the program
// binary format favors structure over exhaustive extension round-tripping.
func appendSignature(b []byte, sig iltype.Signature) []byte {
	b = protowire.AppendVarint(b, uint64(len(sig.Params)))
	for _, p := range sig.Params {
		b = protowire.AppendVarint(b, uint64(p.Kind))
		b = appendType(b, p.Type)
	}
	b = appendType(b, sig.Return)
	return b
}

func consumeSignature(b []byte) (iltype.Signature, []byte, error) {
	n, m := protowire.ConsumeVarint(b)
	if m < 0 {
		return iltype.Signature{}, nil, protowire.ParseError(m)
	}
	b = b[m:]
	params := make([]iltype.Parameter, n)
	for i := range params {
		k, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return iltype.Signature{}, nil, protowire.ParseError(m)
		}
		b = b[m:]
		t, rest, err := consumeType(b)
		if err != nil {
			return iltype.Signature{}, nil, err
		}
		params[i] = iltype.Parameter{Kind: iltype.ParameterKind(k), Type: t}
		b = rest
	}
	ret, rest, err := consumeType(b)
	if err != nil {
		return iltype.Signature{}, nil, err
	}
	return iltype.Signature{Params: params, Return: ret}, rest, nil
}

func appendType(b []byte, t iltype.Type) []byte {
	b = protowire.AppendVarint(b, uint64(t.Bits))
	if t.Ext != nil {
		b = protowire.AppendVarint(b, 1)
		b = protowire.AppendString(b, t.Ext.Group)
	} else {
		b = protowire.AppendVarint(b, 0)
	}
	return b
}

func consumeType(b []byte) (iltype.Type, []byte, error) {
	bits, m := protowire.ConsumeVarint(b)
	if m < 0 {
		return iltype.Type{}, nil, protowire.ParseError(m)
	}
	b = b[m:]
	hasExt, m := protowire.ConsumeVarint(b)
	if m < 0 {
		return iltype.Type{}, nil, protowire.ParseError(m)
	}
	b = b[m:]
	if hasExt == 0 {
		return iltype.Of(iltype.Bits(bits)), b, nil
	}
	group, m := protowire.ConsumeString(b)
	if m < 0 {
		return iltype.Type{}, nil, protowire.ParseError(m)
	}
	b = b[m:]
	return iltype.WithExtension(iltype.Bits(bits), iltype.NewExtension(group, nil, nil, nil)), b, nil
}
