package sync

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Crash frames bundle three fields — the crashing program's binary blob,
// the child's stderr, and its signal — into one payload, tag-length
// encoded with protowire so a future field can be added without breaking
// older peers (spec.md §6 "Crash(program_blob, stderr_blob, signal)").
const (
	crashFieldProgram = protowire.Number(1)
	crashFieldStderr  = protowire.Number(2)
	crashFieldSignal  = protowire.Number(3)
)

func encodeCrashPayload(programBlob, stderr []byte, signal int) []byte {
	var b []byte
	b = protowire.AppendTag(b, crashFieldProgram, protowire.BytesType)
	b = protowire.AppendBytes(b, programBlob)
	b = protowire.AppendTag(b, crashFieldStderr, protowire.BytesType)
	b = protowire.AppendBytes(b, stderr)
	b = protowire.AppendTag(b, crashFieldSignal, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(uint32(signal)))
	return b
}

func decodeCrashPayload(data []byte) (programBlob, stderr []byte, signal int, err error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, nil, 0, fmt.Errorf("sync: malformed crash payload tag")
		}
		data = data[n:]

		switch num {
		case crashFieldProgram:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, nil, 0, fmt.Errorf("sync: malformed crash program field")
			}
			programBlob = append([]byte(nil), v...)
			data = data[n:]
		case crashFieldStderr:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, nil, 0, fmt.Errorf("sync: malformed crash stderr field")
			}
			stderr = append([]byte(nil), v...)
			data = data[n:]
		case crashFieldSignal:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, nil, 0, fmt.Errorf("sync: malformed crash signal field")
			}
			signal = int(int32(uint32(v)))
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, nil, 0, fmt.Errorf("sync: malformed crash payload field %d", num)
			}
			data = data[n:]
		}
	}
	return programBlob, stderr, signal, nil
}
