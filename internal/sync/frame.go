// Package sync implements the distributed synchronization tree of
// spec.md §4.10: root/intermediate/leaf nodes connected over TCP via
// libp2p streams, exchanging length-prefixed tagged frames so that every
// node's corpus converges and crashes bubble up to the root. It is
// grounded on internal/network/mesh.go — the same
// libp2p.New/SetStreamHandler/NewStream pattern, generalized from one
// fixed "/packet/1.0.0" request/response exchange into a long-lived,
// bidirectional session per peer.
package sync

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// Tag identifies a sync message kind (spec.md §6 "Sync protocol").
type Tag byte

const (
	TagCorpusSample Tag = 0x01
	TagCrash        Tag = 0x02
	TagStatistics   Tag = 0x03
	TagKeepAlive    Tag = 0x04
)

// maxFrameSize bounds a single frame's payload, generous over any one
// program or crash blob this fuzzer ever produces.
const maxFrameSize = 64 << 20

// Frame is one message on a sync connection: spec.md §6's
// "{u32 length, u8 tag, u8[length-1] payload}".
type Frame struct {
	Tag     Tag
	Payload []byte
}

// WriteFrame writes f to w in the wire layout spec.md §6 specifies. The
// length word is built with protowire's fixed32 codec rather than a
// bespoke binary.BigEndian call, keeping the sync wire format on the same
// encoding library the program binary format (§6) already pulls in.
func WriteFrame(w io.Writer, f Frame) error {
	length := uint32(len(f.Payload) + 1)
	buf := protowire.AppendFixed32(make([]byte, 0, 4+len(f.Payload)+1), length)
	buf = append(buf, byte(f.Tag))
	buf = append(buf, f.Payload...)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame from r, blocking until a full frame (or an
// error) is available.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}
	length, n := protowire.ConsumeFixed32(header[:])
	if n < 0 {
		return Frame{}, fmt.Errorf("sync: malformed frame length header")
	}
	if length == 0 || length > maxFrameSize {
		return Frame{}, fmt.Errorf("sync: frame length %d out of range", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, err
	}
	return Frame{Tag: Tag(body[0]), Payload: body[1:]}, nil
}
