package sync

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/libp2p/go-libp2p/core/network"

	"github.com/jsfuzz/jsfuzz/internal/logging"
)

// outboxCapacity bounds a session's pending outbound frames (spec.md §5
// "the sync outbox is bounded; on overflow oldest non-crash messages are
// dropped").
const outboxCapacity = 256

// readPollInterval is how often a blocked read wakes up to check for
// cancellation, since libp2p streams have no select-friendly done channel.
const readPollInterval = time.Second

// session owns one peer connection, in either direction: a child that
// dialed in, or our own dial out to a parent.
type session struct {
	stream network.Stream
	log    *logging.Logger

	outbox chan Frame
	done   chan struct{}
}

func newSession(stream network.Stream, log *logging.Logger) *session {
	return &session{
		stream: stream,
		log:    log,
		outbox: make(chan Frame, outboxCapacity),
		done:   make(chan struct{}),
	}
}

// send enqueues f for delivery. Crash frames always wait for room, since
// crashes are never dropped. Every other tag, when the outbox is full,
// drops the oldest queued frame to make room rather than blocking the
// caller; if that oldest frame is a crash frame it is queued again
// instead, and f is dropped when there is still no room.
func (s *session) send(f Frame) {
	if f.Tag == TagCrash {
		select {
		case s.outbox <- f:
		case <-s.done:
		}
		return
	}
	select {
	case s.outbox <- f:
		return
	default:
	}
	select {
	case old := <-s.outbox:
		if old.Tag == TagCrash {
			select {
			case s.outbox <- old:
			case <-s.done:
				return
			}
		}
	default:
	}
	select {
	case s.outbox <- f:
	default:
	}
}

// serve drains the outbox to the stream and dispatches every frame read
// from it to onFrame, until the stream errors/closes or ctx is canceled.
// It blocks the calling goroutine.
func (s *session) serve(ctx context.Context, onFrame func(Frame)) {
	go s.writePump()
	defer close(s.done)
	defer s.stream.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = s.stream.SetReadDeadline(time.Now().Add(readPollInterval))
		f, err := ReadFrame(s.stream)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if err != io.EOF {
				s.log.Warn("sync read error", logging.Err(err))
			}
			return
		}
		onFrame(f)
	}
}

func (s *session) writePump() {
	for {
		select {
		case f := <-s.outbox:
			if err := WriteFrame(s.stream, f); err != nil {
				s.log.Warn("sync write error", logging.Err(err))
				return
			}
		case <-s.done:
			return
		}
	}
}
