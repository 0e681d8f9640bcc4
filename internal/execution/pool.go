package execution

import (
	"context"
	"time"

	"github.com/jsfuzz/jsfuzz/internal/logging"
)

// Pool owns J independent REPRL workers and dispatches execution requests
// to whichever is idle (spec.md §4.6 "A fuzzer instance owns J (default =
// CPU cores) independent child processes. Work items are dispatched to any
// idle child.").
type Pool struct {
	workers []*Worker
	idle    chan *Worker
	log     *logging.Logger
}

// NewPool spawns count workers for binaryPath, each with a coverage bitmap
// of shmSize bytes.
func NewPool(binaryPath string, count, shmSize int, log *logging.Logger) (*Pool, error) {
	p := &Pool{idle: make(chan *Worker, count), log: log}
	for i := 0; i < count; i++ {
		w, err := NewWorker(binaryPath, shmSize, log.Named("reprl"))
		if err != nil {
			p.Close()
			return nil, err
		}
		p.workers = append(p.workers, w)
		p.idle <- w
	}
	return p, nil
}

// Execute blocks until a worker is free, runs script on it, and returns it
// to the idle pool.
func (p *Pool) Execute(ctx context.Context, script []byte, timeout time.Duration) (*Result, error) {
	select {
	case w := <-p.idle:
		defer func() { p.idle <- w }()
		return w.Execute(ctx, script, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size is the number of workers in the pool.
func (p *Pool) Size() int { return len(p.workers) }

// Close terminates every worker.
func (p *Pool) Close() {
	for _, w := range p.workers {
		w.Close()
	}
}
