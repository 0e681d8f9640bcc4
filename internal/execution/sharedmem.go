// Package execution implements the REPRL (read-eval-print-reset-loop)
// executor of spec.md §4.6/§6: a pool of long-lived child processes
// speaking a binary control/data-pipe protocol over fixed descriptor
// numbers, with a shared-memory coverage bitmap opened by name.
package execution

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// MemoryProvider abstracts the coverage bitmap's backing storage, mirroring
// kernel/threads/sab.MemoryProvider ("implementations may be
// backed by mmap, SharedArrayBuffer, or in-memory buffers") — here the two
// implementations are an mmap'd POSIX shared-memory segment shared with a
// real child process, and an in-memory buffer for tests that don't spawn
// one.
type MemoryProvider interface {
	Size() uint32
	ReadAt(offset uint32, dest []byte) error
	Close() error
}

// ErrOutOfBounds mirrors sab.ErrOutOfBounds's role: a bounds-checked
// access outside the mapped region.
var ErrOutOfBounds = fmt.Errorf("execution: offset out of bounds")

// PosixSharedMemory wraps a named POSIX shared-memory segment under
// /dev/shm, mmap'd by the host and opened independently by the child via
// the name carried in its SHM_ID environment variable — the coverage
// bitmap region of spec.md §6 ("opened via shm_open by name shm_id_<pid>").
// Go has no shm_open wrapper; shm_open itself is a thin libc layer over
// open(2) against /dev/shm, so NewPosixSharedMemory reproduces it directly.
type PosixSharedMemory struct {
	mu   sync.Mutex
	name string
	path string
	fd   int
	data []byte
}

// NewPosixSharedMemory creates (or opens) the named region under /dev/shm,
// sized and mapped so the child can shm_open the same name independently.
func NewPosixSharedMemory(name string, size int) (*PosixSharedMemory, error) {
	path := "/dev/shm/" + name
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("execution: shm_open %q: %w", name, err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("execution: ftruncate %q: %w", name, err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("execution: mmap %q: %w", name, err)
	}
	return &PosixSharedMemory{name: name, path: path, fd: fd, data: data}, nil
}

// Name returns the shm_open name, the value a spawned child receives via
// SHM_ID so it can open the same region independently.
func (p *PosixSharedMemory) Name() string { return p.name }

// FD returns the underlying file descriptor of the host's own mapping.
func (p *PosixSharedMemory) FD() int { return p.fd }

func (p *PosixSharedMemory) Size() uint32 { return uint32(len(p.data)) }

func (p *PosixSharedMemory) ReadAt(offset uint32, dest []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if uint64(offset)+uint64(len(dest)) > uint64(len(p.data)) {
		return ErrOutOfBounds
	}
	copy(dest, p.data[offset:offset+uint32(len(dest))])
	return nil
}

// Snapshot copies out the full coverage bitmap region for diffing against
// internal/coverage.Map.
func (p *PosixSharedMemory) Snapshot() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

// Reset zeroes the bitmap, used between executions when the child does
// not reset it itself (spec.md §4.6 allows either).
func (p *PosixSharedMemory) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.data {
		p.data[i] = 0
	}
}

// Close unmaps and unlinks the region. Unlike an anonymous memfd, a named
// /dev/shm entry outlives the process unless removed explicitly.
func (p *PosixSharedMemory) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data != nil {
		unix.Munmap(p.data)
		p.data = nil
	}
	unix.Unlink(p.path)
	return unix.Close(p.fd)
}

// InMemory is a MemoryProvider with no child process behind it, used in
// tests that exercise internal/coverage without a real REPRL worker.
type InMemory struct {
	mu   sync.Mutex
	data []byte
}

func NewInMemory(size int) *InMemory { return &InMemory{data: make([]byte, size)} }

func (m *InMemory) Size() uint32 { return uint32(len(m.data)) }

func (m *InMemory) ReadAt(offset uint32, dest []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uint64(offset)+uint64(len(dest)) > uint64(len(m.data)) {
		return ErrOutOfBounds
	}
	copy(dest, m.data[offset:offset+uint32(len(dest))])
	return nil
}

// Write lets tests populate the bitmap directly.
func (m *InMemory) Write(offset uint32, src []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.data[offset:], src)
}

func (m *InMemory) Close() error { return nil }
