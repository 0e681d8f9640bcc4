package execution

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jsfuzz/jsfuzz/internal/errs"
	"github.com/jsfuzz/jsfuzz/internal/logging"
)

// reprlFDShim renumbers the four pipe descriptors os/exec.Cmd.ExtraFiles
// assigns at 3-6 onto the fixed 100-103 the child-process contract of
// spec.md §6 requires (control-read=100, control-write=101, data-read=102,
// data-write=103), closes the originals, then execs the real target
// binary with its own arguments in place.
const reprlFDShim = `exec 100<&3 101>&4 102<&5 103>&6 3<&- 4<&- 5<&- 6<&-; exec "$0" "$@"`

// shmCounter disambiguates shared-memory segment names across workers in
// the same host process, which all share one os.Getpid().
var shmCounter uint64

func nextShmName() string {
	n := atomic.AddUint64(&shmCounter, 1)
	return fmt.Sprintf("shm_id_%d_%d", os.Getpid(), n)
}

// Result is the outcome of one REPRL execution.
type Result struct {
	ExitCode  int
	Signaled  bool
	Signal    int
	Coverage  []byte
	Crashed   bool
	TimedOut  bool
	Stderr    string
	Duration  time.Duration
}

// heloToken is the 4-byte handshake value exchanged on process startup
// (spec.md §4.6 "Host and child exchange a 4-byte HELO token").
var heloToken = [4]byte{'H', 'E', 'L', 'O'}

// Worker owns one long-lived REPRL child process: its control pipe, data
// pipe, and coverage shared-memory segment. Only one execution may be
// in-flight on a Worker at a time; the Pool enforces that by dispatch.
type Worker struct {
	log *logging.Logger

	cmd        *exec.Cmd
	ctrlWrite  *os.File
	ctrlRead   *os.File
	dataWrite  *os.File
	dataRead   *os.File
	shm        *PosixSharedMemory
	binaryPath string
	shmSize    int

	mu sync.Mutex
}

// NewWorker spawns a fresh child process and performs the HELO handshake.
func NewWorker(binaryPath string, shmSize int, log *logging.Logger) (*Worker, error) {
	w := &Worker{binaryPath: binaryPath, shmSize: shmSize, log: log}
	if err := w.spawn(); err != nil {
		return nil, err
	}
	return w, nil
}

// spawn starts (or restarts) the child process, wiring up four pipes
// (control read/write, data read/write) plus the shared coverage region,
// per spec.md §4.6's "two pre-opened pipes and two pre-opened data pipes".
func (w *Worker) spawn() error {
	hostCtrlRead, childCtrlWrite, err := os.Pipe()
	if err != nil {
		return errs.Wrap(errs.CodeExecutorSpawn, "control pipe (child->host)", err)
	}
	childCtrlRead, hostCtrlWrite, err := os.Pipe()
	if err != nil {
		return errs.Wrap(errs.CodeExecutorSpawn, "control pipe (host->child)", err)
	}
	hostDataRead, childDataWrite, err := os.Pipe()
	if err != nil {
		return errs.Wrap(errs.CodeExecutorSpawn, "data pipe (child->host)", err)
	}
	childDataRead, hostDataWrite, err := os.Pipe()
	if err != nil {
		return errs.Wrap(errs.CodeExecutorSpawn, "data pipe (host->child)", err)
	}

	shm, err := NewPosixSharedMemory(nextShmName(), w.shmSize)
	if err != nil {
		return err
	}

	// cmd.ExtraFiles hands the child fds 3-6 in this order (control-read,
	// control-write, data-read, data-write); reprlFDShim moves them to the
	// 100-103 the child actually expects before exec'ing the real binary.
	cmd := exec.Command("sh", "-c", reprlFDShim, w.binaryPath, "--reprl")
	cmd.ExtraFiles = []*os.File{childCtrlRead, childCtrlWrite, childDataRead, childDataWrite}
	cmd.Env = append(os.Environ(), fmt.Sprintf("SHM_ID=%s", shm.Name()))
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		shm.Close()
		return errs.Wrap(errs.CodeExecutorSpawn, "starting child process", err)
	}
	childCtrlRead.Close()
	childCtrlWrite.Close()
	childDataRead.Close()
	childDataWrite.Close()

	w.cmd = cmd
	w.ctrlRead = hostCtrlRead
	w.ctrlWrite = hostCtrlWrite
	w.dataRead = hostDataRead
	w.dataWrite = hostDataWrite
	w.shm = shm

	if err := w.handshake(); err != nil {
		w.killLocked()
		return err
	}
	return nil
}

func (w *Worker) handshake() error {
	if _, err := w.ctrlWrite.Write(heloToken[:]); err != nil {
		return errs.Wrap(errs.CodeExecutorHandshake, "writing HELO", err)
	}
	var buf [4]byte
	if _, err := io.ReadFull(w.ctrlRead, buf[:]); err != nil {
		return errs.Wrap(errs.CodeExecutorHandshake, "reading HELO", err)
	}
	if buf != heloToken {
		return errs.New(errs.CodeExecutorHandshake, "unexpected handshake token")
	}
	return nil
}

// Execute runs one script through the child, per the per-execution
// sequence of spec.md §4.6: write "exec" + length on control, write script
// bytes on data, read a 4-byte status, and inspect the coverage bitmap.
func (w *Worker) Execute(ctx context.Context, script []byte, timeout time.Duration) (*Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	w.shm.Reset()

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(script)))
	if _, err := w.ctrlWrite.Write([]byte("exec")); err != nil {
		return nil, w.handleBrokenPipe(err)
	}
	if _, err := w.ctrlWrite.Write(lenBuf[:]); err != nil {
		return nil, w.handleBrokenPipe(err)
	}
	if _, err := w.dataWrite.Write(script); err != nil {
		return nil, w.handleBrokenPipe(err)
	}

	statusCh := make(chan [4]byte, 1)
	errCh := make(chan error, 1)
	go func() {
		var status [4]byte
		if _, err := io.ReadFull(w.ctrlRead, status[:]); err != nil {
			errCh <- err
			return
		}
		statusCh <- status
	}()

	select {
	case status := <-statusCh:
		code := binary.LittleEndian.Uint32(status[:])
		res := &Result{
			ExitCode: int(code &^ (1 << 31)),
			Signaled: code&(1<<31) != 0,
			Duration: time.Since(start),
		}
		if res.Signaled {
			res.Signal = res.ExitCode
			res.Crashed = true
		}
		res.Coverage = w.shm.Snapshot()
		return res, nil

	case err := <-errCh:
		res, crashErr := w.respawnAfterCrash(start)
		if crashErr != nil {
			return nil, crashErr
		}
		return res, err

	case <-time.After(timeout):
		return w.handleTimeout(start)

	case <-ctx.Done():
		return w.handleTimeout(start)
	}
}

func (w *Worker) handleBrokenPipe(cause error) error {
	res, err := w.respawnAfterCrash(time.Now())
	if err != nil {
		return err
	}
	_ = res
	return errs.Wrap(errs.CodeExecutorCrashed, "broken pipe writing to child", cause)
}

// respawnAfterCrash waits for the dead child, records it as crashed, and
// spawns a replacement (spec.md §4.6 "host waits for the process, records
// a crash, respawns").
func (w *Worker) respawnAfterCrash(start time.Time) (*Result, error) {
	w.killLocked()
	if err := w.spawn(); err != nil {
		return nil, err
	}
	return &Result{Crashed: true, Duration: time.Since(start)}, nil
}

// handleTimeout handles an execution that ran past its deadline by killing
// the child at once and spawning a fresh one. No reset is signalled to the
// child first, and there is no grace period before the kill.
func (w *Worker) handleTimeout(start time.Time) (*Result, error) {
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	if err := w.spawn(); err != nil {
		return nil, err
	}
	return &Result{TimedOut: true, Duration: time.Since(start)}, nil
}

func (w *Worker) killLocked() {
	if w.cmd != nil && w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
		_ = w.cmd.Wait()
	}
	for _, f := range []*os.File{w.ctrlRead, w.ctrlWrite, w.dataRead, w.dataWrite} {
		if f != nil {
			f.Close()
		}
	}
	if w.shm != nil {
		w.shm.Close()
	}
}

// Close terminates the child process and releases all resources.
func (w *Worker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.killLocked()
}
