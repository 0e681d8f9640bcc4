package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/jsfuzz/jsfuzz/internal/errs"
	"github.com/jsfuzz/jsfuzz/internal/il"
)

// Crash is one deduplicated crashing program plus its diagnostic output
// (SPEC_FULL.md §C.2 "crash signature dedup").
type Crash struct {
	Program   *il.Program
	Stderr    string
	Signal    int
	Signature string
}

// CrashStore persists distinct crashes to disk, rejecting a new crash
// whose signature (derived from the signal and the first line of the
// child's stderr, taken as-is, the way real JS engines' crash output is
// dominated by a stable assertion/backtrace header) matches one already
// stored.
type CrashStore struct {
	mu        sync.Mutex
	dir       string
	seen      map[string]bool
}

// NewCrashStore creates (or opens) a crash directory.
func NewCrashStore(dir string) (*CrashStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.CodeCorpusIO, "creating crash directory", err)
	}
	cs := &CrashStore{dir: dir, seen: make(map[string]bool)}
	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, e := range entries {
			if filepath.Ext(e.Name()) == ".sig" {
				if data, err := os.ReadFile(filepath.Join(dir, e.Name())); err == nil {
					cs.seen[string(data)] = true
				}
			}
		}
	}
	return cs, nil
}

// Signature derives a stable crash signature from the signal number and
// the first line of stderr, so crash outputs that differ only after their
// first line (e.g. in backtrace addresses) still dedup (SPEC_FULL.md §C.2).
func Signature(signal int, stderr string) string {
	firstLine := stderr
	for i, r := range stderr {
		if r == '\n' {
			firstLine = stderr[:i]
			break
		}
	}
	h := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", signal, firstLine)))
	return hex.EncodeToString(h[:16])
}

// Record stores c if its signature has not been seen before, returning
// whether it was newly recorded.
func (cs *CrashStore) Record(c *Crash) (bool, error) {
	c.Signature = Signature(c.Signal, c.Stderr)

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.seen[c.Signature] {
		return false, nil
	}
	cs.seen[c.Signature] = true

	id := uuid.NewString()
	data, err := c.Program.Encode()
	if err != nil {
		return true, errs.Wrap(errs.CodeCorpusIO, "encoding crashing program", err)
	}
	if err := os.WriteFile(filepath.Join(cs.dir, id+".bin"), data, 0o644); err != nil {
		return true, errs.Wrap(errs.CodeCorpusIO, "writing crash program", err)
	}
	if err := os.WriteFile(filepath.Join(cs.dir, id+".stderr"), []byte(c.Stderr), 0o644); err != nil {
		return true, errs.Wrap(errs.CodeCorpusIO, "writing crash stderr", err)
	}
	if err := os.WriteFile(filepath.Join(cs.dir, id+".sig"), []byte(c.Signature), 0o644); err != nil {
		return true, errs.Wrap(errs.CodeCorpusIO, "writing crash signature", err)
	}
	return true, nil
}

// Count is the number of distinct crash signatures recorded.
func (cs *CrashStore) Count() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.seen)
}
