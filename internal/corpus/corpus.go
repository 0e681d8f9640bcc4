// Package corpus implements the weighted, aging corpus of spec.md §4.8:
// fingerprint-deduplicated interesting programs, sampled by a weight that
// favors small, rarely-selected, recently-added programs, with optional
// LRU-by-selection eviction and on-disk persistence. Structured after the
// teacher's kernel/core/mesh.ChunkCache: a container/list-backed
// least-recently-used structure guarded by one mutex.
package corpus

import (
	"container/list"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jsfuzz/jsfuzz/internal/errs"
	"github.com/jsfuzz/jsfuzz/internal/il"
)

// entry is one corpus member plus its selection bookkeeping.
type entry struct {
	program     *il.Program
	fingerprint il.Fingerprint
	addedAt     time.Time
	selections  int
	filename    string
}

// Corpus is an ordered, weighted set of interesting programs.
type Corpus struct {
	mu      sync.Mutex
	dir     string
	maxSize int

	byFingerprint map[il.Fingerprint]*list.Element
	order         *list.List // front = most recently selected

	rng *rand.Rand
}

// New creates an empty Corpus persisting to dir (created if absent). A
// maxSize of 0 means unbounded (spec.md §4.8 "optional cap").
func New(dir string, maxSize int, rng *rand.Rand) (*Corpus, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.CodeCorpusIO, "creating corpus directory", err)
	}
	return &Corpus{
		dir:           dir,
		maxSize:       maxSize,
		byFingerprint: make(map[il.Fingerprint]*list.Element),
		order:         list.New(),
		rng:           rng,
	}, nil
}

// IsDuplicate reports whether err is the "already present" error Insert
// returns for a structural-fingerprint collision, so callers (e.g.
// internal/engine) can treat it as an expected outcome rather than a
// failure.
func IsDuplicate(err error) bool {
	e, ok := err.(*errs.Error)
	return ok && e.Code == errs.CodeCorpusDuplicate
}

// Len is the number of programs currently held.
func (c *Corpus) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Insert adds p if it is not a structural duplicate of an existing member
// (spec.md §4.8 "Duplicates (by structural fingerprint) are rejected.").
// Callers are expected to have already confirmed p is interesting and
// minimized.
func (c *Corpus) Insert(p *il.Program) error {
	fp := il.ComputeFingerprint(p)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.byFingerprint[fp]; dup {
		return errs.CorpusDuplicate(fmt.Sprintf("%x", fp[:8]))
	}

	e := &entry{program: p, fingerprint: fp, addedAt: time.Now(), filename: uuid.NewString() + ".bin"}
	elem := c.order.PushFront(e)
	c.byFingerprint[fp] = elem

	if err := c.persist(e); err != nil {
		c.order.Remove(elem)
		delete(c.byFingerprint, fp)
		return err
	}

	if c.maxSize > 0 && c.order.Len() > c.maxSize {
		c.evictOldestLocked()
	}
	return nil
}

// evictOldestLocked drops the least-recently-selected member (back of the
// list) when the corpus exceeds maxSize, per spec.md §4.8 "Eviction:
// optional cap with LRU-by-selection eviction when full." Caller holds mu.
func (c *Corpus) evictOldestLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry)
	c.order.Remove(back)
	delete(c.byFingerprint, e.fingerprint)
	os.Remove(filepath.Join(c.dir, e.filename))
}

// weight implements spec.md §4.8's weight function: smaller programs
// preferred, repeated selection aged down, recent entries boosted.
func weight(e *entry) float64 {
	size := float64(e.program.Size())
	if size < 1 {
		size = 1
	}
	sizeFactor := 1.0 / size
	ageFactor := 1.0 / (1.0 + float64(e.selections))
	recencyFactor := 1.0
	if time.Since(e.addedAt) < 5*time.Minute {
		recencyFactor = 2.0
	}
	return sizeFactor * ageFactor * recencyFactor
}

// RandomForMutating returns a program chosen by weight, per spec.md §4.8
// "random_for_mutating()". The caller is expected to apply buildPrefix
// before mutating the result. Returns false if the corpus is empty.
func (c *Corpus) RandomForMutating() (*il.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.order.Len() == 0 {
		return nil, false
	}

	total := 0.0
	entries := make([]*entry, 0, c.order.Len())
	elems := make([]*list.Element, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		entries = append(entries, e)
		elems = append(elems, el)
		total += weight(e)
	}

	pick := c.rng.Float64() * total
	for i, e := range entries {
		pick -= weight(e)
		if pick <= 0 {
			e.selections++
			c.order.MoveToFront(elems[i])
			return e.program, true
		}
	}
	last := entries[len(entries)-1]
	last.selections++
	return last.program, true
}

func (c *Corpus) persist(e *entry) error {
	data, err := e.program.Encode()
	if err != nil {
		return errs.Wrap(errs.CodeCorpusIO, "encoding program", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, e.filename), data, 0o644); err != nil {
		return errs.Wrap(errs.CodeCorpusIO, "writing corpus file", err)
	}
	return nil
}

// Load repopulates the corpus from previously persisted files in dir
// (spec.md §4.8 "corpus reload on startup").
func Load(dir string, maxSize int, rng *rand.Rand) (*Corpus, error) {
	c, err := New(dir, maxSize, rng)
	if err != nil {
		return nil, err
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(errs.CodeCorpusIO, "reading corpus directory", err)
	}
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".bin" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			continue
		}
		p, err := il.DecodeProgram(data)
		if err != nil {
			continue
		}
		fp := il.ComputeFingerprint(p)
		if _, dup := c.byFingerprint[fp]; dup {
			continue
		}
		e := &entry{program: p, fingerprint: fp, addedAt: time.Now(), filename: f.Name()}
		elem := c.order.PushBack(e)
		c.byFingerprint[fp] = elem
	}
	return c, nil
}

// All returns every program currently in the corpus, oldest-selected last.
// Used by internal/sync to seed a newly connected peer.
func (c *Corpus) All() []*il.Program {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*il.Program, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).program)
	}
	return out
}

// Contains reports whether a program with the same structural fingerprint
// as p is already stored.
func (c *Corpus) Contains(p *il.Program) bool {
	fp := il.ComputeFingerprint(p)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.byFingerprint[fp]
	return ok
}
