// Package coverage implements the coverage evaluator of spec.md §4.7: a
// byte-wise virgin-bits bitmap diffed against each execution's edge
// bitmap, with power-of-two bucketing so repeated hit counts on the same
// edge don't keep registering as "new". Structured like
// kernel/threads/pattern.BloomFilter: a byte slice guarded by a mutex with
// a small, focused update/query surface.
package coverage

import "sync"

// Map owns the virgin-bits bitmap for a single run. One Map is shared by
// every REPRL worker in the pool (spec.md §4.6 "pool of J independent
// child processes" all feed the same coverage evaluator).
type Map struct {
	mu      sync.Mutex
	virgin  []byte
	edges   uint32
	totalHit uint64
}

// New creates a Map sized for numEdges, with every bit initialized to 0xFF
// (spec.md §4.7 "initialized to 0xFF").
func New(numEdges uint32) *Map {
	virgin := make([]byte, numEdges)
	for i := range virgin {
		virgin[i] = 0xFF
	}
	return &Map{virgin: virgin, edges: numEdges}
}

// bucket maps a raw hit count to AFL-style power-of-two buckets, so that
// going from (e.g.) 40 hits to 41 hits on the same edge does not register
// as new coverage — only crossing a bucket boundary does.
func bucket(count byte) byte {
	switch {
	case count == 0:
		return 0
	case count == 1:
		return 1
	case count == 2:
		return 2
	case count == 3:
		return 4
	case count <= 7:
		return 8
	case count <= 15:
		return 16
	case count <= 31:
		return 32
	case count <= 127:
		return 64
	default:
		return 128
	}
}

// Diff compares childBits (raw per-edge hit counts from one execution)
// against the virgin-bits map. It clears the bits that were newly
// observed and returns the set of edge indices that became interesting,
// per spec.md §4.7's diff/clear/declare-interesting algorithm.
func (m *Map) Diff(childBits []byte) []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(childBits)
	if n > len(m.virgin) {
		n = len(m.virgin)
	}
	var newEdges []uint32
	for i := 0; i < n; i++ {
		b := bucket(childBits[i])
		if b == 0 {
			continue
		}
		m.totalHit++
		if b&m.virgin[i] != 0 {
			newEdges = append(newEdges, uint32(i))
			m.virgin[i] &^= b
		}
	}
	return newEdges
}

// Interesting reports whether an execution's bitmap produced any new
// coverage (spec.md §4.7 "Declare the program interesting when new edges
// were observed").
func (m *Map) Interesting(childBits []byte) bool {
	return len(m.Diff(childBits)) > 0
}

// Covers reports whether every edge in edges was hit in childBits, without
// touching the virgin-bits map. internal/minimize's Checker uses this —
// rather than Interesting, which mutates virgin bits — to confirm a
// reduced candidate still triggers the specific coverage that made the
// original program interesting, independent of whatever else the live
// fuzzing run has since marked non-virgin.
func Covers(childBits []byte, edges []uint32) bool {
	for _, e := range edges {
		idx := int(e)
		if idx >= len(childBits) || bucket(childBits[idx]) == 0 {
			return false
		}
	}
	return true
}

// EdgeCount is the number of edges this map tracks.
func (m *Map) EdgeCount() uint32 { return m.edges }

// CoveredFraction is the fraction of edges that have been hit at least
// once so far, used by internal/stats for the --exportStatistics coverage
// gauge.
func (m *Map) CoveredFraction() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.edges == 0 {
		return 0
	}
	covered := 0
	for _, v := range m.virgin {
		if v != 0xFF {
			covered++
		}
	}
	return float64(covered) / float64(m.edges)
}

// TotalHits is a cumulative counter of bucketed edge hits observed across
// all executions, used for diagnostics.
func (m *Map) TotalHits() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalHit
}

// Reset clears the virgin-bits map back to its initial all-0xFF state,
// used when starting a fresh run against an already-warm corpus replay.
func (m *Map) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.virgin {
		m.virgin[i] = 0xFF
	}
	m.totalHit = 0
}
