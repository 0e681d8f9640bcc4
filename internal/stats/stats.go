// Package stats is jsfuzz's --exportStatistics support (spec.md §6): a
// Prometheus registry of counters/gauges for execs/sec, corpus size,
// coverage fraction, and crashes found, exposed both as a periodic
// stats.json snapshot and, optionally, as a /metrics HTTP endpoint.
//
// The teacher never exposes Prometheus metrics itself, but carries
// github.com/prometheus/client_golang as an indirect dependency via its
// libp2p stack; this package is the component that promotes it to a
// direct, exercised one, structured the way
// telemetry accessors (kernel/bridge.go's jsGetKernelStats) collect a
// handful of named counters into one snapshot.
package stats

import (
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds jsfuzz's live metrics and the bookkeeping needed to
// derive an execs/sec rate between Snapshot calls.
type Registry struct {
	reg *prometheus.Registry

	execsTotal        prometheus.Counter
	crashesTotal      prometheus.Counter
	roundsTotal       prometheus.Counter
	corpusSize        prometheus.Gauge
	coverageFraction  prometheus.Gauge
	coveredEdges      prometheus.Gauge

	mu            sync.Mutex
	lastExecs     uint64
	lastSampledAt time.Time
	startedAt     time.Time
}

// New creates a Registry with every metric registered under the
// "jsfuzz" namespace.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		execsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jsfuzz", Name: "execs_total", Help: "total programs executed",
		}),
		crashesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jsfuzz", Name: "crashes_total", Help: "total distinct crashes recorded",
		}),
		roundsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jsfuzz", Name: "engine_rounds_total", Help: "total fuzz engine rounds completed",
		}),
		corpusSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jsfuzz", Name: "corpus_size", Help: "number of programs currently retained in the corpus",
		}),
		coverageFraction: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jsfuzz", Name: "coverage_fraction", Help: "fraction of coverage map edges hit at least once",
		}),
		coveredEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jsfuzz", Name: "coverage_edges", Help: "total edges tracked by the coverage map",
		}),
		startedAt: time.Now(),
	}
	r.reg.MustRegister(r.execsTotal, r.crashesTotal, r.roundsTotal, r.corpusSize, r.coverageFraction, r.coveredEdges)
	r.lastSampledAt = r.startedAt
	return r
}

// Registerer exposes the underlying prometheus.Registerer so other
// packages can add further collectors (e.g. a process collector) without
// this package needing to know about them.
func (r *Registry) Registerer() prometheus.Registerer { return r.reg }

// RecordExecs adds n to the total exec count (internal/fuzzer calls this
// once per engine round with that round's executed-program count).
func (r *Registry) RecordExecs(n int) { r.execsTotal.Add(float64(n)) }

// RecordRound increments the completed-engine-round counter.
func (r *Registry) RecordRound() { r.roundsTotal.Inc() }

// RecordCrash increments the distinct-crash counter. internal/fuzzer
// calls this only when corpus.CrashStore.Record reports a previously
// unseen signature, so the metric tracks distinct crashes, not raw
// crashing executions.
func (r *Registry) RecordCrash() { r.crashesTotal.Inc() }

// SetCorpusSize publishes the corpus's current program count.
func (r *Registry) SetCorpusSize(n int) { r.corpusSize.Set(float64(n)) }

// SetCoverage publishes the coverage map's covered-edge fraction and raw
// edge count.
func (r *Registry) SetCoverage(fraction float64, edges uint32) {
	r.coverageFraction.Set(fraction)
	r.coveredEdges.Set(float64(edges))
}

// Snapshot is the periodically persisted stats.json shape (spec.md §6).
type Snapshot struct {
	Timestamp        time.Time `json:"timestamp"`
	UptimeSeconds    float64   `json:"uptime_seconds"`
	TotalExecs       uint64    `json:"total_execs"`
	ExecsPerSecond   float64   `json:"execs_per_second"`
	EngineRounds     uint64    `json:"engine_rounds"`
	CorpusSize       int       `json:"corpus_size"`
	CoverageFraction float64   `json:"coverage_fraction"`
	CrashesFound     int       `json:"crashes_found"`
}

// Snapshot gathers a point-in-time Snapshot and updates the execs/sec
// bookkeeping against the previous call (or against startup, on the
// first call).
func (r *Registry) Snapshot(corpusSize int, coverageFraction float64, crashesFound int) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := counterValue(r.execsTotal)
	now := time.Now()
	elapsed := now.Sub(r.lastSampledAt).Seconds()

	var rate float64
	if elapsed > 0 {
		rate = float64(total-r.lastExecs) / elapsed
	}
	r.lastExecs = total
	r.lastSampledAt = now

	return Snapshot{
		Timestamp:        now,
		UptimeSeconds:    now.Sub(r.startedAt).Seconds(),
		TotalExecs:       total,
		ExecsPerSecond:   rate,
		EngineRounds:     counterValue(r.roundsTotal),
		CorpusSize:       corpusSize,
		CoverageFraction: coverageFraction,
		CrashesFound:     crashesFound,
	}
}

// counterValue reads back a prometheus.Counter's current value; the
// client library only exposes this via the Write(*dto.Metric) path.
func counterValue(c prometheus.Counter) uint64 {
	var m dto.Metric
	_ = c.Write(&m)
	return uint64(m.GetCounter().GetValue())
}
