package fuzzer

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jsfuzz/jsfuzz/internal/logging"
	"github.com/jsfuzz/jsfuzz/internal/stats"
)

// snapshotInterval is how often Run persists stats.json and refreshes the
// Prometheus gauges that don't update on every execution (corpus size,
// coverage fraction).
const snapshotInterval = 5 * time.Second

// Run starts the sync node (if configured), the statistics HTTP endpoint
// (if cfg.ExportStatistics), cfg.Workers engine-driving goroutines, and
// the periodic snapshot writer, then blocks until ctx is canceled or Stop
// is called. It always tears down every subsystem before returning.
func (f *Fuzzer) Run(ctx context.Context) error {
	if !f.state.CompareAndSwap(int32(stateNew), int32(stateRunning)) {
		return fmt.Errorf("fuzzer: Run called more than once")
	}
	f.ctx, f.cancel = context.WithCancel(ctx)
	f.startedAt = time.Now()
	defer f.teardown()

	if f.syncNode != nil {
		f.syncNode.Start()
	}

	if f.cfg.ExportStatistics {
		srv, err := stats.StartServer(f.cfg.StatsAddr, f.stats, f.log)
		if err != nil {
			return fmt.Errorf("fuzzer: starting statistics server: %w", err)
		}
		f.statsSrv = srv
	}

	f.log.Info("fuzzer running",
		logging.Int("workers", f.cfg.Workers),
		logging.String("engine", string(f.cfg.Engine)),
		logging.String("role", string(f.cfg.Role)))

	f.wg.Add(f.cfg.Workers)
	for i := 0; i < f.cfg.Workers; i++ {
		go f.workerLoop(i)
	}

	f.wg.Add(1)
	go f.snapshotLoop()

	<-f.ctx.Done()
	f.wg.Wait()
	f.state.Store(int32(stateStopped))
	return nil
}

// Stop requests a graceful shutdown; Run returns once every worker and
// background goroutine has exited.
func (f *Fuzzer) Stop() {
	if state(f.state.Load()) != stateRunning {
		return
	}
	f.state.Store(int32(stateStopping))
	f.cancel()
}

func (f *Fuzzer) teardown() {
	f.execPool.Close()
	if f.syncNode != nil {
		if err := f.syncNode.Stop(); err != nil {
			f.log.Warn("sync node shutdown error", logging.Err(err))
		}
	}
	if f.statsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := f.statsSrv.Stop(ctx); err != nil {
			f.log.Warn("statistics server shutdown error", logging.Err(err))
		}
	}
	f.writeSnapshot()
	f.log.Info("fuzzer stopped", logging.Duration("uptime", time.Since(f.startedAt)))
}

// workerLoop repeatedly drives the selected engine one iteration at a
// time until ctx is canceled — the "J independent child processes...
// work items dispatched to any idle child" pool (spec.md §4.6) sits one
// layer down inside execution.Pool; these goroutines are the callers
// competing for it.
func (f *Fuzzer) workerLoop(id int) {
	defer f.wg.Done()
	rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(id)*0x9E3779B97F4A7C15))

	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		out, err := f.eng.Iteration(f.ctx, rng)
		if err != nil {
			if f.ctx.Err() != nil {
				return
			}
			f.log.Warn("engine iteration failed", logging.Err(err), logging.Int("worker", id))
			continue
		}
		f.stats.RecordRound()
		if out != nil {
			f.stats.RecordExecs(out.Executed)
		}
	}
}

// snapshotLoop persists stats.json and refreshes the corpus-size/coverage
// gauges on a fixed interval. teardown takes one final snapshot after
// this loop exits, so the persisted state reflects the run's last
// moment rather than its last tick.
func (f *Fuzzer) snapshotLoop() {
	defer f.wg.Done()
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			f.writeSnapshot()
		}
	}
}

func (f *Fuzzer) writeSnapshot() {
	corpusSize := f.corpus.Len()
	coverageFraction := f.coverage.CoveredFraction()
	crashCount := f.crashes.Count()

	f.stats.SetCorpusSize(corpusSize)
	f.stats.SetCoverage(coverageFraction, f.coverage.EdgeCount())

	snap := f.stats.Snapshot(corpusSize, coverageFraction, crashCount)
	if err := stats.WriteSnapshot(f.cfg.StorageDir, snap); err != nil {
		f.log.Warn("failed to write statistics snapshot", logging.Err(err))
	}
	if err := f.cfg.Save(); err != nil {
		f.log.Warn("failed to persist settings", logging.Err(err))
	}
}
