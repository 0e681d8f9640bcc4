// Package fuzzer is jsfuzz's top-level orchestrator: it owns the
// environment, corpus, crash store, coverage map, REPRL worker pool,
// mutator pool, template registry, the selected fuzz engine, the
// optional distributed sync node, and the optional statistics server,
// and runs config.Settings.Workers goroutines driving that engine.
//
// Structured after a Kernel (kernel/lifecycle.go): one root
// struct owning every subsystem, an atomic lifecycle state, a
// context/cancel/WaitGroup triple for shutdown, and Boot/Shutdown-style
// entry points — generalized here to Run/Stop since jsfuzz has no
// SharedArrayBuffer handshake to wait through.
package fuzzer

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jsfuzz/jsfuzz/internal/codegen"
	"github.com/jsfuzz/jsfuzz/internal/config"
	"github.com/jsfuzz/jsfuzz/internal/corpus"
	"github.com/jsfuzz/jsfuzz/internal/coverage"
	"github.com/jsfuzz/jsfuzz/internal/engine"
	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/execution"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/lifter"
	"github.com/jsfuzz/jsfuzz/internal/logging"
	"github.com/jsfuzz/jsfuzz/internal/mutation"
	"github.com/jsfuzz/jsfuzz/internal/stats"
	syncnode "github.com/jsfuzz/jsfuzz/internal/sync"
	"github.com/jsfuzz/jsfuzz/internal/templates"
)

// state mirrors a KernelState enum, trimmed to the
// transitions a fuzzer run actually makes.
type state int32

const (
	stateNew state = iota
	stateRunning
	stateStopping
	stateStopped
)

// Fuzzer wires every jsfuzz subsystem together and drives the selected
// engine across cfg.Workers goroutines.
type Fuzzer struct {
	cfg *config.Settings
	log *logging.Logger

	env      *environment.Environment
	corpus   *corpus.Corpus
	crashes  *corpus.CrashStore
	coverage *coverage.Map
	execPool *execution.Pool
	lifter   lifter.Lifter
	mutators *mutation.Pool
	fixup    *mutation.FixupMutator

	eng   engine.Engine
	stats *stats.Registry

	syncNode   *syncnode.Node
	statsSrv   *stats.Server

	state     atomic.Int32
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
}

// New constructs a Fuzzer from cfg, opening (or creating) the corpus and
// crash store, spawning the REPRL worker pool, and selecting the engine
// named by cfg.Engine. It does not start the sync node, the statistics
// server, or any worker goroutines — call Run for that.
func New(ctx context.Context, cfg *config.Settings, log *logging.Logger) (*Fuzzer, error) {
	f := &Fuzzer{cfg: cfg, log: log.Named("fuzzer")}

	f.env = environment.New()
	f.env.Load(profileFor(cfg.Profile))

	var err error
	if cfg.Resume {
		f.corpus, err = corpus.Load(cfg.CorpusDir, cfg.MaxCorpusSize, rand.New(rand.NewSource(time.Now().UnixNano())))
	} else {
		f.corpus, err = corpus.New(cfg.CorpusDir, cfg.MaxCorpusSize, rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	if err != nil {
		return nil, fmt.Errorf("fuzzer: opening corpus: %w", err)
	}
	f.log.Info("corpus ready", logging.Int("size", f.corpus.Len()), logging.Bool("resumed", cfg.Resume))

	f.crashes, err = corpus.NewCrashStore(cfg.StorageDir + "/crashes")
	if err != nil {
		return nil, fmt.Errorf("fuzzer: opening crash store: %w", err)
	}

	f.coverage = coverage.New(uint32(cfg.CoverageMapSize))

	f.execPool, err = execution.NewPool(cfg.Target, cfg.Workers, cfg.CoverageMapSize, f.log)
	if err != nil {
		return nil, fmt.Errorf("fuzzer: spawning REPRL pool: %w", err)
	}

	f.lifter = lifter.Stub{}

	sources := mutation.Sources(func() []*il.Program { return f.corpus.All() })
	f.mutators = mutation.Default(f.env, sources)
	for _, m := range f.mutators.All() {
		if fm, ok := m.(*mutation.FixupMutator); ok {
			f.fixup = fm
		}
	}

	f.stats = stats.New()

	deps := &engine.Deps{
		Env:      f.env,
		Corpus:   f.corpus,
		Crashes:  f.crashes,
		Coverage: f.coverage,
		Executor: f.execPool,
		Lifter:   f.lifter,
		Mutators: f.mutators,
		Log:      f.log,
		Timeout:  cfg.Timeout,
		OnInsert: func(p *il.Program) {
			if f.syncNode != nil {
				f.syncNode.NotifyLocal(p)
			}
		},
		OnCrash: func(c *corpus.Crash) {
			f.stats.RecordCrash()
			if f.syncNode != nil {
				f.syncNode.NotifyCrash(c)
			}
		},
	}

	f.eng, err = buildEngine(cfg, deps, f.fixup)
	if err != nil {
		return nil, err
	}

	if cfg.Role != config.RoleLeaf || cfg.ParentAddr != "" || cfg.ListenAddr != "" {
		f.syncNode, err = syncnode.NewNode(ctx, syncnode.Config{
			Role:       cfg.Role,
			StorageDir: cfg.StorageDir,
			ListenAddr: cfg.ListenAddr,
			ParentAddr: cfg.ParentAddr,
			Corpus:     f.corpus,
			Crashes:    f.crashes,
			Log:        f.log,
		})
		if err != nil {
			return nil, fmt.Errorf("fuzzer: starting sync node: %w", err)
		}
	}

	return f, nil
}

// profileFor resolves a --profile name to an environment.Profile. Only
// DefaultProfile exists in this module, so every name resolves to it; an
// unknown name neither logs a warning nor fails startup.
func profileFor(name string) environment.Profile {
	return environment.DefaultProfile{}
}

// buildEngine selects and constructs the Engine named by cfg.Engine,
// wiring in the ambient template registry and code generator set shared
// across HybridEngine/GenerativeEngine.
func buildEngine(cfg *config.Settings, deps *engine.Deps, fixup *mutation.FixupMutator) (engine.Engine, error) {
	tpls := templates.Default()
	generators := codegen.Default()

	mutationEngine := engine.NewMutationEngine(deps, 0)
	hybridEngine := engine.NewHybridEngine(deps, tpls, fixup, 0)
	generativeEngine := engine.NewGenerativeEngine(deps, generators, 0)

	switch cfg.Engine {
	case config.EngineMutation:
		return mutationEngine, nil
	case config.EngineHybrid:
		return hybridEngine, nil
	case config.EngineGenerative:
		return generativeEngine, nil
	case config.EngineMulti:
		return engine.NewMultiEngine(0, []engine.Engine{mutationEngine, hybridEngine, generativeEngine}, nil), nil
	default:
		return nil, fmt.Errorf("fuzzer: unknown engine %q", cfg.Engine)
	}
}
