// Package config defines jsfuzz's Settings (CLI flags + persisted
// settings.json), following the same
// flag-plus-encoding/json-persistence style used for its node identity
// file (internal/network/mesh.go's PersistentIdentity/SaveIdentity/LoadIdentity).
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"
)

// Role is this node's position in the distributed synchronization tree
// (spec.md §4.10).
type Role string

const (
	RoleRoot         Role = "root"
	RoleIntermediate Role = "intermediate"
	RoleLeaf         Role = "leaf"
)

// EngineKind selects which of the four fuzz engines (spec.md §4.5) drives
// the run.
type EngineKind string

const (
	EngineMutation  EngineKind = "mutation"
	EngineHybrid    EngineKind = "hybrid"
	EngineGenerative EngineKind = "generative"
	EngineMulti     EngineKind = "multi"
)

// Settings is the fully resolved configuration for one jsfuzz process.
type Settings struct {
	// Target is the positional argument: path to the engine binary under
	// test (built with REPRL support).
	Target string `json:"target"`

	StorageDir   string        `json:"storage_dir"`
	CorpusDir    string        `json:"corpus_dir"`
	Workers      int           `json:"workers"`
	Engine       EngineKind    `json:"engine"`
	Timeout      time.Duration `json:"timeout"`
	MaxCorpusSize int          `json:"max_corpus_size"`
	CoverageMapSize int        `json:"coverage_map_size"`

	// Resume reloads an existing corpus/crash store from StorageDir instead
	// of starting from an empty one (spec.md §6 "--resume").
	Resume bool `json:"-"`

	Role       Role   `json:"role"`
	ListenAddr string `json:"listen_addr"`
	ParentAddr string `json:"parent_addr"`

	ExportStatistics bool   `json:"export_statistics"`
	StatsAddr        string `json:"stats_addr"`

	Profile string `json:"profile"`

	LogLevel string `json:"log_level"`
}

// Default returns the baseline Settings before flags/file overrides are
// applied.
func Default() *Settings {
	return &Settings{
		StorageDir:    "./jsfuzz-storage",
		CorpusDir:     "./jsfuzz-storage/corpus",
		Workers:         runtime.NumCPU(),
		Engine:          EngineMulti,
		Timeout:         1 * time.Second,
		MaxCorpusSize:   0,
		CoverageMapSize: 1 << 16,
		Role:          RoleLeaf,
		ListenAddr:    "",
		Profile:       "default",
		LogLevel:      "info",
	}
}

// settingsFile is the on-disk name persisted under StorageDir, mirroring
// a node_identity.json convention.
const settingsFile = "settings.json"

// ParseFlags builds Settings from the process's command-line flags,
// starting from Default() and the positional target argument. It does not
// read or write settingsFile; call Load/Save explicitly around it the way
// cmd/jsfuzz's main does.
func ParseFlags(args []string) (*Settings, error) {
	s := Default()
	fs := flag.NewFlagSet("jsfuzz", flag.ContinueOnError)
	fs.StringVar(&s.StorageDir, "storageDir", s.StorageDir, "directory for corpus, crashes, and settings")
	fs.IntVar(&s.Workers, "workers", s.Workers, "number of REPRL child processes")
	fs.StringVar((*string)(&s.Engine), "engine", string(s.Engine), "fuzz engine: mutation|hybrid|generative|multi")
	fs.DurationVar(&s.Timeout, "timeout", s.Timeout, "per-execution wall-clock deadline")
	fs.IntVar(&s.MaxCorpusSize, "maxCorpusSize", s.MaxCorpusSize, "corpus eviction cap (0 = unbounded)")
	fs.IntVar(&s.CoverageMapSize, "coverageMapSize", s.CoverageMapSize, "coverage bitmap size in bytes, shared with the REPRL child")
	fs.BoolVar(&s.Resume, "resume", s.Resume, "reload an existing corpus and crash store from storageDir")
	fs.StringVar((*string)(&s.Role), "role", string(s.Role), "sync tree role: root|intermediate|leaf")
	fs.StringVar(&s.ListenAddr, "listenAddr", s.ListenAddr, "address to accept child connections on (root/intermediate)")
	fs.StringVar(&s.ParentAddr, "parentAddr", s.ParentAddr, "parent address to dial (intermediate/leaf)")
	fs.BoolVar(&s.ExportStatistics, "exportStatistics", s.ExportStatistics, "expose a Prometheus /metrics endpoint")
	fs.StringVar(&s.StatsAddr, "statsAddr", ":9090", "address for the statistics HTTP endpoint")
	fs.StringVar(&s.Profile, "profile", s.Profile, "environment profile name")
	fs.StringVar(&s.LogLevel, "logLevel", s.LogLevel, "debug|info|warn|error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("usage: jsfuzz [flags] <target-binary>")
	}
	s.Target = fs.Arg(0)
	s.CorpusDir = s.StorageDir + "/corpus"
	return s, s.Validate()
}

// Validate rejects configurations that downstream components cannot act
// on, matching an "invalid configuration is rejected eagerly" stance
// mirrored from the startup validation in cmd/inos-node.
func (s *Settings) Validate() error {
	if s.Target == "" {
		return fmt.Errorf("target binary is required")
	}
	if s.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", s.Workers)
	}
	switch s.Engine {
	case EngineMutation, EngineHybrid, EngineGenerative, EngineMulti:
	default:
		return fmt.Errorf("unknown engine %q", s.Engine)
	}
	switch s.Role {
	case RoleRoot:
		if s.ListenAddr == "" {
			return fmt.Errorf("listenAddr is required for role %q", s.Role)
		}
	case RoleIntermediate:
		if s.ListenAddr == "" {
			return fmt.Errorf("listenAddr is required for role %q", s.Role)
		}
		if s.ParentAddr == "" {
			return fmt.Errorf("parentAddr is required for role %q", s.Role)
		}
	case RoleLeaf:
		// ParentAddr is optional: a leaf with neither parentAddr nor
		// listenAddr set runs standalone, with no sync node at all
		// (internal/fuzzer.New only constructs one when either is set).
	default:
		return fmt.Errorf("unknown role %q", s.Role)
	}
	return nil
}

// Save persists s to <StorageDir>/settings.json.
func (s *Settings) Save() error {
	if err := os.MkdirAll(s.StorageDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.StorageDir+"/"+settingsFile, data, 0o644)
}

// Load reads a previously Saved settings.json from dir, for resuming a
// run with the same configuration (spec.md's corpus-reload-on-startup
// extends naturally to reloading the run's settings).
func Load(dir string) (*Settings, error) {
	data, err := os.ReadFile(dir + "/" + settingsFile)
	if err != nil {
		return nil, err
	}
	s := Default()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}
