// Command jsfuzz is the CLI driver for the fuzzer core in internal/fuzzer:
// parse flags, optionally reload persisted settings, build the Fuzzer, run
// it until SIGINT/SIGTERM or a fatal error, and map failures onto the exit
// codes of spec.md §6 (0 normal shutdown, 1 config error, 2 engine spawn
// failure).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jsfuzz/jsfuzz/internal/config"
	"github.com/jsfuzz/jsfuzz/internal/fuzzer"
	"github.com/jsfuzz/jsfuzz/internal/logging"
)

const (
	exitOK          = 0
	exitConfigError = 1
	exitSpawnError  = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.ParseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jsfuzz:", err)
		return exitConfigError
	}

	if cfg.Resume {
		resumed, err := config.Load(cfg.StorageDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "jsfuzz: --resume: loading settings.json:", err)
			return exitConfigError
		}
		resumed.Resume = true
		resumed.Target = cfg.Target
		cfg = resumed
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, "jsfuzz: --resume: reloaded settings:", err)
			return exitConfigError
		}
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jsfuzz:", err)
		return exitConfigError
	}
	log := logging.New(logging.Config{Level: level, Component: "jsfuzz", Output: os.Stdout, Colorize: true})

	if err := cfg.Save(); err != nil {
		log.Warn("failed to persist settings", logging.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := fuzzer.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jsfuzz: starting fuzzer:", err)
		return exitSpawnError
	}

	log.Info("jsfuzz starting",
		logging.String("target", cfg.Target),
		logging.String("engine", string(cfg.Engine)),
		logging.Int("workers", cfg.Workers),
		logging.String("role", string(cfg.Role)))

	if err := f.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "jsfuzz: fuzzer exited with error:", err)
		return exitSpawnError
	}

	return exitOK
}

// parseLevel maps a --logLevel string onto logging.Level, the driver's own
// concern since internal/logging deals in the Level type, not flag text.
func parseLevel(s string) (logging.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return logging.DEBUG, nil
	case "info":
		return logging.INFO, nil
	case "warn", "warning":
		return logging.WARN, nil
	case "error":
		return logging.ERROR, nil
	case "fatal":
		return logging.FATAL, nil
	default:
		return 0, fmt.Errorf("unknown logLevel %q", s)
	}
}
