package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/positivef/verifycache"
	"github.com/positivef/verifycache/internal/config"
	"github.com/positivef/verifycache/internal/lint"
)

const version = "0.1.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

var rootCmd = &cobra.Command{
	Use:          "verifycache",
	Short:        "Cached file verification",
	Long:         "verifycache lints files and remembers the results, re-running the linter only for files whose content changed.",
	SilenceUsage: true,
}

// Persistent flags shared by all commands.
var (
	flagConfig     string
	flagCacheDir   string
	flagTTL        int
	flagMaxEntries int
	flagLinter     string
	flagLogLevel   string
	flagNoCache    bool
	flagMode       string
)

// execFunc overrides how the linter process is launched. Nil means os/exec.
var execFunc lint.ExecFunc

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// Run executes the root command and returns an exit code.
func Run() int {
	exitCode = ExitSuccess
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print verifycache version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "verifycache version %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file path (default: ./.verifycache.toml or user config)")
	pf.StringVar(&flagCacheDir, "cache-dir", "", "Directory holding cache files")
	pf.IntVar(&flagTTL, "ttl", 0, "Cache entry lifetime in seconds")
	pf.IntVar(&flagMaxEntries, "max-entries", 0, "Maximum number of cached results")
	pf.StringVar(&flagLinter, "linter", "", "Linter command to run")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Always run the linter")
	pf.StringVar(&flagMode, "mode", "fast", "Verification mode (fast, deep)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagCacheDir != "" {
		m["cacheDir"] = flagCacheDir
	}
	if flagTTL > 0 {
		m["ttlSeconds"] = strconv.Itoa(flagTTL)
	}
	if flagMaxEntries > 0 {
		m["maxEntries"] = strconv.Itoa(flagMaxEntries)
	}
	if flagLinter != "" {
		m["linter"] = flagLinter
	}
	if flagLogLevel != "" {
		m["logLevel"] = flagLogLevel
	}
	if flagNoCache {
		m["noCache"] = "true"
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagWorkers > 0 {
		m["workers"] = strconv.Itoa(flagWorkers)
	}
	return m
}

func parseMode(s string) (verifycache.Mode, error) {
	switch verifycache.Mode(s) {
	case verifycache.ModeFast, verifycache.ModeDeep:
		return verifycache.Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want fast or deep)", s)
	}
}

// env bundles everything a command needs after flags and config are resolved.
type env struct {
	cfg    config.Config
	mode   verifycache.Mode
	logger *slog.Logger
	runner *lint.Runner
}

func loadEnv(stderr io.Writer) (env, error) {
	cfg, err := config.Load(flagConfig, buildOverrides())
	if err != nil {
		return env{}, err
	}
	mode, err := parseMode(flagMode)
	if err != nil {
		return env{}, err
	}

	var opts []lint.RunnerOption
	if execFunc != nil {
		opts = append(opts, lint.WithExecFunc(execFunc))
	}
	return env{
		cfg:    cfg,
		mode:   mode,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})),
		runner: lint.NewRunner(cfg.Linter.Command, cfg.Linter.FastArgs, cfg.Linter.DeepArgs, opts...),
	}, nil
}

// cacheDir returns the per-linter cache directory. Each linter invocation
// gets its own cache so results from different tools never mix.
func (e env) cacheDir() string {
	return filepath.Join(e.cfg.Cache.Dir, e.runner.Fingerprint(e.mode))
}

func (e env) openCache() (*verifycache.Cache, error) {
	cache, err := verifycache.Open(e.cacheDir(),
		verifycache.WithTTL(e.cfg.TTL()),
		verifycache.WithMaxEntries(e.cfg.Cache.MaxEntries),
		verifycache.WithLogger(e.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return cache, nil
}
