package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/positivef/verifycache"
	"github.com/positivef/verifycache/internal/lint"
)

var (
	flagFormat  string
	flagWorkers int
	flagExt     string
)

var checkCmd = &cobra.Command{
	Use:   "check <path>...",
	Short: "Lint files, reusing cached results for unchanged files",
	Long: `Lint files with the configured linter. Directories are walked for files
matching --ext. Results for files whose content has not changed since the
last run are served from the cache.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		paths, err := collectFiles(args, splitComma(flagExt))
		if err != nil {
			return err
		}

		var cache *verifycache.Cache
		if e.cfg.CacheEnabled() {
			cache, err = e.openCache()
			if err != nil {
				return err
			}
			defer func() {
				if err := cache.Close(); err != nil {
					e.logger.Warn("closing cache", "error", err)
				}
			}()
		}

		checker := lint.NewChecker(cache, e.runner, e.cfg.Workers, e.logger)
		outcomes, err := checker.CheckAll(cmd.Context(), paths, e.mode)
		if err != nil {
			exitCode = ExitRuntimeError
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return nil
		}

		switch e.cfg.Format {
		case "json":
			err = writeJSON(cmd.OutOrStdout(), outcomes)
		default:
			err = writeText(cmd.OutOrStdout(), outcomes)
		}
		if err != nil {
			exitCode = ExitRuntimeError
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: writing output: %v\n", err)
			return nil
		}

		exitCode = outcomeExitCode(outcomes)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json)")
	checkCmd.Flags().IntVar(&flagWorkers, "workers", 0, "Number of files linted in parallel")
	checkCmd.Flags().StringVar(&flagExt, "ext", ".py", "File extensions to check when walking directories (comma-separated)")
}

// collectFiles expands directories into the files below them whose
// extension is in exts. Explicit file arguments are kept as given.
func collectFiles(args []string, exts []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot check %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if slices.Contains(exts, filepath.Ext(p)) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	return files, nil
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func outcomeExitCode(outcomes []lint.Outcome) int {
	code := ExitSuccess
	for _, o := range outcomes {
		if o.Result.Error != nil {
			return ExitRuntimeError
		}
		if !o.Result.Passed {
			code = ExitFindings
		}
	}
	return code
}

// fileReport is the JSON form of one checked file.
type fileReport struct {
	verifycache.Result
	Cached bool `json:"cached"`
}

func writeJSON(w io.Writer, outcomes []lint.Outcome) error {
	reports := make([]fileReport, len(outcomes))
	for i, o := range outcomes {
		reports[i] = fileReport{Result: o.Result, Cached: o.Cached}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeText(w io.Writer, outcomes []lint.Outcome) error {
	var b strings.Builder
	var cached, failed int
	var linted time.Duration
	for _, o := range outcomes {
		r := o.Result
		suffix := ""
		if o.Cached {
			cached++
			suffix = " (cached)"
		} else {
			linted += r.Duration()
		}
		switch {
		case r.Error != nil:
			failed++
			fmt.Fprintf(&b, "%s: error: %s%s\n", r.FilePath, *r.Error, suffix)
		case r.Passed:
			fmt.Fprintf(&b, "%s: ok%s\n", r.FilePath, suffix)
		default:
			failed++
			fmt.Fprintf(&b, "%s: %d violation(s)%s\n", r.FilePath, len(r.Violations), suffix)
			for _, v := range r.Violations {
				fmt.Fprintf(&b, "  %d:%d %s %s\n", v.Line, v.Column, v.Code, v.Message)
			}
		}
	}
	fmt.Fprintf(&b, "%d file(s) checked, %d cached, %d failed in %s\n",
		len(outcomes), cached, failed, linted.Round(time.Millisecond))
	_, err := io.WriteString(w, b.String())
	return err
}
