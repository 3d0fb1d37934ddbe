package lint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/positivef/verifycache"
)

// ExecFunc runs name with args and reports its output and exit status.
// err is non-nil only when the process could not be run at all.
type ExecFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error)

// Verifier produces a verification result for one file.
type Verifier interface {
	Verify(ctx context.Context, path string, mode verifycache.Mode) verifycache.Result
}

// Runner verifies files by invoking an external linter that emits a JSON
// array of findings.
type Runner struct {
	Command  string
	FastArgs []string
	DeepArgs []string

	exec ExecFunc
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithExecFunc replaces the process launcher.
func WithExecFunc(fn ExecFunc) RunnerOption {
	return func(r *Runner) {
		r.exec = fn
	}
}

// NewRunner creates a Runner for command. The file path is appended after
// the mode's arguments.
func NewRunner(command string, fastArgs, deepArgs []string, options ...RunnerOption) *Runner {
	r := &Runner{
		Command:  command,
		FastArgs: fastArgs,
		DeepArgs: deepArgs,
		exec:     runProcess,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Args returns the full argument list used to verify path in mode.
func (r *Runner) Args(path string, mode verifycache.Mode) []string {
	base := r.FastArgs
	if mode == verifycache.ModeDeep {
		base = r.DeepArgs
	}
	args := make([]string, 0, len(base)+1)
	args = append(args, base...)
	return append(args, path)
}

// Fingerprint identifies the linter invocation for mode. Results produced
// by different commands or arguments must not share a cache.
func (r *Runner) Fingerprint(mode verifycache.Mode) string {
	d := xxhash.New()
	_, _ = d.WriteString(r.Command)
	for _, arg := range r.Args("", mode) {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(arg)
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

// Verify lints path and reports the outcome. Failures to run the linter are
// reported through Result.Error rather than a Go error.
func (r *Runner) Verify(ctx context.Context, path string, mode verifycache.Mode) (result verifycache.Result) {
	start := time.Now()
	stdout, stderr, code, err := r.exec(ctx, r.Command, r.Args(path, mode)...)

	result = verifycache.Result{
		FilePath:   path,
		Violations: []verifycache.Violation{},
	}
	defer func() {
		result.DurationMS = float64(time.Since(start).Microseconds()) / 1000
	}()

	if err != nil {
		result.Error = errorf("running %s: %v", r.Command, err)
		return result
	}

	violations, perr := parseReport(stdout)
	switch {
	case perr == nil:
		result.Violations = violations
		result.Passed = code == 0 && len(violations) == 0
	case code == 0:
		result.Passed = true
	default:
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = fmt.Sprintf("%s exited with status %d", r.Command, code)
		}
		result.Error = &msg
	}
	return result
}

// finding is one entry of the linter's JSON report.
type finding struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Location struct {
		Row    int `json:"row"`
		Column int `json:"column"`
	} `json:"location"`
}

func parseReport(data []byte) ([]verifycache.Violation, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty report")
	}
	var findings []finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	violations := make([]verifycache.Violation, 0, len(findings))
	for _, f := range findings {
		violations = append(violations, verifycache.Violation{
			Code:     f.Code,
			Message:  f.Message,
			Line:     f.Location.Row,
			Column:   f.Location.Column,
			Severity: f.Severity,
		})
	}
	return violations, nil
}

func runProcess(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
		}
		return nil, nil, -1, err
	}
	return stdout.Bytes(), stderr.Bytes(), 0, nil
}

func errorf(format string, args ...any) *string {
	msg := fmt.Sprintf(format, args...)
	return &msg
}
