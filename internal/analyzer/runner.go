// Package analyzer invokes the external smell detectors and classifies the
// result of each invocation. It never interprets analyzer output content.
package analyzer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Kind selects which external analyzer an invocation drives.
type Kind string

const (
	// KindDesigniteCross runs DesigniteJava over the full working tree.
	KindDesigniteCross Kind = "designite_cross"
	// KindDesigniteTemporal runs DesigniteJava over one historical checkout.
	KindDesigniteTemporal Kind = "designite_temporal"
	// KindCSDetector runs the community-smell detector against the remote.
	KindCSDetector Kind = "csdetector"
)

// Request carries the per-invocation inputs. TreeDir is used by the
// designite kinds; RemoteURL and Token by csdetector.
type Request struct {
	TreeDir   string
	OutputDir string
	RemoteURL string
	Token     string
}

// Outcome is the classified result of one invocation.
type Outcome struct {
	OK       bool
	ExitCode int
	Duration time.Duration
	Detail   string
}

// Config locates the external tools and bounds their run times.
type Config struct {
	JavaBin           string
	DesigniteJar      string
	PythonBin         string
	CSDetectorPath    string
	SentiStrengthPath string
	DesigniteTimeout  time.Duration
	CSDetectorTimeout time.Duration
}

// timeout returns the bound for one analyzer kind.
func (c Config) timeout(kind Kind) time.Duration {
	var d time.Duration
	switch kind {
	case KindCSDetector:
		d = c.CSDetectorTimeout
	default:
		d = c.DesigniteTimeout
	}
	if d <= 0 {
		d = 30 * time.Minute
	}
	return d
}

// CommandRunner abstracts process execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by spawning the process.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec %s: %w", name, err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// Runner executes analyzer invocations.
type Runner struct {
	cmd CommandRunner
	cfg Config
}

// NewRunner creates a Runner using the given command runner.
func NewRunner(cmd CommandRunner, cfg Config) *Runner {
	return &Runner{cmd: cmd, cfg: cfg}
}

// Run ensures the output directory exists, invokes the analyzer for kind,
// and classifies the exit status. A timeout classifies as a failed outcome,
// not an error; errors are reserved for the invocation itself going wrong.
func (r *Runner) Run(ctx context.Context, kind Kind, req Request) (*Outcome, error) {
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", req.OutputDir, err)
	}

	name, args, err := r.command(kind, req)
	if err != nil {
		return nil, err
	}

	timeout := r.cfg.timeout(kind)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	_, stderr, exitCode, err := r.cmd.Run(runCtx, req.TreeDir, name, args...)
	duration := time.Since(start)

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return &Outcome{
				OK:       false,
				ExitCode: -1,
				Duration: duration,
				Detail:   fmt.Sprintf("timeout after %s", timeout),
			}, nil
		}
		return nil, fmt.Errorf("run %s: %w", kind, err)
	}

	out := &Outcome{OK: exitCode == 0, ExitCode: exitCode, Duration: duration}
	if !out.OK {
		out.Detail = fmt.Sprintf("exit=%d", exitCode)
		if msg := lastLine(stderr); msg != "" {
			out.Detail = fmt.Sprintf("exit=%d: %s", exitCode, msg)
		}
	}
	return out, nil
}

// command builds the argv for one analyzer kind.
func (r *Runner) command(kind Kind, req Request) (string, []string, error) {
	switch kind {
	case KindDesigniteCross, KindDesigniteTemporal:
		return r.cfg.JavaBin, []string{
			"-jar", r.cfg.DesigniteJar,
			"-i", req.TreeDir,
			"-o", req.OutputDir,
		}, nil
	case KindCSDetector:
		return r.cfg.PythonBin, []string{
			r.cfg.CSDetectorPath,
			"-p", req.Token,
			"-r", req.RemoteURL,
			"-s", r.cfg.SentiStrengthPath,
			"-o", req.OutputDir,
		}, nil
	default:
		return "", nil, fmt.Errorf("unknown analyzer kind %q", kind)
	}
}

// lastLine returns the last non-empty line of s, truncated for detail fields.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if len(last) > 200 {
		last = last[:200]
	}
	return last
}
