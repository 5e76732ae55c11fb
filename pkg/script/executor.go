package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/biglinux/bigbashview/pkg/logging"
)

const (
	// DefaultShell interprets command lines.
	DefaultShell = "/bin/sh"

	// fallbackBash is used in root mode when bash is not on PATH.
	fallbackBash = "/bin/bash"

	// waitDelay bounds how long Wait blocks on pipes held open by
	// grandchildren after the script itself was killed.
	waitDelay = 2 * time.Second

	stderrPreview = 2048
)

// Command is one script invocation.
type Command struct {
	// Line is the shell command line, usually built with CommandLine.
	Line string

	// Overlay holds the query-derived environment variables.
	Overlay Overlay

	// Address is exported to the child as bbv_ip / bbv_port.
	Address Address
}

// Result is the captured output of a finished script.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Elapsed  time.Duration
}

// Executor spawns scripts, one child process per Run.
type Executor struct {
	shell   string
	bash    string
	timeout time.Duration
	baseEnv func() []string
	root    *RootFlag
	log     *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for script stderr and exit status.
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// WithTimeout bounds every run. Zero leaves runs bounded only by their context.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithShell overrides the interpreter used for command lines.
func WithShell(shell string) Option {
	return func(e *Executor) {
		if shell != "" {
			e.shell = shell
		}
	}
}

// WithBash overrides the bash binary used in root mode.
func WithBash(bash string) Option {
	return func(e *Executor) {
		e.bash = bash
	}
}

// WithBaseEnv replaces os.Environ as the inherited environment.
func WithBaseEnv(fn func() []string) Option {
	return func(e *Executor) {
		if fn != nil {
			e.baseEnv = fn
		}
	}
}

// NewExecutor creates an executor that consults root for root mode.
// A nil root gets a private flag that is never set.
func NewExecutor(root *RootFlag, opts ...Option) *Executor {
	if root == nil {
		root = &RootFlag{}
	}
	e := &Executor{
		shell:   DefaultShell,
		baseEnv: os.Environ,
		root:    root,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Root returns the flag the executor consults.
func (e *Executor) Root() *RootFlag {
	return e.root
}

// Run executes cmd and blocks until the child exits. A non-zero exit status
// is not an error: the caller gets whatever stdout the script produced. An
// error is returned when the child could not be started, or together with
// the partial result when ctx or the executor timeout ended the run.
func (e *Executor) Run(ctx context.Context, cmd Command) (*Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	line := cmd.Line
	if e.root.IsSet() {
		line = e.bashBinary() + " " + line
	}

	child := exec.CommandContext(ctx, e.shell, "-c", line)
	child.Env = BuildEnv(e.baseEnv(), cmd.Overlay, cmd.Address)
	child.WaitDelay = waitDelay
	configureProcess(child)

	var stdout, stderr bytes.Buffer
	child.Stdout = &stdout
	child.Stderr = &stderr

	start := time.Now()
	if err := child.Start(); err != nil {
		return nil, &SpawnError{Shell: e.shell, Err: err}
	}
	err := child.Wait()

	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: child.ProcessState.ExitCode(),
		Elapsed:  time.Since(start),
	}
	e.logResult(line, res)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("script %q: %w", cmd.Line, ctxErr)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return res, fmt.Errorf("script %q: %w", cmd.Line, err)
	}
	return res, nil
}

func (e *Executor) bashBinary() string {
	if e.bash != "" {
		return e.bash
	}
	if path, err := exec.LookPath("bash"); err == nil {
		return path
	}
	return fallbackBash
}

func (e *Executor) logResult(line string, res *Result) {
	attrs := []any{
		"command", line,
		"exit_code", res.ExitCode,
		"elapsed", res.Elapsed,
		"stdout_bytes", len(res.Stdout),
	}
	if len(res.Stderr) > 0 {
		preview := res.Stderr
		if len(preview) > stderrPreview {
			preview = preview[:stderrPreview]
		}
		attrs = append(attrs, "stderr", string(preview))
	}
	e.log.Debug("script finished", attrs...)
}
