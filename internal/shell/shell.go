// SPDX-License-Identifier: MPL-2.0

// Package shell turns templated command strings into running child
// processes: it renders the template, injects the configured prefix and
// suffix, applies the environment activation chain, spawns the command
// through the configured interpreter, and tracks the live process in a
// registry so the surrounding scheduler can cancel it by job id.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"flowrun/internal/benchmark"
	"flowrun/internal/format"
	"flowrun/pkg/platform"
)

type (
	// ExecutionContext aggregates the per-invocation inputs to a run. It is
	// read-only after construction and discarded when the invocation
	// completes.
	ExecutionContext struct {
		// Context cancels the child process when done. Nil means
		// context.Background().
		Context context.Context
		// Args fill positional placeholders ({0}, {1}, {}) in the template,
		// the prefix, and the suffix.
		Args []any
		// Locals are the caller's ambient bindings.
		Locals format.Bindings
		// Bindings are explicit per-invocation bindings; they win over
		// Locals on key collision.
		Bindings format.Bindings
		// JobID is the scheduler's cancellation handle. Empty means the
		// process is not registered.
		JobID string
		// EnvModules, when non-nil, is the environment-module activation
		// stage.
		EnvModules ModuleActivator
		// CondaEnv selects the package-environment activation stage.
		CondaEnv string
		// ContainerImg selects the container activation stage.
		ContainerImg string
		// ShadowDir overrides the working directory inside the container.
		ShadowDir string
		// ContainerArgs are extra flags for the container runner.
		ContainerArgs string
		// IsShell suppresses the "about to execute" notification.
		IsShell bool
		// BenchRecord, when non-nil, enables resource sampling for the
		// duration of the process wait.
		BenchRecord *benchmark.Record
	}

	// Result is the outcome of a completed invocation.
	Result struct {
		// ExitCode is the exit code of the command.
		ExitCode int
		// Output contains captured stdout (capture mode only).
		Output string
		// Command is the final command text handed to the interpreter.
		Command string
	}

	// Runner is the execution engine. Construct it once with the shared
	// Config and Registry and reuse it across invocations; it is safe for
	// concurrent use.
	Runner struct {
		// Config holds the interpreter executable and prefix/suffix text.
		Config *Config
		// Registry tracks live processes by job id for cancellation.
		Registry *Registry
		// Logger receives informational notifications. Nil disables them.
		Logger *log.Logger
		// Conda builds the package-environment activator for a given
		// container-image context. Required when CondaEnv is used.
		Conda func(containerImg string) EnvActivator
		// Container wraps commands for containerized execution. Required
		// when ContainerImg is used.
		Container ContainerRunner
		// Stdout is where fire-and-forget output goes. Nil leaves the
		// child's stdout unconnected, which keeps spawning safe when the
		// surrounding harness has replaced the process's stdout.
		Stdout io.Writer
		// Stderr is inherited by every child. Nil leaves it unconnected.
		Stderr io.Writer
		// Sampler performs the scoped resource sampling for BenchRecord
		// invocations. Nil uses the default sampler.
		Sampler *benchmark.Sampler
	}
)

// NewRunner returns a Runner wired to cfg with a fresh registry and the
// process's own standard streams.
func NewRunner(cfg *Config, logger *log.Logger) *Runner {
	return &Runner{
		Config:   cfg,
		Registry: NewRegistry(),
		Logger:   logger,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// Run executes the rendered command and blocks until it exits, without
// capturing output (fire-and-forget). A non-zero exit yields a
// *CommandFailedError alongside the Result.
func (r *Runner) Run(ec *ExecutionContext, tmpl string) (*Result, error) {
	cmdText, err := r.buildCommand(ec, tmpl)
	if err != nil {
		return nil, err
	}
	cmd := r.command(ec, cmdText)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return r.runToCompletion(ec, cmd, cmdText, nil)
}

// RunCapture executes the rendered command, blocks until it exits, and
// returns its entire standard output in Result.Output.
func (r *Runner) RunCapture(ec *ExecutionContext, tmpl string) (*Result, error) {
	cmdText, err := r.buildCommand(ec, tmpl)
	if err != nil {
		return nil, err
	}
	cmd := r.command(ec, cmdText)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = r.Stderr
	return r.runToCompletion(ec, cmd, cmdText, &stdout)
}

// RunStream executes the rendered command and returns a lazy line stream
// over its standard output. Consuming the stream to exhaustion (or closing
// it early) is the only way the spawned process is reaped and the job id
// deregistered.
func (r *Runner) RunStream(ec *ExecutionContext, tmpl string) (*Stream, error) {
	cmdText, err := r.buildCommand(ec, tmpl)
	if err != nil {
		return nil, err
	}
	cmd := r.command(ec, cmdText)
	cmd.Stderr = r.Stderr
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := r.start(ec, cmd); err != nil {
		return nil, err
	}
	return newStream(cmd, pipe, r.Registry, ec.JobID, cmdText), nil
}

// CheckOutput runs a literal command string (no template rendering, no
// activation chain) through the configured interpreter and returns its
// standard output.
func (r *Runner) CheckOutput(ctx context.Context, cmdText string) ([]byte, error) {
	ec := &ExecutionContext{Context: ctx}
	cmd := r.command(ec, cmdText)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), &CommandFailedError{ExitCode: exitErr.ExitCode(), Command: cmdText}
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// buildCommand renders the template, prefix, and suffix against the merged
// bindings, joins them, and applies the activation chain in its fixed
// order: environment modules, then package environment, then container.
// The container stage must see the already-activated command so that
// environment activation happens inside the container.
func (r *Runner) buildCommand(ec *ExecutionContext, tmpl string) (string, error) {
	if _, ok := ec.Bindings[format.ReservedBinding]; ok {
		return "", &InvalidArgumentError{Err: &format.ReservedBindingError{Name: format.ReservedBinding}}
	}
	bindings := ec.Locals.Merge(ec.Bindings)

	render := func(s string) (string, error) {
		out, err := format.Render(s, ec.Args, bindings)
		if err != nil {
			if errors.Is(err, format.ErrReservedBinding) {
				return "", &InvalidArgumentError{Err: err}
			}
			return "", err
		}
		return out, nil
	}

	body, err := render(tmpl)
	if err != nil {
		return "", err
	}
	if !ec.IsShell {
		r.notify("shell command", "cmd", body)
	}

	prefix, err := render(r.Config.Prefix())
	if err != nil {
		return "", err
	}
	suffix, err := render(r.Config.Suffix())
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{prefix, body, suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	cmdText := strings.Join(parts, " ")

	if ec.EnvModules != nil {
		cmdText = ec.EnvModules.Shellcmd(cmdText)
		r.notify("activating environment modules", "modules", ec.EnvModules)
	}
	if ec.CondaEnv != "" {
		if r.Conda == nil {
			return "", &InvalidArgumentError{Err: errors.New("conda environment requested but no activator is configured")}
		}
		cmdText = r.Conda(ec.ContainerImg).Shellcmd(ec.CondaEnv, cmdText)
	}
	if ec.ContainerImg != "" {
		if r.Container == nil {
			return "", &InvalidArgumentError{Err: errors.New("container image requested but no container runner is configured")}
		}
		cmdText = r.Container.Shellcmd(ec.ContainerImg, cmdText, ec.ContainerArgs, r.Config.Executable(), ec.ShadowDir)
		r.notify("activating container image", "img", ec.ContainerImg)
	}
	if ec.CondaEnv != "" {
		r.notify("activating conda environment", "env", ec.CondaEnv)
	}
	return cmdText, nil
}

// command builds the exec.Cmd that hands cmdText to the configured
// interpreter. Stdout/stderr wiring is left to the caller.
func (r *Runner) command(ec *ExecutionContext, cmdText string) *exec.Cmd {
	ctx := ec.Context
	if ctx == nil {
		ctx = context.Background()
	}
	path, args := interpreterArgs(r.Config.Executable())
	return exec.CommandContext(ctx, path, append(args, cmdText)...)
}

// start spawns the process and registers it under the context's job id.
// Registration completes before start returns, so a concurrent Kill can
// observe the job id as soon as the caller regains control.
func (r *Runner) start(ec *ExecutionContext, cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	r.Registry.Register(ec.JobID, cmd.Process)
	return nil
}

// runToCompletion starts the process, waits for it (inside a scoped
// sampling acquisition when a bench record is present), deregisters the job
// id on every exit path, and converts a non-zero exit into a
// *CommandFailedError.
func (r *Runner) runToCompletion(ec *ExecutionContext, cmd *exec.Cmd, cmdText string, stdout *bytes.Buffer) (*Result, error) {
	if err := r.start(ec, cmd); err != nil {
		return nil, err
	}

	waitErr := func() error {
		if ec.BenchRecord != nil {
			stop := r.sampler().Sampled(int32(cmd.Process.Pid), ec.BenchRecord)
			defer stop()
		}
		return cmd.Wait()
	}()

	r.Registry.Deregister(ec.JobID)

	res := &Result{Command: cmdText}
	if stdout != nil {
		res.Output = stdout.String()
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &CommandFailedError{ExitCode: res.ExitCode, Command: cmdText}
		}
		return res, waitErr
	}
	return res, nil
}

func (r *Runner) sampler() *benchmark.Sampler {
	if r.Sampler != nil {
		return r.Sampler
	}
	return benchmark.DefaultSampler
}

func (r *Runner) notify(msg string, kv ...any) {
	if r.Logger != nil {
		r.Logger.Info(msg, kv...)
	}
}

// interpreterArgs resolves the interpreter invocation for a command string.
// An unset executable falls back to the platform default shell.
func interpreterArgs(executable string) (string, []string) {
	if executable == "" {
		if platform.IsPosix() {
			return "/bin/sh", []string{"-c"}
		}
		return "cmd", []string{"/C"}
	}
	base := strings.TrimSuffix(filepath.Base(executable), ".exe")
	switch base {
	case "cmd":
		return executable, []string{"/C"}
	case "powershell", "pwsh":
		return executable, []string{"-NoProfile", "-Command"}
	default:
		return executable, []string{"-c"}
	}
}
