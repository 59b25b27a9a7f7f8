// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"flowrun/internal/format"
)

// testRunner builds a Runner on the platform default shell with output
// discarded, suitable for spawning real processes in tests.
func testRunner(t *testing.T) *Runner {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX test commands")
	}
	r := NewRunner(NewConfig(), nil)
	r.Stdout = nil
	r.Stderr = nil
	return r
}

func TestRunCaptureReturnsStdout(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	res, err := r.RunCapture(&ExecutionContext{}, "printf 'hello\\nworld\\n'")
	if err != nil {
		t.Fatalf("RunCapture error: %v", err)
	}
	if res.Output != "hello\nworld\n" {
		t.Errorf("Output = %q, want %q", res.Output, "hello\nworld\n")
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
}

func TestRunCaptureNonZeroExit(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	_, err := r.RunCapture(&ExecutionContext{}, "exit 1")
	if err == nil {
		t.Fatal("RunCapture on failing command: want error, got nil")
	}
	var failed *CommandFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("error is not *CommandFailedError: %v", err)
	}
	if failed.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", failed.ExitCode)
	}
	if failed.Command == "" {
		t.Error("CommandFailedError carries no command text")
	}
}

func TestRunFireAndForget(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	res, err := r.Run(&ExecutionContext{}, "true")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Output != "" {
		t.Errorf("fire-and-forget captured output %q", res.Output)
	}
}

func TestRunRendersTemplate(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	res, err := r.RunCapture(&ExecutionContext{
		Bindings: format.Bindings{"word": "bound"},
	}, "echo {word}")
	if err != nil {
		t.Fatalf("RunCapture error: %v", err)
	}
	if res.Output != "bound\n" {
		t.Errorf("Output = %q, want %q", res.Output, "bound\n")
	}
}

func TestRunAppliesPrefixAndSuffix(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	r.Config.SetPrefix("echo before &&")
	r.Config.SetSuffix("&& echo after")
	res, err := r.RunCapture(&ExecutionContext{}, "echo during")
	if err != nil {
		t.Fatalf("RunCapture error: %v", err)
	}
	if res.Output != "before\nduring\nafter\n" {
		t.Errorf("Output = %q, want prefix/command/suffix order", res.Output)
	}
	if !strings.Contains(res.Command, "echo before && echo during && echo after") {
		t.Errorf("Command = %q, want single-space joined parts", res.Command)
	}
}

func TestRunPrefixIsFormattedToo(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	r.Config.SetPrefix("echo {tag} &&")
	res, err := r.RunCapture(&ExecutionContext{
		Bindings: format.Bindings{"tag": "pfx"},
	}, "echo body")
	if err != nil {
		t.Fatalf("RunCapture error: %v", err)
	}
	if res.Output != "pfx\nbody\n" {
		t.Errorf("Output = %q, want formatted prefix output", res.Output)
	}
}

func TestRunReservedBindingSpawnsNothing(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	_, err := r.Run(&ExecutionContext{
		JobID:    "job1",
		Bindings: format.Bindings{format.ReservedBinding: 2},
	}, "echo {stepout}")
	if err == nil {
		t.Fatal("Run with reserved binding: want error, got nil")
	}
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("error does not wrap ErrInvalidArgument: %v", err)
	}
	if r.Registry.Len() != 0 {
		t.Errorf("registry has %d entries after rejected invocation", r.Registry.Len())
	}
}

func TestRunLocalsLoseToExplicitBindings(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	res, err := r.RunCapture(&ExecutionContext{
		Locals:   format.Bindings{"v": "local", "only": "ambient"},
		Bindings: format.Bindings{"v": "explicit"},
	}, "echo {v} {only}")
	if err != nil {
		t.Fatalf("RunCapture error: %v", err)
	}
	if res.Output != "explicit ambient\n" {
		t.Errorf("Output = %q, want explicit binding to win", res.Output)
	}
}

func TestRunJobIDRegisteredOnlyDuringExecution(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	if r.Registry.Contains("job1") {
		t.Fatal("job1 registered before run")
	}

	stream, err := r.RunStream(&ExecutionContext{JobID: "job1"}, "echo started; sleep 60")
	if err != nil {
		t.Fatalf("RunStream error: %v", err)
	}
	if !stream.Next() {
		t.Fatalf("no first line; err = %v", stream.Err())
	}
	if !r.Registry.Contains("job1") {
		t.Error("job1 not registered while the process runs")
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if r.Registry.Contains("job1") {
		t.Error("job1 still registered after the stream was closed")
	}
}

func TestRunDeregistersAfterFailure(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	_, err := r.Run(&ExecutionContext{JobID: "job1"}, "exit 7")
	var failed *CommandFailedError
	if !errors.As(err, &failed) || failed.ExitCode != 7 {
		t.Fatalf("want CommandFailedError with exit 7, got %v", err)
	}
	if r.Registry.Contains("job1") {
		t.Error("job1 still registered after failed run")
	}
}

func TestConcurrentKillTerminatesRun(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	errCh := make(chan error, 1)
	go func() {
		_, err := r.Run(&ExecutionContext{JobID: "job1"}, "sleep 60")
		errCh <- err
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !r.Registry.Contains("job1") {
		if time.Now().After(deadline) {
			t.Fatal("job1 never registered")
		}
		time.Sleep(time.Millisecond)
	}

	r.Registry.Kill("job1")

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("killed run returned nil error")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after kill")
	}
	if r.Registry.Contains("job1") {
		t.Error("job1 still registered after kill")
	}
	// A second kill for the finished job is a safe no-op.
	r.Registry.Kill("job1")
}

func TestNotifyReportsTemplateBodyOnly(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	var buf bytes.Buffer
	r.Logger = log.New(&buf)
	r.Config.SetPrefix("echo before &&")

	if _, err := r.RunCapture(&ExecutionContext{
		Bindings: format.Bindings{"word": "body"},
	}, "echo {word}"); err != nil {
		t.Fatalf("RunCapture error: %v", err)
	}

	notified := buf.String()
	if !strings.Contains(notified, "echo body") {
		t.Errorf("notification %q missing the formatted template body", notified)
	}
	if strings.Contains(notified, "echo before") {
		t.Errorf("notification %q includes the prefix", notified)
	}
}

func TestNotifySuppressedByIsShell(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	var buf bytes.Buffer
	r.Logger = log.New(&buf)

	if _, err := r.Run(&ExecutionContext{IsShell: true}, "true"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if strings.Contains(buf.String(), "true") {
		t.Errorf("notification %q emitted despite IsShell", buf.String())
	}
}

func TestRunEnvModulesWrapsCommand(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	_, err := r.Run(&ExecutionContext{
		EnvModules: staticActivator("true ||"),
	}, "false")
	if err != nil {
		t.Fatalf("activator did not wrap the command: %v", err)
	}
}

func TestRunCondaWithoutActivatorFails(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	_, err := r.Run(&ExecutionContext{CondaEnv: "myenv"}, "true")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("want ErrInvalidArgument for missing conda activator, got %v", err)
	}
}

func TestCheckOutput(t *testing.T) {
	t.Parallel()

	r := testRunner(t)
	out, err := r.CheckOutput(t.Context(), "echo raw")
	if err != nil {
		t.Fatalf("CheckOutput error: %v", err)
	}
	if string(out) != "raw\n" {
		t.Errorf("CheckOutput = %q, want %q", out, "raw\n")
	}

	_, err = r.CheckOutput(t.Context(), "exit 2")
	var failed *CommandFailedError
	if !errors.As(err, &failed) || failed.ExitCode != 2 {
		t.Errorf("want CommandFailedError with exit 2, got %v", err)
	}
}

// staticActivator prepends fixed text, standing in for a module system.
type staticActivator string

func (a staticActivator) Shellcmd(cmd string) string {
	return string(a) + " " + cmd
}
