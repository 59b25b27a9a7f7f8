// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"flowrun/internal/benchmark"
	"flowrun/internal/config"
	"flowrun/internal/deploy"
	"flowrun/internal/format"
	"flowrun/internal/shell"
)

var (
	runBinds           []string
	runArgs            []string
	runJobID           string
	runRead            bool
	runStream          bool
	runBench           bool
	runQuiet           bool
	runCondaEnv        string
	runContainerImg    string
	runEnvModules      []string
	runShadowDir       string
	runSingularityArgs string

	runCmd = &cobra.Command{
		Use:   "run [flags] TEMPLATE",
		Short: "Render and execute a command template",
		Long: `Render TEMPLATE against the supplied bindings, wrap it for any
requested environments, and execute it through the configured shell.

Placeholders use Python format syntax: {name} resolves against --bind
entries, {0}/{} against --arg entries.`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}
)

func init() {
	runCmd.Flags().StringArrayVarP(&runBinds, "bind", "b", nil, "template binding as name=value (repeatable)")
	runCmd.Flags().StringArrayVar(&runArgs, "arg", nil, "positional template argument (repeatable)")
	runCmd.Flags().StringVar(&runJobID, "jobid", "", "job id registering the process for cancellation")
	runCmd.Flags().BoolVar(&runRead, "read", false, "capture stdout and print it when the command finishes")
	runCmd.Flags().BoolVar(&runStream, "stream", false, "stream stdout line by line as it is produced")
	runCmd.Flags().BoolVar(&runBench, "bench", false, "sample resource usage while the command runs")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "suppress the command notification")
	runCmd.Flags().StringVar(&runCondaEnv, "conda-env", "", "conda environment to activate")
	runCmd.Flags().StringVar(&runContainerImg, "container-img", "", "container image to execute inside")
	runCmd.Flags().StringSliceVar(&runEnvModules, "env-modules", nil, "environment modules to load")
	runCmd.Flags().StringVar(&runShadowDir, "shadow-dir", "", "working directory inside the container")
	runCmd.Flags().StringVar(&runSingularityArgs, "singularity-args", "", "extra arguments for singularity exec")
	runCmd.MarkFlagsMutuallyExclusive("read", "stream")
	// Benchmarking requires the blocking wait path; the sampler never runs
	// around a stream's consumer-paced reaping.
	runCmd.MarkFlagsMutuallyExclusive("stream", "bench")
}

func runRun(cmd *cobra.Command, args []string) error {
	runner, err := newRunner(cfg)
	if err != nil {
		return err
	}

	bindings, err := parseBindings(runBinds)
	if err != nil {
		return err
	}

	ec := &shell.ExecutionContext{
		Context:       cmd.Context(),
		Args:          toAnySlice(runArgs),
		Bindings:      bindings,
		JobID:         runJobID,
		CondaEnv:      runCondaEnv,
		ContainerImg:  runContainerImg,
		ShadowDir:     runShadowDir,
		ContainerArgs: runSingularityArgs,
		IsShell:       runQuiet,
	}
	if len(runEnvModules) > 0 {
		ec.EnvModules = deploy.NewEnvModules(runEnvModules...)
	}
	if runBench {
		ec.BenchRecord = &benchmark.Record{}
	}

	var runErr error
	switch {
	case runStream:
		runErr = streamCommand(runner, ec, args[0])
	case runRead:
		var res *shell.Result
		res, runErr = runner.RunCapture(ec, args[0])
		if res != nil {
			fmt.Fprint(cmd.OutOrStdout(), res.Output)
		}
	default:
		_, runErr = runner.Run(ec, args[0])
	}

	if ec.BenchRecord != nil && (runErr == nil || errors.Is(runErr, shell.ErrCommandFailed)) {
		fmt.Fprintln(cmd.ErrOrStderr(), SubtitleStyle.Render("benchmark: ")+ec.BenchRecord.String())
	}

	if runErr != nil {
		var failed *shell.CommandFailedError
		if errors.As(runErr, &failed) {
			fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+"command failed: "+CmdStyle.Render(failed.Command))
			return &ExitError{Code: failed.ExitCode, Err: runErr}
		}
		return runErr
	}
	return nil
}

// streamCommand drains a streaming run to stdout, one line at a time.
func streamCommand(runner *shell.Runner, ec *shell.ExecutionContext, tmpl string) error {
	stream, err := runner.RunStream(ec, tmpl)
	if err != nil {
		return err
	}
	defer stream.Close()
	for stream.Next() {
		fmt.Println(stream.Text())
	}
	return stream.Err()
}

// newRunner builds the execution engine from the loaded configuration,
// probing for a default interpreter when none is configured.
func newRunner(cfg *config.Config) (*shell.Runner, error) {
	shellCfg := shell.NewConfig()
	// Prefix and suffix go first: SetExecutable prepends the fail-fast
	// directive to the prefix when the interpreter is bash.
	shellCfg.SetPrefix(cfg.Shell.Prefix)
	shellCfg.SetSuffix(cfg.Shell.Suffix)
	if cfg.Shell.Executable != "" {
		if err := shellCfg.SetExecutable(cfg.Shell.Executable); err != nil {
			return nil, err
		}
	} else {
		shellCfg.DetectDefault(logger)
	}

	runner := shell.NewRunner(shellCfg, logger)
	runner.Conda = func(containerImg string) shell.EnvActivator {
		return deploy.NewConda(containerImg)
	}
	runner.Container = deploy.Singularity{}
	if cfg.Benchmark.Interval > 0 {
		runner.Sampler = &benchmark.Sampler{Interval: cfg.Benchmark.Interval}
	}
	return runner, nil
}

// parseBindings turns repeated name=value flags into a binding map.
func parseBindings(pairs []string) (format.Bindings, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	bindings := make(format.Bindings, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid binding %q: expected name=value", pair)
		}
		bindings[name] = value
	}
	return bindings, nil
}

func toAnySlice(args []string) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}
