// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"flowrun/internal/config"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect flowrun configuration",
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE:  runConfigShow,
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, TitleStyle.Render("flowrun configuration"))

	cfgDir, err := config.ConfigDir()
	if err == nil {
		fmt.Fprintln(out, SubtitleStyle.Render("file: ")+filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	}

	executable := cfg.Shell.Executable
	if executable == "" {
		executable = "(autodetect: bash, then sh)"
	}
	fmt.Fprintln(out, SubtitleStyle.Render("shell.executable: ")+executable)
	fmt.Fprintln(out, SubtitleStyle.Render("shell.prefix: ")+CmdStyle.Render(cfg.Shell.Prefix))
	fmt.Fprintln(out, SubtitleStyle.Render("shell.suffix: ")+CmdStyle.Render(cfg.Shell.Suffix))
	fmt.Fprintln(out, SubtitleStyle.Render("benchmark.interval: ")+cfg.Benchmark.Interval.String())
	return nil
}
