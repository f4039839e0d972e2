package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cexplorer/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "cexplorer",
	Short:         "Live Compiler Explorer sessions from the terminal",
	Long:          `cexplorer compiles sources against a Compiler Explorer service, live or one-shot`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		applyColorFlag(cmd)
		cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		traceCleanup = cleanup
		profCleanup, err = setupProfiling(cmd)
		return err
	},
}

var traceCleanup, profCleanup func()

// main registers subcommands and persistent flags, then executes the root
// command. A failing command exits with status 1.
func main() {
	rootCmd.Version = version.Current().Version

	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(compilersCmd)
	rootCmd.AddCommand(librariesCmd)
	rootCmd.AddCommand(prefetchCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(liveCmd)
	rootCmd.AddCommand(docCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "plugin settings file (default $XDG_CONFIG_HOME/cexplorer/config.toml)")
	pf.String("url", "", "Compiler Explorer service URL (overrides the settings file)")
	pf.String("log-level", "", "log level (debug|info|warn|error|off)")
	pf.String("log-format", "", "log format (console|json)")
	pf.String("log-file", "", "write logs to this file instead of stderr")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("no-cache", false, "do not read or write the on-disk catalog cache")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	pf.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	pf.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")

	err := rootCmd.Execute()
	// post-run hooks are skipped when a command fails
	if profCleanup != nil {
		profCleanup()
	}
	if traceCleanup != nil {
		traceCleanup()
	}
	if err != nil {
		os.Exit(1)
	}
}

func applyColorFlag(cmd *cobra.Command) {
	mode, _ := cmd.Root().PersistentFlags().GetString("color")
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	}
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
