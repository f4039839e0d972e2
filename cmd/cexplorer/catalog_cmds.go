package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"cexplorer/internal/catalog"
	"cexplorer/internal/settings"
	"cexplorer/internal/ui"
)

var listJSON bool

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the languages the service compiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		langs, err := a.catalog.Languages(commandContext(cmd))
		if err != nil {
			return err
		}
		if listJSON {
			return writeJSON(cmd.OutOrStdout(), langs)
		}
		for _, l := range langs {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-24s %s\n", l.ID, l.Name, strings.Join(l.Extensions, " "))
		}
		return nil
	},
}

var compilersCmd = &cobra.Command{
	Use:   "compilers [language]",
	Short: "List the compilers of a language",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		comps, err := a.catalog.Compilers(commandContext(cmd), languageArg(args))
		if err != nil {
			return err
		}
		if listJSON {
			return writeJSON(cmd.OutOrStdout(), comps)
		}
		for _, c := range comps {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", c.ID, c.Name)
		}
		return nil
	},
}

var librariesCmd = &cobra.Command{
	Use:   "libraries [language]",
	Short: "List the libraries of a language with their versions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		libs, err := a.catalog.Libraries(commandContext(cmd), languageArg(args))
		if err != nil {
			return err
		}
		if listJSON {
			return writeJSON(cmd.OutOrStdout(), libs)
		}
		for _, l := range libs {
			versions := make([]string, 0, len(l.Versions))
			for _, v := range l.Versions {
				versions = append(versions, v.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-28s %s\n", l.ID, l.Name, strings.Join(versions, " "))
		}
		return nil
	},
}

var (
	prefetchJobs  int
	prefetchUI    string
	prefetchFresh bool
)

var prefetchCmd = &cobra.Command{
	Use:   "prefetch [language...]",
	Short: "Warm the catalog cache (all languages when none are given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		ctx := commandContext(cmd)
		if prefetchFresh {
			if err := a.catalog.Invalidate(); err != nil {
				return err
			}
		}
		langs := args
		if len(langs) == 0 {
			all, err := a.catalog.Languages(ctx)
			if err != nil {
				return err
			}
			for _, l := range all {
				langs = append(langs, l.ID)
			}
		}
		mode, err := readUIMode(prefetchUI)
		if err != nil {
			return err
		}
		if !shouldUseTUI(mode) {
			return a.catalog.PrefetchWithProgress(ctx, langs, prefetchJobs, func(e catalog.PrefetchEvent) {
				if e.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", e.Language, e.Listing, e.Err)
				}
			})
		}

		events := make(chan catalog.PrefetchEvent, 2*len(langs))
		errCh := make(chan error, 1)
		go func() {
			errCh <- a.catalog.PrefetchWithProgress(ctx, langs, prefetchJobs, func(e catalog.PrefetchEvent) { events <- e })
			close(events)
		}()
		model := ui.NewProgressModel("prefetching catalog", langs, events)
		if _, err := tea.NewProgram(model, tea.WithOutput(os.Stderr)).Run(); err != nil {
			return err
		}
		return <-errCh
	},
}

func init() {
	for _, c := range []*cobra.Command{languagesCmd, compilersCmd, librariesCmd} {
		c.Flags().BoolVar(&listJSON, "json", false, "print JSON")
	}
	prefetchCmd.Flags().IntVarP(&prefetchJobs, "jobs", "j", 0, "parallel fetches (0 = GOMAXPROCS)")
	prefetchCmd.Flags().StringVar(&prefetchUI, "ui", "auto", "progress UI (auto|on|off)")
	prefetchCmd.Flags().BoolVar(&prefetchFresh, "fresh", false, "ignore cached listings")
}

func languageArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return settings.DefaultLanguage
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
