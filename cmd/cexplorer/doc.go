package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cexplorer/internal/document"
	"cexplorer/internal/session"
	"cexplorer/internal/settings"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Create, inspect and convert settings documents",
}

var docNewCmd = &cobra.Command{
	Use:   "new <file>",
	Short: "Write the built-in starter document",
	Long:  "new writes a hello-world document. The format follows the extension (.yaml, .json, .msgpack).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := document.WriteFile(args[0], session.BuiltinDocument()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
		return nil
	},
}

var docConvertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Rewrite a document in the format of the output extension",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return document.Convert(args[0], args[1])
	},
}

var docShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Validate a document and list its sources and compilers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := document.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc := settings.NewDocument(&settings.Env{})
		if err := doc.FromMap(store); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		out := cmd.OutOrStdout()
		for i, src := range doc.Sources.Items() {
			lines := strings.Count(src.Text.Value(), "\n")
			fmt.Fprintf(out, "source %d: %s, %d lines\n", i+1, src.Language.Value(), lines)
			for _, c := range src.Compilers.Items() {
				fmt.Fprintf(out, "  %s", c.Title())
				if opts := c.Options.Value(); opts != "" {
					fmt.Fprintf(out, " %s", opts)
				}
				if c.ExecuteCode.Value() {
					fmt.Fprint(out, " [execute]")
				}
				if libs := c.Libraries.Display(); libs != "" && len(c.Libraries.Value()) > 0 {
					fmt.Fprintf(out, " (%s)", libs)
				}
				fmt.Fprintln(out)
			}
		}
		return nil
	},
}

func init() {
	docCmd.AddCommand(docNewCmd)
	docCmd.AddCommand(docConvertCmd)
	docCmd.AddCommand(docShowCmd)
}
