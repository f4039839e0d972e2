package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cexplorer/internal/api"
	"cexplorer/internal/catalog"
	"cexplorer/internal/observ"
	"cexplorer/internal/render"
	"cexplorer/internal/settings"
	"cexplorer/internal/trace"
	"cexplorer/internal/ui"
)

var (
	compileCompiler string
	compileLanguage string
	compileOptions  string
	compileExecute  bool
	compileBinary   bool
	compileATT      bool
	compileMangled  bool
	compileLibs     []string
	compileFormat   string
	compileTimings  bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <file|->",
	Short: "Compile a source once and print assembly and output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch compileFormat {
		case "text", "json":
		default:
			return fmt.Errorf("unsupported format %q (must be text or json)", compileFormat)
		}
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		ctx := commandContext(cmd)
		span := trace.Begin(trace.FromContext(ctx), trace.ScopeSession, "compile", 0)
		defer span.End("")

		timings := observ.New()
		stop := timings.Start(observ.StepRead)
		text, err := readSource(cmd.InOrStdin(), args[0])
		stop(args[0])
		if err != nil {
			return err
		}

		lang := compileLanguage
		if lang == "" {
			stop = timings.Start(observ.StepDetect)
			lang = detectLanguage(ctx, a.catalog, args[0], a.log)
			stop(lang)
		}

		stop = timings.Start(observ.StepSnapshot)
		req, err := buildRequest(lang, text)
		stop("")
		if err != nil {
			return err
		}

		stop = timings.Start(observ.StepRequest)
		res, err := a.client.Compile(ctx, req)
		stop(req.Compiler())
		if err != nil {
			a.log.Warn("compile request failed", zap.Error(err))
			res = api.FailedResult(err)
		}

		out := cmd.OutOrStdout()
		if compileFormat == "json" {
			err = writeJSON(out, res)
		} else {
			stop = timings.Start(observ.StepRender)
			err = printResult(out, res)
			stop("")
		}
		if err != nil {
			return err
		}
		if compileTimings {
			if err := timings.WriteTable(cmd.ErrOrStderr()); err != nil {
				return err
			}
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("compiler returned %d", res.ExitCode)
		}
		return nil
	},
}

func init() {
	f := compileCmd.Flags()
	f.StringVarP(&compileCompiler, "compiler", "c", "", "compiler id (default "+api.DefaultCompilerID+")")
	f.StringVarP(&compileLanguage, "lang", "l", "", "language id (default: from the file extension)")
	f.StringVarP(&compileOptions, "options", "o", "", "compiler arguments")
	f.BoolVarP(&compileExecute, "execute", "x", false, "also build and run the program")
	f.BoolVar(&compileBinary, "binary", false, "compile to a binary object")
	f.BoolVar(&compileATT, "att", false, "AT&T assembly syntax")
	f.BoolVar(&compileMangled, "no-demangle", false, "keep mangled identifiers")
	f.StringArrayVar(&compileLibs, "lib", nil, "library as id=version (repeatable)")
	f.StringVar(&compileFormat, "format", "text", "output format (text|json)")
	f.BoolVar(&compileTimings, "timings", false, "print phase timings to stderr")
}

func readSource(stdin io.Reader, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(data), nil
}

// buildRequest fills a compiler container the way an edit session would and
// snapshots it.
func buildRequest(lang, text string) (api.CompileRequest, error) {
	env := &settings.Env{}
	src := settings.NewSource(env)
	src.Language.SetValue(lang)
	src.Text.SetValue(text)
	c := settings.NewCompiler(env)
	c.ID.SetValue(compileCompiler)
	c.Options.SetValue(compileOptions)
	c.ExecuteCode.SetValue(compileExecute)
	c.CompileToBinaryObject.SetValue(compileBinary)
	c.IntelAsmSyntax.SetValue(!compileATT)
	c.DemangleIdentifiers.SetValue(!compileMangled)
	for _, lib := range compileLibs {
		id, ver, ok := strings.Cut(lib, "=")
		if !ok || id == "" || ver == "" {
			return api.CompileRequest{}, fmt.Errorf("invalid --lib %q (expected id=version)", lib)
		}
		c.Libraries.SelectVersion(id, ver)
	}
	return c.Request(src), nil
}

// detectLanguage maps the file extension through the language catalog,
// falling back to the default language.
func detectLanguage(ctx context.Context, cat *catalog.Catalog, path string, log *zap.Logger) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return settings.DefaultLanguage
	}
	langs, err := cat.Languages(ctx)
	if err != nil {
		log.Warn("language detection unavailable", zap.Error(err))
		return settings.DefaultLanguage
	}
	for _, l := range langs {
		for _, e := range l.Extensions {
			if strings.EqualFold(e, ext) || strings.EqualFold("."+e, ext) {
				return l.ID
			}
		}
	}
	return settings.DefaultLanguage
}

func printResult(out io.Writer, res api.CompileResult) error {
	m, err := render.Render(res)
	if err != nil {
		return err
	}
	return writeModel(out, m)
}

func printModel(out io.Writer, u ui.CompilerUpdate) error { return writeModel(out, u.Model) }

func writeModel(out io.Writer, m render.Model) error {
	colored := !color.NoColor
	if err := render.WriteAssembly(out, m, colored); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	return render.WriteTerminal(out, m, colored)
}
