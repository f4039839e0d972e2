package api

import (
	"math"
	"slices"

	"fortio.org/safecast"
)

type wireFilters struct {
	Binary       bool `json:"binary"`
	BinaryObject bool `json:"binaryObject"`
	CommentOnly  bool `json:"commentOnly"`
	Demangle     bool `json:"demangle"`
	Directives   bool `json:"directives"`
	Execute      bool `json:"execute"`
	Intel        bool `json:"intel"`
	Labels       bool `json:"labels"`
	LibraryCode  bool `json:"libraryCode"`
	Trim         bool `json:"trim"`
	DebugCalls   bool `json:"debugCalls"`
}

type wireLibrary struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

type wireCompilerOptions struct {
	SkipAsm         bool `json:"skipAsm"`
	ExecutorRequest bool `json:"executorRequest"`
}

type wireExecuteParameters struct {
	Args  []string `json:"args"`
	Stdin string   `json:"stdin"`
}

type wireOptions struct {
	UserArguments     string                `json:"userArguments"`
	CompilerOptions   wireCompilerOptions   `json:"compilerOptions"`
	Filters           wireFilters           `json:"filters"`
	Tools             []any                 `json:"tools"`
	Libraries         []wireLibrary         `json:"libraries"`
	ExecuteParameters wireExecuteParameters `json:"executeParameters"`
}

type wireCompileRequest struct {
	Source              string      `json:"source"`
	Compiler            string      `json:"compiler"`
	Lang                string      `json:"lang,omitempty"`
	Options             wireOptions `json:"options"`
	AllowStoreCodeDebug bool        `json:"allowStoreCodeDebug"`
}

// toWire maps a request onto the service format. Filters the user does not
// control are fixed: comments, directives and labels are stripped, library
// code is kept.
func toWire(r CompileRequest) wireCompileRequest {
	libs := make([]wireLibrary, 0, len(r.Libraries))
	for _, id := range sortedKeys(r.Libraries) {
		libs = append(libs, wireLibrary{ID: id, Version: r.Libraries[id]})
	}
	return wireCompileRequest{
		Source:   r.Source,
		Compiler: r.Compiler(),
		Lang:     r.Language,
		Options: wireOptions{
			UserArguments: r.UserArguments,
			Filters: wireFilters{
				BinaryObject: r.Filters.BinaryObject,
				CommentOnly:  true,
				Demangle:     r.Filters.Demangle,
				Directives:   true,
				Execute:      r.Filters.Execute,
				Intel:        r.Filters.Intel,
				Labels:       true,
			},
			Tools:     []any{},
			Libraries: libs,
			ExecuteParameters: wireExecuteParameters{
				Args: []string{},
			},
		},
		AllowStoreCodeDebug: true,
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type wireText struct {
	Text string `json:"text"`
}

type wireAsm struct {
	Text    string   `json:"text"`
	Opcodes []string `json:"opcodes"`
}

type wireBuildResult struct {
	Code   int64      `json:"code"`
	Stdout []wireText `json:"stdout"`
	Stderr []wireText `json:"stderr"`
}

type wireExecResult struct {
	Code        int64            `json:"code"`
	DidExecute  bool             `json:"didExecute"`
	Stdout      []wireText       `json:"stdout"`
	Stderr      []wireText       `json:"stderr"`
	BuildResult *wireBuildResult `json:"buildResult"`
}

type wireCompileResult struct {
	Code       int64           `json:"code"`
	Stdout     []wireText      `json:"stdout"`
	Stderr     []wireText      `json:"stderr"`
	Asm        []wireAsm       `json:"asm"`
	ExecResult *wireExecResult `json:"execResult"`
}

// fromWire maps a service response. Absent sections stay nil.
func fromWire(w wireCompileResult) CompileResult {
	res := CompileResult{
		ExitCode: exitCode(w.Code),
		StdErr:   texts(w.Stderr),
		StdOut:   texts(w.Stdout),
	}
	if len(w.Asm) > 0 {
		res.Assembly = make([]AsmLine, len(w.Asm))
		for i, a := range w.Asm {
			res.Assembly[i] = AsmLine{Text: a.Text, Opcodes: a.Opcodes}
		}
	}
	if e := w.ExecResult; e != nil {
		res.Exec = &ExecResult{
			DidExecute: e.DidExecute,
			ExitCode:   exitCode(e.Code),
			StdErr:     texts(e.Stderr),
			StdOut:     texts(e.Stdout),
		}
		if b := e.BuildResult; b != nil {
			res.Exec.Build = &BuildResult{
				ExitCode: exitCode(b.Code),
				StdErr:   texts(b.Stderr),
				StdOut:   texts(b.Stdout),
			}
		}
	}
	return res
}

func texts(in []wireText) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, t := range in {
		out[i] = t.Text
	}
	return out
}

// exitCode narrows a reported exit code to int32, saturating at its bounds.
func exitCode(code int64) int {
	n, err := safecast.Conv[int32](code)
	if err != nil {
		if code < 0 {
			return math.MinInt32
		}
		return math.MaxInt32
	}
	return int(n)
}

type wireLanguage struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Extensions      []string `json:"extensions"`
	DefaultCompiler string   `json:"defaultCompiler"`
}

type wireCompiler struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Lang         string `json:"lang"`
	CompilerType string `json:"compilerType"`
	Semver       string `json:"semver"`
}

type wireLibraryVersion struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

type wireLibraryInfo struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	URL      string               `json:"url"`
	Versions []wireLibraryVersion `json:"versions"`
}
