// Package api talks to a Compiler Explorer service over its REST interface.
package api

import "maps"

// DefaultCompilerID is used when a request names no compiler.
const DefaultCompilerID = "clang_trunk"

// FilterSet holds the user-controlled output filters of a compile request.
type FilterSet struct {
	Execute      bool
	BinaryObject bool
	Intel        bool
	Demangle     bool
}

// CompileRequest is an immutable snapshot of everything a compile depends
// on. Two equal requests are expected to produce the same result.
type CompileRequest struct {
	CompilerID    string
	Language      string
	Source        string
	UserArguments string
	Filters       FilterSet
	Libraries     map[string]string
}

// Clone returns a deep copy.
func (r CompileRequest) Clone() CompileRequest {
	r.Libraries = maps.Clone(r.Libraries)
	return r
}

// Compiler returns the compiler id to send, falling back to DefaultCompilerID.
func (r CompileRequest) Compiler() string {
	if r.CompilerID == "" {
		return DefaultCompilerID
	}
	return r.CompilerID
}

// AsmLine is one line of generated assembly.
type AsmLine struct {
	Text    string
	Opcodes []string
}

// BuildResult is the compile-style result of building an executable.
type BuildResult struct {
	ExitCode int
	StdErr   []string
	StdOut   []string
}

// ExecResult describes the execution build and run.
type ExecResult struct {
	Build      *BuildResult
	DidExecute bool
	ExitCode   int
	StdErr     []string
	StdOut     []string
}

// CompileResult is what the service returned for one request. Assembly order
// is the authoritative line numbering, starting at 1.
type CompileResult struct {
	ExitCode int
	StdErr   []string
	StdOut   []string
	Assembly []AsmLine
	Exec     *ExecResult
}

// FailedResult is the synthetic result reported for a request that could not
// complete.
func FailedResult(err error) CompileResult {
	return CompileResult{
		ExitCode: -1,
		StdErr:   []string{"Compile request failed: " + err.Error()},
	}
}

// Language is one entry of the language catalog.
type Language struct {
	ID              string
	Name            string
	Extensions      []string
	DefaultCompiler string
}

// CompilerInfo is one entry of a language's compiler catalog.
type CompilerInfo struct {
	ID           string
	Name         string
	Language     string
	CompilerType string
	Semver       string
}

// LibraryVersion is one version of a library.
type LibraryVersion struct {
	ID      string
	Version string
}

// Library is one entry of a language's library catalog.
type Library struct {
	ID       string
	Name     string
	URL      string
	Versions []LibraryVersion
}
