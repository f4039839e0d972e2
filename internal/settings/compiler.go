package settings

import (
	"github.com/google/uuid"

	"cexplorer/internal/api"
	"cexplorer/internal/aspect"
)

// Compiler is one compiler attached to a source.
type Compiler struct {
	aspect.Container
	UID uuid.UUID

	ID                    *aspect.Selection
	Options               *aspect.String
	Libraries             *aspect.LibrarySelection
	ExecuteCode           *aspect.Bool
	CompileToBinaryObject *aspect.Bool
	IntelAsmSyntax        *aspect.Bool
	DemangleIdentifiers   *aspect.Bool

	env      *Env
	language string
}

func NewCompiler(env *Env) *Compiler {
	c := &Compiler{UID: uuid.New(), env: env}
	c.ID = aspect.NewSelection(&c.Container, "Id", nil)
	c.ID.SetDisplayName("Compiler")
	c.Options = aspect.NewString(&c.Container, "Options")
	c.Options.SetDisplayName("Compiler options")
	c.Libraries = aspect.NewLibrarySelection(&c.Container, "Libraries", nil)
	c.ExecuteCode = aspect.NewBool(&c.Container, "ExecuteCode", false)
	c.ExecuteCode.SetDisplayName("Execute the code")
	c.CompileToBinaryObject = aspect.NewBool(&c.Container, "CompileToBinaryObject", false)
	c.CompileToBinaryObject.SetDisplayName("Compile to binary object")
	c.IntelAsmSyntax = aspect.NewBool(&c.Container, "IntelAsmSyntax", true)
	c.IntelAsmSyntax.SetDisplayName("Intel asm syntax")
	c.DemangleIdentifiers = aspect.NewBool(&c.Container, "DemangleIdentifiers", true)
	c.DemangleIdentifiers.SetDisplayName("Demangle identifiers")
	return c
}

// Language is the language the compiler and library candidates are listed for.
func (c *Compiler) Language() string { return c.language }

// SetLanguage retargets the candidate fetches and refreshes them when the
// language actually changed.
func (c *Compiler) SetLanguage(language string) {
	if language == c.language {
		return
	}
	c.language = language
	fill := c.env.fillers()
	if fill == nil {
		return
	}
	c.ID.SetFillFunc(fill.CompilerFill(language))
	c.Libraries.SetFillFunc(fill.LibraryFill(language))
	c.Refresh()
}

// Refresh refetches compiler and library candidates.
func (c *Compiler) Refresh() {
	ctx := c.env.context()
	c.ID.Refresh(ctx)
	c.Libraries.Refresh(ctx)
}

// Refreshing reports whether a candidate fetch is outstanding.
func (c *Compiler) Refreshing() bool {
	return c.ID.Refreshing() || c.Libraries.Refreshing()
}

// Request snapshots the live edit state of c and src.
func (c *Compiler) Request(src *Source) api.CompileRequest {
	req := api.CompileRequest{
		CompilerID:    c.ID.VolatileValue(),
		UserArguments: c.Options.VolatileValue(),
		Filters: api.FilterSet{
			Execute:      c.ExecuteCode.VolatileValue(),
			BinaryObject: c.CompileToBinaryObject.VolatileValue(),
			Intel:        c.IntelAsmSyntax.VolatileValue(),
			Demangle:     c.DemangleIdentifiers.VolatileValue(),
		},
		Libraries: c.Libraries.VolatileValue(),
	}
	if src != nil {
		req.Language = src.Language.VolatileValue()
		req.Source = src.Text.VolatileValue()
	}
	return req
}

// Title is the compiler's display name, or its id before candidates load.
func (c *Compiler) Title() string {
	id := c.ID.VolatileValue()
	if id == "" {
		id = api.DefaultCompilerID
	}
	return c.ID.DisplayOf(id)
}
