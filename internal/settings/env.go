// Package settings defines the session's settings containers: a Document
// holding Sources, each holding Compilers.
package settings

import (
	"context"

	"cexplorer/internal/aspect"
)

// Fillers supplies candidate fetches for selection aspects.
// *catalog.Catalog satisfies it.
type Fillers interface {
	LanguageFill() aspect.FillFunc
	CompilerFill(language string) aspect.FillFunc
	LibraryFill(language string) aspect.LibraryFillFunc
}

// Env is shared by every container of one document.
type Env struct {
	Fill Fillers
	// Ctx bounds candidate fetches; nil means context.Background.
	Ctx context.Context
}

func (e *Env) context() context.Context {
	if e == nil || e.Ctx == nil {
		return context.Background()
	}
	return e.Ctx
}

func (e *Env) fillers() Fillers {
	if e == nil {
		return nil
	}
	return e.Fill
}
