package catalog

import (
	"context"

	"cexplorer/internal/api"
	"cexplorer/internal/aspect"
)

// LanguageFill populates a language selection.
func (c *Catalog) LanguageFill() aspect.FillFunc {
	return func(ctx context.Context) ([]aspect.Option, error) {
		langs, err := c.Languages(ctx)
		if err != nil {
			return nil, err
		}
		return LanguageOptions(langs), nil
	}
}

// CompilerFill populates a compiler selection for language.
func (c *Catalog) CompilerFill(language string) aspect.FillFunc {
	return func(ctx context.Context) ([]aspect.Option, error) {
		comps, err := c.Compilers(ctx, language)
		if err != nil {
			return nil, err
		}
		return CompilerOptions(comps), nil
	}
}

// LibraryFill populates a library selection for language.
func (c *Catalog) LibraryFill(language string) aspect.LibraryFillFunc {
	return func(ctx context.Context) ([]aspect.LibraryOption, error) {
		libs, err := c.Libraries(ctx, language)
		if err != nil {
			return nil, err
		}
		return LibraryOptions(libs), nil
	}
}

// LanguageOptions keeps the service order; the payload is the api.Language.
func LanguageOptions(langs []api.Language) []aspect.Option {
	out := make([]aspect.Option, len(langs))
	for i, l := range langs {
		out[i] = aspect.Option{Key: l.ID, Display: l.Name, Payload: l}
	}
	return out
}

func CompilerOptions(comps []api.CompilerInfo) []aspect.Option {
	out := make([]aspect.Option, len(comps))
	for i, x := range comps {
		out[i] = aspect.Option{Key: x.ID, Display: x.Name, Payload: x}
	}
	return out
}

func LibraryOptions(libs []api.Library) []aspect.LibraryOption {
	out := make([]aspect.LibraryOption, len(libs))
	for i, l := range libs {
		opt := aspect.LibraryOption{ID: l.ID, Name: l.Name, Versions: make([]aspect.VersionOption, len(l.Versions))}
		for j, v := range l.Versions {
			opt.Versions[j] = aspect.VersionOption{ID: v.ID, Version: v.Version}
		}
		out[i] = opt
	}
	return out
}
