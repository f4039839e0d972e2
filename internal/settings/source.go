package settings

import (
	"strings"

	"github.com/google/uuid"

	"cexplorer/internal/api"
	"cexplorer/internal/aspect"
)

// DefaultLanguage is the language of a new source.
const DefaultLanguage = "c++"

// Source is one source file with the compilers it is compiled by.
type Source struct {
	aspect.Container
	UID uuid.UUID

	Language  *aspect.Selection
	Text      *aspect.String
	Compilers *aspect.List[*Compiler]

	env *Env
}

func NewSource(env *Env) *Source {
	s := &Source{UID: uuid.New(), env: env}
	var fill aspect.FillFunc
	if f := env.fillers(); f != nil {
		fill = f.LanguageFill()
	}
	s.Language = aspect.NewSelection(&s.Container, "LanguageId", fill)
	s.Language.SetDisplayName("Language")
	s.Language.SetDefaultValue(DefaultLanguage)
	s.Text = aspect.NewString(&s.Container, "Source")
	s.Text.SetDisplayName("Source code")
	s.Compilers = aspect.NewList(&s.Container, "Compilers", func() *Compiler { return NewCompiler(env) })
	s.Compilers.SetDisplayName("compiler")

	s.Language.OnVolatileChanged(func() {
		lang := s.Language.VolatileValue()
		s.Compilers.ForEachItem(func(c *Compiler, _ int) { c.SetLanguage(lang) })
	})
	s.Compilers.OnItemAdded(func(c *Compiler) {
		c.SetLanguage(s.Language.VolatileValue())
	})
	return s
}

// NewCompiler creates a compiler for this source without adding it.
func (s *Source) NewCompiler() *Compiler { return NewCompiler(s.env) }

// Refresh refetches the language candidates.
func (s *Source) Refresh() {
	s.Language.Refresh(s.env.context())
}

// LanguageExtension returns the file extension of the current language, or
// "" when the language catalog has not been loaded.
func (s *Source) LanguageExtension() string {
	opt, ok := s.Language.Current()
	if !ok {
		return ""
	}
	lang, ok := opt.Payload.(api.Language)
	if !ok || len(lang.Extensions) == 0 {
		return ""
	}
	ext := lang.Extensions[0]
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
