package settings

import (
	"fmt"

	"github.com/google/uuid"

	"cexplorer/internal/api"
	"cexplorer/internal/aspect"
)

// Document is the root settings container of a session.
type Document struct {
	aspect.Container
	UID uuid.UUID

	ServiceURL  *aspect.String
	WindowState *aspect.StoreAspect
	Sources     *aspect.List[*Source]

	env *Env
}

func NewDocument(env *Env) *Document {
	d := &Document{UID: uuid.New(), env: env}
	d.ServiceURL = aspect.NewString(&d.Container, "CompilerExplorerUrl")
	d.ServiceURL.SetDisplayName("Compiler Explorer URL")
	d.ServiceURL.SetDefaultValue(api.DefaultBaseURL)
	d.WindowState = aspect.NewStore(&d.Container, "WindowState")
	d.Sources = aspect.NewList(&d.Container, "Sources", func() *Source { return NewSource(env) })
	d.Sources.SetDisplayName("source")
	return d
}

// Env returns the environment new containers of this document use.
func (d *Document) Env() *Env { return d.env }

// NewSource creates a source for this document without adding it.
func (d *Document) NewSource() *Source { return NewSource(d.env) }

// Refresh refetches the language candidates of every source.
func (d *Document) Refresh() {
	d.Sources.ForEachItem(func(s *Source, _ int) { s.Refresh() })
}

// ToMap writes the stored state with binary values tagged as Base64.
func (d *Document) ToMap(s aspect.Store) {
	d.Container.ToMap(s)
	tagInPlace(s)
}

// VolatileToMap writes the live edit state with binary values tagged.
func (d *Document) VolatileToMap(s aspect.Store) {
	d.Container.VolatileToMap(s)
	tagInPlace(s)
}

// FromMap loads a document map. Binary values may be native or tagged.
func (d *Document) FromMap(s aspect.Store) error {
	plain, err := UntagBinary(s)
	if err != nil {
		return fmt.Errorf("document: %w", err)
	}
	return d.Container.FromMap(plain)
}

// Map is a convenience wrapper around ToMap.
func (d *Document) Map() aspect.Store {
	s := aspect.Store{}
	d.ToMap(s)
	return s
}

// VolatileMap is a convenience wrapper around VolatileToMap.
func (d *Document) VolatileMap() aspect.Store {
	s := aspect.Store{}
	d.VolatileToMap(s)
	return s
}

func tagInPlace(s aspect.Store) {
	for k, v := range s {
		s[k] = tagValue(v)
	}
}
