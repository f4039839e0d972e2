package render

import (
	"fmt"

	"cexplorer/internal/api"

	"go.uber.org/zap"
)

// View holds the last successfully rendered model of one compiler.
type View struct {
	model   Model
	has     bool
	log     *zap.Logger
	render  func(api.CompileResult) (Model, error)
	updated []func(Model)
}

// NewView returns an empty view. A nil logger discards.
func NewView(log *zap.Logger) *View {
	if log == nil {
		log = zap.NewNop()
	}
	return &View{log: log, render: Render}
}

// Model returns the current model and whether anything was rendered yet.
func (v *View) Model() (Model, bool) { return v.model, v.has }

// OnUpdated registers fn to run after every successful Apply.
func (v *View) OnUpdated(fn func(Model)) {
	if fn != nil {
		v.updated = append(v.updated, fn)
	}
}

// Apply renders res and replaces the model wholesale. A failing render is
// logged and leaves the previous model in place.
func (v *View) Apply(res api.CompileResult) (err error) {
	m, err := v.safeRender(res)
	if err != nil {
		v.log.Error("failed to render compile result", zap.Error(err))
		return err
	}
	v.model = m
	v.has = true
	for _, fn := range v.updated {
		fn(m)
	}
	return nil
}

func (v *View) safeRender(res api.CompileResult) (m Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()
	return v.render(res)
}
