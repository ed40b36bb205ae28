package app

import (
	"go-admonitions/internal/admonition"
	"go-admonitions/internal/contracts"
	"go-admonitions/internal/render"
	httptransport "go-admonitions/internal/transport/http"

	"github.com/sirupsen/logrus"
)

// LivePreview couples the reading-mode renderer with the HTTP delivery.
type LivePreview struct {
	renderer *render.Renderer
	preview  *httptransport.PreviewServer
}

func NewLivePreview(addr string, renderer *render.Renderer, log logrus.FieldLogger) *LivePreview {
	return &LivePreview{
		renderer: renderer,
		preview:  httptransport.NewPreviewServer(addr, renderer.RenderShell(), log),
	}
}

func (s *LivePreview) URL() string {
	return s.preview.URL()
}

// PublishSource renders source and pushes it to the browser.
func (s *LivePreview) PublishSource(source []byte, path string) error {
	fragment, err := s.renderer.ConvertFragmentWithSourcePath(source, path)
	if err != nil {
		return err
	}
	return s.preview.StartOrUpdate(fragment, path)
}

func (s *LivePreview) PublishCursor(line int, col int) error {
	return s.preview.UpdateCursor(contracts.CursorMessage{
		Type: contracts.MessageTypeCursor,
		Line: line,
		Col:  col,
	})
}

// PublishSettings tells the page which types are active.
func (s *LivePreview) PublishSettings(enabled admonition.Settings) error {
	return s.preview.UpdateSettings(typeNames(enabled.EnabledTypes()))
}

// SetGoToLineHandler forwards the handler registration to the transport.
func (s *LivePreview) SetGoToLineHandler(fn func(contracts.GoToLineMessage)) {
	s.preview.SetGoToLineHandler(fn)
}

func (s *LivePreview) Stop() error {
	return s.preview.Stop()
}
