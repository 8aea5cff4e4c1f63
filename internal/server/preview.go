package server

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/leapstack-labs/fidgetstar/internal/render"
	"github.com/starfederation/datastar-go/datastar"
)

//go:embed static/index.html
var static embed.FS

// previewSignals is the page state sent with every preview request.
type previewSignals struct {
	Script string `json:"script"`
	Model  string `json:"model"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// handlePreview runs the script from the page signals and patches the
// preview image and status line.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	// Signals must be read before the SSE generator takes the body.
	var signals previewSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.PatchElements(statusElement("failed to read signals: " + err.Error()))
		return
	}

	sse := datastar.NewSSE(w, r)
	s.patchPreview(r, sse, "<script>", signals.Script)
}

// handleEvents streams a fresh preview whenever a model file changes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case name := <-updates:
			m, err := s.loader.Get(name)
			if err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			s.patchPreview(r, sse, m.Path, m.Source)
		}
	}
}

func (s *Server) patchPreview(r *http.Request, sse *datastar.ServerSentEventGenerator, name, script string) {
	img, _, err := s.renderScript(r.Context(), name, script, s.render)
	if err != nil {
		_ = sse.PatchElements(statusElement(err.Error()))
		return
	}
	var buf bytes.Buffer
	if err := render.WritePNG(&buf, img); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	_ = sse.PatchElements(fmt.Sprintf(`<img id="preview" alt="preview" src="%s">`, src))
	_ = sse.PatchElements(statusElement("rendered " + name))
}

func statusElement(msg string) string {
	return `<div id="status">` + html.EscapeString(strings.TrimSpace(msg)) + `</div>`
}
