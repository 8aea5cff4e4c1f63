package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/fidgetstar/internal/model"
	"github.com/leapstack-labs/fidgetstar/internal/render"
	starctx "github.com/leapstack-labs/fidgetstar/internal/starlark"
	"github.com/leapstack-labs/fidgetstar/internal/worker"
)

const maxScriptBytes = 1 << 20

type runResponse struct {
	ID     string              `json:"id,omitempty"`
	Shapes []starctx.ShapeView `json:"shapes,omitempty"`
	Error  string              `json:"error,omitempty"`
}

type evalResponse struct {
	Expr  string `json:"expr"`
	Value any    `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type modelInfo struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Source string `json:"source,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// deliveryStatus maps a worker delivery failure to an HTTP status.
func deliveryStatus(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout
	}
	return http.StatusServiceUnavailable
}

func isDelivery(err error) bool {
	return errors.Is(err, worker.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// readBody reads a script body of at most maxScriptBytes. On failure it
// writes the error response and returns false.
func readBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScriptBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, fmt.Errorf("failed to read request body: %w", err))
		return "", false
	}
	return string(body), true
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	script, ok := readBody(w, r)
	if !ok {
		return
	}
	res, err := s.worker.Submit(r.Context(), script)
	if err != nil {
		writeError(w, deliveryStatus(err), err)
		return
	}
	if !res.OK() {
		writeJSON(w, http.StatusUnprocessableEntity, runResponse{ID: res.ID, Error: res.Err})
		return
	}
	writeJSON(w, http.StatusOK, runResponse{ID: res.ID, Shapes: starctx.Views(res.Shapes)})
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	var point [3]float64
	for i, name := range []string{"x", "y", "z"} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid %s: %w", name, err))
			return
		}
		point[i] = v
	}

	expr, ok := readBody(w, r)
	if !ok {
		return
	}
	t, err := s.worker.Eval(r.Context(), expr)
	if isDelivery(err) {
		writeError(w, deliveryStatus(err), err)
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, evalResponse{
		Expr:  t.String(),
		Value: jsonNumber(t.Eval(point[0], point[1], point[2])),
	})
}

// jsonNumber keeps NaN and infinities representable in JSON.
func jsonNumber(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return f
}

func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	models, err := s.loader.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]modelInfo, 0, len(models))
	for _, m := range models {
		out = append(out, modelInfo{Name: m.Name, Path: m.Path})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.loader.Get(chi.URLParam(r, "model"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, modelInfo{Name: m.Name, Path: m.Path, Source: m.Source})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errors.New("run history is disabled"))
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %w", err))
			return
		}
		limit = n
	}
	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRenderModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.loader.Get(chi.URLParam(r, "model"))
	if err != nil {
		var loadErr *model.LoadError
		if errors.As(err, &loadErr) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.renderPNG(w, r, m.Path, m.Source)
}

func (s *Server) handleRenderScript(w http.ResponseWriter, r *http.Request) {
	script, ok := readBody(w, r)
	if !ok {
		return
	}
	s.renderPNG(w, r, "<script>", script)
}

func (s *Server) renderPNG(w http.ResponseWriter, r *http.Request, name, script string) {
	opts, err := s.renderOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	img, status, err := s.renderScript(r.Context(), name, script, opts)
	if err != nil {
		writeError(w, status, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.WritePNG(w, img); err != nil {
		s.logger.Error("failed to write png", "error", err)
	}
}

// renderScript runs script on the worker and rasterizes what it drew.
// On failure it also returns the HTTP status to report.
func (s *Server) renderScript(ctx context.Context, name, script string, opts render.Options) (*image.RGBA, int, error) {
	res, err := s.worker.SubmitFile(ctx, name, script)
	if err != nil {
		return nil, deliveryStatus(err), err
	}
	if !res.OK() {
		return nil, http.StatusUnprocessableEntity, errors.New(res.Err)
	}
	img, err := render.Render(ctx, res.Shapes, opts)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return img, http.StatusOK, nil
}

// renderOptions applies width, height, extent and z query overrides to
// the server defaults.
func (s *Server) renderOptions(r *http.Request) (render.Options, error) {
	opts := s.render
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"width", &opts.Width}, {"height", &opts.Height}} {
		if raw := q.Get(p.name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 4096 {
				return opts, fmt.Errorf("invalid %s: %q", p.name, raw)
			}
			*p.dst = n
		}
	}
	for _, p := range []struct {
		name string
		dst  *float64
	}{{"extent", &opts.Extent}, {"z", &opts.Z}} {
		if raw := q.Get(p.name); raw != "" {
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return opts, fmt.Errorf("invalid %s: %q", p.name, raw)
			}
			*p.dst = f
		}
	}
	return opts, nil
}
