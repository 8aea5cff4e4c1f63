// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/fidgetstar/internal/cli/output"
)

// Model sources written by SetupTestProject.
const (
	RingSource = `ring = difference(circle(1), circle(0.5))
draw(ring)
draw_rgb(move(circle(0.25), 1, 1, 0), 1.0, 0.0, 0.5)
`
	BrokenSource = `draw(circle(1))
v = {}["boom"]
`
)

// SetupTestProject creates a temporary project with a models directory
// holding ring.star and broken.star. It returns the project directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	modelsDir := filepath.Join(tmpDir, "models")
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", modelsDir, err)
	}

	files := map[string]string{
		"ring.star":   RingSource,
		"broken.star": BrokenSource,
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(modelsDir, name), []byte(src), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	return tmpDir
}

// TestRenderer is an output.Renderer writing into in-memory buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer returns a buffered renderer; isTTY simulates a terminal.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	tr := &TestRenderer{Out: new(bytes.Buffer), ErrOut: new(bytes.Buffer)}
	tr.Renderer = output.NewRendererWithTTY(tr.Out, tr.ErrOut, isTTY, mode)
	return tr
}

// NewTestRendererText renders text as if attached to a terminal.
func NewTestRendererText() *TestRenderer { return NewTestRenderer(output.ModeText, true) }

// NewTestRendererMarkdown renders markdown, as when piped.
func NewTestRendererMarkdown() *TestRenderer { return NewTestRenderer(output.ModeMarkdown, false) }

// NewTestRendererJSON renders structured JSON.
func NewTestRendererJSON() *TestRenderer { return NewTestRenderer(output.ModeJSON, false) }

// Output is everything written to stdout.
func (tr *TestRenderer) Output() string { return tr.Out.String() }

// ErrorOutput is everything written to stderr.
func (tr *TestRenderer) ErrorOutput() string { return tr.ErrOut.String() }

// Reset empties both buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

var escapeSeq = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI fails the test when s carries terminal escape sequences.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if escapeSeq.MatchString(s) {
		t.Errorf("unexpected escape sequences in output: %q", s)
	}
}
