package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"text", ModeText},
		{"markdown", ModeMarkdown},
		{"md", ModeMarkdown},
		{"json", ModeJSON},
		{"yaml", ModeYAML},
		{"yml", ModeYAML},
		{"bogus", ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.in))
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	var out, errOut bytes.Buffer

	assert.Equal(t, ModeText, NewRendererWithTTY(&out, &errOut, true, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRendererWithTTY(&out, &errOut, false, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRendererWithTTY(&out, &errOut, true, ModeJSON).EffectiveMode())

	// A buffer is never a terminal.
	assert.False(t, NewRenderer(&out, &errOut, ModeAuto).IsTTY())
}

func TestStructured(t *testing.T) {
	value := map[string]int{"count": 2}

	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &out, false, ModeJSON)
	handled, err := r.Structured(value)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.JSONEq(t, `{"count": 2}`, out.String())

	out.Reset()
	r = NewRendererWithTTY(&out, &out, false, ModeYAML)
	handled, err = r.Structured(value)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "count: 2\n", out.String())

	out.Reset()
	r = NewRendererWithTTY(&out, &out, true, ModeText)
	handled, err = r.Structured(value)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, out.String())
}

func TestTable(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &out, false, ModeMarkdown)
	r.Table([]string{"#", "color"}, [][]string{{"1", "#ffffff"}})

	assert.Contains(t, out.String(), "| # | color |")
	assert.Contains(t, out.String(), "| 1 | #ffffff |")

	out.Reset()
	r = NewRendererWithTTY(&out, &out, true, ModeText)
	r.Table([]string{"#", "color"}, [][]string{{"1", "#ffffff"}})
	assert.Contains(t, out.String(), "#ffffff")
	assert.Contains(t, out.String(), "┌")
}

func TestPlainWriterHasNoANSI(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, true, ModeText)

	r.Header(1, "Shapes")
	r.Success("done")
	r.Warning("careful")
	r.Println(r.Styles().Swatch("#ff0080"))

	assert.NotContains(t, out.String(), "\x1b[")
	assert.NotContains(t, errOut.String(), "\x1b[")
	assert.Contains(t, out.String(), "Shapes")
	assert.Contains(t, out.String(), "✓ done")
	assert.Contains(t, out.String(), "██")
	assert.Contains(t, errOut.String(), "! careful")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Models", FormatHeader(2, "Models"))
	assert.Equal(t, "# Top", FormatHeader(0, "Top"))
	assert.Equal(t, "- **Count**: 3", FormatKeyValue("Count", "3"))
}
