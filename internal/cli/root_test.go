package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/fidgetstar/internal/cli/config"
	"github.com/leapstack-labs/fidgetstar/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type result struct {
	out    string
	errOut string
	err    error
}

// execute runs the CLI against the project in dir with the given args.
func execute(t *testing.T, dir, stdin string, args ...string) result {
	t.Helper()
	config.ResetConfig()

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{
		"--models-dir", filepath.Join(dir, "models"),
		"--history", filepath.Join(dir, "history.db"),
	}, args...))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func TestRun(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	res := execute(t, dir, "", "run", "ring", "-o", "json")
	require.NoError(t, res.err)

	var got struct {
		Model  string `json:"model"`
		Count  int    `json:"count"`
		Shapes []struct {
			Expr  string `json:"expr"`
			Color string `json:"color"`
		} `json:"shapes"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.out), &got))
	assert.Equal(t, "ring", got.Model)
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Shapes, 2)
	assert.Equal(t, "#ffffff", got.Shapes[0].Color)
	assert.Equal(t, "#ff0080", got.Shapes[1].Color)
}

func TestRunOutputModes(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	res := execute(t, dir, "", "run", "ring", "-o", "yaml")
	require.NoError(t, res.err)
	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(res.out), &got))
	assert.Equal(t, "ring", got["model"])

	// A buffer is not a terminal, so auto means markdown.
	res = execute(t, dir, "", "run", "ring")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "# ring")
	assert.Contains(t, res.out, "- **Shapes**: 2")
	testutil.AssertNoANSI(t, res.out)

	res = execute(t, dir, "", "run", "ring", "-o", "text")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "ring (2 shapes)")
}

func TestRunFromFileAndStdin(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	path := filepath.Join(dir, "scratch.star")
	require.NoError(t, os.WriteFile(path, []byte("draw(sphere(1))\n"), 0600))

	res := execute(t, dir, "", "run", path, "-o", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, `"model": "scratch"`)

	res = execute(t, dir, "draw(x)\ndraw(y)\n", "run", "-", "-o", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, `"count": 2`)
}

func TestRunErrors(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	res := execute(t, dir, "", "run", "broken")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `key "boom" not in dict`)

	res = execute(t, dir, "", "run", "missing")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "model not found")

	res = execute(t, dir, "", "run")
	require.Error(t, res.err)
}

func TestRunExecutionLimit(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	res := execute(t, dir, "while True:\n    pass\n", "--execution-limit", "50ms", "run", "-")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "exceeded execution limit of 50ms")
}

func TestRunWithoutDefaultImports(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	res := execute(t, dir, "fidget.draw(fidget.circle(1))\n", "--no-default-imports", "run", "-", "-o", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, `"count": 1`)

	res = execute(t, dir, "draw(circle(1))\n", "--no-default-imports", "run", "-")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "undefined: circle")
}

func TestEval(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	res := execute(t, dir, "", "eval", "2 - x", "-o", "text")
	require.NoError(t, res.err)
	assert.Equal(t, "(sub 2 x)\n", res.out)

	res = execute(t, dir, "", "eval", "sqrt(square(x) + square(y)) - 1", "--at", "3,4,0", "-o", "json")
	require.NoError(t, res.err)
	var got struct {
		Value float64   `json:"value"`
		At    []float64 `json:"at"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.out), &got))
	assert.InDelta(t, 4.0, got.Value, 1e-9)
	assert.Equal(t, []float64{3, 4, 0}, got.At)

	res = execute(t, dir, "", "eval", "x", "--at", "1,2")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "exactly 3 coordinates")

	res = execute(t, dir, "", "eval", "'text'")
	require.Error(t, res.err)
}

func TestRender(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	out := filepath.Join(dir, "ring.png")

	res := execute(t, dir, "", "render", "ring", "--out", out, "--width", "32", "--height", "16", "-o", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, `"shapes": 2`)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestRenderFailureLeavesNoFile(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	out := filepath.Join(dir, "broken.png")

	res := execute(t, dir, "", "render", "broken", "--out", out)
	require.Error(t, res.err)
	assert.NoFileExists(t, out)
}

func TestModels(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	res := execute(t, dir, "", "models", "-o", "json")
	require.NoError(t, res.err)

	var got struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.out), &got))
	require.Len(t, got.Models, 2)
	assert.Equal(t, "broken", got.Models[0].Name)
	assert.Equal(t, "ring", got.Models[1].Name)

	res = execute(t, dir, "", "models", "-o", "text")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Models (2 total)")
}

func TestHistory(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	require.NoError(t, execute(t, dir, "", "run", "ring").err)
	require.Error(t, execute(t, dir, "", "run", "broken").err)

	res := execute(t, dir, "", "history", "-o", "json")
	require.NoError(t, res.err)

	var runs []struct {
		Name       string `json:"name"`
		Status     string `json:"status"`
		ShapeCount int    `json:"shape_count"`
		Error      string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.out), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "failed", runs[0].Status, "newest first")
	assert.Contains(t, runs[0].Error, "boom")
	assert.Equal(t, "succeeded", runs[1].Status)
	assert.Equal(t, 2, runs[1].ShapeCount)

	res = execute(t, dir, "", "history", "--limit", "1", "-o", "json")
	require.NoError(t, res.err)
	require.NoError(t, json.Unmarshal([]byte(res.out), &runs))
	assert.Len(t, runs, 1)

	res = execute(t, dir, "", "history", "-o", "text")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Runs (2)")
}

func TestHistoryDisabled(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	res := execute(t, dir, "", "--history", "", "history")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "run history is disabled")
}

func TestConfigFile(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfgPath := filepath.Join(dir, "fidgetstar.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output: json\nexecution_limit: 2s\n"), 0600))

	res := execute(t, dir, "", "--config", cfgPath, "models")
	require.NoError(t, res.err)
	assert.True(t, json.Valid([]byte(res.out)), "output format comes from the config file")
	assert.Equal(t, 2*time.Second, config.GetCurrentConfig().ExecutionLimit)
}

func TestInvalidConfig(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	res := execute(t, dir, "", "--execution-limit", "0s", "models")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "execution_limit must be positive")
}

func TestVersionAndCompletion(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	res := execute(t, dir, "", "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "fidgetstar v"+Version)

	res = execute(t, dir, "", "completion", "bash")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "fidgetstar")

	res = execute(t, dir, "", "completion", "tcsh")
	require.Error(t, res.err)
}

func TestGetConfigDefaults(t *testing.T) {
	cfg := GetConfig(context.Background())
	assert.Equal(t, config.DefaultModelsDir, cfg.ModelsDir)
	assert.NotNil(t, GetRenderer(context.Background()))
}
