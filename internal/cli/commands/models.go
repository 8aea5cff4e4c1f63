package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/fidgetstar/internal/cli/output"
	"github.com/leapstack-labs/fidgetstar/internal/model"
	"github.com/spf13/cobra"
)

// ModelInfo describes one model in the models listing.
type ModelInfo struct {
	Name  string `json:"name" yaml:"name"`
	Path  string `json:"path" yaml:"path"`
	Lines int    `json:"lines" yaml:"lines"`
}

// ModelsOutput is the structured result of the models command.
type ModelsOutput struct {
	Dir    string      `json:"dir" yaml:"dir"`
	Models []ModelInfo `json:"models" yaml:"models"`
}

// NewModelsCommand creates the models command.
func NewModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "models",
		Aliases: []string{"ls"},
		Short:   "List the scripts in the models directory",
		Example: `  # List models
  fidgetstar models

  # List models from another directory as JSON
  fidgetstar models --models-dir ./examples -o json`,
		Args: cobra.NoArgs,
		RunE: runModels,
	}
}

func runModels(cmd *cobra.Command, _ []string) error {
	cc := NewCommandContextWithoutWorker(cmd)

	models, err := model.NewLoader(cc.Cfg.ModelsDir).Load()
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	out := ModelsOutput{Dir: cc.Cfg.ModelsDir, Models: make([]ModelInfo, 0, len(models))}
	for _, m := range models {
		out.Models = append(out.Models, ModelInfo{
			Name:  m.Name,
			Path:  m.Path,
			Lines: strings.Count(m.Source, "\n"),
		})
	}

	r := cc.Renderer
	if handled, err := r.Structured(out); handled {
		return err
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, fmt.Sprintf("Models (%d total)", len(out.Models))))
		r.Println("")
		for _, m := range out.Models {
			r.Println(output.FormatKeyValue(m.Name, m.Path))
		}
		return nil
	}

	if len(out.Models) == 0 {
		r.Println(r.Muted("No models in " + out.Dir))
		return nil
	}
	r.Header(1, fmt.Sprintf("Models (%d total)", len(out.Models)))
	rows := make([][]string, len(out.Models))
	for i, m := range out.Models {
		rows[i] = []string{m.Name, strconv.Itoa(m.Lines), m.Path}
	}
	r.Table([]string{"Name", "Lines", "Path"}, rows)
	return nil
}
