package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/fidgetstar/internal/model"
	starctx "github.com/leapstack-labs/fidgetstar/internal/starlark"
	"github.com/spf13/cobra"
	"go.starlark.net/syntax"
)

const (
	replPrompt         = "fidget> "
	replContinuePrompt = "   ...> "
)

// lineReader is the part of readline the REPL loop needs.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive shape scripting session",
		Long: `Start an interactive session.

Statements are kept and replayed, so names defined earlier stay in
scope. An expression is shown as the tree it lowers to. A line ending
in ':' starts a block that ends at the next empty line.

Dot commands: .help .show .reset .models .run <model> .quit`,
		Args: cobra.NoArgs,
		RunE: runREPL,
	}
}

func runREPL(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	historyFile := ""
	if cc.Cfg.HistoryPath != "" {
		historyFile = filepath.Join(filepath.Dir(cc.Cfg.HistoryPath), "repl_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newREPLCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r := cc.Renderer
	r.Printf("fidgetstar REPL (models: %s)\n", cc.Cfg.ModelsDir)
	r.Println("Type .help for commands, .quit to exit")
	r.Println("")

	return newSession(cc).loop(cmd.Context(), rl)
}

// session is the state of one REPL: the statements accepted so far.
type session struct {
	cc    *CommandContext
	lines []string
}

func newSession(cc *CommandContext) *session {
	return &session{cc: cc}
}

func (s *session) script() string {
	return strings.Join(s.lines, "\n")
}

func (s *session) loop(ctx context.Context, rl lineReader) error {
	var block strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			block.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		// Inside a block, an empty line ends it.
		if block.Len() > 0 {
			if strings.TrimSpace(line) != "" {
				block.WriteString(line + "\n")
				continue
			}
			chunk := block.String()
			block.Reset()
			rl.SetPrompt(replPrompt)
			s.eval(ctx, chunk)
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "."):
			if s.dot(ctx, trimmed) {
				return nil
			}
		case strings.HasSuffix(trimmed, ":"):
			block.WriteString(line + "\n")
			rl.SetPrompt(replContinuePrompt)
		default:
			s.eval(ctx, line)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// eval runs one chunk. Expressions are displayed without being kept;
// statements are kept when the whole session still runs.
func (s *session) eval(ctx context.Context, chunk string) {
	r := s.cc.Renderer
	chunk = strings.TrimRight(chunk, "\n")

	if isDisplayExpr(chunk) {
		shapes, err := s.submit(ctx, s.script()+"\ndraw("+chunk+")")
		if err != nil {
			r.Error(err.Error())
			return
		}
		r.Println(shapes[len(shapes)-1].Tree.String())
		return
	}

	candidate := append(append([]string(nil), s.lines...), chunk)
	shapes, err := s.submit(ctx, strings.Join(candidate, "\n"))
	if err != nil {
		r.Error(err.Error())
		return
	}
	s.lines = candidate
	if n := len(shapes); n > 0 {
		r.Println(r.Muted(fmt.Sprintf("%d shapes drawn", n)))
	}
}

func (s *session) submit(ctx context.Context, script string) ([]starctx.DrawShape, error) {
	res, err := s.cc.Worker.SubmitFile(ctx, "<repl>", script)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, errors.New(res.Err)
	}
	return res.Shapes, nil
}

// isDisplayExpr reports whether chunk is a single expression worth
// showing. Calls to draw are statements for their side effect.
func isDisplayExpr(chunk string) bool {
	expr, err := syntax.ParseExpr("<repl>", chunk, 0)
	if err != nil {
		return false
	}
	if call, ok := expr.(*syntax.CallExpr); ok {
		if id, ok := call.Fn.(*syntax.Ident); ok && (id.Name == "draw" || id.Name == "draw_rgb" || id.Name == "print") {
			return false
		}
	}
	return true
}

// dot handles a dot command and reports whether the REPL should exit.
func (s *session) dot(ctx context.Context, line string) bool {
	r := s.cc.Renderer
	parts := strings.Fields(line)

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.Writer())

	case ".show":
		if len(s.lines) == 0 {
			r.Println(r.Muted("(empty session)"))
			break
		}
		r.Println(s.script())

	case ".reset":
		s.lines = nil
		r.Println(r.Muted("session cleared"))

	case ".models":
		models, err := model.NewLoader(s.cc.Cfg.ModelsDir).Load()
		if err != nil {
			r.Error(err.Error())
			break
		}
		for _, m := range models {
			r.Println(m.Name)
		}

	case ".run":
		if len(parts) != 2 {
			r.Error("usage: .run <model>")
			break
		}
		m, err := model.Resolve(s.cc.Cfg.ModelsDir, parts[1])
		if err != nil {
			r.Error(err.Error())
			break
		}
		res, err := submit(ctx, s.cc.Worker, m)
		if err != nil {
			r.Error(err.Error())
			break
		}
		if err := printShapes(r, m.Name, res.Shapes); err != nil {
			r.Error(err.Error())
		}

	default:
		r.Error(fmt.Sprintf("unknown command %s (try .help)", parts[0]))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	_, _ = fmt.Fprint(w, `Commands:
  .help           Show this help
  .show           Print the statements kept so far
  .reset          Forget all statements
  .models         List models
  .run <model>    Run a model and list its shapes
  .quit           Exit

Anything else is Starlark. Expressions print their tree; statements are
kept for the rest of the session.
`)
}

func newREPLCompleter() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".show"),
		readline.PcItem(".reset"),
		readline.PcItem(".models"),
		readline.PcItem(".run"),
		readline.PcItem(".quit"),
	}
	return readline.NewPrefixCompleter(items...)
}
