package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/storyweave/internal/compiler"
	"github.com/roach88/storyweave/internal/config"
	"github.com/roach88/storyweave/internal/engine"
	"github.com/roach88/storyweave/internal/llm"
	"github.com/roach88/storyweave/internal/llm/openai"
	"github.com/roach88/storyweave/internal/store"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Start   string
	Journal string

	// Generator overrides the text-generation collaborator (for testing).
	// If nil, an OpenRouter client is built from config.Load.
	Generator llm.Generator

	// SessionIDs overrides session id generation (for testing).
	// If nil, the engine uses UUIDv7 ids.
	SessionIDs engine.SessionIDGenerator
}

// PlayEvent is one line of play output in JSON format.
type PlayEvent struct {
	Type     string                    `json:"type"` // "conversation", "turn", "end"
	Node     string                    `json:"node"`
	Dialogue []string                  `json:"dialogue,omitempty"`
	Summary  string                    `json:"summary,omitempty"`
	Outcome  string                    `json:"outcome,omitempty"`
	States   map[string]map[string]int `json:"states,omitempty"`
}

var exitCommands = map[string]bool{"exit": true, "quit": true, "q": true}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	return newPlayCommand(&PlayOptions{RootOptions: rootOpts})
}

func newPlayCommand(opts *PlayOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <story>",
		Short: "Play a story interactively",
		Long: `Play a story interactively.

The characters' dialogue is generated through an OpenAI-compatible API
(OpenRouter by default). Each response you type is analyzed, the state
changes are applied, and the story advances when a transition's
conditions hold. Type exit, quit, or q to stop.

Settings come from the environment or a .env file:
  OPENROUTER_API_KEY   required
  STORYWEAVE_MODEL     model id
  STORYWEAVE_BASE_URL  API base URL
  STORYWEAVE_TIMEOUT   request timeout
  STORYWEAVE_JOURNAL   SQLite journal path (same as --journal)

Examples:
  storyweave play stories/dinner.yaml
  storyweave play stories/dinner.cue --start dinner --journal ./sessions.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Start, "start", "", "start node id (default: first node)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite session journal")

	return cmd
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := LoadStory(path)
	if err != nil {
		code, msg := loadErrorCode(err)
		return WrapExitError(ExitCommandError, code+": failed to load story", fmt.Errorf("%s", msg))
	}
	bundle, err := compiler.Build(cfg, compiler.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeBuildFailed+": failed to build story", err)
	}

	settings, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeConfig+": failed to load settings", err)
	}

	gen := opts.Generator
	if gen == nil {
		if gen, err = newGenerator(settings); err != nil {
			return WrapExitError(ExitCommandError, ErrCodeConfig+": cannot reach a generator", err)
		}
	}

	engOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.SessionIDs != nil {
		engOpts = append(engOpts, engine.WithSessionIDs(opts.SessionIDs))
	}

	journal := opts.Journal
	if journal == "" {
		journal = settings.Journal
	}
	if journal != "" {
		st, err := store.Open(journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		engOpts = append(engOpts, engine.WithJournal(st))
	}

	eng, err := engine.New(bundle, gen, engOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &player{
		eng:    eng,
		in:     bufio.NewScanner(cmd.InOrStdin()),
		out:    cmd.OutOrStdout(),
		json:   opts.Format == "json",
		logger: logger,
	}
	return p.run(ctx, opts.Start)
}

func newGenerator(s *config.Settings) (llm.Generator, error) {
	if err := s.RequireAPIKey(); err != nil {
		return nil, err
	}
	gen, err := openai.New(s.APIKey, s.Model,
		openai.WithBaseURL(s.BaseURL),
		openai.WithTimeout(s.Timeout),
	)
	if err != nil {
		return nil, err
	}
	return gen, nil
}

// player drives one interactive session over a line-oriented reader.
type player struct {
	eng    *engine.Engine
	in     *bufio.Scanner
	out    io.Writer
	json   bool
	logger *slog.Logger
}

func (p *player) run(ctx context.Context, start string) error {
	conv, err := p.eng.Start(ctx, start)
	if err != nil {
		return WrapExitError(ExitFailure, ErrCodeSession+": failed to start story", err)
	}
	p.showConversation(conv)

	for !p.eng.Ended() {
		if ctx.Err() != nil {
			return nil
		}
		if _, ok := p.eng.Dialogue(); !ok {
			conv, err := p.eng.GenerateConversation(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, ErrCodeSession+": failed to continue story", err)
			}
			p.showConversation(conv)
		}

		if !p.json {
			fmt.Fprint(p.out, "\nYour response: ")
		}
		if !p.in.Scan() {
			break
		}
		input := strings.TrimSpace(p.in.Text())
		if input == "" {
			continue
		}
		if exitCommands[strings.ToLower(input)] {
			if !p.json {
				fmt.Fprintln(p.out, "Exiting game...")
			}
			return nil
		}

		turn, err := p.eng.ProcessInput(ctx, input)
		if err != nil {
			p.logger.Error("turn failed", "error", err)
			if turn == nil {
				if !engine.IsInvalidResponse(err) && !engine.IsGenerationFailed(err) {
					return WrapExitError(ExitFailure, ErrCodeSession+": turn failed", err)
				}
				if !p.json {
					fmt.Fprintln(p.out, "Could not process that response. Try again.")
				}
				continue
			}
		}
		p.showTurn(turn)
	}

	if err := p.in.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}
	if p.eng.Ended() {
		p.showEnd()
	}
	return nil
}

func (p *player) node() string {
	node, _ := p.eng.CurrentNode()
	return node.ID
}

func (p *player) emit(ev PlayEvent) {
	if err := json.NewEncoder(p.out).Encode(ev); err != nil {
		p.logger.Error("write event", "error", err)
	}
}

func (p *player) showConversation(conv *engine.Conversation) {
	if p.json {
		p.emit(PlayEvent{Type: "conversation", Node: p.node(), Dialogue: conv.Dialogue, Summary: conv.SituationSummary})
		return
	}
	for _, line := range conv.Dialogue {
		fmt.Fprintln(p.out, line)
	}
	fmt.Fprintf(p.out, "\n%s\n", conv.SituationSummary)
}

func (p *player) showTurn(turn *engine.Turn) {
	states := p.eng.States()
	outcome := ""
	if turn.Step != nil {
		outcome = string(turn.Step.Outcome)
	}

	if p.json {
		p.emit(PlayEvent{Type: "turn", Node: p.node(), Summary: turn.Summary, Outcome: outcome, States: states})
		if turn.Conversation != nil && !p.eng.Ended() {
			p.showConversation(turn.Conversation)
		}
		return
	}

	fmt.Fprintln(p.out, "\nCurrent States:")
	for _, id := range p.eng.Entities() {
		if id == "user" {
			continue
		}
		fmt.Fprintf(p.out, "%s: %s\n", id, formatValues(states[id]))
	}
	fmt.Fprintf(p.out, "User: %s\n", formatValues(states["user"]))

	if turn.Conversation != nil && !p.eng.Ended() {
		fmt.Fprintln(p.out)
		p.showConversation(turn.Conversation)
	}
}

func (p *player) showEnd() {
	if p.json {
		p.emit(PlayEvent{Type: "end", Node: p.node(), States: p.eng.States()})
		return
	}
	fmt.Fprintln(p.out, "\nYou've reached the end of the story.")
}

// formatValues renders values as "a=1 b=2" in name order.
func formatValues(values map[string]int) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, values[name])
	}
	return strings.Join(parts, " ")
}
