package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/storyweave/internal/store"
	"github.com/roach88/storyweave/internal/story"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Entity   string // optional - filter changes to one entity
}

// TraceEvent represents a single event in the trace timeline.
type TraceEvent struct {
	Seq      int64             `json:"seq"`
	Type     string            `json:"type"` // "step" or "change"
	Kind     string            `json:"kind,omitempty"`
	From     string            `json:"from,omitempty"`
	To       string            `json:"to,omitempty"`
	Outcome  string            `json:"outcome,omitempty"`
	Detail   map[string]string `json:"detail,omitempty"`
	Entity   string            `json:"entity,omitempty"`
	Variable string            `json:"variable,omitempty"`
	Old      *int              `json:"old,omitempty"`
	New      *int              `json:"new,omitempty"`
	Source   string            `json:"source,omitempty"`
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	ID            string `json:"id"`
	StoryHash     string `json:"story_hash"`
	EngineVersion string `json:"engine_version"`
	StartNode     string `json:"start_node"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session  SessionSummary `json:"session"`
	Timeline []TraceEvent   `json:"timeline"`
	Stats    TraceStats     `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int    `json:"total_events"`
	Turns       int    `json:"turns"`
	Transitions int    `json:"transitions"`
	Changes     int    `json:"changes"`
	FinalNode   string `json:"final_node"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect journaled play sessions",
		Long: `Inspect play sessions recorded in a SQLite journal.

Without --session, lists the sessions in the journal. With --session,
prints the session's timeline: story steps (start, turn, advance) and
every variable change with its old and new value and what caused it.

Examples:
  storyweave trace --db ./sessions.db
  storyweave trace --db ./sessions.db --session 0190f1c2-...
  storyweave trace --db ./sessions.db --session 0190f1c2-... --entity user
  storyweave trace --db ./sessions.db --session 0190f1c2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to trace")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "filter changes to one entity")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	f := newFormatter(opts.RootOptions, cmd)

	if opts.Session == "" {
		return listSessions(ctx, st, f)
	}

	t, err := st.ReadTrace(ctx, opts.Session)
	if errors.Is(err, store.ErrSessionNotFound) {
		return NewExitError(ExitFailure, fmt.Sprintf("session not found: %s", opts.Session))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	result := buildTraceResult(t, opts.Entity)
	if opts.Format == "json" {
		return f.Success(result)
	}
	return outputTraceText(f.Writer, result, opts.Verbose)
}

func listSessions(ctx context.Context, st *store.Store, f *OutputFormatter) error {
	sessions, err := st.ReadSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read sessions", err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, sessionSummary(s))
	}

	if f.Format == "json" {
		return f.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(f.Writer, "No sessions found.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(f.Writer, "%s  start=%s  story=%s  engine=%s\n",
			s.ID, s.StartNode, truncateID(s.StoryHash), s.EngineVersion)
	}
	return nil
}

func sessionSummary(s store.Session) SessionSummary {
	return SessionSummary{
		ID:            s.ID,
		StoryHash:     s.StoryHash,
		EngineVersion: s.EngineVersion,
		StartNode:     s.StartNode,
	}
}

// buildTraceResult converts a journaled trace to timeline events. When
// entity is set, changes to other entities are left out; steps are always
// kept.
func buildTraceResult(t store.Trace, entity string) TraceResult {
	result := TraceResult{
		Session:  sessionSummary(t.Session),
		Timeline: []TraceEvent{},
	}
	result.Stats.FinalNode = t.Session.StartNode

	for _, e := range t.Entries() {
		switch {
		case e.Step != nil:
			s := e.Step
			result.Timeline = append(result.Timeline, TraceEvent{
				Seq:     s.Seq,
				Type:    "step",
				Kind:    s.Kind,
				From:    s.From,
				To:      s.To,
				Outcome: s.Outcome,
				Detail:  s.Detail,
			})
			switch s.Kind {
			case store.KindTurn:
				result.Stats.Turns++
			case store.KindAdvance:
				if s.Outcome == string(story.OutcomeMoved) {
					result.Stats.Transitions++
				}
			}
			if s.To != "" {
				result.Stats.FinalNode = s.To
			}

		case e.Change != nil:
			c := e.Change
			if entity != "" && c.Entity != entity {
				continue
			}
			old, cur := c.Old, c.New
			result.Timeline = append(result.Timeline, TraceEvent{
				Seq:      c.Seq,
				Type:     "change",
				Entity:   c.Entity,
				Variable: c.Variable,
				Old:      &old,
				New:      &cur,
				Source:   c.Source,
			})
			result.Stats.Changes++
		}
	}

	result.Stats.TotalEvents = len(result.Timeline)
	return result
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session.ID)
	fmt.Fprintf(w, "Story: %s (engine %s)\n", truncateID(result.Session.StoryHash), result.Session.EngineVersion)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, event := range result.Timeline {
		formatTimelineEvent(w, event, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Turns:        %d\n", result.Stats.Turns)
	fmt.Fprintf(w, "  Transitions:  %d\n", result.Stats.Transitions)
	fmt.Fprintf(w, "  Changes:      %d\n", result.Stats.Changes)
	fmt.Fprintf(w, "  Final Node:   %s\n", result.Stats.FinalNode)

	return nil
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TraceEvent, verbose bool) {
	switch event.Type {
	case "step":
		switch {
		case event.Kind == store.KindAdvance:
			fmt.Fprintf(w, "  [%d] ADVANCE %s -> %s (%s)\n", event.Seq, event.From, event.To, event.Outcome)
		default:
			fmt.Fprintf(w, "  [%d] %s %s\n", event.Seq, strings.ToUpper(event.Kind), event.To)
		}
		if verbose && len(event.Detail) > 0 {
			fmt.Fprintf(w, "       Detail: %s\n", formatDetail(event.Detail))
		}

	case "change":
		fmt.Fprintf(w, "  [%d] %s.%s %d -> %d (%s)\n",
			event.Seq, event.Entity, event.Variable, *event.Old, *event.New, event.Source)
	}
}

// formatDetail formats step detail with sorted keys for deterministic output.
func formatDetail(detail map[string]string) string {
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, detail[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
