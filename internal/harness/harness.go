package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/roach88/storyweave/internal/compiler"
	"github.com/roach88/storyweave/internal/expr"
	"github.com/roach88/storyweave/internal/ir"
	"github.com/roach88/storyweave/internal/state"
	"github.com/roach88/storyweave/internal/store"
	"github.com/roach88/storyweave/internal/story"
	"github.com/roach88/storyweave/internal/testutil"
)

// Harness executes one scenario against a built story.
type Harness struct {
	bundle  *compiler.Bundle
	store   *store.Store
	clock   *testutil.DeterministicClock
	session string
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. load and build the story
//  2. open a fresh in-memory journal
//  3. start the graph and run each step, journaling as it goes
//  4. read the trace back and evaluate assertions
//
// Failed expectations and assertions are reported in the Result; the
// returned error is reserved for scenarios that cannot run at all.
func Run(scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg, err := compiler.LoadFile(scenario.Story)
	if err != nil {
		return nil, fmt.Errorf("failed to load story: %w", err)
	}
	bundle, err := compiler.Build(cfg, compiler.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build story: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		bundle:  bundle,
		store:   st,
		clock:   testutil.NewDeterministicClock(),
		session: testutil.NewFixedSessionID(testutil.DefaultSessionID).Generate(),
		logger:  logger,
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.start(ctx, scenario.Start); err != nil {
		return nil, err
	}
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	trace, err := st.ReadTrace(ctx, h.session)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	result.Trace = traceEvents(trace)
	h.snapshotState(result)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) start(ctx context.Context, node string) error {
	if err := h.bundle.Graph.Start(node); err != nil {
		return fmt.Errorf("failed to start story: %w", err)
	}
	start := h.bundle.Graph.CurrentID()

	if err := h.store.WriteSession(ctx, store.Session{
		ID:            h.session,
		StoryHash:     h.bundle.Hash,
		EngineVersion: ir.EngineVersion,
		StartNode:     start,
	}); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return h.writeStep(ctx, store.StepRecord{Kind: store.KindStart, To: start})
}

// executeStep runs one step. Scripting mistakes (unknown entity, bad
// expression, wrong outcome) are recorded on the result; only journal
// failures abort the run.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	switch {
	case step.Update != nil:
		tbl, ok := h.bundle.Table(step.Update.Entity)
		if !ok {
			result.AddError(fmt.Sprintf("steps[%d]: unknown entity %q", index, step.Update.Entity))
			return nil
		}
		changes, err := tbl.Update(step.Update.Deltas)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", index, err))
			return nil
		}
		return h.writeChanges(ctx, changeRecords(step.Update.Entity, changes, store.SourceUpdate))

	case step.Effect != "":
		effect, err := expr.ParseEffect(step.Effect)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", index, err))
			return nil
		}
		results := expr.ApplyAll([]expr.Effect{effect}, h.bundle, h.logger)
		if !results[0].Applied() {
			result.AddError(fmt.Sprintf("steps[%d]: %v", index, results[0].Err))
			return nil
		}
		return h.writeChanges(ctx, effectRecords(results))

	default:
		return h.advance(ctx, index, step.Expect, result)
	}
}

func (h *Harness) advance(ctx context.Context, index int, expect string, result *Result) error {
	step, err := h.bundle.Graph.Advance()
	if err != nil && !story.IsUnknownTarget(err) {
		return err
	}

	if err := h.writeChanges(ctx, effectRecords(step.Effects)); err != nil {
		return err
	}
	if err := h.writeStep(ctx, store.StepRecord{
		Kind:    store.KindAdvance,
		From:    step.From,
		To:      step.To,
		Outcome: string(step.Outcome),
		Detail:  map[string]string{"transition": strconv.Itoa(step.Transition)},
	}); err != nil {
		return err
	}

	result.Outcomes = append(result.Outcomes, string(step.Outcome))
	if expect != "" && expect != string(step.Outcome) {
		result.AddError(fmt.Sprintf("steps[%d]: expected outcome %s, got %s", index, expect, step.Outcome))
	}
	return nil
}

func (h *Harness) writeStep(ctx context.Context, rec store.StepRecord) error {
	rec.SessionID = h.session
	rec.Seq = h.clock.Next()
	return h.store.WriteStep(ctx, rec)
}

func (h *Harness) writeChanges(ctx context.Context, recs []store.ChangeRecord) error {
	if len(recs) == 0 {
		return nil
	}
	for i := range recs {
		recs[i].SessionID = h.session
		recs[i].Seq = h.clock.Next()
	}
	return h.store.WriteChanges(ctx, recs)
}

func (h *Harness) snapshotState(result *Result) {
	result.Node = h.bundle.Graph.CurrentID()
	result.History = h.bundle.Graph.History()
	for _, id := range h.bundle.Entities {
		tbl, ok := h.bundle.Table(id)
		if !ok {
			continue
		}
		result.State[id] = tbl.Values()
		result.Rules[id] = tbl.RuleDescriptions()
	}
}

func changeRecords(entity string, changes []state.Change, source string) []store.ChangeRecord {
	out := make([]store.ChangeRecord, 0, len(changes))
	for _, c := range changes {
		out = append(out, store.ChangeRecord{
			Entity:   entity,
			Variable: c.Variable,
			Old:      c.Old,
			New:      c.New,
			Source:   source,
		})
	}
	return out
}

func effectRecords(results []expr.EffectResult) []store.ChangeRecord {
	out := make([]store.ChangeRecord, 0, len(results))
	for _, r := range results {
		if !r.Applied() {
			continue
		}
		out = append(out, store.ChangeRecord{
			Entity:   r.Entity,
			Variable: r.Change.Variable,
			Old:      r.Change.Old,
			New:      r.Change.New,
			Source:   r.Source,
		})
	}
	return out
}

func traceEvents(t store.Trace) []TraceEvent {
	entries := t.Entries()
	out := make([]TraceEvent, 0, len(entries))
	for _, e := range entries {
		if e.Step != nil {
			ev := TraceEvent{
				Seq:     e.Seq,
				Type:    EventStep,
				Kind:    e.Step.Kind,
				From:    e.Step.From,
				To:      e.Step.To,
				Outcome: e.Step.Outcome,
			}
			if len(e.Step.Detail) > 0 {
				ev.Detail = e.Step.Detail
			}
			out = append(out, ev)
			continue
		}
		out = append(out, TraceEvent{
			Seq:      e.Seq,
			Type:     EventChange,
			Entity:   e.Change.Entity,
			Variable: e.Change.Variable,
			Old:      e.Change.Old,
			New:      e.Change.New,
			Source:   e.Change.Source,
		})
	}
	return out
}
