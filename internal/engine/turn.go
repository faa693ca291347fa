package engine

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/roach88/storyweave/internal/analysis"
	"github.com/roach88/storyweave/internal/expr"
	"github.com/roach88/storyweave/internal/llm"
	"github.com/roach88/storyweave/internal/prompt"
	"github.com/roach88/storyweave/internal/store"
	"github.com/roach88/storyweave/internal/story"
)

// Turn is what one ProcessInput call did.
type Turn struct {
	// Summary is the analysis summary of the answered exchange.
	Summary string

	// Analysis lists the applied and skipped deltas.
	Analysis analysis.Outcome

	// Step is the graph advance, or nil when the node had no transitions.
	Step *story.Step

	// Conversation is the next exchange to answer.
	Conversation *Conversation
}

// ProcessInput answers the current dialogue with response.
//
// The dialogue and response are analyzed, the resulting deltas applied,
// the story advanced once if the current node has transitions, and the
// next conversation generated. If analysis fails, nothing has changed and
// the same dialogue can be answered again. A dangling transition target is
// logged and the turn continues on the current node.
func (e *Engine) ProcessInput(ctx context.Context, response string) (*Turn, error) {
	ctx, span := e.tracer.Start(ctx, "engine.ProcessInput")
	defer span.End()

	if e.sessionID == "" {
		return nil, spanError(span, e.fail(ErrCodeNotStarted, "session not started", nil))
	}
	if e.current == nil || len(e.current.Dialogue) == 0 {
		return nil, spanError(span, e.fail(ErrCodeNoDialogue, "no current dialogue to respond to", nil))
	}
	from := e.bundle.Graph.CurrentID()
	span.SetAttributes(attribute.String("storyweave.node", from))

	res, err := e.analyze(ctx, e.current.Dialogue, response)
	if err != nil {
		return nil, spanError(span, err)
	}

	turn := &Turn{Summary: res.Summary}
	turn.Analysis = analysis.Apply(res, e.bundle, e.logger)
	e.recordAnalysis(ctx, turn.Analysis)

	e.history = append(e.history, e.current.Dialogue...)
	e.history = append(e.history, "You: "+response)
	e.writeStep(ctx, store.StepRecord{
		Kind: store.KindTurn,
		From: from,
		To:   from,
		Detail: map[string]string{
			"response": response,
			"summary":  res.Summary,
		},
	})
	e.metrics.turns.Add(ctx, 1)

	if node, ok := e.bundle.Graph.CurrentNode(); ok && !node.Terminal() {
		step, err := e.bundle.Graph.Advance()
		if err != nil && !story.IsUnknownTarget(err) {
			return nil, spanError(span, err)
		}
		if err != nil {
			span.RecordError(err)
		}
		e.recordStep(ctx, step)
		turn.Step = step
		span.SetAttributes(
			attribute.String("storyweave.outcome", string(step.Outcome)),
			attribute.String("storyweave.to", step.To),
		)
	}

	e.current = nil
	conv, err := e.generateConversation(ctx)
	if err != nil {
		return turn, spanError(span, err)
	}
	turn.Conversation = conv
	return turn, nil
}

func (e *Engine) analyze(ctx context.Context, dialogue []string, response string) (*analysis.Result, error) {
	text, err := prompt.New(prompt.FromBundle(e.bundle)).Analysis(dialogue, response)
	if err != nil {
		return nil, err
	}

	targets := analysis.Targets(e.bundle.Entities, e.bundle)
	data, err := e.gen.Generate(ctx, llm.Request{
		Name:        RequestAnalysis,
		Description: "Signed state deltas with reasoning for each entity",
		Prompt:      text,
		Schema:      analysis.Schema(targets),
	})
	if err != nil {
		return nil, e.fail(ErrCodeGenerationFailed, "conversation analysis failed", err)
	}

	res, err := analysis.Decode(data)
	if err != nil {
		return nil, e.fail(ErrCodeInvalidResponse, "analysis does not match the result contract", err)
	}
	e.logger.Info("conversation analyzed", "summary", res.Summary)
	return res, nil
}

func (e *Engine) recordAnalysis(ctx context.Context, out analysis.Outcome) {
	changes := make([]store.ChangeRecord, 0, len(out.Applied))
	for _, a := range out.Applied {
		changes = append(changes, store.ChangeRecord{
			Entity:   a.Entity,
			Variable: a.Change.Variable,
			Old:      a.Change.Old,
			New:      a.Change.New,
			Source:   store.SourceAnalysis,
		})
		e.metrics.stateChanges.Add(ctx, 1, metric.WithAttributes(
			attribute.String("entity", a.Entity),
			attribute.String("source", store.SourceAnalysis),
		))
	}
	e.writeChanges(ctx, changes)
}

// recordStep journals effect changes first, then the advance itself, which
// matches the order they happened in.
func (e *Engine) recordStep(ctx context.Context, step *story.Step) {
	changes := make([]store.ChangeRecord, 0, len(step.Effects))
	for _, r := range step.Effects {
		if !r.Applied() {
			continue
		}
		changes = append(changes, effectRecord(r))
		e.metrics.stateChanges.Add(ctx, 1, metric.WithAttributes(
			attribute.String("entity", r.Entity),
			attribute.String("source", store.SourceEffect),
		))
	}
	e.writeChanges(ctx, changes)

	e.writeStep(ctx, store.StepRecord{
		Kind:    store.KindAdvance,
		From:    step.From,
		To:      step.To,
		Outcome: string(step.Outcome),
		Detail:  map[string]string{"transition": strconv.Itoa(step.Transition)},
	})
	e.metrics.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(step.Outcome)),
	))
	e.logger.Debug("advance recorded", "from", step.From, "to", step.To, "outcome", step.Outcome)
}

func effectRecord(r expr.EffectResult) store.ChangeRecord {
	return store.ChangeRecord{
		Entity:   r.Entity,
		Variable: r.Change.Variable,
		Old:      r.Change.Old,
		New:      r.Change.New,
		Source:   r.Source,
	}
}

