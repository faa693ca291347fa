package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/storyweave/internal/compiler"
	"github.com/roach88/storyweave/internal/ir"
	"github.com/roach88/storyweave/internal/llm"
	"github.com/roach88/storyweave/internal/prompt"
	"github.com/roach88/storyweave/internal/state"
	"github.com/roach88/storyweave/internal/store"
	"github.com/roach88/storyweave/internal/story"
)

// Request names sent to the generator.
const (
	RequestConversation = "conversation"
	RequestAnalysis     = "analysis"
)

// Conversation is one generated exchange between the characters.
type Conversation struct {
	Dialogue         []string `json:"dialogue"`
	SituationSummary string   `json:"situation_summary"`
}

// Journal receives the session's audit log. *store.Store implements it.
type Journal interface {
	WriteSession(ctx context.Context, sess store.Session) error
	WriteStep(ctx context.Context, step store.StepRecord) error
	WriteChanges(ctx context.Context, changes []store.ChangeRecord) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for session diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithJournal records the session to j.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithClock replaces the logical clock that stamps journal entries.
func WithClock(c Sequencer) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithSessionIDs replaces the session id generator (default UUIDv7).
func WithSessionIDs(g SessionIDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithTracerProvider sets the tracer provider (default: the global one).
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider (default: the global one).
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) {
		e.meterProvider = mp
	}
}

// Engine drives one story session. See the package documentation for the
// turn sequence and the concurrency contract.
type Engine struct {
	bundle  *compiler.Bundle
	gen     llm.Generator
	journal Journal
	clock   Sequencer
	ids     SessionIDGenerator
	logger  *slog.Logger

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	metrics        *metrics

	sessionID string
	history   []string
	current   *Conversation
}

// New creates an Engine for a built bundle. The bundle is owned by the
// engine from here on; do not share it with another engine.
func New(b *compiler.Bundle, gen llm.Generator, opts ...Option) (*Engine, error) {
	if b == nil || b.Graph == nil {
		return nil, errors.New("engine: bundle is required")
	}
	if gen == nil {
		return nil, errors.New("engine: generator is required")
	}

	e := &Engine{
		bundle: b,
		gen:    gen,
		clock:  NewClock(),
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracerProvider == nil {
		e.tracerProvider = otel.GetTracerProvider()
	}
	if e.meterProvider == nil {
		e.meterProvider = otel.GetMeterProvider()
	}

	e.tracer = e.tracerProvider.Tracer(instrumentationName)
	m, err := newMetrics(e.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("engine: metrics: %w", err)
	}
	e.metrics = m
	return e, nil
}

// Start begins the session at nodeID ("" selects the first node) and
// generates the opening conversation.
func (e *Engine) Start(ctx context.Context, nodeID string) (*Conversation, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Start",
		trace.WithAttributes(attribute.String("storyweave.start_node", nodeID)))
	defer span.End()

	if e.sessionID != "" {
		err := e.fail(ErrCodeAlreadyStarted, "session already started", nil)
		return nil, spanError(span, err)
	}
	if err := e.bundle.Graph.Start(nodeID); err != nil {
		return nil, spanError(span, err)
	}

	e.sessionID = e.ids.Generate()
	e.logger = e.logger.With("session", e.sessionID)
	start := e.bundle.Graph.CurrentID()
	span.SetAttributes(
		attribute.String("storyweave.session", e.sessionID),
		attribute.String("storyweave.node", start),
	)
	e.logger.Info("session started", "node", start, "story_hash", e.bundle.Hash)

	if e.journal != nil {
		if err := e.journal.WriteSession(ctx, store.Session{
			ID:            e.sessionID,
			StoryHash:     e.bundle.Hash,
			EngineVersion: ir.EngineVersion,
			StartNode:     start,
		}); err != nil {
			e.logger.Error("journal write failed", "error", err)
		}
	}
	e.writeStep(ctx, store.StepRecord{Kind: store.KindStart, To: start})

	conv, err := e.generateConversation(ctx)
	if err != nil {
		return nil, spanError(span, err)
	}
	return conv, nil
}

// GenerateConversation asks the generator for a new exchange at the
// current node and makes it the dialogue the next ProcessInput answers.
func (e *Engine) GenerateConversation(ctx context.Context) (*Conversation, error) {
	ctx, span := e.tracer.Start(ctx, "engine.GenerateConversation")
	defer span.End()

	if e.sessionID == "" {
		return nil, spanError(span, e.fail(ErrCodeNotStarted, "session not started", nil))
	}
	conv, err := e.generateConversation(ctx)
	if err != nil {
		return nil, spanError(span, err)
	}
	return conv, nil
}

func (e *Engine) generateConversation(ctx context.Context) (*Conversation, error) {
	text, err := prompt.New(prompt.FromBundle(e.bundle)).Conversation(e.history)
	if err != nil {
		return nil, err
	}

	data, err := e.gen.Generate(ctx, llm.Request{
		Name:        RequestConversation,
		Description: "Dialogue lines between the characters and a short situation summary",
		Prompt:      text,
		Schema:      conversationSchema(),
	})
	if err != nil {
		return nil, e.fail(ErrCodeGenerationFailed, "conversation generation failed", err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, e.fail(ErrCodeInvalidResponse, "conversation is not valid JSON", err)
	}
	if len(conv.Dialogue) == 0 {
		return nil, e.fail(ErrCodeInvalidResponse, "conversation has no dialogue", nil)
	}

	e.current = &conv
	e.logger.Info("conversation generated",
		"node", e.bundle.Graph.CurrentID(),
		"lines", len(conv.Dialogue),
	)
	out := conv
	out.Dialogue = append([]string(nil), conv.Dialogue...)
	return &out, nil
}

func conversationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dialogue": map[string]any{
				"type":        "array",
				"description": "The generated conversation between characters, one line per entry",
				"items":       map[string]any{"type": "string"},
			},
			"situation_summary": map[string]any{
				"type":        "string",
				"description": "A brief summary of the current situation in one to two sentences",
			},
		},
		"required":             []string{"dialogue", "situation_summary"},
		"additionalProperties": false,
	}
}

// SessionID returns the journal id of the session, or "" before Start.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// CurrentNode returns the node the story is on.
func (e *Engine) CurrentNode() (story.Node, bool) {
	return e.bundle.Graph.CurrentNode()
}

// Ended reports whether the story has reached a terminal node.
func (e *Engine) Ended() bool {
	node, ok := e.bundle.Graph.CurrentNode()
	return ok && node.Terminal()
}

// Dialogue returns the conversation waiting for a response, if any.
func (e *Engine) Dialogue() (Conversation, bool) {
	if e.current == nil {
		return Conversation{}, false
	}
	out := *e.current
	out.Dialogue = append([]string(nil), e.current.Dialogue...)
	return out, true
}

// History returns every answered dialogue line and user response so far.
func (e *Engine) History() []string {
	return append([]string(nil), e.history...)
}

// States returns a copy of every entity's current values.
func (e *Engine) States() map[string]map[string]int {
	out := make(map[string]map[string]int, len(e.bundle.Entities))
	for _, id := range e.bundle.Entities {
		if tbl, ok := e.bundle.Table(id); ok {
			out[id] = tbl.Values()
		}
	}
	return out
}

// Table returns the state table of an entity.
func (e *Engine) Table(entity string) (*state.Table, bool) {
	return e.bundle.Table(entity)
}

// Entities lists entity keys: characters in story order, then the user.
func (e *Engine) Entities() []string {
	return append([]string(nil), e.bundle.Entities...)
}

func (e *Engine) fail(code SessionErrorCode, msg string, err error) *SessionError {
	return &SessionError{Code: code, Message: msg, SessionID: e.sessionID, Err: err}
}

func (e *Engine) writeStep(ctx context.Context, step store.StepRecord) {
	if e.journal == nil {
		return
	}
	step.SessionID = e.sessionID
	step.Seq = e.clock.Next()
	if err := e.journal.WriteStep(ctx, step); err != nil {
		e.logger.Error("journal write failed", "kind", step.Kind, "error", err)
	}
}

func (e *Engine) writeChanges(ctx context.Context, changes []store.ChangeRecord) {
	if e.journal == nil || len(changes) == 0 {
		return
	}
	for i := range changes {
		changes[i].SessionID = e.sessionID
		changes[i].Seq = e.clock.Next()
	}
	if err := e.journal.WriteChanges(ctx, changes); err != nil {
		e.logger.Error("journal write failed", "kind", "state_changes", "error", err)
	}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
