package engine

import (
	"go.opentelemetry.io/otel/metric"
)

// instrumentationName is the scope name for engine spans and instruments.
const instrumentationName = "github.com/roach88/storyweave/internal/engine"

type metrics struct {
	// Attributes: outcome.
	transitions metric.Int64Counter

	// Attributes: entity, source.
	stateChanges metric.Int64Counter

	turns metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	m := mp.Meter(instrumentationName)
	var (
		met metrics
		err error
	)
	if met.transitions, err = m.Int64Counter("storyweave.transitions",
		metric.WithDescription("Story graph advance attempts by outcome."),
	); err != nil {
		return nil, err
	}
	if met.stateChanges, err = m.Int64Counter("storyweave.state_changes",
		metric.WithDescription("Committed variable changes by entity and source."),
	); err != nil {
		return nil, err
	}
	if met.turns, err = m.Int64Counter("storyweave.turns",
		metric.WithDescription("Processed user turns."),
	); err != nil {
		return nil, err
	}
	return &met, nil
}
