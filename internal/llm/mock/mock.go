// Package mock provides a test double for llm.Generator.
//
// Responses are consumed in order from Responses; once exhausted, Fallback
// is returned. Set Err to inject a failure on every call.
//
//	g := &mock.Generator{Responses: [][]byte{[]byte(`{"dialogue":["Hi"]}`)}}
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/storyweave/internal/llm"
)

// Call records a single invocation of Generate.
type Call struct {
	Ctx context.Context
	Req llm.Request
}

// Generator is a mock implementation of llm.Generator.
type Generator struct {
	mu sync.Mutex

	// Responses are returned one per call, in order.
	Responses [][]byte

	// ByName, if set, answers requests by Request.Name before Responses.
	ByName map[string][][]byte

	// Fallback is returned once Responses is exhausted. If nil, an
	// exhausted mock returns an error.
	Fallback []byte

	// Err, if non-nil, is returned from every call.
	Err error

	// Calls records every invocation in order.
	Calls []Call
}

// Generate records the call and returns the next configured response.
func (g *Generator) Generate(ctx context.Context, req llm.Request) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, Call{Ctx: ctx, Req: req})

	if g.Err != nil {
		return nil, g.Err
	}
	if queue := g.ByName[req.Name]; len(queue) > 0 {
		g.ByName[req.Name] = queue[1:]
		return queue[0], nil
	}
	if len(g.Responses) > 0 {
		next := g.Responses[0]
		g.Responses = g.Responses[1:]
		return next, nil
	}
	if g.Fallback != nil {
		return g.Fallback, nil
	}
	return nil, fmt.Errorf("mock: no response configured for %s", req.Name)
}

// Requests returns the names of all recorded requests in order.
func (g *Generator) Requests() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.Calls))
	for _, c := range g.Calls {
		names = append(names, c.Req.Name)
	}
	return names
}
