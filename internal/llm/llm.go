// Package llm defines the text-generation collaborator used by the engine.
//
// A Generator turns a prompt plus a JSON schema into a JSON document that
// conforms to the schema. Implementations must honor context cancellation.
// The engine decodes and validates the returned bytes itself; a Generator
// only guarantees that it returns syntactically valid JSON or an error.
package llm

import (
	"context"
	"errors"
)

// Request is one structured generation call.
type Request struct {
	// Name identifies the schema to the backend (for example "conversation").
	Name string

	// Description is an optional hint describing the expected document.
	Description string

	Prompt string

	// Schema is a JSON schema object the response must satisfy.
	Schema map[string]any
}

// Generator produces a JSON document for a Request.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// ErrEmptyResponse is returned when the backend produced no content.
var ErrEmptyResponse = errors.New("llm: empty response")
