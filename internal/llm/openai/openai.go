// Package openai provides an llm.Generator backed by any OpenAI-compatible
// chat completions API. The defaults target OpenRouter.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/roach88/storyweave/internal/llm"
)

// DefaultBaseURL is the OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// DefaultModel is used when no model is configured.
const DefaultModel = "meta-llama/llama-3.3-70b-instruct"

// Generator implements llm.Generator using chat completions with a JSON
// schema response format.
type Generator struct {
	client oai.Client
	model  string
	strict bool
}

type config struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
	strict     bool
}

// Option is a functional option for Generator.
type Option func(*config)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithMaxRetries sets how often a failed request is retried.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		c.maxRetries = n
	}
}

// WithStrict asks the backend to enforce the schema exactly. Not every
// model on OpenRouter supports strict mode.
func WithStrict(strict bool) Option {
	return func(c *config) {
		c.strict = strict
	}
}

// New constructs a Generator. An empty model selects DefaultModel.
func New(apiKey string, model string, opts ...Option) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{baseURL: DefaultBaseURL, maxRetries: 2}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Generator{
		client: oai.NewClient(reqOpts...),
		model:  model,
		strict: cfg.strict,
	}, nil
}

// Generate implements llm.Generator.
func (g *Generator) Generate(ctx context.Context, req llm.Request) ([]byte, error) {
	resp, err := g.client.Chat.Completions.New(ctx, g.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: %w: no choices", llm.ErrEmptyResponse)
	}

	content := extractJSON(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("openai: %w", llm.ErrEmptyResponse)
	}
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("openai: response for %s is not valid JSON", req.Name)
	}
	return []byte(content), nil
}

func (g *Generator) buildParams(req llm.Request) oai.ChatCompletionNewParams {
	schema := oai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   req.Name,
		Schema: req.Schema,
	}
	if req.Description != "" {
		schema.Description = param.NewOpt(req.Description)
	}
	if g.strict {
		schema.Strict = param.NewOpt(true)
	}

	return oai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(req.Prompt),
		},
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &oai.ResponseFormatJSONSchemaParam{JSONSchema: schema},
		},
	}
}

// extractJSON strips surrounding whitespace and a Markdown code fence,
// which some models emit even in JSON mode.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
