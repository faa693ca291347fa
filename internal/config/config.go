// Package config loads runtime settings from the environment and an
// optional .env file. Story content is never configured here; it comes from
// story files passed on the command line.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Settings holds the runtime configuration for a session.
type Settings struct {
	APIKey  string        `env:"OPENROUTER_API_KEY"`
	Model   string        `env:"STORYWEAVE_MODEL" envDefault:"meta-llama/llama-3.3-70b-instruct"`
	BaseURL string        `env:"STORYWEAVE_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	Timeout time.Duration `env:"STORYWEAVE_TIMEOUT" envDefault:"60s"`

	// Journal is an optional SQLite path for the session journal.
	Journal string `env:"STORYWEAVE_JOURNAL"`
}

// ErrMissingAPIKey is returned by RequireAPIKey when no key is set.
var ErrMissingAPIKey = errors.New("OPENROUTER_API_KEY is not set")

// Load reads the given .env files (default ".env") into the process
// environment, then parses Settings. Missing .env files are ignored;
// variables already set in the environment take precedence.
func Load(dotenv ...string) (*Settings, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return parse(env.Options{})
}

// FromMap parses Settings from vars instead of the process environment.
func FromMap(vars map[string]string) (*Settings, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if s.Timeout < 0 {
		return nil, fmt.Errorf("parse env: STORYWEAVE_TIMEOUT must not be negative")
	}
	return &s, nil
}

// RequireAPIKey reports whether a generation backend can be reached.
func (s *Settings) RequireAPIKey() error {
	if s.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
