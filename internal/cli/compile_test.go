package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyweave/internal/compiler"
	"github.com/roach88/storyweave/internal/ir"
)

func TestCompileValidStory(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), storyPath("dinner.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 2 character(s), 5 node(s)")
	assert.Contains(t, out, "Hash: ")
	assert.Contains(t, out, `"story_state"`)
}

func TestCompileValidStoryJSON(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), storyPath("dinner.cue"))
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Characters)
	assert.Equal(t, 5, resp.Data.Nodes)
	assert.NotEmpty(t, resp.Data.Hash)
	assert.True(t, json.Valid(resp.Data.Story))
}

func TestCompileHashMatchesAcrossFormats(t *testing.T) {
	hash := func(path string) string {
		out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), path)
		require.NoError(t, err)
		var resp struct {
			Data CompilationResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		return resp.Data.Hash
	}

	assert.Equal(t, hash(storyPath("dinner.yaml")), hash(storyPath("dinner.cue")))
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "compiled.json")

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}),
		storyPath("dinner.yaml"), "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote canonical JSON to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	cfg, err := compiler.LoadFile(storyPath("dinner.yaml"))
	require.NoError(t, err)
	want, err := ir.MarshalCanonical(cfg.Value())
	require.NoError(t, err)
	assert.Equal(t, string(want), string(data))
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing file", storyPath("nope.yaml"), ErrCodeNotFound},
		{"structural error", storyPath("malformed.yaml"), ErrCodeCompileFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCompileDirectoryIsNotAFile(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "not a file")
}
