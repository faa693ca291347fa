package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyweave/internal/ir"
	"github.com/roach88/storyweave/internal/testutil"
)

func TestLoadFile_CUEMatchesSample(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("testdata", "dinner.cue"))
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleStory(), cfg)
}

func TestLoadFile_YAMLMatchesSample(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("testdata", "dinner.yaml"))
	require.NoError(t, err)
	assert.Equal(t, testutil.SampleStory(), cfg)
}

func TestLoadFile_FormatsHashIdentically(t *testing.T) {
	fromCUE, err := LoadFile(filepath.Join("testdata", "dinner.cue"))
	require.NoError(t, err)
	fromYAML, err := LoadFile(filepath.Join("testdata", "dinner.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ir.MustStoryHash(fromCUE), ir.MustStoryHash(fromYAML))
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading story file")
}

func TestCompileStory_RuleOrderPreserved(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		user: x: {
			min: 0, max: 10, default: 5
			rules: {
				"9": "nine"
				"0-10": "any"
				"5": "five"
			}
		}
		story: story_state: only: {}
	`)
	require.NoError(t, v.Err())

	cfg, err := CompileStory(v)
	require.NoError(t, err)
	require.Len(t, cfg.User, 1)
	assert.Equal(t, []ir.RuleSpec{
		{Range: "9", Description: "nine"},
		{Range: "0-10", Description: "any"},
		{Range: "5", Description: "five"},
	}, cfg.User[0].Rules)
}

func TestCompileStory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{
			name:    "missing story",
			src:     `user: x: {min: 0, max: 1, default: 0}`,
			wantMsg: "story is required",
		},
		{
			name:    "missing bound",
			src:     `user: x: {min: 0, default: 0}, story: {}`,
			wantMsg: "max is required",
		},
		{
			name:    "float bound",
			src:     `user: x: {min: 0, max: 1.5, default: 0}, story: {}`,
			wantMsg: "must be an integer",
		},
		{
			name:    "missing target",
			src:     `story: story_state: a: next_state: [{condition: []}]`,
			wantMsg: "next_node is required",
		},
		{
			name:    "non-string rule",
			src:     `user: x: {min: 0, max: 1, default: 0, rules: {"0": 1}}, story: {}`,
			wantMsg: "must map to a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileCUE([]byte(tt.src), "story.cue")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var ce *CompileError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestCompileCUE_SyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileCUE([]byte("story: {\n  story_state: \n"), "broken.cue")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestDecodeYAML_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantMsg  string
		wantLine int
	}{
		{"not a mapping", "- a\n- b\n", "top level must be a mapping", 1},
		{"unknown key", "story: {}\nextra: 1\n", "unknown top-level key", 2},
		{"missing story", "user: {}\n", "story is required", 1},
		{"quoted bound", "user:\n  x:\n    min: \"0\"\n    max: 1\n    default: 0\nstory: {}\n", "must be an integer", 3},
		{"float bound", "user:\n  x:\n    min: 0\n    max: 1.5\n    default: 0\nstory: {}\n", "must be an integer", 4},
		{"missing default", "user:\n  x:\n    min: 0\n    max: 1\nstory: {}\n", "default is required", 3},
		{"missing target", "story:\n  story_state:\n    a:\n      next_state:\n        - condition: []\n", "next_node is required", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeYAML([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantLine, ce.Line)
		})
	}
}

func TestDecodeYAML_NodeOrderPreserved(t *testing.T) {
	cfg, err := DecodeYAML([]byte(`
story:
  story_state:
    zeta: {}
    alpha: {}
    mid: {}
`))
	require.NoError(t, err)

	var ids []string
	for _, n := range cfg.Story.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, ids)
}

func TestCompileError_Format(t *testing.T) {
	assert.Equal(t, "line 3: user.x.min: must be an integer",
		(&CompileError{Field: "user.x.min", Message: "must be an integer", Line: 3}).Error())
	assert.Equal(t, "story: story is required",
		(&CompileError{Field: "story", Message: "story is required"}).Error())
}
