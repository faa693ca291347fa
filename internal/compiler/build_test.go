package compiler

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyweave/internal/ir"
	"github.com/roach88/storyweave/internal/state"
	"github.com/roach88/storyweave/internal/story"
	"github.com/roach88/storyweave/internal/testutil"
)

func quiet() BuildOption {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBuild_SampleStory(t *testing.T) {
	cfg := testutil.SampleStory()
	b, err := Build(cfg, quiet())
	require.NoError(t, err)

	assert.Equal(t, []string{"character1", "character2", "user"}, b.Entities)
	assert.Equal(t, ir.MustStoryHash(cfg), b.Hash)
	assert.Equal(t, []string{"arrival", "dinner", "argument", "grace_ending", "trip_ending"}, b.Graph.NodeIDs())
	assert.ElementsMatch(t, b.Entities, b.Graph.EntityKeys())

	user, ok := b.Table("user")
	require.True(t, ok)
	assert.Equal(t, []string{"player_role"}, user.ExcludedNames())
	assert.Equal(t, map[string]int{"trust": 0, "player_role": 50}, user.Values())
}

func TestBuild_CharacterTablesAreIndependent(t *testing.T) {
	b, err := Build(testutil.SampleStory(), quiet())
	require.NoError(t, err)

	grace, _ := b.Table("character1")
	trip, _ := b.Table("character2")
	require.NotSame(t, grace, trip)

	_, err = grace.Update(map[string]int{"tension": 40})
	require.NoError(t, err)

	g, _ := grace.Value("tension")
	tr, _ := trip.Value("tension")
	assert.Equal(t, 70, g)
	assert.Equal(t, 30, tr)
}

func TestBuild_GraphUsesBuiltTables(t *testing.T) {
	b, err := Build(testutil.SampleStory(), quiet())
	require.NoError(t, err)
	require.NoError(t, b.Graph.Start(""))

	user, _ := b.Table("user")
	_, err = user.Update(map[string]int{"trust": 25})
	require.NoError(t, err)

	step, err := b.Graph.Advance()
	require.NoError(t, err)
	assert.Equal(t, "dinner", step.To)

	grace, _ := b.Table("character1")
	tension, _ := grace.Value("tension")
	assert.Equal(t, 25, tension)
}

func TestBuild_MalformedExpressionsKept(t *testing.T) {
	cfg := testutil.SampleStory()
	cfg.Story.Nodes[0].Next[0].Conditions = []string{"bad_condition"}

	b, err := Build(cfg, quiet())
	require.NoError(t, err)

	node, ok := b.Graph.Node("arrival")
	require.True(t, ok)
	require.Len(t, node.Transitions[0].Conditions, 1)
	assert.Error(t, node.Transitions[0].Conditions[0].Err())
}

func TestBuild_StructuralErrors(t *testing.T) {
	t.Run("bounds", func(t *testing.T) {
		cfg := testutil.SampleStory()
		cfg.Character[0].Default = -1
		_, err := Build(cfg, quiet())
		assert.True(t, state.IsConfigError(err))
	})

	t.Run("duplicate node", func(t *testing.T) {
		cfg := testutil.SampleStory()
		cfg.Story.Nodes[4].ID = "arrival"
		_, err := Build(cfg, quiet())
		var re *story.RuntimeError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, story.ErrCodeDuplicateNode, re.Code)
	})

	t.Run("user as character", func(t *testing.T) {
		cfg := testutil.SampleStory()
		cfg.Story.Characters[0].ID = "user"
		_, err := Build(cfg, quiet())
		assert.ErrorContains(t, err, "duplicate entity")
	})
}

func TestBuild_ReplacedTableSeenEverywhere(t *testing.T) {
	b, err := Build(testutil.SampleStory(), quiet())
	require.NoError(t, err)
	require.NoError(t, b.Graph.Start(""))

	replacement, err := state.NewTable([]state.Definition{
		{Name: "tension", Min: 0, Max: 100, Default: 90},
		{Name: "affection", Min: 0, Max: 100, Default: 10},
	})
	require.NoError(t, err)
	b.Graph.SetEntityTable("character1", replacement)

	got, ok := b.Table("character1")
	require.True(t, ok)
	assert.Same(t, replacement, got)

	user, _ := b.Table("user")
	_, err = user.Update(map[string]int{"trust": 25})
	require.NoError(t, err)

	step, err := b.Graph.Advance()
	require.NoError(t, err)
	assert.Equal(t, "dinner", step.To)

	tension, _ := replacement.Value("tension")
	assert.Equal(t, 85, tension)
}
