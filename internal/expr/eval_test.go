package expr

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyweave/internal/state"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTables(t *testing.T) Tables {
	t.Helper()

	character, err := state.NewTable([]state.Definition{
		{Name: "tension", Min: 0, Max: 100, Default: 40},
	}, state.WithLogger(discardLogger()))
	require.NoError(t, err)

	user, err := state.NewTable([]state.Definition{
		{Name: "trust", Min: -100, Max: 100, Default: 0},
		{Name: "x", Min: -50, Max: 50, Default: 7},
	}, state.WithLogger(discardLogger()))
	require.NoError(t, err)

	return Tables{"character1": character, "user": user}
}

func mustCondition(t *testing.T, s string) Condition {
	t.Helper()
	c, err := ParseCondition(s)
	require.NoError(t, err)
	return c
}

func mustEffect(t *testing.T, s string) Effect {
	t.Helper()
	e, err := ParseEffect(s)
	require.NoError(t, err)
	return e
}

func TestCondition_Evaluate(t *testing.T) {
	tables := testTables(t)

	testCases := []struct {
		input string
		want  bool
	}{
		{"character1.tension == 40", true},
		{"character1.tension != 40", false},
		{"character1.tension > 39", true},
		{"character1.tension > 40", false},
		{"character1.tension >= 40", true},
		{"character1.tension < 40", false},
		{"character1.tension <= 40", true},
		{"user.trust >= -1", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := mustCondition(t, tc.input).Evaluate(tables)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCondition_EvaluateFailuresAreFalse(t *testing.T) {
	tables := testTables(t)

	t.Run("unknown entity", func(t *testing.T) {
		ok, err := mustCondition(t, "character9.tension > 0").Evaluate(tables)
		assert.False(t, ok)
		assert.True(t, IsUnknownEntity(err))
	})

	t.Run("unknown variable", func(t *testing.T) {
		ok, err := mustCondition(t, "user.missing > 0").Evaluate(tables)
		assert.False(t, ok)
		assert.True(t, state.IsUnknownVariable(err))
	})

	t.Run("parse failure", func(t *testing.T) {
		c, _ := ParseCondition("bad_condition")
		ok, err := c.Evaluate(tables)
		assert.False(t, ok)
		assert.True(t, IsParseError(err))
	})
}

func TestEffect_Apply(t *testing.T) {
	testCases := []struct {
		input string
		want  int
	}{
		{"user.x = 3", 3},
		{"user.x += 3", 10},
		{"user.x -= 10", -3},
		{"user.x *= 3", 21},
		{"user.x /= 2", 3},
		{"user.x /= -2", -3},
		{"user.x = 1000", 50},
		{"user.x *= -100", -50},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			tables := testTables(t)
			change, err := mustEffect(t, tc.input).Apply(tables)
			require.NoError(t, err)

			got, _ := tables["user"].Value("x")
			assert.Equal(t, tc.want, got)
			assert.Equal(t, state.Change{Variable: "x", Old: 7, New: tc.want}, change)
		})
	}
}

func TestEffect_ClampsLargeIncrement(t *testing.T) {
	tables := testTables(t)

	_, err := mustEffect(t, "character1.tension += 1000").Apply(tables)
	require.NoError(t, err)

	got, _ := tables["character1"].Value("tension")
	assert.Equal(t, 100, got)
}

func TestEffect_SaturatesInsteadOfWrapping(t *testing.T) {
	testCases := []struct {
		input string
		want  int
	}{
		{"character1.tension += 9223372036854775807", 100},
		{"character1.tension *= 9223372036854775807", 100},
		{"character1.tension -= 9223372036854775807", 0},
		{"character1.tension *= -9223372036854775807", 0},
		{"character1.tension = -9223372036854775807", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			tables := testTables(t)
			_, err := mustEffect(t, tc.input).Apply(tables)
			require.NoError(t, err)

			got, _ := tables["character1"].Value("tension")
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEffect_DivisionByZeroLeavesValue(t *testing.T) {
	tables := testTables(t)

	_, err := mustEffect(t, "user.x /= 0").Apply(tables)
	require.Error(t, err)
	assert.True(t, IsDivisionByZero(err))

	got, _ := tables["user"].Value("x")
	assert.Equal(t, 7, got)
}

func TestEffect_ApplyFailures(t *testing.T) {
	tables := testTables(t)

	_, err := mustEffect(t, "nobody.x = 1").Apply(tables)
	assert.True(t, IsUnknownEntity(err))

	_, err = mustEffect(t, "user.nothing = 1").Apply(tables)
	assert.True(t, state.IsUnknownVariable(err))

	bad, _ := ParseEffect("user.x == 1")
	_, err = bad.Apply(tables)
	assert.True(t, IsParseError(err))
}

func TestAnySatisfied(t *testing.T) {
	tables := testTables(t)
	logger := discardLogger()

	t.Run("empty list is vacuously true", func(t *testing.T) {
		assert.True(t, AnySatisfied(nil, tables, logger))
	})

	t.Run("OR semantics", func(t *testing.T) {
		conds, _ := ParseConditions([]string{"user.trust >= 80", "user.trust <= -80"})
		assert.False(t, AnySatisfied(conds, tables, logger))

		_, err := tables["user"].Update(map[string]int{"trust": -90})
		require.NoError(t, err)
		assert.True(t, AnySatisfied(conds, tables, logger))

		_, err = tables["user"].Update(map[string]int{"trust": 180})
		require.NoError(t, err)
		assert.True(t, AnySatisfied(conds, tables, logger))
	})

	t.Run("failing conditions count as false", func(t *testing.T) {
		conds, _ := ParseConditions([]string{"bad_condition", "ghost.x > 0", "character1.tension == 40"})
		assert.True(t, AnySatisfied(conds, tables, logger))

		conds, _ = ParseConditions([]string{"bad_condition"})
		assert.False(t, AnySatisfied(conds, tables, logger))
	})
}

func TestApplyAll_FailuresDoNotBlock(t *testing.T) {
	tables := testTables(t)

	effects, _ := ParseEffects([]string{
		"user.x /= 0",
		"garbage",
		"user.x += 1",
		"ghost.y = 1",
		"character1.tension = 90",
	})

	results := ApplyAll(effects, tables, discardLogger())
	require.Len(t, results, 5)

	assert.False(t, results[0].Applied())
	assert.False(t, results[1].Applied())
	assert.True(t, results[2].Applied())
	assert.False(t, results[3].Applied())
	assert.True(t, results[4].Applied())

	x, _ := tables["user"].Value("x")
	assert.Equal(t, 8, x)
	tension, _ := tables["character1"].Value("tension")
	assert.Equal(t, 90, tension)
}
