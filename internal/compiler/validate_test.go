package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyweave/internal/ir"
	"github.com/roach88/storyweave/internal/testutil"
)

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidate_SampleStoryIsClean(t *testing.T) {
	assert.Empty(t, Validate(testutil.SampleStory()))
}

func TestValidate_ReportsEachProblem(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.Config)
		want   string
		fatal  bool
	}{
		{"bounds", func(c *ir.Config) { c.User[0].Default = 500 }, ErrBoundsViolation, true},
		{"rule range", func(c *ir.Config) { c.Character[0].Rules[0].Range = "low-high" }, ErrInvalidRuleRange, true},
		{"condition", func(c *ir.Config) { c.Story.Nodes[0].Next[0].Conditions[0] = "bad_condition" }, ErrInvalidCondition, false},
		{"effect", func(c *ir.Config) { c.Story.Nodes[0].Next[0].Effects[0] = "character1.tension >= 5" }, ErrInvalidEffect, false},
		{"target", func(c *ir.Config) { c.Story.Nodes[2].Next[0].Target = "kitchen" }, ErrUnknownTarget, false},
		{"entity", func(c *ir.Config) { c.Story.Nodes[0].Next[0].Effects[0] = "character3.tension -= 5" }, ErrUnknownEntity, false},
		{"variable", func(c *ir.Config) { c.Story.Nodes[0].Next[0].Conditions[0] = "user.mood > 1" }, ErrUnknownVariable, false},
		{"duplicate node", func(c *ir.Config) { c.Story.Nodes[1].ID = "arrival" }, ErrDuplicateName, true},
		{"user as character id", func(c *ir.Config) { c.Story.Characters[1].ID = "user" }, ErrDuplicateName, true},
		{"duplicate variable", func(c *ir.Config) { c.User[1].Name = "trust" }, ErrDuplicateName, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testutil.SampleStory()
			tt.mutate(cfg)

			errs := Validate(cfg)
			require.NotEmpty(t, errs)
			assert.Contains(t, codes(errs), tt.want)

			for _, e := range errs {
				if e.Code == tt.want {
					assert.Equal(t, tt.fatal, e.Fatal())
				}
			}
		})
	}
}

func TestValidate_EmptyStory(t *testing.T) {
	errs := Validate(&ir.Config{})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEmptyStory, errs[0].Code)
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := testutil.SampleStory()
	cfg.User[0].Default = 500
	cfg.Story.Nodes[0].Next[0].Conditions[0] = "nope"
	cfg.Story.Nodes[2].Next[0].Target = "kitchen"

	assert.ElementsMatch(t, []string{ErrBoundsViolation, ErrInvalidCondition, ErrUnknownTarget}, codes(Validate(cfg)))
}

func TestValidationError_Format(t *testing.T) {
	e := ValidationError{Field: "user.trust", Message: "bad", Code: ErrBoundsViolation}
	assert.Equal(t, "[E201] user.trust: bad", e.Error())

	e.Line = 7
	assert.Equal(t, "[E201] line 7: user.trust: bad", e.Error())
}
