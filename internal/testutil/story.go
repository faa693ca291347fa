package testutil

import "github.com/roach88/storyweave/internal/ir"

// SampleStory returns the dinner-party story used across package tests.
// It matches testdata/dinner.cue and testdata/dinner.yaml in the compiler
// and harness packages.
//
// Node graph:
//
//	arrival --(user.trust >= 20)--> dinner
//	arrival --(either tension >= 70)--> argument
//	dinner --(player_role >= 70)--> grace_ending
//	dinner --(player_role <= 30)--> trip_ending
//	dinner --(character1.tension >= 80)--> argument
//	argument --()--> dinner
//
// Each call returns a fresh value.
func SampleStory() *ir.Config {
	return &ir.Config{
		Character: []ir.VariableSpec{
			{
				Name:        "tension",
				Description: "How tense the character feels",
				Min:         0, Max: 100, Default: 30,
				Rules: []ir.RuleSpec{
					{Range: "0-30", Description: "relaxed"},
					{Range: "31-70", Description: "uneasy"},
					{Range: "71-100", Description: "on edge"},
				},
			},
			{
				Name:        "affection",
				Description: "Warmth toward the player",
				Min:         0, Max: 100, Default: 50,
				Rules: []ir.RuleSpec{
					{Range: "0-40", Description: "cold"},
					{Range: "41-100", Description: "warm"},
				},
			},
		},
		User: []ir.VariableSpec{
			{
				Name:        "trust",
				Description: "How much the hosts trust you",
				Min:         -100, Max: 100, Default: 0,
				Rules: []ir.RuleSpec{
					{Range: "-100--50", Description: "distrusted"},
					{Range: "-49-49", Description: "acquaintance"},
					{Range: "50-100", Description: "confidant"},
				},
			},
			{
				Name:        "player_role",
				Description: "Whose side you are on",
				Min:         0, Max: 100, Default: 50,
				NoAnalyse:   true,
				Rules: []ir.RuleSpec{
					{Range: "0-30", Description: "siding with Trip"},
					{Range: "31-69", Description: "neutral"},
					{Range: "70-100", Description: "siding with Grace"},
				},
			},
		},
		Story: ir.StorySpec{
			Background: "You are visiting Grace and Trip, old friends whose marriage is quietly falling apart.",
			Characters: []ir.CharacterSpec{
				{ID: "character1", Name: "Grace", Background: "An interior designer who hides frustration behind perfectionism."},
				{ID: "character2", Name: "Trip", Background: "A salesman who smooths over every conflict with a joke."},
			},
			Nodes: []ir.NodeSpec{
				{
					ID:          "arrival",
					Name:        "Arrival",
					Description: "You arrive at the apartment. Grace greets you while Trip finishes a call.",
					Next: []ir.TransitionSpec{
						{Conditions: []string{"user.trust >= 20"}, Target: "dinner", Effects: []string{"character1.tension -= 5"}},
						{Conditions: []string{"character1.tension >= 70", "character2.tension >= 70"}, Target: "argument"},
					},
				},
				{
					ID:          "dinner",
					Name:        "Dinner",
					Description: "Dinner is served. Small talk keeps drifting toward old grievances.",
					Next: []ir.TransitionSpec{
						{Conditions: []string{"user.player_role >= 70"}, Target: "grace_ending"},
						{Conditions: []string{"user.player_role <= 30"}, Target: "trip_ending"},
						{Conditions: []string{"character1.tension >= 80"}, Target: "argument", Effects: []string{"user.trust -= 10"}},
					},
				},
				{
					ID:          "argument",
					Name:        "Argument",
					Description: "Grace and Trip are shouting. Both turn to you.",
					Next: []ir.TransitionSpec{
						{Target: "dinner", Effects: []string{"character1.tension -= 20", "character2.tension -= 20"}},
					},
				},
				{
					ID:          "grace_ending",
					Name:        "Grace's Side",
					Description: "You leave with Grace. Trip stays behind.",
				},
				{
					ID:          "trip_ending",
					Name:        "Trip's Side",
					Description: "You leave with Trip. Grace closes the door.",
				},
			},
		},
	}
}
