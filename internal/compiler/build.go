package compiler

import (
	"fmt"
	"log/slog"

	"github.com/roach88/storyweave/internal/expr"
	"github.com/roach88/storyweave/internal/ir"
	"github.com/roach88/storyweave/internal/state"
	"github.com/roach88/storyweave/internal/story"
)

// Bundle is a story built from a Config: one state table per entity and the
// graph that references them.
type Bundle struct {
	Config *ir.Config
	Hash   string
	Graph  *story.Graph

	// Entities lists entity keys: characters in file order, then the user.
	Entities []string
}

// Table implements expr.Resolver. Tables are resolved through the graph, so
// a table swapped in with Graph.SetEntityTable is the one every caller sees.
func (b *Bundle) Table(entity string) (*state.Table, bool) {
	return b.Graph.Table(entity)
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger passed to every table and the graph.
func WithLogger(l *slog.Logger) BuildOption {
	return func(o *buildOptions) {
		o.logger = l
	}
}

// Build constructs tables and the story graph from cfg.
//
// Every character gets a fresh table built from the shared character
// template. The user gets one table with no_analyse honored. Condition and
// effect strings are parsed eagerly; malformed ones are logged and kept, so
// at run time they evaluate false or are skipped.
//
// Structural errors (bounds, bad rule ranges, duplicate ids) fail the build.
func Build(cfg *ir.Config, opts ...BuildOption) (*Bundle, error) {
	o := buildOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	hash, err := ir.StoryHash(cfg)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		Config: cfg,
		Hash:   hash,
	}
	tables := make(map[string]*state.Table)

	for _, id := range cfg.CharacterIDs() {
		if _, dup := tables[id]; dup || id == ir.UserEntity {
			return nil, fmt.Errorf("duplicate entity id %q", id)
		}
		tbl, err := state.NewTable(definitions(cfg.Character), state.WithLogger(o.logger.With("entity", id)))
		if err != nil {
			return nil, fmt.Errorf("character %s: %w", id, err)
		}
		tables[id] = tbl
		b.Entities = append(b.Entities, id)
	}

	user, err := state.NewTable(definitions(cfg.User), state.WithLogger(o.logger.With("entity", ir.UserEntity)))
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	tables[ir.UserEntity] = user
	b.Entities = append(b.Entities, ir.UserEntity)

	nodes := make([]story.Node, 0, len(cfg.Story.Nodes))
	for _, n := range cfg.Story.Nodes {
		node := story.Node{ID: n.ID, Name: n.Name, Description: n.Description}
		for _, t := range n.Next {
			conds, cerrs := expr.ParseConditions(t.Conditions)
			effects, eerrs := expr.ParseEffects(t.Effects)
			for _, err := range append(cerrs, eerrs...) {
				o.logger.Warn("malformed expression kept", "node", n.ID, "target", t.Target, "error", err)
			}
			node.Transitions = append(node.Transitions, story.Transition{
				Conditions: conds,
				Target:     t.Target,
				Effects:    effects,
			})
		}
		nodes = append(nodes, node)
	}

	b.Graph, err = story.NewGraph(nodes, story.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	for _, id := range b.Entities {
		b.Graph.SetEntityTable(id, tables[id])
	}

	return b, nil
}

func definitions(vars []ir.VariableSpec) []state.Definition {
	defs := make([]state.Definition, 0, len(vars))
	for _, v := range vars {
		rules := make([]state.Rule, 0, len(v.Rules))
		for _, r := range v.Rules {
			rules = append(rules, state.Rule{Spec: r.Range, Description: r.Description})
		}
		defs = append(defs, state.Definition{
			Name:                 v.Name,
			Description:          v.Description,
			Min:                  v.Min,
			Max:                  v.Max,
			Default:              v.Default,
			ExcludedFromAnalysis: v.NoAnalyse,
			Rules:                rules,
		})
	}
	return defs
}
