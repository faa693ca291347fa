// Package prompt renders the text sent to the generation collaborator:
// the dialogue prompt for the current node and the analysis prompt for a
// finished exchange.
package prompt

import (
	"github.com/roach88/storyweave/internal/compiler"
	"github.com/roach88/storyweave/internal/ir"
	"github.com/roach88/storyweave/internal/state"
)

// RoleVariable is the user variable rendered as an allegiance axis between
// the first two characters.
const RoleVariable = "player_role"

// Variable is one entity variable as shown in prompts.
type Variable struct {
	Name  string
	Value int
	Min   int
	Max   int

	// State is the matching rule description, empty when no rule matches.
	State string

	Analyzable bool
}

// Entity is a character or the user as shown in prompts.
type Entity struct {
	ID         string
	Name       string
	Background string
	Variables  []Variable
}

// View is a snapshot of everything the prompts describe.
type View struct {
	Background      string
	NodeName        string
	NodeDescription string
	Characters      []Entity
	User            Entity
}

// FromBundle snapshots the bundle's current node and entity values.
func FromBundle(b *compiler.Bundle) View {
	v := View{Background: b.Config.Story.Background}
	if node, ok := b.Graph.CurrentNode(); ok {
		v.NodeName = node.Name
		v.NodeDescription = node.Description
	}

	for _, id := range b.Entities {
		tbl, ok := b.Table(id)
		if !ok {
			continue
		}
		if id == ir.UserEntity {
			v.User = Entity{ID: id, Name: "User", Variables: variables(tbl)}
			continue
		}
		e := Entity{ID: id, Name: "Character " + id, Variables: variables(tbl)}
		if c, ok := b.Config.Character(id); ok {
			if c.Name != "" {
				e.Name = c.Name
			}
			e.Background = c.Background
		}
		v.Characters = append(v.Characters, e)
	}
	return v
}

func variables(tbl *state.Table) []Variable {
	descs := tbl.RuleDescriptions()
	names := tbl.Names()
	out := make([]Variable, 0, len(names))
	for _, name := range names {
		def, _ := tbl.Definition(name)
		val, _ := tbl.Value(name)
		out = append(out, Variable{
			Name:       name,
			Value:      val,
			Min:        def.Min,
			Max:        def.Max,
			State:      descs[name],
			Analyzable: !tbl.IsExcluded(name),
		})
	}
	return out
}
