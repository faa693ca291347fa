package compiler

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/storyweave/internal/ir"
)

// DecodeYAML parses a YAML story file into a Config. It has the same shape
// as the CUE form. Decoding walks yaml.Node trees instead of unmarshaling
// into maps so mapping order (rule order, node load order) is kept.
func DecodeYAML(data []byte) (*ir.Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error()}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &CompileError{Field: "yaml", Message: "empty document"}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &CompileError{Field: "yaml", Message: "top level must be a mapping", Line: root.Line}
	}

	cfg := &ir.Config{}
	var storyNode *yaml.Node
	var err error

	for _, kv := range pairs(root) {
		switch kv.key {
		case "character":
			cfg.Character, err = yamlVariables(kv.val, "character")
		case "user":
			cfg.User, err = yamlVariables(kv.val, "user")
		case "story":
			storyNode = kv.val
		default:
			err = &CompileError{Field: kv.key, Message: "unknown top-level key", Line: kv.val.Line}
		}
		if err != nil {
			return nil, err
		}
	}

	if storyNode == nil {
		return nil, &CompileError{Field: "story", Message: "story is required", Line: root.Line}
	}
	if err := yamlStory(storyNode, &cfg.Story); err != nil {
		return nil, err
	}

	return cfg, nil
}

type pair struct {
	key string
	val *yaml.Node
}

// pairs returns a mapping node's entries in document order.
func pairs(n *yaml.Node) []pair {
	out := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, pair{key: n.Content[i].Value, val: n.Content[i+1]})
	}
	return out
}

func expectMapping(n *yaml.Node, field string) error {
	if n.Kind != yaml.MappingNode {
		return &CompileError{Field: field, Message: "must be a mapping", Line: n.Line}
	}
	return nil
}

func yamlVariables(n *yaml.Node, field string) ([]ir.VariableSpec, error) {
	if isNull(n) {
		return nil, nil
	}
	if err := expectMapping(n, field); err != nil {
		return nil, err
	}

	var vars []ir.VariableSpec
	for _, v := range pairs(n) {
		path := field + "." + v.key
		if err := expectMapping(v.val, path); err != nil {
			return nil, err
		}

		spec := ir.VariableSpec{Name: v.key}
		seen := map[string]bool{}
		for _, f := range pairs(v.val) {
			seen[f.key] = true
			var err error
			switch f.key {
			case "description":
				spec.Description, err = yamlString(f.val, path+".description")
			case "min":
				spec.Min, err = yamlInt(f.val, path+".min")
			case "max":
				spec.Max, err = yamlInt(f.val, path+".max")
			case "default":
				spec.Default, err = yamlInt(f.val, path+".default")
			case "no_analyse":
				err = f.val.Decode(&spec.NoAnalyse)
				if err != nil {
					err = &CompileError{Field: path + ".no_analyse", Message: "must be a bool", Line: f.val.Line}
				}
			case "rules":
				spec.Rules, err = yamlRules(f.val, path+".rules")
			default:
				err = &CompileError{Field: path + "." + f.key, Message: "unknown field", Line: f.val.Line}
			}
			if err != nil {
				return nil, err
			}
		}

		for _, req := range []string{"min", "max", "default"} {
			if !seen[req] {
				return nil, &CompileError{Field: path + "." + req, Message: req + " is required", Line: v.val.Line}
			}
		}
		vars = append(vars, spec)
	}
	return vars, nil
}

func yamlRules(n *yaml.Node, field string) ([]ir.RuleSpec, error) {
	if isNull(n) {
		return nil, nil
	}
	if err := expectMapping(n, field); err != nil {
		return nil, err
	}

	var rules []ir.RuleSpec
	for _, r := range pairs(n) {
		desc, err := yamlString(r.val, field+"."+r.key)
		if err != nil {
			return nil, err
		}
		rules = append(rules, ir.RuleSpec{Range: r.key, Description: desc})
	}
	return rules, nil
}

func yamlStory(n *yaml.Node, s *ir.StorySpec) error {
	if err := expectMapping(n, "story"); err != nil {
		return err
	}

	for _, kv := range pairs(n) {
		var err error
		switch kv.key {
		case "story_background":
			s.Background, err = yamlString(kv.val, "story.story_background")
		case "character_background":
			s.Characters, err = yamlCharacters(kv.val)
		case "story_state":
			s.Nodes, err = yamlNodes(kv.val)
		default:
			err = &CompileError{Field: "story." + kv.key, Message: "unknown field", Line: kv.val.Line}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func yamlCharacters(n *yaml.Node) ([]ir.CharacterSpec, error) {
	if isNull(n) {
		return nil, nil
	}
	if err := expectMapping(n, "character_background"); err != nil {
		return nil, err
	}

	var chars []ir.CharacterSpec
	for _, kv := range pairs(n) {
		var body struct {
			Name       string `yaml:"name"`
			Background string `yaml:"background"`
		}
		if err := kv.val.Decode(&body); err != nil {
			return nil, &CompileError{Field: "character_background." + kv.key, Message: err.Error(), Line: kv.val.Line}
		}
		chars = append(chars, ir.CharacterSpec{ID: kv.key, Name: body.Name, Background: body.Background})
	}
	return chars, nil
}

func yamlNodes(n *yaml.Node) ([]ir.NodeSpec, error) {
	if isNull(n) {
		return nil, nil
	}
	if err := expectMapping(n, "story_state"); err != nil {
		return nil, err
	}

	var nodes []ir.NodeSpec
	for _, kv := range pairs(n) {
		var body struct {
			Name        string `yaml:"name"`
			Description string `yaml:"description"`
			NextState   []struct {
				Condition []string `yaml:"condition"`
				NextNode  *string  `yaml:"next_node"`
				Effects   []string `yaml:"effects"`
			} `yaml:"next_state"`
		}
		if err := kv.val.Decode(&body); err != nil {
			return nil, &CompileError{Field: "story_state." + kv.key, Message: err.Error(), Line: kv.val.Line}
		}

		node := ir.NodeSpec{ID: kv.key, Name: body.Name, Description: body.Description}
		for i, t := range body.NextState {
			if t.NextNode == nil {
				return nil, &CompileError{
					Field:   fmt.Sprintf("story_state.%s.next_state[%d].next_node", kv.key, i),
					Message: "next_node is required",
					Line:    kv.val.Line,
				}
			}
			node.Next = append(node.Next, ir.TransitionSpec{
				Conditions: t.Condition,
				Target:     *t.NextNode,
				Effects:    t.Effects,
			})
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func yamlString(n *yaml.Node, field string) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", &CompileError{Field: field, Message: "must be a string", Line: n.Line}
	}
	return n.Value, nil
}

// yamlInt reads an integer scalar. Floats and quoted numbers are rejected.
func yamlInt(n *yaml.Node, field string) (int, error) {
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!int" {
		return 0, &CompileError{Field: field, Message: "must be an integer", Line: n.Line}
	}
	v, err := strconv.Atoi(n.Value)
	if err != nil {
		var i64 int64
		if derr := n.Decode(&i64); derr != nil {
			return 0, &CompileError{Field: field, Message: "must be an integer", Line: n.Line}
		}
		return int(i64), nil
	}
	return v, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}
