package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/storyweave/internal/story"
)

// Scenario is a scripted run of one story.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description,omitempty"`

	// Story is the path to the story file. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Story string `yaml:"story"`

	// Start is the start node; empty selects the story's first node.
	Start string `yaml:"start,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scripted action. Exactly one of Update, Effect, or Advance
// is set.
type Step struct {
	Update *UpdateStep `yaml:"update,omitempty"`

	// Effect is an effect expression such as "user.trust += 10".
	Effect string `yaml:"effect,omitempty"`

	Advance bool `yaml:"advance,omitempty"`

	// Expect is the required outcome of an advance step, if set.
	Expect string `yaml:"expect,omitempty"`
}

// UpdateStep applies signed deltas to one entity.
type UpdateStep struct {
	Entity string         `yaml:"entity"`
	Deltas map[string]int `yaml:"deltas"`
}

// Assertion checks the final state of a run.
type Assertion struct {
	Type string `yaml:"type"`

	// Node is the expected final node (current_node).
	Node string `yaml:"node,omitempty"`

	// Nodes is the expected full history (history).
	Nodes []string `yaml:"nodes,omitempty"`

	// Entity and Variable select a variable (value, rule).
	Entity   string `yaml:"entity,omitempty"`
	Variable string `yaml:"variable,omitempty"`

	// Equals is the expected value (value).
	Equals *int `yaml:"equals,omitempty"`

	// Description is the expected rule description (rule). An empty string
	// asserts that no rule matches.
	Description *string `yaml:"description,omitempty"`

	// Outcomes is the expected outcome of every advance step (outcome).
	Outcomes []string `yaml:"outcomes,omitempty"`
}

// Assertion type constants.
const (
	AssertCurrentNode = "current_node"
	AssertHistory     = "history"
	AssertValue       = "value"
	AssertRule        = "rule"
	AssertOutcome     = "outcome"
)

var knownOutcomes = map[string]bool{
	string(story.OutcomeMoved):         true,
	string(story.OutcomeTerminal):      true,
	string(story.OutcomeNoTransition):  true,
	string(story.OutcomeUnknownTarget): true,
}

// LoadScenario reads and parses a scenario YAML file, resolving the story
// path against the scenario's directory.
//
// Unknown fields are rejected so typos like "assertion:" fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Story != "" && !filepath.IsAbs(scenario.Story) {
		scenario.Story = filepath.Join(filepath.Dir(path), scenario.Story)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Story == "" {
		return fmt.Errorf("story is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if _, err := os.Stat(s.Story); os.IsNotExist(err) {
		return fmt.Errorf("story file not found: %s", s.Story)
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s Step) error {
	set := 0
	if s.Update != nil {
		set++
	}
	if s.Effect != "" {
		set++
	}
	if s.Advance {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of update, effect, or advance is required", index)
	}

	if s.Update != nil {
		if s.Update.Entity == "" {
			return fmt.Errorf("steps[%d]: update.entity is required", index)
		}
		if len(s.Update.Deltas) == 0 {
			return fmt.Errorf("steps[%d]: update.deltas is required", index)
		}
	}
	if s.Expect != "" {
		if !s.Advance {
			return fmt.Errorf("steps[%d]: expect is only valid on advance", index)
		}
		if !knownOutcomes[s.Expect] {
			return fmt.Errorf("steps[%d]: unknown outcome %q", index, s.Expect)
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCurrentNode:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for current_node", index)
		}
	case AssertHistory:
		if len(a.Nodes) == 0 {
			return fmt.Errorf("assertions[%d]: nodes list is required for history", index)
		}
	case AssertValue:
		if a.Entity == "" || a.Variable == "" {
			return fmt.Errorf("assertions[%d]: entity and variable are required for value", index)
		}
		if a.Equals == nil {
			return fmt.Errorf("assertions[%d]: equals is required for value", index)
		}
	case AssertRule:
		if a.Entity == "" || a.Variable == "" {
			return fmt.Errorf("assertions[%d]: entity and variable are required for rule", index)
		}
		if a.Description == nil {
			return fmt.Errorf("assertions[%d]: description is required for rule", index)
		}
	case AssertOutcome:
		if a.Outcomes == nil {
			return fmt.Errorf("assertions[%d]: outcomes list is required for outcome", index)
		}
		for _, o := range a.Outcomes {
			if !knownOutcomes[o] {
				return fmt.Errorf("assertions[%d]: unknown outcome %q", index, o)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
