package ir

// Config is a complete story definition: the variable template shared by
// every character, the user's variables, and the story itself.
type Config struct {
	Character []VariableSpec `json:"character"`
	User      []VariableSpec `json:"user"`
	Story     StorySpec      `json:"story"`
}

// VariableSpec defines one bounded integer variable.
type VariableSpec struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Min         int        `json:"min"`
	Max         int        `json:"max"`
	Default     int        `json:"default"`
	NoAnalyse   bool       `json:"no_analyse,omitempty"` // user variables only
	Rules       []RuleSpec `json:"rules"`
}

// RuleSpec maps a range spec ("30", "0-30", "-20--5") to a description.
type RuleSpec struct {
	Range       string `json:"range"`
	Description string `json:"description"`
}

// StorySpec holds the narrative content.
type StorySpec struct {
	Background string          `json:"story_background"`
	Characters []CharacterSpec `json:"character_background"`
	Nodes      []NodeSpec      `json:"story_state"`
}

// CharacterSpec names one character. ID is the entity key used in
// conditions and effects (e.g. "character1").
type CharacterSpec struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Background string `json:"background"`
}

// NodeSpec is one story node in load order.
type NodeSpec struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Next        []TransitionSpec `json:"next_state"`
}

// TransitionSpec is one conditional edge. Condition and effect strings are
// kept verbatim; parsing happens when the graph is built.
type TransitionSpec struct {
	Conditions []string `json:"condition"`
	Target     string   `json:"next_node"`
	Effects    []string `json:"effects"`
}

// UserEntity is the entity key of the user's state table.
const UserEntity = "user"

// CharacterIDs returns character entity keys in file order.
func (c *Config) CharacterIDs() []string {
	ids := make([]string, 0, len(c.Story.Characters))
	for _, ch := range c.Story.Characters {
		ids = append(ids, ch.ID)
	}
	return ids
}

// Character returns the character with the given id.
func (c *Config) Character(id string) (CharacterSpec, bool) {
	for _, ch := range c.Story.Characters {
		if ch.ID == id {
			return ch, true
		}
	}
	return CharacterSpec{}, false
}
