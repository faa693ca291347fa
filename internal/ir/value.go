package ir

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the value kinds allowed in canonical
// form. Only Str, Int, Bool, List, and Object implement it. There is no
// null and no float.
type Value interface {
	value()
}

// Str is a string value.
type Str string

func (Str) value() {}

// Int is an integer value. Always int64.
type Int int64

func (Int) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// List is an ordered sequence of values.
type List []Value

func (List) value() {}

// Object maps string keys to values. Use SortedKeys for deterministic
// iteration.
type Object map[string]Value

func (Object) value() {}

// Strs converts a string slice to a List.
func Strs(ss []string) List {
	out := make(List, len(ss))
	for i, s := range ss {
		out[i] = Str(s)
	}
	return out
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go's sort.Strings orders by UTF-8 bytes, which differs above the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// Value converts the config to its canonical value tree.
func (c *Config) Value() Object {
	return Object{
		"character": variablesValue(c.Character),
		"user":      variablesValue(c.User),
		"story":     c.Story.value(),
	}
}

func variablesValue(vars []VariableSpec) List {
	out := make(List, len(vars))
	for i, v := range vars {
		rules := make(List, len(v.Rules))
		for j, r := range v.Rules {
			rules[j] = Object{"range": Str(r.Range), "description": Str(r.Description)}
		}
		out[i] = Object{
			"name":        Str(v.Name),
			"description": Str(v.Description),
			"min":         Int(v.Min),
			"max":         Int(v.Max),
			"default":     Int(v.Default),
			"no_analyse":  Bool(v.NoAnalyse),
			"rules":       rules,
		}
	}
	return out
}

func (s StorySpec) value() Object {
	chars := make(List, len(s.Characters))
	for i, ch := range s.Characters {
		chars[i] = Object{"id": Str(ch.ID), "name": Str(ch.Name), "background": Str(ch.Background)}
	}

	nodes := make(List, len(s.Nodes))
	for i, n := range s.Nodes {
		next := make(List, len(n.Next))
		for j, t := range n.Next {
			next[j] = Object{
				"condition": Strs(t.Conditions),
				"next_node": Str(t.Target),
				"effects":   Strs(t.Effects),
			}
		}
		nodes[i] = Object{
			"id":          Str(n.ID),
			"name":        Str(n.Name),
			"description": Str(n.Description),
			"next_state":  next,
		}
	}

	return Object{
		"story_background":     Str(s.Background),
		"character_background": chars,
		"story_state":          nodes,
	}
}
