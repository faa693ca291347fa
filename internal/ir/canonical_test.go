package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", Str("hello"), `"hello"`},
		{"empty string", Str(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"empty list", List{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"list keeps order", List{Int(3), Int(1), Int(2)}, "[3,1,2]"},
		{"simple object", Object{"a": Int(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := Object{
		"z": Object{"b": Int(1), "a": Int(2)},
		"a": Int(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as 0xD800 0xDC00, which sorts before U+E000 in UTF-16
	// but after it in UTF-8.
	obj := Object{
		"\uE000":     Int(1),
		"\U00010000": Int(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"`+"\U00010000"+`":2,"`+"\uE000"+`":1}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(Str("<b>Grace & Trip</b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<b>Grace & Trip</b>"`, string(result))
	assert.NotContains(t, string(result), `\u003c`)
	assert.NotContains(t, string(result), `\u0026`)
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")

	_, err = MarshalCanonical(List{Str("a"), nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[1]")
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	composed := "caf\u00E9"
	decomposed := "cafe\u0301"

	r1, err := MarshalCanonical(Object{composed: Str(composed)})
	require.NoError(t, err)
	r2, err := MarshalCanonical(Object{decomposed: Str(decomposed)})
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"quote", `say "hi"`, `"say \"hi\""`},
		{"backslash", `a\b`, `"a\\b"`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(Str(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalLineSeparatorsNotEscaped(t *testing.T) {
	result, err := MarshalCanonical(Str("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))
}

func TestMarshalCanonicalLiteralBackslashU2028(t *testing.T) {
	// The text `\u2028` (backslash, u, 2, 0, 2, 8) must stay escaped text.
	result, err := MarshalCanonical(Str(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(result))
}

func TestConfigValue_PreservesOrder(t *testing.T) {
	cfg := &Config{
		User: []VariableSpec{{
			Name: "trust", Min: -100, Max: 100,
			Rules: []RuleSpec{{Range: "50-100", Description: "high"}, {Range: "0-49", Description: "low"}},
		}},
		Story: StorySpec{
			Nodes: []NodeSpec{{ID: "b"}, {ID: "a"}},
		},
	}

	result, err := MarshalCanonical(cfg.Value())
	require.NoError(t, err)

	s := string(result)
	assert.Less(t, indexOf(s, `"50-100"`), indexOf(s, `"0-49"`))
	assert.Less(t, indexOf(s, `"id":"b"`), indexOf(s, `"id":"a"`))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
