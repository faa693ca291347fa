package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyweave/internal/llm"
)

var _ llm.Generator = (*Generator)(nil)

func TestGenerator_Order(t *testing.T) {
	g := &Generator{
		Responses: [][]byte{[]byte(`1`), []byte(`2`)},
		ByName:    map[string][][]byte{"analysis": {[]byte(`"a"`)}},
		Fallback:  []byte(`0`),
	}
	ctx := context.Background()

	out, err := g.Generate(ctx, llm.Request{Name: "conversation"})
	require.NoError(t, err)
	assert.Equal(t, `1`, string(out))

	out, _ = g.Generate(ctx, llm.Request{Name: "analysis"})
	assert.Equal(t, `"a"`, string(out))

	out, _ = g.Generate(ctx, llm.Request{Name: "analysis"})
	assert.Equal(t, `2`, string(out))

	out, _ = g.Generate(ctx, llm.Request{Name: "conversation"})
	assert.Equal(t, `0`, string(out))

	assert.Equal(t, []string{"conversation", "analysis", "analysis", "conversation"}, g.Requests())
}

func TestGenerator_Exhausted(t *testing.T) {
	g := &Generator{}
	_, err := g.Generate(context.Background(), llm.Request{Name: "x"})
	assert.ErrorContains(t, err, "no response configured")
}

func TestGenerator_Err(t *testing.T) {
	boom := errors.New("boom")
	g := &Generator{Err: boom, Fallback: []byte(`{}`)}
	_, err := g.Generate(context.Background(), llm.Request{})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, g.Calls, 1)
}
