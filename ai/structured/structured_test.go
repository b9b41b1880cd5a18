package structured

import (
	"errors"
	"testing"

	"github.com/poiesic/lectern/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func TestExtract(t *testing.T) {
	t.Run("array inside prose", func(t *testing.T) {
		topics, err := Extract[[]string](`Sure! Here are the topics: ["Cells", "Genetics"] Hope that helps.`)
		require.NoError(t, err)
		assert.Equal(t, []string{"Cells", "Genetics"}, topics)
	})

	t.Run("code fence", func(t *testing.T) {
		topics, err := Extract[[]string]("```json\n[\"a\", \"b\"]\n```")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, topics)
	})

	t.Run("skips candidates of the wrong shape", func(t *testing.T) {
		topics, err := Extract[[]string](`{"note": "ignore me"} then ["x"]`)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, topics)
	})

	t.Run("brackets inside strings", func(t *testing.T) {
		items, err := Extract[[]item](`[{"question": "what is [x]?", "answer": "a } b"}]`)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "what is [x]?", items[0].Question)
	})

	t.Run("repairs trailing commas and unquoted keys", func(t *testing.T) {
		items, err := Extract[[]item](`[{question": "q", "answer": "a",},]`)
		require.NoError(t, err)
		assert.Equal(t, []item{{Question: "q", Answer: "a"}}, items)
	})

	t.Run("no json", func(t *testing.T) {
		_, err := Extract[[]string]("I cannot help with that.")
		assert.ErrorIs(t, err, core.ErrParse)
	})

	t.Run("unbalanced", func(t *testing.T) {
		_, err := Extract[[]string](`["a", "b"`)
		assert.ErrorIs(t, err, core.ErrParse)
	})
}

func TestExtractValid(t *testing.T) {
	nonEmpty := func(items []item) error {
		for _, it := range items {
			if it.Question == "" {
				return errors.New("missing question")
			}
		}
		return nil
	}

	_, err := ExtractValid(`[{"answer": "a"}]`, nonEmpty)
	assert.ErrorIs(t, err, core.ErrParse)
	assert.Contains(t, err.Error(), "missing question")

	items, err := ExtractValid(`[{"answer": "a"}] [{"question": "q"}]`, nonEmpty)
	require.NoError(t, err)
	assert.Equal(t, "q", items[0].Question)
}
