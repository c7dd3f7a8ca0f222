package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OverseedAI/tubeplanner/internal/model"
)

func TestExtractJSONObject_SurroundingProse(t *testing.T) {
	raw := "Sure! Here is the plan:\n```json\n{\"title\": \"My Video\", \"idea\": \"An idea\"}\n```\nLet me know what you think."

	var generated model.GeneratedPlan
	err := ExtractJSONObject(raw, &generated)
	require.NoError(t, err)
	assert.Equal(t, "My Video", generated.Title)
	assert.Equal(t, "An idea", generated.Idea)
}

func TestExtractJSONObject_NoObject(t *testing.T) {
	var generated model.GeneratedPlan
	err := ExtractJSONObject("I was unable to produce a plan.", &generated)
	assert.ErrorIs(t, err, model.ErrGenerationParse)
}

func TestExtractJSONObject_MalformedJSON(t *testing.T) {
	var generated model.GeneratedPlan
	err := ExtractJSONObject(`{"title": "unterminated}`, &generated)
	assert.ErrorIs(t, err, model.ErrGenerationParse)
}

func TestExtractJSONArray_SurroundingProse(t *testing.T) {
	var items []string
	err := ExtractJSONArray(`Here you go: ["A", "B", "C"] - enjoy!`, &items)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, items)
}

func TestExtractJSONArray_NoArray(t *testing.T) {
	var items []string
	err := ExtractJSONArray("no array here", &items)
	assert.ErrorIs(t, err, model.ErrGenerationParse)
}
