package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OverseedAI/tubeplanner/internal/model"
)

func TestResolveSection_PlainText(t *testing.T) {
	value, err := ResolveSection(model.SectionIdea, "  A video about sourdough bread.  \n")
	require.NoError(t, err)
	assert.Equal(t, "A video about sourdough bread.", value)
}

func TestResolveSection_StringArrayFromJSON(t *testing.T) {
	raw := `Here are your titles:
["A", "B", "C"]`
	value, err := ResolveSection(model.SectionTitleOptions, raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, value)
}

func TestResolveSection_StringArrayFromLines(t *testing.T) {
	raw := "1. First concept\n2) Second concept\n- Third concept\n\n"
	value, err := ResolveSection(model.SectionThumbnailConcepts, raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"First concept", "Second concept", "Third concept"}, value)
}

func TestResolveSection_OutlineFromJSON(t *testing.T) {
	raw := `[
		{"id": "1", "title": "Intro", "content": "Hook the viewer", "duration": "1 min"},
		{"title": "Main", "content": "Core material"}
	]`
	value, err := ResolveSection(model.SectionOutline, raw)
	require.NoError(t, err)

	outline, ok := value.([]model.OutlineItem)
	require.True(t, ok)
	require.Len(t, outline, 2)
	assert.Equal(t, "Intro", outline[0].Title)
	// Пропущенный id заполняется порядковым номером
	assert.Equal(t, "2", outline[1].ID)
}

func TestResolveSection_OutlineFromLines(t *testing.T) {
	raw := "Intro: Hook the viewer\nDemo\n"
	value, err := ResolveSection(model.SectionOutline, raw)
	require.NoError(t, err)

	outline, ok := value.([]model.OutlineItem)
	require.True(t, ok)
	require.Len(t, outline, 2)
	assert.Equal(t, "Intro", outline[0].Title)
	assert.Equal(t, "Hook the viewer", outline[0].Content)
	// Без разделителя содержание совпадает с заголовком
	assert.Equal(t, "Demo", outline[1].Title)
	assert.Equal(t, "Demo", outline[1].Content)
}

func TestResolveSection_Hooks(t *testing.T) {
	raw := `[
		{"style": "story", "content": "Story hook", "selected": true},
		{"style": "curiosity", "content": "Curiosity hook", "selected": true},
		{"style": "bold", "content": "Bold hook"},
		{"style": "question", "content": "Question hook"}
	]`
	value, err := ResolveSection(model.SectionHooks, raw)
	require.NoError(t, err)

	hooks, ok := value.([]model.HookVariant)
	require.True(t, ok)
	require.Len(t, hooks, 4)

	selected := 0
	for _, h := range hooks {
		if h.Selected {
			selected++
		}
	}
	assert.Equal(t, 1, selected, "после нормализации выбран не более чем один хук")
	assert.True(t, hooks[0].Selected)
}

func TestResolveSection_HooksInvalidJSON(t *testing.T) {
	_, err := ResolveSection(model.SectionHooks, "I could not produce hooks this time.")
	assert.ErrorIs(t, err, model.ErrGenerationParse)
}

func TestResolveSection_CTRCombos(t *testing.T) {
	raw := `[
		{"title": "T1", "thumbnail": "Th1", "ratings": {"curiosity": 7, "clarity": 0, "emotion": 3}},
		{"id": "x", "title": "T2", "thumbnail": "Th2", "ratings": {"curiosity": 4, "clarity": 5, "emotion": 2}}
	]`
	value, err := ResolveSection(model.SectionCTRCombos, raw)
	require.NoError(t, err)

	combos, ok := value.([]model.CTRCombo)
	require.True(t, ok)
	require.Len(t, combos, 2)

	// Оценки зажимаются в 1..5, пропущенный id нумеруется
	assert.Equal(t, "1", combos[0].ID)
	assert.Equal(t, 5, combos[0].Ratings.Curiosity)
	assert.Equal(t, 1, combos[0].Ratings.Clarity)
	assert.Equal(t, "x", combos[1].ID)
}

func TestResolveSection_UnknownSection(t *testing.T) {
	_, err := ResolveSection(model.SectionKey("banner"), "text")
	assert.ErrorIs(t, err, model.ErrInvalidSection)
}

func TestNormalizeHookSelection(t *testing.T) {
	cases := []struct {
		name     string
		selected []bool
		want     int
	}{
		{"никто не выбран", []bool{false, false, false, false}, 0},
		{"один выбран", []bool{false, true, false, false}, 1},
		{"все выбраны", []bool{true, true, true, true}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks := make([]model.HookVariant, len(tc.selected))
			for i, s := range tc.selected {
				hooks[i] = model.HookVariant{Style: model.HookStyleStory, Selected: s}
			}

			got := NormalizeHookSelection(hooks)

			count := 0
			for _, h := range got {
				if h.Selected {
					count++
				}
			}
			assert.Equal(t, tc.want, count)
		})
	}
}

func TestSelectHook_ClearsPreviousSelection(t *testing.T) {
	hooks := []model.HookVariant{
		{Style: model.HookStyleStory, Selected: true},
		{Style: model.HookStyleCuriosity},
		{Style: model.HookStyleBold},
		{Style: model.HookStyleQuestion},
	}

	got := SelectHook(hooks, model.HookStyleBold)

	for _, h := range got {
		assert.Equal(t, h.Style == model.HookStyleBold, h.Selected)
	}
}

func TestSelectCTRCombo_ClearsPreviousSelection(t *testing.T) {
	combos := []model.CTRCombo{
		{ID: "1", Selected: true},
		{ID: "2"},
		{ID: "3"},
	}

	got := SelectCTRCombo(combos, "3")

	assert.False(t, got[0].Selected)
	assert.False(t, got[1].Selected)
	assert.True(t, got[2].Selected)
}
