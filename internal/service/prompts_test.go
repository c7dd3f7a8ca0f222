package service

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OverseedAI/tubeplanner/internal/model"
)

func TestContainsGenerationMarker(t *testing.T) {
	assert.True(t, ContainsGenerationMarker("All set! [PLAN_GENERATED][PLAN_ID:abc]"))
	assert.True(t, ContainsGenerationMarker("Done [PLAN_GENERATED][PLAN_ID:abc]  \n"))
	assert.False(t, ContainsGenerationMarker("I still need more details."))
}

func TestPlanIDMarker(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Equal(t, "[PLAN_ID:6ba7b810-9dad-11d1-80b4-00c04fd430c8]", PlanIDMarker(id))
}

func TestShouldGenerate_Threshold(t *testing.T) {
	makeMessages := func(userCount int) []model.Message {
		var msgs []model.Message
		for i := 0; i < userCount; i++ {
			msgs = append(msgs,
				model.Message{Role: model.RoleUser, Content: "answer"},
				model.Message{Role: model.RoleAssistant, Content: "question"},
			)
		}
		return msgs
	}

	assert.False(t, ShouldGenerate(makeMessages(2)))
	assert.True(t, ShouldGenerate(makeMessages(3)))
	assert.True(t, ShouldGenerate(makeMessages(10)))
}

func TestBuildIntakePrompt(t *testing.T) {
	planID := uuid.New()

	notReady := BuildIntakePrompt("", false, planID)
	assert.NotContains(t, notReady, "You now have enough information")

	ready := BuildIntakePrompt("", true, planID)
	assert.Contains(t, ready, "You now have enough information")
	assert.Contains(t, ready, PlanGeneratedMarker+PlanIDMarker(planID))
}

func TestBuildIntakePrompt_CreatorContext(t *testing.T) {
	ctx := "I run a baking channel"
	prompt := BuildIntakePrompt(BuildCreatorContextPrompt(&ctx), false, uuid.New())
	assert.Contains(t, prompt, "CREATOR CONTEXT")
	assert.Contains(t, prompt, "I run a baking channel")
}

func TestBuildCreatorContextPrompt_Empty(t *testing.T) {
	assert.Empty(t, BuildCreatorContextPrompt(nil))
	empty := "   "
	assert.Empty(t, BuildCreatorContextPrompt(&empty))
}

func TestBuildRefinePrompt_EmbedsSectionContent(t *testing.T) {
	idea := "Sourdough for beginners"
	plan := model.Plan{
		Title:        "Untitled Video",
		Idea:         &idea,
		TitleOptions: []string{"Opt A", "Opt B"},
	}

	prompt := BuildRefinePrompt(plan, []model.SectionKey{model.SectionIdea}, "")

	assert.Contains(t, prompt, "CURRENT VIDEO PLAN STATE")
	assert.Contains(t, prompt, "Sourdough for beginners")
	assert.Contains(t, prompt, "CURRENT IDEA CONTENT")
	assert.Contains(t, prompt, "output the COMPLETE new version")
	// Незаполненные секции помечаются как Not set
	assert.Contains(t, prompt, "Hook: Not set")
}

func TestBuildSynthesisPrompt_Schema(t *testing.T) {
	prompt := BuildSynthesisPrompt("")
	for _, key := range []string{`"title"`, `"idea"`, `"targetAudience"`, `"hook"`, `"outline"`, `"thumbnailConcepts"`, `"titleOptions"`} {
		assert.Contains(t, prompt, key)
	}
	assert.NotContains(t, prompt, "CREATOR CONTEXT")

	withCtx := BuildSynthesisPrompt("gaming channel")
	assert.Contains(t, withCtx, "CREATOR CONTEXT:\ngaming channel")
}

func TestBuildSynthesisUserPrompt_Transcript(t *testing.T) {
	prompt := BuildSynthesisUserPrompt([]model.Message{
		{Role: model.RoleUser, Content: "A video about sourdough"},
		{Role: model.RoleAssistant, Content: "Who is it for?"},
	})
	assert.Contains(t, prompt, "user: A video about sourdough")
	assert.Contains(t, prompt, "assistant: Who is it for?")
}

func TestBuildRegeneratePrompt_PerSectionShape(t *testing.T) {
	plan := model.Plan{
		Title: "Test",
		IntakeMessages: []model.Message{
			{Role: model.RoleUser, Content: "sourdough video"},
		},
	}

	cases := []struct {
		key  model.SectionKey
		want string
	}{
		{model.SectionIdea, "Output just the text"},
		{model.SectionHooks, `"style": "story"`},
		{model.SectionOutline, "4-7 sections"},
		{model.SectionTitleOptions, "JSON array of strings"},
		{model.SectionCTRCombos, `"ratings"`},
	}

	for _, tc := range cases {
		t.Run(string(tc.key), func(t *testing.T) {
			prompt := BuildRegeneratePrompt(plan, tc.key, "")
			require.Contains(t, prompt, "INTAKE CONVERSATION")
			assert.Contains(t, prompt, "user: sourdough video")
			assert.Contains(t, prompt, tc.want)
		})
	}
}

func TestBuildRegeneratePrompt_AllSectionsCovered(t *testing.T) {
	// Каждая известная секция обязана иметь инструкцию перегенерации
	for _, key := range model.AllSectionKeys() {
		instr, ok := regeneratePrompts[key]
		assert.True(t, ok, "нет инструкции для секции %s", key)
		assert.NotEmpty(t, strings.TrimSpace(instr))
	}
}
