package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/OverseedAI/tubeplanner/internal/model"
)

// Маркеры-сентинели в тексте ответа модели. Это версионируемый wire-протокол
// между оркестратором и клиентом: наличие PlanGeneratedMarker в реплике
// означает "запустить полный синтез плана", маркер PLAN_ID несет id плана,
// на который клиенту нужно перейти.
const (
	PlanGeneratedMarker = "[PLAN_GENERATED]"
	planIDMarkerPrefix  = "[PLAN_ID:"
)

// PlanIDMarker форматирует маркер с id плана для вставки в промпт
func PlanIDMarker(planID uuid.UUID) string {
	return fmt.Sprintf("%s%s]", planIDMarkerPrefix, planID)
}

// ContainsGenerationMarker проверяет наличие маркера синтеза в тексте ответа.
// Маркер ищется по всему тексту: модель может добавить после него пробелы
// или перевод строки.
func ContainsGenerationMarker(text string) bool {
	return strings.Contains(text, PlanGeneratedMarker)
}

const intakeSystemPrompt = `You are a YouTube video planning assistant. Your job is to help creators plan compelling, well-structured videos that resonate with their audience.

You're conducting a quick intake conversation to understand the creator's video idea. Ask questions naturally and conversationally - don't feel robotic.

INTAKE FLOW (ask these one at a time, naturally):
1. Understand the core idea - What's the video about? What's the main point or value?
2. Target audience - Who is this for? What's their current situation/knowledge level?
3. Desired outcome - What should viewers feel, learn, or do after watching?
4. Unique angle - What makes YOUR take on this topic different/interesting?

GUIDELINES:
- Be warm and encouraging, but concise
- Ask ONE question at a time
- Build on their answers - show you're listening
- After gathering enough info (usually 3-4 exchanges), let them know you have what you need and will generate their plan
- When ready to generate, include exactly these markers at the END of your message: [PLAN_GENERATED][PLAN_ID:{id}]

Keep your responses SHORT - 2-3 sentences max. You're having a conversation, not writing an essay.`

// BuildCreatorContextPrompt оборачивает контекст креатора в секцию промпта.
// Пустой или незаданный контекст дает пустую строку.
func BuildCreatorContextPrompt(userContext *string) string {
	if userContext == nil || strings.TrimSpace(*userContext) == "" {
		return ""
	}
	return fmt.Sprintf(`
CREATOR CONTEXT:
The following is information about this creator that should inform your suggestions:
%s

Use this context to tailor hooks, titles, thumbnails, and content structure to match their style and audience.
`, *userContext)
}

// BuildIntakePrompt собирает системный промпт intake-диалога.
// readyToGenerate добавляет инструкцию завершить реплику маркерами синтеза.
func BuildIntakePrompt(creatorContext string, readyToGenerate bool, planID uuid.UUID) string {
	base := intakeSystemPrompt
	if creatorContext != "" {
		base = base + "\n" + creatorContext
	}
	if !readyToGenerate {
		return base
	}
	return fmt.Sprintf(`%s

IMPORTANT: You now have enough information. In your response:
1. Briefly acknowledge their final answer
2. Tell them you're generating their video plan
3. End your message with: %s%s

This will trigger the plan generation and redirect them to view it.`, base, PlanGeneratedMarker, PlanIDMarker(planID))
}

// refinementFocus - подсказка фокуса для каждой секции в диалоге уточнения
var refinementFocus = map[model.SectionKey]string{
	model.SectionIdea:              "You're helping refine the core video idea and value proposition.",
	model.SectionTargetAudience:    "You're helping define and refine the target audience description.",
	model.SectionHook:              "You're helping craft a compelling hook/intro for the first 30 seconds.",
	model.SectionHooks:             "You're helping craft compelling hook variations for the first 30 seconds.",
	model.SectionOutline:           "You're helping structure and refine the content outline.",
	model.SectionThumbnailConcepts: "You're helping brainstorm thumbnail visual concepts.",
	model.SectionTitleOptions:      "You're helping craft click-worthy, SEO-friendly title options.",
	model.SectionCTRCombos:         "You're helping craft title and thumbnail combinations that maximize click-through.",
}

// BuildRefinePrompt собирает системный промпт диалога уточнения: фокус по
// выбранным секциям плюс текущее состояние плана дословно, чтобы модель
// выдавала полные замены, а не диффы.
func BuildRefinePrompt(plan model.Plan, sections []model.SectionKey, creatorContext string) string {
	var focus strings.Builder
	for _, key := range sections {
		if f, ok := refinementFocus[key]; ok {
			focus.WriteString(f)
			focus.WriteString(" ")
		}
	}
	focusText := strings.TrimSpace(focus.String())
	if focusText == "" {
		focusText = "You're helping refine this video plan."
	}

	planContext := buildPlanStateContext(plan)

	var sectionContents strings.Builder
	for _, key := range sections {
		sectionContents.WriteString(fmt.Sprintf("\nCURRENT %s CONTENT:\n%s\n",
			strings.ToUpper(string(key)), sectionContent(plan, key)))
	}

	prompt := fmt.Sprintf(`You are a YouTube video planning assistant. %s
%s
%s%s
GUIDELINES:
- Be concise and actionable
- Build on the existing content, don't start from scratch
- Consider how this section relates to the overall video plan
- If they ask you to rewrite or change something, output the COMPLETE new version (not just the changes)
- Keep responses focused and practical

When you provide updated content, format it clearly so the user can easily copy it.`,
		focusText, creatorContext, planContext, sectionContents.String())

	return prompt
}

// buildPlanStateContext сериализует текущее состояние плана в читаемый блок промпта
func buildPlanStateContext(plan model.Plan) string {
	return strings.TrimSpace(fmt.Sprintf(`
CURRENT VIDEO PLAN STATE:
- Title: %s
- Core Idea: %s
- Target Audience: %s
- Hook: %s
- Outline: %s
- Thumbnail Concepts: %s
- Title Options: %s
`,
		plan.Title,
		textOrNotSet(plan.Idea),
		textOrNotSet(plan.TargetAudience),
		textOrNotSet(plan.Hook),
		jsonOrNotSet(plan.Outline),
		listOrNotSet(plan.ThumbnailConcepts),
		listOrNotSet(plan.TitleOptions),
	))
}

// sectionContent возвращает текущее значение секции как текст для промпта
func sectionContent(plan model.Plan, key model.SectionKey) string {
	switch key {
	case model.SectionIdea:
		return textOr(plan.Idea, "Empty")
	case model.SectionTargetAudience:
		return textOr(plan.TargetAudience, "Empty")
	case model.SectionHook:
		return textOr(plan.Hook, "Empty")
	case model.SectionHooks:
		return jsonOr(plan.Hooks, "Empty")
	case model.SectionOutline:
		return jsonOr(plan.Outline, "Empty")
	case model.SectionThumbnailConcepts:
		return listOr(plan.ThumbnailConcepts, "Empty")
	case model.SectionTitleOptions:
		return listOr(plan.TitleOptions, "Empty")
	case model.SectionCTRCombos:
		return jsonOr(plan.CTRCombos, "Empty")
	}
	return "Empty"
}

const synthesisSystemPromptTemplate = `You are a YouTube video planning expert. Based on the intake conversation, generate a comprehensive video plan.
%s
Output a JSON object with this exact structure:
{
  "title": "Working title for the video",
  "idea": "2-3 sentence summary of the video concept and its core value proposition",
  "targetAudience": "Description of the ideal viewer - their situation, needs, and what they'll gain",
  "hook": "The opening hook/intro (first 30 seconds). Include the pattern interrupt, the promise, and why viewers should keep watching",
  "outline": [
    {"id": "1", "title": "Section name", "content": "What to cover in this section", "duration": "estimated time"},
    ...
  ],
  "thumbnailConcepts": ["Concept 1 description", "Concept 2 description", "Concept 3 description"],
  "titleOptions": ["Title option 1", "Title option 2", "Title option 3"]
}

Make the plan actionable and specific. The hook should be compelling. The outline should have 4-7 sections with clear content for each. Thumbnail concepts should be visual and attention-grabbing. Titles should balance SEO with clickability.`

// BuildSynthesisPrompt собирает системный промпт полного синтеза плана
func BuildSynthesisPrompt(creatorContext string) string {
	section := ""
	if creatorContext != "" {
		section = fmt.Sprintf("\nCREATOR CONTEXT:\n%s\n\nUse this context to tailor the plan to match the creator's style and audience.", creatorContext)
	}
	return fmt.Sprintf(synthesisSystemPromptTemplate, section)
}

// BuildSynthesisUserPrompt сериализует intake-диалог в пользовательский промпт синтеза
func BuildSynthesisUserPrompt(messages []model.Message) string {
	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
	}
	return fmt.Sprintf("Based on this intake conversation, generate a video plan:\n\n%s", sb.String())
}

// regeneratePrompts - инструкции перегенерации по секциям; каждая фиксирует
// точную форму вывода (plain text / JSON-массив строк / JSON-массив объектов)
var regeneratePrompts = map[model.SectionKey]string{
	model.SectionIdea: `Generate a 2-3 sentence summary of the video concept and its core value proposition.
Output just the text, no JSON or formatting.`,

	model.SectionTargetAudience: `Generate a description of the ideal viewer - their situation, needs, and what they'll gain from this video.
Output just the text, no JSON or formatting.`,

	model.SectionHook: `Generate the opening hook/intro for the first 30 seconds of this video. Include the pattern interrupt, the promise, and why viewers should keep watching.
Output just the text, no JSON or formatting.`,

	model.SectionHooks: `Generate 4 distinct hook variations for the first 30 seconds of this video.
Output a JSON array with this exact structure:
[
  {"style": "story", "content": "A personal anecdote hook...", "selected": true},
  {"style": "curiosity", "content": "An open loop hook..."},
  {"style": "bold", "content": "A contrarian/bold claim hook..."},
  {"style": "question", "content": "A direct question hook..."}
]
Each hook should be compelling, specific to this video topic, and ready to use as a script.`,

	model.SectionOutline: `Generate a content outline with 4-7 sections.
Output a JSON array with this exact structure:
[
  {"id": "1", "title": "Section name", "content": "What to cover", "duration": "estimated time"},
  ...
]`,

	model.SectionThumbnailConcepts: `Generate 3 thumbnail visual concepts that would grab attention.
Output a JSON array of strings:
["Concept 1 description", "Concept 2 description", "Concept 3 description"]`,

	model.SectionTitleOptions: `Generate 3 title options that balance SEO with clickability.
Output a JSON array of strings:
["Title option 1", "Title option 2", "Title option 3"]`,

	model.SectionCTRCombos: `Generate 3 title + thumbnail combinations designed to maximize click-through.
Output a JSON array with this exact structure:
[
  {"id": "1", "title": "Title text", "thumbnail": "Thumbnail visual description", "ratings": {"curiosity": 4, "clarity": 5, "emotion": 3}},
  ...
]
Ratings are integers from 1 to 5.`,
}

// BuildRegeneratePrompt собирает промпт перегенерации одной секции:
// intake-диалог + сводка плана + секционная инструкция с формой вывода
func BuildRegeneratePrompt(plan model.Plan, key model.SectionKey, creatorContext string) string {
	var intake strings.Builder
	for i, m := range plan.IntakeMessages {
		if i > 0 {
			intake.WriteString("\n")
		}
		intake.WriteString(m.Role)
		intake.WriteString(": ")
		intake.WriteString(m.Content)
	}

	planContext := strings.TrimSpace(fmt.Sprintf(`
Title: %s
Idea: %s
Target Audience: %s
Outline: %s
`,
		plan.Title,
		textOr(plan.Idea, "Not yet generated"),
		textOr(plan.TargetAudience, "Not yet generated"),
		jsonOr(plan.Outline, "Not yet generated"),
	))

	contextSection := ""
	if creatorContext != "" {
		contextSection = "\n" + creatorContext + "\n"
	}

	return fmt.Sprintf(`You are a YouTube video planning expert.
%s
Based on the intake conversation and existing plan context, regenerate the requested section.

INTAKE CONVERSATION:
%s

EXISTING PLAN:
%s

%s`, contextSection, intake.String(), planContext, regeneratePrompts[key])
}

func textOrNotSet(s *string) string  { return textOr(s, "Not set") }
func listOrNotSet(s []string) string { return listOr(s, "Not set") }

func textOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func listOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func jsonOr(v interface{}, fallback string) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil || string(data) == "null" || string(data) == "[]" {
		return fallback
	}
	return string(data)
}

func jsonOrNotSet(v interface{}) string { return jsonOr(v, "Not set") }
