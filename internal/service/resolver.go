package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/OverseedAI/tubeplanner/internal/model"
)

// enumerationPrefix срезает маркеры нумерации в начале строки: "1. ", "2)", "- ", "* "
var enumerationPrefix = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// ResolveSection превращает сырой текст ответа модели в типизированное
// значение секции. Для структурированных секций ошибка парсинга - это
// ErrGenerationParse: частичная запись не выполняется, вызывающий повторяет
// операцию явно.
func ResolveSection(key model.SectionKey, raw string) (interface{}, error) {
	switch key {
	case model.SectionIdea, model.SectionTargetAudience, model.SectionHook:
		return strings.TrimSpace(raw), nil

	case model.SectionTitleOptions, model.SectionThumbnailConcepts:
		return resolveStringList(raw)

	case model.SectionOutline:
		return resolveOutline(raw)

	case model.SectionHooks:
		return resolveHooks(raw)

	case model.SectionCTRCombos:
		return resolveCombos(raw)
	}
	return nil, model.ErrInvalidSection
}

// resolveStringList разбирает список строк: сперва как JSON-массив, при его
// отсутствии - построчно со срезанием нумерации
func resolveStringList(raw string) ([]string, error) {
	var items []string
	if err := ExtractJSONArray(raw, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out, nil
		}
	}

	out := splitLines(raw)
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: пустой список", model.ErrGenerationParse)
	}
	return out, nil
}

// splitLines режет текст на непустые строки, срезая маркеры нумерации
func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = enumerationPrefix.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// resolveOutline разбирает структуру видео: JSON-массив объектов, при его
// отсутствии - строки вида "Заголовок: содержание" (содержание по умолчанию
// равно заголовку, если разделителя нет)
func resolveOutline(raw string) ([]model.OutlineItem, error) {
	var items []model.OutlineItem
	if err := ExtractJSONArray(raw, &items); err == nil && len(items) > 0 {
		for i := range items {
			if items[i].ID == "" {
				items[i].ID = strconv.Itoa(i + 1)
			}
		}
		return items, nil
	}

	lines := splitLines(raw)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: пустая структура", model.ErrGenerationParse)
	}

	out := make([]model.OutlineItem, 0, len(lines))
	for i, line := range lines {
		title, content := line, line
		if idx := strings.Index(line, ":"); idx >= 0 {
			title = strings.TrimSpace(line[:idx])
			content = strings.TrimSpace(line[idx+1:])
			if content == "" {
				content = title
			}
		}
		out = append(out, model.OutlineItem{
			ID:      strconv.Itoa(i + 1),
			Title:   title,
			Content: content,
		})
	}
	return out, nil
}

// resolveHooks разбирает четыре стилевых варианта хука и нормализует выбор
func resolveHooks(raw string) ([]model.HookVariant, error) {
	var hooks []model.HookVariant
	if err := ExtractJSONArray(raw, &hooks); err != nil {
		return nil, err
	}
	if len(hooks) == 0 {
		return nil, fmt.Errorf("%w: пустой массив хуков", model.ErrGenerationParse)
	}
	return NormalizeHookSelection(hooks), nil
}

// resolveCombos разбирает связки заголовок+превью, зажимает оценки в 1..5
// и нормализует выбор
func resolveCombos(raw string) ([]model.CTRCombo, error) {
	var combos []model.CTRCombo
	if err := ExtractJSONArray(raw, &combos); err != nil {
		return nil, err
	}
	if len(combos) == 0 {
		return nil, fmt.Errorf("%w: пустой массив связок", model.ErrGenerationParse)
	}
	for i := range combos {
		if combos[i].ID == "" {
			combos[i].ID = strconv.Itoa(i + 1)
		}
		combos[i].Ratings.Curiosity = clampRating(combos[i].Ratings.Curiosity)
		combos[i].Ratings.Clarity = clampRating(combos[i].Ratings.Clarity)
		combos[i].Ratings.Emotion = clampRating(combos[i].Ratings.Emotion)
	}
	return NormalizeCTRComboSelection(combos), nil
}

func clampRating(r int) int {
	if r < 1 {
		return 1
	}
	if r > 5 {
		return 5
	}
	return r
}

// NormalizeHookSelection приводит массив хуков к инварианту единственного
// выбора: остается не более одного Selected=true (первый встреченный)
func NormalizeHookSelection(hooks []model.HookVariant) []model.HookVariant {
	seen := false
	for i := range hooks {
		if hooks[i].Selected {
			if seen {
				hooks[i].Selected = false
			}
			seen = true
		}
	}
	return hooks
}

// NormalizeCTRComboSelection - тот же инвариант единственного выбора для связок
func NormalizeCTRComboSelection(combos []model.CTRCombo) []model.CTRCombo {
	seen := false
	for i := range combos {
		if combos[i].Selected {
			if seen {
				combos[i].Selected = false
			}
			seen = true
		}
	}
	return combos
}

// SelectHook выбирает хук указанного стиля, снимая прежний выбор
func SelectHook(hooks []model.HookVariant, style string) []model.HookVariant {
	for i := range hooks {
		hooks[i].Selected = hooks[i].Style == style
	}
	return hooks
}

// SelectCTRCombo выбирает связку по id, снимая прежний выбор
func SelectCTRCombo(combos []model.CTRCombo, id string) []model.CTRCombo {
	for i := range combos {
		combos[i].Selected = combos[i].ID == id
	}
	return combos
}
