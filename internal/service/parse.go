package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/OverseedAI/tubeplanner/internal/model"
)

// ExtractJSONObject находит первый JSON-объект верхнего уровня в тексте ответа
// модели (терпимо к окружающей прозе) и анмаршалит его в dst.
// Берется диапазон от первой '{' до последней '}' — модель может обрамлять
// объект markdown-блоком или пояснениями.
func ExtractJSONObject(text string, dst interface{}) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return fmt.Errorf("%w: в ответе нет JSON-объекта", model.ErrGenerationParse)
	}
	return unmarshalWithRepair(text[start:end+1], dst)
}

// ExtractJSONArray находит первый JSON-массив верхнего уровня в тексте ответа
// модели и анмаршалит его в dst
func ExtractJSONArray(text string, dst interface{}) error {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return fmt.Errorf("%w: в ответе нет JSON-массива", model.ErrGenerationParse)
	}
	return unmarshalWithRepair(text[start:end+1], dst)
}

// unmarshalWithRepair анмаршалит JSON, при неудаче пробуя исправленную
// FixJSON версию (обрезанный ответ модели с незакрытыми скобками)
func unmarshalWithRepair(jsonStr string, dst interface{}) error {
	err := json.Unmarshal([]byte(jsonStr), dst)
	if err == nil {
		return nil
	}
	if fixed := FixJSON(jsonStr); fixed != jsonStr {
		if fixErr := json.Unmarshal([]byte(fixed), dst); fixErr == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", model.ErrGenerationParse, err)
}

// FixJSON исправляет баланс незакрытых скобок в конце JSON - частый дефект
// обрезанного по лимиту токенов ответа модели. Скобки внутри строк не считаются.
func FixJSON(jsonStr string) string {
	if jsonStr == "" {
		return jsonStr
	}

	counts := map[rune]int{'{': 0, '}': 0, '[': 0, ']': 0}
	inString := false
	escaped := false

	for _, char := range jsonStr {
		if char == '"' && !escaped {
			inString = !inString
		}
		if !inString {
			if count, exists := counts[char]; exists {
				counts[char] = count + 1
			}
		}
		if char == '\\' && !escaped {
			escaped = true
		} else {
			escaped = false
		}
	}

	fixed := jsonStr
	if imbalance := counts['{'] - counts['}']; imbalance > 0 {
		fixed += strings.Repeat("}", imbalance)
	}
	if imbalance := counts['['] - counts[']']; imbalance > 0 {
		fixed += strings.Repeat("]", imbalance)
	}
	if fixed != jsonStr {
		log.Debug().Int("added", len(fixed)-len(jsonStr)).Msg("repaired unbalanced JSON from model output")
	}
	return fixed
}
