// Package http содержит HTTP обработчики API планирования видео.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/OverseedAI/tubeplanner/internal/model"
)

// RespondWithError отправляет ошибку в формате JSON
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// RespondWithJSON отправляет ответ в формате JSON
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondServiceError транслирует ошибки сервисного слоя в HTTP статусы.
// "Не найден" и "чужой план" снаружи неразличимы намеренно.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, "план не найден")
	case errors.Is(err, model.ErrInvalidSection):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrAPIKeyMissing):
		// Структурированная ошибка: клиент по коду предлагает ввести ключ
		RespondWithJSON(w, http.StatusBadRequest, map[string]string{
			"error": "No API key configured. Please add your provider API key in your profile settings.",
			"code":  "api_key_missing",
		})
	case errors.Is(err, model.ErrGenerationParse):
		RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		RespondWithError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
	}
}
