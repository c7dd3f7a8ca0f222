package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/OverseedAI/tubeplanner/internal/delivery/http/middleware"
	"github.com/OverseedAI/tubeplanner/internal/model"
)

// GetUserContext возвращает контекст креатора (null, если не задан)
func (h *Handler) GetUserContext(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "ошибка аутентификации")
		return
	}

	userContext, err := h.users.GetContext(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]*string{"user_context": userContext})
}

// SetUserContext сохраняет контекст креатора; пустая строка валидна
func (h *Handler) SetUserContext(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "ошибка аутентификации")
		return
	}

	var req model.UpdateContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "неверный формат запроса")
		return
	}

	if err := h.users.SetContext(r.Context(), userID, req.UserContext); err != nil {
		respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SaveAPIKey шифрует и сохраняет персональный ключ провайдера
func (h *Handler) SaveAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "ошибка аутентификации")
		return
	}

	var req model.SaveAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "неверный формат запроса")
		return
	}
	if req.APIKey == "" {
		RespondWithError(w, http.StatusBadRequest, "API ключ обязателен")
		return
	}
	// Базовая проверка формата ключа провайдера
	if !strings.HasPrefix(req.APIKey, "sk-") {
		RespondWithError(w, http.StatusBadRequest, "неверный формат API ключа: ключи провайдера начинаются с sk-")
		return
	}

	if err := h.users.SaveAPIKey(r.Context(), userID, req.APIKey); err != nil {
		respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HasAPIKey сообщает, настроен ли ключ провайдера (сам ключ не возвращается)
func (h *Handler) HasAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "ошибка аутентификации")
		return
	}

	hasKey, err := h.users.HasAPIKey(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]bool{"hasKey": hasKey})
}
