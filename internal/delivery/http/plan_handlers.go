package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/OverseedAI/tubeplanner/internal/delivery/http/middleware"
	"github.com/OverseedAI/tubeplanner/internal/model"
)

// ListPlans возвращает планы пользователя, свежие первыми
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "ошибка аутентификации")
		return
	}

	plans, err := h.plans.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, plans)
}

// CreatePlan создает пустой план в статусе intake
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "ошибка аутентификации")
		return
	}

	plan, err := h.plans.Create(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, plan)
}

// GetPlan возвращает план целиком
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	userID, planID, ok := h.planRequest(w, r)
	if !ok {
		return
	}

	plan, err := h.plans.Get(r.Context(), planID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, plan)
}

// UpdatePlan применяет частичное обновление. Принимается только allow-list
// полей; id и владельца мутировать нельзя.
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	userID, planID, ok := h.planRequest(w, r)
	if !ok {
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		RespondWithError(w, http.StatusBadRequest, "неверный формат запроса")
		return
	}

	plan, err := h.plans.Update(r.Context(), planID, userID, fields)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respondServiceError(w, err)
		} else {
			// Ошибки валидации значений полей
			RespondWithError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	RespondWithJSON(w, http.StatusOK, plan)
}

// DeletePlan безвозвратно удаляет план
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	userID, planID, ok := h.planRequest(w, r)
	if !ok {
		return
	}

	if err := h.plans.Delete(r.Context(), planID, userID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegenerateSection перегенерирует одну секцию плана. Ответ - JSON-объект
// с единственным ключом по имени секции и новым значением.
func (h *Handler) RegenerateSection(w http.ResponseWriter, r *http.Request) {
	userID, planID, ok := h.planRequest(w, r)
	if !ok {
		return
	}

	var req model.RegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "неверный формат запроса")
		return
	}
	if req.Section == "" {
		RespondWithError(w, http.StatusBadRequest, "секция обязательна")
		return
	}

	key, value, err := h.generation.RegenerateSection(r.Context(), userID, planID, req.Section)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]interface{}{string(key): value})
}

// planRequest извлекает userID из контекста и id плана из пути
func (h *Handler) planRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "ошибка аутентификации")
		return uuid.Nil, uuid.Nil, false
	}

	planID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "неверный формат ID плана")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, planID, true
}
