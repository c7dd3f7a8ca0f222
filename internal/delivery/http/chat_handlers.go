package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/OverseedAI/tubeplanner/internal/delivery/http/middleware"
	"github.com/OverseedAI/tubeplanner/internal/model"
)

// PlanIDHeader несет id плана out-of-band: тело ответа занято потоком текста
const PlanIDHeader = "X-Plan-Id"

// Intake проводит одну реплику intake-диалога. Тело ответа - поток текста
// ассистента; id созданного/продолженного плана уходит заголовком X-Plan-Id
// до первого фрагмента.
func (h *Handler) Intake(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "ошибка аутентификации")
		return
	}

	var req model.IntakeTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "неверный формат запроса")
		return
	}
	if len(req.Messages) == 0 {
		RespondWithError(w, http.StatusBadRequest, "диалог не может быть пустым")
		return
	}

	stream, err := newRelay(w, r, h.legacyFraming)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	planReady := func(planID uuid.UUID) {
		// Заголовок должен уйти до первого байта тела
		w.Header().Set(PlanIDHeader, planID.String())
	}

	err = h.generation.IntakeTurn(r.Context(), userID, req, planReady, stream.Sink())
	if err != nil {
		h.streamError(w, r.Context(), stream, err, "Intake turn failed")
		return
	}
}

// Refine проводит одну реплику диалога уточнения секций. Требует настроенный
// персональный ключ провайдера.
func (h *Handler) Refine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "ошибка аутентификации")
		return
	}

	var req model.RefineTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "неверный формат запроса")
		return
	}
	if req.PlanID == uuid.Nil || len(req.Messages) == 0 {
		RespondWithError(w, http.StatusBadRequest, "plan_id и messages обязательны")
		return
	}

	stream, err := newRelay(w, r, h.legacyFraming)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	err = h.generation.RefineTurn(r.Context(), userID, req, stream.Sink())
	if err != nil {
		h.streamError(w, r.Context(), stream, err, "Refine turn failed")
		return
	}
}

// streamError обрабатывает ошибку потоковой реплики. Пока поток не начался,
// клиенту уходит обычная JSON ошибка; после первого фрагмента менять статус
// поздно - ошибка только логируется, оборванный поток клиент трактует как
// восстановимый сбой и повторяет отправку.
func (h *Handler) streamError(w http.ResponseWriter, ctx context.Context, stream *relay, err error, msg string) {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		log.Debug().Err(err).Msg("Client disconnected mid-stream")
		return
	}
	log.Error().Err(err).Msg(msg)
	if !stream.Started() {
		respondServiceError(w, err)
	}
}
