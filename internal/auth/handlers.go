package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/OverseedAI/tubeplanner/internal/model"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "неверный формат запроса")
		return
	}

	if req.Username == "" {
		respondWithError(w, http.StatusBadRequest, "имя пользователя не может быть пустым")
		return
	}
	if req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "пароль не может быть пустым")
		return
	}
	if !emailRegex.MatchString(req.Email) {
		respondWithError(w, http.StatusBadRequest, "неверный формат email")
		return
	}

	if err := h.service.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			respondWithError(w, http.StatusConflict, err.Error())
			return
		}
		log.Error().Err(err).Msg("Failed to register user")
		respondWithError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{
		"message": "пользователь успешно зарегистрирован",
		"success": "true",
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "неверный формат запроса")
		return
	}

	if req.Email == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "email и пароль обязательны")
		return
	}

	resp, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidPassword) {
			respondWithError(w, http.StatusUnauthorized, "неверный email или пароль")
			return
		}
		log.Error().Err(err).Msg("Failed to log user in")
		respondWithError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}
