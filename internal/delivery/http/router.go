package http

import (
	"github.com/gorilla/mux"

	"github.com/OverseedAI/tubeplanner/internal/service"
)

// Handler представляет HTTP обработчик API
type Handler struct {
	plans      *service.PlanService
	users      *service.UserService
	generation *service.GenerationService

	// legacyFraming включает старый построчный формат стриминга (`0:"..."`)
	// для клиентов, не умеющих сырой текстовый поток
	legacyFraming bool
}

// New создает новый экземпляр обработчика
func New(plans *service.PlanService, users *service.UserService, generation *service.GenerationService, legacyFraming bool) *Handler {
	return &Handler{
		plans:         plans,
		users:         users,
		generation:    generation,
		legacyFraming: legacyFraming,
	}
}

// RegisterRoutes регистрирует маршруты API (относительно /api)
func (h *Handler) RegisterRoutes(router *mux.Router) {
	// Диалоговые маршруты (потоковые ответы)
	router.HandleFunc("/chat/intake", h.Intake).Methods("POST")
	router.HandleFunc("/chat/refine", h.Refine).Methods("POST")

	// Маршруты планов
	router.HandleFunc("/plans", h.ListPlans).Methods("GET")
	router.HandleFunc("/plans", h.CreatePlan).Methods("POST")
	router.HandleFunc("/plans/{id}", h.GetPlan).Methods("GET")
	router.HandleFunc("/plans/{id}", h.UpdatePlan).Methods("PATCH")
	router.HandleFunc("/plans/{id}", h.DeletePlan).Methods("DELETE")
	router.HandleFunc("/plans/{id}/regenerate", h.RegenerateSection).Methods("POST")

	// Профиль пользователя
	router.HandleFunc("/user/context", h.GetUserContext).Methods("GET")
	router.HandleFunc("/user/context", h.SetUserContext).Methods("PUT")
	router.HandleFunc("/user/api-key", h.HasAPIKey).Methods("GET")
	router.HandleFunc("/user/api-key", h.SaveAPIKey).Methods("POST")
}
