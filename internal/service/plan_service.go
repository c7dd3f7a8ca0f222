package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/OverseedAI/tubeplanner/internal/model"
	"github.com/OverseedAI/tubeplanner/internal/repository"
)

// PlanStore - контракт хранилища планов, нужный сервисам
type PlanStore interface {
	Create(ctx context.Context, plan model.Plan) (model.Plan, error)
	GetByID(ctx context.Context, id, userID uuid.UUID) (model.Plan, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Plan, error)
	Update(ctx context.Context, id, userID uuid.UUID, upd repository.PlanUpdate) (model.Plan, error)
	SaveIntakeMessages(ctx context.Context, id, userID uuid.UUID, messages []model.Message) error
	SaveConversation(ctx context.Context, id, userID uuid.UUID, key string, messages []model.Message) error
	ApplySynthesis(ctx context.Context, id, userID uuid.UUID, generated model.GeneratedPlan) error
	MarkDraft(ctx context.Context, id, userID uuid.UUID) error
	SetSection(ctx context.Context, id, userID uuid.UUID, key model.SectionKey, value interface{}) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// PlanService отвечает за CRUD планов и политику частичного обновления
type PlanService struct {
	plans  PlanStore
	logger zerolog.Logger
}

func NewPlanService(plans PlanStore, logger zerolog.Logger) *PlanService {
	return &PlanService{plans: plans, logger: logger.With().Str("service", "plan").Logger()}
}

// Create создает пустой план в статусе intake
func (s *PlanService) Create(ctx context.Context, userID uuid.UUID) (model.Plan, error) {
	return s.plans.Create(ctx, model.NewPlan(userID))
}

// Get возвращает план владельца; чужой план неотличим от несуществующего
func (s *PlanService) Get(ctx context.Context, id, userID uuid.UUID) (model.Plan, error) {
	return s.plans.GetByID(ctx, id, userID)
}

// List возвращает планы пользователя, свежие первыми
func (s *PlanService) List(ctx context.Context, userID uuid.UUID) ([]model.Plan, error) {
	return s.plans.ListByUser(ctx, userID)
}

// Delete безвозвратно удаляет план
func (s *PlanService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return s.plans.Delete(ctx, id, userID)
}

// Update применяет частичное обновление плана. Принимается только явный
// allow-list полей: произвольные ключи (включая id и user_id) отбрасываются.
// Для hooks и ctrCombos перед записью восстанавливается инвариант
// единственного выбора.
func (s *PlanService) Update(ctx context.Context, id, userID uuid.UUID, fields map[string]json.RawMessage) (model.Plan, error) {
	var upd repository.PlanUpdate

	for name, raw := range fields {
		switch name {
		case "title":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return model.Plan{}, fmt.Errorf("неверное значение поля title: %w", err)
			}
			upd.Title = &v
		case "status":
			var v model.PlanStatus
			if err := json.Unmarshal(raw, &v); err != nil {
				return model.Plan{}, fmt.Errorf("неверное значение поля status: %w", err)
			}
			if !model.ValidStatus(v) {
				return model.Plan{}, fmt.Errorf("неизвестный статус плана: '%s'", v)
			}
			upd.Status = &v
		case "idea":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return model.Plan{}, fmt.Errorf("неверное значение поля idea: %w", err)
			}
			upd.Idea = &v
		case "targetAudience":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return model.Plan{}, fmt.Errorf("неверное значение поля targetAudience: %w", err)
			}
			upd.TargetAudience = &v
		case "hook":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return model.Plan{}, fmt.Errorf("неверное значение поля hook: %w", err)
			}
			upd.Hook = &v
		case "hooks":
			var v []model.HookVariant
			if err := json.Unmarshal(raw, &v); err != nil {
				return model.Plan{}, fmt.Errorf("неверное значение поля hooks: %w", err)
			}
			upd.Hooks = NormalizeHookSelection(v)
		case "outline":
			var v []model.OutlineItem
			if err := json.Unmarshal(raw, &v); err != nil {
				return model.Plan{}, fmt.Errorf("неверное значение поля outline: %w", err)
			}
			upd.Outline = v
		case "thumbnailConcepts":
			var v []string
			if err := json.Unmarshal(raw, &v); err != nil {
				return model.Plan{}, fmt.Errorf("неверное значение поля thumbnailConcepts: %w", err)
			}
			upd.ThumbnailConcepts = v
		case "titleOptions":
			var v []string
			if err := json.Unmarshal(raw, &v); err != nil {
				return model.Plan{}, fmt.Errorf("неверное значение поля titleOptions: %w", err)
			}
			upd.TitleOptions = v
		case "ctrCombos":
			var v []model.CTRCombo
			if err := json.Unmarshal(raw, &v); err != nil {
				return model.Plan{}, fmt.Errorf("неверное значение поля ctrCombos: %w", err)
			}
			upd.CTRCombos = NormalizeCTRComboSelection(v)
		default:
			// Неизвестные поля молча отбрасываются
			s.logger.Debug().Str("field", name).Msg("ignoring unknown field in plan update")
		}
	}

	return s.plans.Update(ctx, id, userID, upd)
}
