package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/OverseedAI/tubeplanner/internal/model"
	"github.com/OverseedAI/tubeplanner/pkg/ai"
)

// generateThreshold - порог готовности к синтезу: число реплик пользователя
// в intake-диалоге. Это намеренно счетная, а не семантическая проверка.
const generateThreshold = 3

// synthesisTimeout ограничивает фоновый синтез плана
const synthesisTimeout = 5 * time.Minute

// VaultCipher - контракт расшифровки пользовательских секретов
type VaultCipher interface {
	Decrypt(ciphertext string) (string, error)
}

// ProfileStore - часть хранилища пользователей, нужная оркестратору
type ProfileStore interface {
	GetUserContext(ctx context.Context, userID uuid.UUID) (*string, error)
	GetEncryptedAPIKey(ctx context.Context, userID uuid.UUID) (*string, error)
}

// GenerationService - оркестратор генерации: ведет intake-диалог, запускает
// полный синтез, диалоги уточнения и перегенерацию секций
type GenerationService struct {
	plans  PlanStore
	users  ProfileStore
	vault  VaultCipher
	client ai.Client
	logger zerolog.Logger
}

func NewGenerationService(plans PlanStore, users ProfileStore, vault VaultCipher, client ai.Client, logger zerolog.Logger) *GenerationService {
	return &GenerationService{
		plans:  plans,
		users:  users,
		vault:  vault,
		client: client,
		logger: logger.With().Str("service", "generation").Logger(),
	}
}

// IntakeTurn проводит одну реплику intake-диалога. Если план не указан,
// создается новый в статусе intake; planReady вызывается с id плана до начала
// стриминга (клиенту id нужен out-of-band, заголовком ответа). Диалог
// сохраняется только после полностью дочитанного потока: оборванный поток не
// оставляет полусохраненной реплики. Если финальный текст содержит маркер
// синтеза, полный синтез запускается в фоне.
func (s *GenerationService) IntakeTurn(ctx context.Context, userID uuid.UUID, req model.IntakeTurnRequest, planReady func(uuid.UUID), sink ai.ChunkHandler) error {
	var plan model.Plan
	var err error

	if req.PlanID == nil {
		plan, err = s.plans.Create(ctx, model.NewPlan(userID))
		if err != nil {
			return fmt.Errorf("ошибка создания плана: %w", err)
		}
	} else {
		plan, err = s.plans.GetByID(ctx, *req.PlanID, userID)
		if err != nil {
			return err
		}
	}

	if planReady != nil {
		planReady(plan.ID)
	}

	userContext, err := s.users.GetUserContext(ctx, userID)
	if err != nil {
		return fmt.Errorf("ошибка чтения контекста креатора: %w", err)
	}

	shouldGenerate := countUserMessages(req.Messages) >= generateThreshold
	systemPrompt := BuildIntakePrompt(BuildCreatorContextPrompt(userContext), shouldGenerate, plan.ID)

	fullText, _, err := s.client.Stream(ctx, systemPrompt, toAIMessages(req.Messages), sink)
	if err != nil {
		// Реплика не сохраняется: пользователь безопасно повторит отправку
		return err
	}

	updated := append(req.Messages, model.Message{
		Role:      model.RoleAssistant,
		Content:   fullText,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err := s.plans.SaveIntakeMessages(ctx, plan.ID, userID, updated); err != nil {
		return fmt.Errorf("ошибка сохранения intake-диалога: %w", err)
	}

	if ContainsGenerationMarker(fullText) {
		// Синтез идет в фоне относительно уже доставленного ответа;
		// диалог сохранен независимо от его исхода
		go s.synthesizeInBackground(plan.ID, userID, updated)
	}

	return nil
}

func (s *GenerationService) synthesizeInBackground(planID, userID uuid.UUID, messages []model.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), synthesisTimeout)
	defer cancel()

	if err := s.Synthesize(ctx, planID, userID, messages); err != nil {
		s.logger.Error().Err(err).Str("plan_id", planID.String()).Msg("Background plan synthesis failed")
	}
}

// Synthesize выполняет полный синтез плана из intake-диалога. Любой сбой
// (провайдер или парсинг) деградирует мягко: план все равно переводится в
// draft с пустыми секциями, чтобы пользователь не застрял в ожидании.
func (s *GenerationService) Synthesize(ctx context.Context, planID, userID uuid.UUID, messages []model.Message) error {
	userContext, err := s.users.GetUserContext(ctx, userID)
	if err != nil {
		return fmt.Errorf("ошибка чтения контекста креатора: %w", err)
	}

	rawContext := ""
	if userContext != nil {
		rawContext = *userContext
	}

	systemPrompt := BuildSynthesisPrompt(rawContext)
	userPrompt := BuildSynthesisUserPrompt(messages)

	text, _, err := s.client.Complete(ctx, systemPrompt, []ai.Message{{Role: ai.RoleUser, Content: userPrompt}})
	if err != nil {
		s.logger.Error().Err(err).Str("plan_id", planID.String()).Msg("Plan synthesis request failed, marking draft")
		return s.plans.MarkDraft(ctx, planID, userID)
	}

	var generated model.GeneratedPlan
	if err := ExtractJSONObject(text, &generated); err != nil {
		s.logger.Error().Err(err).Str("plan_id", planID.String()).Msg("Failed to parse synthesized plan, marking draft")
		return s.plans.MarkDraft(ctx, planID, userID)
	}

	if err := s.plans.ApplySynthesis(ctx, planID, userID, generated); err != nil {
		return fmt.Errorf("ошибка записи синтезированного плана: %w", err)
	}

	s.logger.Info().Str("plan_id", planID.String()).Str("title", generated.Title).Msg("Plan synthesized")
	return nil
}

// RefineTurn проводит одну реплику диалога уточнения секций. Требует
// персональный ключ провайдера (model.ErrAPIKeyMissing, если не настроен).
// Сам контент секций не меняется - применение результата это отдельное
// явное действие клиента. Диалог пишется под единым ключом "main".
func (s *GenerationService) RefineTurn(ctx context.Context, userID uuid.UUID, req model.RefineTurnRequest, sink ai.ChunkHandler) error {
	client, err := s.clientForUser(ctx, userID)
	if err != nil {
		return err
	}

	plan, err := s.plans.GetByID(ctx, req.PlanID, userID)
	if err != nil {
		return err
	}

	keys := make([]model.SectionKey, 0, len(req.Sections))
	for _, name := range req.Sections {
		key, err := model.ParseSectionKey(name)
		if err != nil {
			return fmt.Errorf("%w: '%s'", model.ErrInvalidSection, name)
		}
		keys = append(keys, key)
	}

	userContext, err := s.users.GetUserContext(ctx, userID)
	if err != nil {
		return fmt.Errorf("ошибка чтения контекста креатора: %w", err)
	}

	systemPrompt := BuildRefinePrompt(plan, keys, BuildCreatorContextPrompt(userContext))

	fullText, _, err := client.Stream(ctx, systemPrompt, toAIMessages(req.Messages), sink)
	if err != nil {
		return err
	}

	updated := append(req.Messages, model.Message{
		Role:      model.RoleAssistant,
		Content:   fullText,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err := s.plans.SaveConversation(ctx, plan.ID, userID, model.MainConversationKey, updated); err != nil {
		return fmt.Errorf("ошибка сохранения диалога уточнения: %w", err)
	}

	return nil
}

// RegenerateSection перегенерирует одну секцию плана. В отличие от полного
// синтеза ошибка парсинга не деградирует: запись не выполняется, ошибка
// возвращается вызывающему для явного повтора.
func (s *GenerationService) RegenerateSection(ctx context.Context, userID, planID uuid.UUID, sectionName string) (model.SectionKey, interface{}, error) {
	key, err := model.ParseSectionKey(sectionName)
	if err != nil {
		return "", nil, err
	}

	client, err := s.clientForUser(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	plan, err := s.plans.GetByID(ctx, planID, userID)
	if err != nil {
		return "", nil, err
	}

	userContext, err := s.users.GetUserContext(ctx, userID)
	if err != nil {
		return "", nil, fmt.Errorf("ошибка чтения контекста креатора: %w", err)
	}

	systemPrompt := BuildRegeneratePrompt(plan, key, BuildCreatorContextPrompt(userContext))
	userPrompt := fmt.Sprintf("Regenerate the %s section for this video plan.", key)

	text, _, err := client.Complete(ctx, systemPrompt, []ai.Message{{Role: ai.RoleUser, Content: userPrompt}})
	if err != nil {
		return "", nil, err
	}

	value, err := ResolveSection(key, text)
	if err != nil {
		return "", nil, err
	}

	if err := s.plans.SetSection(ctx, planID, userID, key, value); err != nil {
		return "", nil, fmt.Errorf("ошибка записи секции: %w", err)
	}

	return key, value, nil
}

// clientForUser возвращает AI клиент с персональным ключом пользователя,
// расшифрованным через vault
func (s *GenerationService) clientForUser(ctx context.Context, userID uuid.UUID) (ai.Client, error) {
	encrypted, err := s.users.GetEncryptedAPIKey(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ключа провайдера: %w", err)
	}
	if encrypted == nil || *encrypted == "" {
		return nil, model.ErrAPIKeyMissing
	}

	apiKey, err := s.vault.Decrypt(*encrypted)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to decrypt stored API key")
		// Расшифровка не удалась - с точки зрения пользователя ключ нужно ввести заново
		return nil, fmt.Errorf("%w: не удалось расшифровать сохраненный ключ", model.ErrAPIKeyMissing)
	}

	return s.client.WithAPIKey(apiKey), nil
}

// countUserMessages считает реплики пользователя в диалоге
func countUserMessages(messages []model.Message) int {
	n := 0
	for _, m := range messages {
		if m.Role == model.RoleUser {
			n++
		}
	}
	return n
}

// toAIMessages конвертирует сообщения модели в формат AI клиента
func toAIMessages(messages []model.Message) []ai.Message {
	out := make([]ai.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, ai.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// ShouldGenerate сообщает, достаточно ли реплик пользователя для синтеза
func ShouldGenerate(messages []model.Message) bool {
	return countUserMessages(messages) >= generateThreshold
}
