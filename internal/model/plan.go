package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Ошибки уровня модели, используются репозиториями и сервисами
var (
	// ErrNotFound возвращается, когда план не существует ИЛИ принадлежит другому
	// пользователю. Снаружи эти случаи неразличимы намеренно.
	ErrNotFound = errors.New("план не найден")
	// ErrAPIKeyMissing - у пользователя не настроен ключ провайдера
	ErrAPIKeyMissing = errors.New("API ключ провайдера не настроен")
	// ErrInvalidSection - неизвестное имя секции плана
	ErrInvalidSection = errors.New("неизвестная секция плана")
	// ErrGenerationParse - ответ модели не соответствует ожидаемой структуре
	ErrGenerationParse = errors.New("не удалось разобрать структурированный ответ модели")
)

// PlanStatus представляет статус плана видео
type PlanStatus string

// Возможные статусы плана. Ядро само переводит план только в intake (создание)
// и draft (после синтеза); остальные статусы выставляются клиентом через PATCH.
const (
	StatusIntake     PlanStatus = "intake"
	StatusGenerating PlanStatus = "generating"
	StatusDraft      PlanStatus = "draft"
	StatusRefining   PlanStatus = "refining"
	StatusComplete   PlanStatus = "complete"
)

// ValidStatus проверяет, входит ли значение в перечисление статусов
func ValidStatus(s PlanStatus) bool {
	switch s {
	case StatusIntake, StatusGenerating, StatusDraft, StatusRefining, StatusComplete:
		return true
	}
	return false
}

// Роли сообщений в диалоге
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MainConversationKey - единый ключ диалога уточнения. Ранние версии хранили
// отдельный лог на каждую секцию; каноническая схема пишет все новые реплики
// под этим ключом, старые ключи остаются читаемыми.
const MainConversationKey = "main"

// Message представляет одну реплику диалога (intake или уточнение)
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// OutlineItem представляет один пункт структуры видео
type OutlineItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Duration string `json:"duration,omitempty"`
}

// Стили хуков второй генерации схемы
const (
	HookStyleStory     = "story"
	HookStyleCuriosity = "curiosity"
	HookStyleBold      = "bold"
	HookStyleQuestion  = "question"
)

// HookVariant - один из четырех вариантов хука фиксированного стиля.
// Инвариант: во всем массиве не более одного Selected=true.
type HookVariant struct {
	Style    string `json:"style"`
	Content  string `json:"content"`
	Selected bool   `json:"selected,omitempty"`
}

// ComboRatings - оценки связки заголовок+превью по трем осям, каждая 1-5
type ComboRatings struct {
	Curiosity int `json:"curiosity"`
	Clarity   int `json:"clarity"`
	Emotion   int `json:"emotion"`
}

// CTRCombo - связка заголовок+описание превью с оценками (третья генерация
// схемы, заменяет раздельные thumbnailConcepts/titleOptions).
// Инвариант единственного выбора такой же, как у HookVariant.
type CTRCombo struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Thumbnail string       `json:"thumbnail"`
	Ratings   ComboRatings `json:"ratings"`
	Selected  bool         `json:"selected,omitempty"`
}

// Plan представляет план видео - центральный агрегат системы.
// Контентные секции хранят надмножество трех поколений схемы: plain hook,
// hooks (4 стилевых варианта) и ctrCombos сосуществуют, каждая секция
// nullable до первой генерации.
type Plan struct {
	ID     uuid.UUID  `json:"id" db:"id"`
	UserID uuid.UUID  `json:"user_id" db:"user_id"`
	Title  string     `json:"title" db:"title"`
	Status PlanStatus `json:"status" db:"status"`

	IntakeMessages []Message `json:"intake_messages" db:"intake_messages"`

	Idea              *string       `json:"idea" db:"idea"`
	TargetAudience    *string       `json:"target_audience" db:"target_audience"`
	Hook              *string       `json:"hook" db:"hook"`
	Hooks             []HookVariant `json:"hooks,omitempty" db:"hooks"`
	Outline           []OutlineItem `json:"outline,omitempty" db:"outline"`
	ThumbnailConcepts []string      `json:"thumbnail_concepts,omitempty" db:"thumbnail_concepts"`
	TitleOptions      []string      `json:"title_options,omitempty" db:"title_options"`
	CTRCombos         []CTRCombo    `json:"ctr_combos,omitempty" db:"ctr_combos"`

	// Диалоги уточнения по ключу (имя секции или "main")
	SectionConversations map[string][]Message `json:"section_conversations" db:"section_conversations"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultTitle - заголовок-заглушка до первой генерации
const DefaultTitle = "Untitled Video"

// NewPlan создает пустой план в статусе intake для указанного пользователя
func NewPlan(userID uuid.UUID) Plan {
	now := time.Now()
	return Plan{
		ID:                   uuid.New(),
		UserID:               userID,
		Title:                DefaultTitle,
		Status:               StatusIntake,
		IntakeMessages:       []Message{},
		SectionConversations: map[string][]Message{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// GeneratedPlan - результат полного синтеза плана из intake-диалога.
// Ключи соответствуют JSON-объекту, который обязана вернуть модель.
type GeneratedPlan struct {
	Title             string        `json:"title"`
	Idea              string        `json:"idea"`
	TargetAudience    string        `json:"targetAudience"`
	Hook              string        `json:"hook"`
	Outline           []OutlineItem `json:"outline"`
	ThumbnailConcepts []string      `json:"thumbnailConcepts"`
	TitleOptions      []string      `json:"titleOptions"`
}
