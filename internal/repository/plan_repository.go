package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OverseedAI/tubeplanner/internal/model"
)

// planColumns - полный список колонок плана в порядке сканирования
const planColumns = `id, user_id, title, status, intake_messages, idea, target_audience,
	hook, hooks, outline, thumbnail_concepts, title_options, ctr_combos,
	section_conversations, created_at, updated_at`

// PlanRepository предоставляет доступ к планам видео.
// Все операции чтения и записи ограничены парой (id, user_id): план чужого
// пользователя неотличим от несуществующего.
type PlanRepository struct {
	pool *pgxpool.Pool
}

// NewPlanRepository создает новый экземпляр репозитория планов
func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

// Create создает новый план в базе данных
func (r *PlanRepository) Create(ctx context.Context, plan model.Plan) (model.Plan, error) {
	query := `
		INSERT INTO video_plans (id, user_id, title, status, intake_messages, section_conversations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING ` + planColumns

	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	if plan.IntakeMessages == nil {
		plan.IntakeMessages = []model.Message{}
	}
	if plan.SectionConversations == nil {
		plan.SectionConversations = map[string][]model.Message{}
	}

	intakeJSON, err := json.Marshal(plan.IntakeMessages)
	if err != nil {
		return model.Plan{}, fmt.Errorf("ошибка маршалинга intake_messages: %w", err)
	}
	conversationsJSON, err := json.Marshal(plan.SectionConversations)
	if err != nil {
		return model.Plan{}, fmt.Errorf("ошибка маршалинга section_conversations: %w", err)
	}

	row := r.pool.QueryRow(ctx, query,
		plan.ID,
		plan.UserID,
		plan.Title,
		plan.Status,
		intakeJSON,
		conversationsJSON,
		time.Now(),
	)

	created, err := scanPlan(row)
	if err != nil {
		return model.Plan{}, fmt.Errorf("ошибка сканирования созданного плана: %w", err)
	}
	return created, nil
}

// GetByID получает план по ID в рамках владельца
func (r *PlanRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (model.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM video_plans WHERE id = $1 AND user_id = $2`

	plan, err := scanPlan(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Plan{}, model.ErrNotFound
		}
		return model.Plan{}, fmt.Errorf("ошибка сканирования плана по ID: %w", err)
	}
	return plan, nil
}

// ListByUser возвращает все планы пользователя, новые первыми
func (r *PlanRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM video_plans WHERE user_id = $1 ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []model.Plan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования плана из списка: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// PlanUpdate - частичное обновление плана. Заполненные указатели попадают в
// SET; это и есть allow-list полей, произвольные ключи сюда не попадают.
type PlanUpdate struct {
	Title             *string
	Status            *model.PlanStatus
	Idea              *string
	TargetAudience    *string
	Hook              *string
	Hooks             []model.HookVariant
	Outline           []model.OutlineItem
	ThumbnailConcepts []string
	TitleOptions      []string
	CTRCombos         []model.CTRCombo
}

// Update применяет частичное обновление в рамках владельца.
// Возвращает ErrNotFound, если план не существует или чужой.
// Конкурентные записи не детектируются: побеждает последняя (by design
// исходной системы, см. DESIGN.md).
func (r *PlanRepository) Update(ctx context.Context, id, userID uuid.UUID, upd PlanUpdate) (model.Plan, error) {
	set := []string{"updated_at = $3"}
	args := []interface{}{id, userID, time.Now()}

	addArg := func(clause string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf(clause, len(args)))
	}
	addJSON := func(column string, value interface{}) error {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("ошибка маршалинга %s: %w", column, err)
		}
		addArg(column+" = $%d", data)
		return nil
	}

	if upd.Title != nil {
		addArg("title = $%d", *upd.Title)
	}
	if upd.Status != nil {
		addArg("status = $%d", *upd.Status)
	}
	if upd.Idea != nil {
		addArg("idea = $%d", *upd.Idea)
	}
	if upd.TargetAudience != nil {
		addArg("target_audience = $%d", *upd.TargetAudience)
	}
	if upd.Hook != nil {
		addArg("hook = $%d", *upd.Hook)
	}
	if upd.Hooks != nil {
		if err := addJSON("hooks", upd.Hooks); err != nil {
			return model.Plan{}, err
		}
	}
	if upd.Outline != nil {
		if err := addJSON("outline", upd.Outline); err != nil {
			return model.Plan{}, err
		}
	}
	if upd.ThumbnailConcepts != nil {
		if err := addJSON("thumbnail_concepts", upd.ThumbnailConcepts); err != nil {
			return model.Plan{}, err
		}
	}
	if upd.TitleOptions != nil {
		if err := addJSON("title_options", upd.TitleOptions); err != nil {
			return model.Plan{}, err
		}
	}
	if upd.CTRCombos != nil {
		if err := addJSON("ctr_combos", upd.CTRCombos); err != nil {
			return model.Plan{}, err
		}
	}

	query := fmt.Sprintf(`UPDATE video_plans SET %s WHERE id = $1 AND user_id = $2 RETURNING %s`,
		strings.Join(set, ", "), planColumns)

	plan, err := scanPlan(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Plan{}, model.ErrNotFound
		}
		return model.Plan{}, fmt.Errorf("ошибка обновления плана: %w", err)
	}
	return plan, nil
}

// SaveIntakeMessages полностью заменяет лог intake-диалога завершенным ходом
func (r *PlanRepository) SaveIntakeMessages(ctx context.Context, id, userID uuid.UUID, messages []model.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("ошибка маршалинга intake_messages: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE video_plans SET intake_messages = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`,
		id, userID, data, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка сохранения intake-диалога: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// SaveConversation заменяет лог диалога уточнения под указанным ключом
func (r *PlanRepository) SaveConversation(ctx context.Context, id, userID uuid.UUID, key string, messages []model.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("ошибка маршалинга диалога уточнения: %w", err)
	}

	// jsonb_set пишет только указанный ключ; логи других секций не трогаем
	tag, err := r.pool.Exec(ctx,
		`UPDATE video_plans
		 SET section_conversations = jsonb_set(COALESCE(section_conversations, '{}'::jsonb), ARRAY[$3], $4::jsonb),
		     updated_at = $5
		 WHERE id = $1 AND user_id = $2`,
		id, userID, key, data, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка сохранения диалога уточнения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ApplySynthesis записывает результат полного синтеза и переводит план в draft
func (r *PlanRepository) ApplySynthesis(ctx context.Context, id, userID uuid.UUID, generated model.GeneratedPlan) error {
	outlineJSON, err := json.Marshal(generated.Outline)
	if err != nil {
		return fmt.Errorf("ошибка маршалинга outline: %w", err)
	}
	thumbsJSON, err := json.Marshal(generated.ThumbnailConcepts)
	if err != nil {
		return fmt.Errorf("ошибка маршалинга thumbnail_concepts: %w", err)
	}
	titlesJSON, err := json.Marshal(generated.TitleOptions)
	if err != nil {
		return fmt.Errorf("ошибка маршалинга title_options: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE video_plans
		 SET title = $3, idea = $4, target_audience = $5, hook = $6,
		     outline = $7, thumbnail_concepts = $8, title_options = $9,
		     status = $10, updated_at = $11
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
		generated.Title, generated.Idea, generated.TargetAudience, generated.Hook,
		outlineJSON, thumbsJSON, titlesJSON,
		model.StatusDraft, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка записи результата синтеза: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// MarkDraft переводит план в draft, не трогая контентные поля.
// Используется при неудачном парсинге синтеза: план не должен застрять.
func (r *PlanRepository) MarkDraft(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE video_plans SET status = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`,
		id, userID, model.StatusDraft, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка перевода плана в draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// SetSection записывает перегенерированное значение одной секции.
// value обязан быть уже типизированным значением секции (см. service.ResolveSection).
func (r *PlanRepository) SetSection(ctx context.Context, id, userID uuid.UUID, key model.SectionKey, value interface{}) error {
	column, jsonb := sectionColumn(key)

	var arg interface{}
	if jsonb {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("ошибка маршалинга секции %s: %w", key, err)
		}
		arg = data
	} else {
		text, ok := value.(string)
		if !ok {
			return fmt.Errorf("секция %s ожидает текстовое значение", key)
		}
		arg = text
	}

	// Имя колонки берется из закрытой таблицы секций, не из пользовательского ввода
	query := fmt.Sprintf(`UPDATE video_plans SET %s = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`, column)
	tag, err := r.pool.Exec(ctx, query, id, userID, arg, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка записи секции %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete удаляет план в рамках владельца. Жесткое удаление без возврата.
func (r *PlanRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM video_plans WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления плана: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// sectionColumn отображает ключ секции на колонку таблицы и признак jsonb
func sectionColumn(key model.SectionKey) (string, bool) {
	switch key {
	case model.SectionIdea:
		return "idea", false
	case model.SectionTargetAudience:
		return "target_audience", false
	case model.SectionHook:
		return "hook", false
	case model.SectionHooks:
		return "hooks", true
	case model.SectionOutline:
		return "outline", true
	case model.SectionThumbnailConcepts:
		return "thumbnail_concepts", true
	case model.SectionTitleOptions:
		return "title_options", true
	case model.SectionCTRCombos:
		return "ctr_combos", true
	}
	// Ключ приходит только из model.ParseSectionKey
	panic("repository: unknown section key " + string(key))
}

// scanPlan сканирует одну строку плана, разбирая JSONB-колонки
func scanPlan(row pgx.Row) (model.Plan, error) {
	var plan model.Plan
	var intakeJSON, conversationsJSON []byte
	var hooksJSON, outlineJSON, thumbsJSON, titlesJSON, combosJSON []byte

	err := row.Scan(
		&plan.ID,
		&plan.UserID,
		&plan.Title,
		&plan.Status,
		&intakeJSON,
		&plan.Idea,
		&plan.TargetAudience,
		&plan.Hook,
		&hooksJSON,
		&outlineJSON,
		&thumbsJSON,
		&titlesJSON,
		&combosJSON,
		&conversationsJSON,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return model.Plan{}, err
	}

	if err := unmarshalInto(intakeJSON, &plan.IntakeMessages); err != nil {
		return model.Plan{}, fmt.Errorf("ошибка разбора intake_messages: %w", err)
	}
	if err := unmarshalInto(hooksJSON, &plan.Hooks); err != nil {
		return model.Plan{}, fmt.Errorf("ошибка разбора hooks: %w", err)
	}
	if err := unmarshalInto(outlineJSON, &plan.Outline); err != nil {
		return model.Plan{}, fmt.Errorf("ошибка разбора outline: %w", err)
	}
	if err := unmarshalInto(thumbsJSON, &plan.ThumbnailConcepts); err != nil {
		return model.Plan{}, fmt.Errorf("ошибка разбора thumbnail_concepts: %w", err)
	}
	if err := unmarshalInto(titlesJSON, &plan.TitleOptions); err != nil {
		return model.Plan{}, fmt.Errorf("ошибка разбора title_options: %w", err)
	}
	if err := unmarshalInto(combosJSON, &plan.CTRCombos); err != nil {
		return model.Plan{}, fmt.Errorf("ошибка разбора ctr_combos: %w", err)
	}
	if err := unmarshalInto(conversationsJSON, &plan.SectionConversations); err != nil {
		return model.Plan{}, fmt.Errorf("ошибка разбора section_conversations: %w", err)
	}

	if plan.IntakeMessages == nil {
		plan.IntakeMessages = []model.Message{}
	}
	if plan.SectionConversations == nil {
		plan.SectionConversations = map[string][]model.Message{}
	}

	return plan, nil
}

// unmarshalInto разбирает JSONB-колонку, NULL оставляет нулевое значение
func unmarshalInto(data []byte, target interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}
