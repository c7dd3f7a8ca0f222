package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OverseedAI/tubeplanner/internal/model"
	"github.com/OverseedAI/tubeplanner/internal/repository"
	"github.com/OverseedAI/tubeplanner/pkg/ai"
)

// fakeAI - управляемый из теста AI клиент
type fakeAI struct {
	completeText string
	completeErr  error
	streamText   string
	streamErr    error
	apiKey       string
}

func (f *fakeAI) Complete(ctx context.Context, systemPrompt string, messages []ai.Message) (string, ai.UsageInfo, error) {
	if f.completeErr != nil {
		return "", ai.UsageInfo{}, f.completeErr
	}
	return f.completeText, ai.UsageInfo{}, nil
}

func (f *fakeAI) Stream(ctx context.Context, systemPrompt string, messages []ai.Message, handler ai.ChunkHandler) (string, ai.UsageInfo, error) {
	if f.streamErr != nil {
		return "", ai.UsageInfo{}, f.streamErr
	}
	if handler != nil {
		// Отдаем текст двумя фрагментами, как настоящий поток
		mid := len(f.streamText) / 2
		for _, chunk := range []string{f.streamText[:mid], f.streamText[mid:]} {
			if chunk == "" {
				continue
			}
			if err := handler(chunk); err != nil {
				return "", ai.UsageInfo{}, err
			}
		}
	}
	return f.streamText, ai.UsageInfo{}, nil
}

func (f *fakeAI) WithAPIKey(apiKey string) ai.Client {
	f.apiKey = apiKey
	return f
}

// fakePlanStore записывает вызовы хранилища планов
type fakePlanStore struct {
	mu sync.Mutex

	plan   model.Plan
	getErr error

	created      bool
	savedIntake  []model.Message
	savedConvKey string
	savedConv    []model.Message
	applied      *model.GeneratedPlan
	markedDraft  bool
	setKey       model.SectionKey
	setValue     interface{}

	synthesisDone chan struct{}
}

func newFakePlanStore(plan model.Plan) *fakePlanStore {
	return &fakePlanStore{plan: plan, synthesisDone: make(chan struct{}, 2)}
}

func (f *fakePlanStore) Create(ctx context.Context, plan model.Plan) (model.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = true
	f.plan = plan
	return plan, nil
}

func (f *fakePlanStore) GetByID(ctx context.Context, id, userID uuid.UUID) (model.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return model.Plan{}, f.getErr
	}
	return f.plan, nil
}

func (f *fakePlanStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Plan, error) {
	return []model.Plan{f.plan}, nil
}

func (f *fakePlanStore) Update(ctx context.Context, id, userID uuid.UUID, upd repository.PlanUpdate) (model.Plan, error) {
	return f.plan, nil
}

func (f *fakePlanStore) SaveIntakeMessages(ctx context.Context, id, userID uuid.UUID, messages []model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedIntake = messages
	return nil
}

func (f *fakePlanStore) SaveConversation(ctx context.Context, id, userID uuid.UUID, key string, messages []model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedConvKey = key
	f.savedConv = messages
	return nil
}

func (f *fakePlanStore) ApplySynthesis(ctx context.Context, id, userID uuid.UUID, generated model.GeneratedPlan) error {
	f.mu.Lock()
	f.applied = &generated
	f.mu.Unlock()
	f.synthesisDone <- struct{}{}
	return nil
}

func (f *fakePlanStore) MarkDraft(ctx context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	f.markedDraft = true
	f.mu.Unlock()
	f.synthesisDone <- struct{}{}
	return nil
}

func (f *fakePlanStore) SetSection(ctx context.Context, id, userID uuid.UUID, key model.SectionKey, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setKey = key
	f.setValue = value
	return nil
}

func (f *fakePlanStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return nil
}

// fakeProfileStore - профиль пользователя для тестов
type fakeProfileStore struct {
	userContext  *string
	encryptedKey *string
}

func (f *fakeProfileStore) GetUserContext(ctx context.Context, userID uuid.UUID) (*string, error) {
	return f.userContext, nil
}

func (f *fakeProfileStore) GetEncryptedAPIKey(ctx context.Context, userID uuid.UUID) (*string, error) {
	return f.encryptedKey, nil
}

// fakeVault расшифровывает "enc:" префикс
type fakeVault struct {
	failDecrypt bool
}

func (f *fakeVault) Decrypt(ciphertext string) (string, error) {
	if f.failDecrypt {
		return "", errors.New("целостность нарушена")
	}
	return "sk-decrypted", nil
}

func newTestGenerationService(plans *fakePlanStore, users *fakeProfileStore, client ai.Client) *GenerationService {
	return NewGenerationService(plans, users, &fakeVault{}, client, zerolog.Nop())
}

func intakeMessages(userTurns int) []model.Message {
	var msgs []model.Message
	for i := 0; i < userTurns; i++ {
		if i > 0 {
			msgs = append(msgs, model.Message{Role: model.RoleAssistant, Content: "next question"})
		}
		msgs = append(msgs, model.Message{Role: model.RoleUser, Content: "answer"})
	}
	return msgs
}

func TestIntakeTurn_CreatesPlanAndSavesTurn(t *testing.T) {
	store := newFakePlanStore(model.Plan{})
	client := &fakeAI{streamText: "What is your video about?"}
	svc := newTestGenerationService(store, &fakeProfileStore{}, client)

	var readyID uuid.UUID
	req := model.IntakeTurnRequest{Messages: intakeMessages(1)}
	err := svc.IntakeTurn(context.Background(), uuid.New(), req, func(id uuid.UUID) { readyID = id }, nil)
	require.NoError(t, err)

	assert.True(t, store.created)
	assert.NotEqual(t, uuid.Nil, readyID, "id плана сообщается до стриминга")

	// Сохраненный диалог = входящие сообщения + одна реплика ассистента
	require.Len(t, store.savedIntake, len(req.Messages)+1)
	last := store.savedIntake[len(store.savedIntake)-1]
	assert.Equal(t, model.RoleAssistant, last.Role)
	assert.Equal(t, "What is your video about?", last.Content)
	assert.NotEmpty(t, last.CreatedAt)
}

func TestIntakeTurn_ExistingPlan(t *testing.T) {
	plan := model.NewPlan(uuid.New())
	store := newFakePlanStore(plan)
	client := &fakeAI{streamText: "Tell me more."}
	svc := newTestGenerationService(store, &fakeProfileStore{}, client)

	req := model.IntakeTurnRequest{Messages: intakeMessages(2), PlanID: &plan.ID}
	err := svc.IntakeTurn(context.Background(), plan.UserID, req, nil, nil)
	require.NoError(t, err)
	assert.False(t, store.created)
}

func TestIntakeTurn_MarkerTriggersSynthesis(t *testing.T) {
	plan := model.NewPlan(uuid.New())
	store := newFakePlanStore(plan)
	client := &fakeAI{
		streamText:   "Generating your plan now! [PLAN_GENERATED][PLAN_ID:" + plan.ID.String() + "]",
		completeText: `{"title": "Sourdough 101", "idea": "Teach beginners", "outline": [{"id":"1","title":"Intro","content":"Hook"}]}`,
	}
	svc := newTestGenerationService(store, &fakeProfileStore{}, client)

	req := model.IntakeTurnRequest{Messages: intakeMessages(3), PlanID: &plan.ID}
	err := svc.IntakeTurn(context.Background(), plan.UserID, req, nil, nil)
	require.NoError(t, err)

	// Синтез идет в фоне - ждем записи
	select {
	case <-store.synthesisDone:
	case <-time.After(2 * time.Second):
		t.Fatal("синтез не был запущен по маркеру")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotNil(t, store.applied)
	assert.Equal(t, "Sourdough 101", store.applied.Title)
	// Диалог сохранен независимо от синтеза
	assert.NotEmpty(t, store.savedIntake)
}

func TestIntakeTurn_ProviderErrorNotPersisted(t *testing.T) {
	store := newFakePlanStore(model.Plan{})
	client := &fakeAI{streamErr: ai.ErrGenerationFailed}
	svc := newTestGenerationService(store, &fakeProfileStore{}, client)

	err := svc.IntakeTurn(context.Background(), uuid.New(), model.IntakeTurnRequest{Messages: intakeMessages(1)}, nil, nil)
	require.Error(t, err)
	// Оборванная реплика не сохраняется: пользователь повторит отправку
	assert.Nil(t, store.savedIntake)
}

func TestSynthesize_ParseFailureDegradesToDraft(t *testing.T) {
	plan := model.NewPlan(uuid.New())
	store := newFakePlanStore(plan)
	client := &fakeAI{completeText: "Sorry, I cannot produce JSON today."}
	svc := newTestGenerationService(store, &fakeProfileStore{}, client)

	err := svc.Synthesize(context.Background(), plan.ID, plan.UserID, intakeMessages(3))
	require.NoError(t, err, "ошибка парсинга не пробрасывается наружу")
	assert.True(t, store.markedDraft)
	assert.Nil(t, store.applied)
}

func TestSynthesize_ProviderFailureDegradesToDraft(t *testing.T) {
	plan := model.NewPlan(uuid.New())
	store := newFakePlanStore(plan)
	client := &fakeAI{completeErr: ai.ErrGenerationFailed}
	svc := newTestGenerationService(store, &fakeProfileStore{}, client)

	err := svc.Synthesize(context.Background(), plan.ID, plan.UserID, intakeMessages(3))
	require.NoError(t, err)
	assert.True(t, store.markedDraft)
}

func TestRefineTurn_RequiresAPIKey(t *testing.T) {
	plan := model.NewPlan(uuid.New())
	store := newFakePlanStore(plan)
	svc := newTestGenerationService(store, &fakeProfileStore{encryptedKey: nil}, &fakeAI{})

	req := model.RefineTurnRequest{
		PlanID:   plan.ID,
		Sections: []string{"idea"},
		Messages: []model.Message{{Role: model.RoleUser, Content: "make it punchier"}},
	}
	err := svc.RefineTurn(context.Background(), plan.UserID, req, nil)
	assert.ErrorIs(t, err, model.ErrAPIKeyMissing)
	assert.Nil(t, store.savedConv)
}

func TestRefineTurn_SavesUnderMainKey(t *testing.T) {
	plan := model.NewPlan(uuid.New())
	store := newFakePlanStore(plan)
	enc := "ciphertext"
	client := &fakeAI{streamText: "Here is a sharper idea."}
	svc := newTestGenerationService(store, &fakeProfileStore{encryptedKey: &enc}, client)

	req := model.RefineTurnRequest{
		PlanID:   plan.ID,
		Sections: []string{"idea", "titleOptions"},
		Messages: []model.Message{{Role: model.RoleUser, Content: "make it punchier"}},
	}
	err := svc.RefineTurn(context.Background(), plan.UserID, req, nil)
	require.NoError(t, err)

	assert.Equal(t, model.MainConversationKey, store.savedConvKey)
	require.Len(t, store.savedConv, 2)
	assert.Equal(t, model.RoleAssistant, store.savedConv[1].Role)
	// Персональный ключ расшифрован и передан клиенту
	assert.Equal(t, "sk-decrypted", client.apiKey)
}

func TestRefineTurn_InvalidSection(t *testing.T) {
	plan := model.NewPlan(uuid.New())
	store := newFakePlanStore(plan)
	enc := "ciphertext"
	svc := newTestGenerationService(store, &fakeProfileStore{encryptedKey: &enc}, &fakeAI{streamText: "x"})

	req := model.RefineTurnRequest{
		PlanID:   plan.ID,
		Sections: []string{"banner"},
		Messages: []model.Message{{Role: model.RoleUser, Content: "hi"}},
	}
	err := svc.RefineTurn(context.Background(), plan.UserID, req, nil)
	assert.ErrorIs(t, err, model.ErrInvalidSection)
}

func TestRegenerateSection_Success(t *testing.T) {
	plan := model.NewPlan(uuid.New())
	store := newFakePlanStore(plan)
	enc := "ciphertext"
	client := &fakeAI{completeText: `["A","B","C"]`}
	svc := newTestGenerationService(store, &fakeProfileStore{encryptedKey: &enc}, client)

	key, value, err := svc.RegenerateSection(context.Background(), plan.UserID, plan.ID, "titleOptions")
	require.NoError(t, err)

	assert.Equal(t, model.SectionTitleOptions, key)
	assert.Equal(t, []string{"A", "B", "C"}, value)
	assert.Equal(t, model.SectionTitleOptions, store.setKey)
	assert.Equal(t, []string{"A", "B", "C"}, store.setValue)
}

func TestRegenerateSection_InvalidSection(t *testing.T) {
	plan := model.NewPlan(uuid.New())
	store := newFakePlanStore(plan)
	svc := newTestGenerationService(store, &fakeProfileStore{}, &fakeAI{})

	_, _, err := svc.RegenerateSection(context.Background(), plan.UserID, plan.ID, "banner")
	assert.ErrorIs(t, err, model.ErrInvalidSection)
	assert.Empty(t, store.setKey, "запись не выполняется")
}

func TestRegenerateSection_ParseFailureNoWrite(t *testing.T) {
	plan := model.NewPlan(uuid.New())
	store := newFakePlanStore(plan)
	enc := "ciphertext"
	client := &fakeAI{completeText: "no json here"}
	svc := newTestGenerationService(store, &fakeProfileStore{encryptedKey: &enc}, client)

	_, _, err := svc.RegenerateSection(context.Background(), plan.UserID, plan.ID, "hooks")
	assert.ErrorIs(t, err, model.ErrGenerationParse)
	assert.Empty(t, store.setKey)
}

func TestRegenerateSection_DecryptFailureIsAPIKeyError(t *testing.T) {
	plan := model.NewPlan(uuid.New())
	store := newFakePlanStore(plan)
	enc := "ciphertext"
	svc := NewGenerationService(store, &fakeProfileStore{encryptedKey: &enc}, &fakeVault{failDecrypt: true}, &fakeAI{}, zerolog.Nop())

	_, _, err := svc.RegenerateSection(context.Background(), plan.UserID, plan.ID, "idea")
	assert.ErrorIs(t, err, model.ErrAPIKeyMissing)
}
