package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"
)

// openAIClient - реализация Client через go-openai.
// Подходит для любого OpenAI-совместимого API (OpenRouter, Anthropic-прокси и т.п.)
type openAIClient struct {
	client      *openai.Client
	modelName   string
	baseURL     string
	timeout     time.Duration
	maxAttempts int
}

func newOpenAIClient(cfg Config) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("не указан API ключ для OpenAI клиента")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	log.Info().
		Str("model", cfg.ModelName).
		Str("base_url", clientConfig.BaseURL).
		Msg("OpenAI client initialized")

	return &openAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		modelName:   cfg.ModelName,
		baseURL:     clientConfig.BaseURL,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
	}, nil
}

func (c *openAIClient) WithAPIKey(apiKey string) Client {
	if apiKey == "" {
		return c
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		clientConfig.BaseURL = c.baseURL
	}
	return &openAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		modelName:   c.modelName,
		baseURL:     c.baseURL,
		timeout:     c.timeout,
		maxAttempts: c.maxAttempts,
	}
}

func (c *openAIClient) buildMessages(systemPrompt string, messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

// Complete выполняет одиночный запрос с ретраями на временные ошибки
func (c *openAIClient) Complete(ctx context.Context, systemPrompt string, messages []Message) (string, UsageInfo, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.modelName,
		Messages: c.buildMessages(systemPrompt, messages),
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateChatCompletion(callCtx, req)
		cancel()
		duration := time.Since(start)

		if err != nil {
			lastErr = err
			aiRequestsTotal.WithLabelValues(c.modelName, "error").Inc()
			log.Warn().Err(err).
				Int("attempt", attempt).
				Int("max_attempts", c.maxAttempts).
				Dur("duration", duration).
				Msg("OpenAI completion request failed")

			if ctx.Err() != nil || !isRetryable(err) {
				break
			}
			// Экспоненциальная пауза перед повтором
			select {
			case <-time.After(time.Duration(attempt) * 2 * time.Second):
			case <-ctx.Done():
				return "", UsageInfo{}, ctx.Err()
			}
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = errors.New("пустой ответ от API")
			aiRequestsTotal.WithLabelValues(c.modelName, "error").Inc()
			continue
		}

		usage := UsageInfo{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
		content := resp.Choices[0].Message.Content

		aiRequestsTotal.WithLabelValues(c.modelName, "success").Inc()
		aiRequestDuration.WithLabelValues(c.modelName).Observe(duration.Seconds())
		aiTokensUsed.WithLabelValues(c.modelName, "prompt").Add(float64(usage.PromptTokens))
		aiTokensUsed.WithLabelValues(c.modelName, "completion").Add(float64(usage.CompletionTokens))

		log.Debug().
			Dur("duration", duration).
			Int("total_tokens", usage.TotalTokens).
			Msg("OpenAI completion finished")

		return content, usage, nil
	}

	return "", UsageInfo{}, fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}

// Stream выполняет потоковый запрос. Ретраев нет: частично отданный
// клиенту поток повторять нельзя.
func (c *openAIClient) Stream(ctx context.Context, systemPrompt string, messages []Message, handler ChunkHandler) (string, UsageInfo, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.modelName,
		Messages: c.buildMessages(systemPrompt, messages),
		Stream:   true,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	}

	start := time.Now()
	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		aiRequestsTotal.WithLabelValues(c.modelName, "error").Inc()
		return "", UsageInfo{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer stream.Close()

	var sb strings.Builder
	var usage UsageInfo

	for {
		resp, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			aiRequestsTotal.WithLabelValues(c.modelName, "error").Inc()
			return "", UsageInfo{}, fmt.Errorf("%w: %v", ErrGenerationFailed, recvErr)
		}

		if resp.Usage != nil {
			usage.PromptTokens = resp.Usage.PromptTokens
			usage.CompletionTokens = resp.Usage.CompletionTokens
			usage.TotalTokens = resp.Usage.TotalTokens
		}
		if len(resp.Choices) == 0 {
			continue
		}

		chunk := resp.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if handler != nil {
			if hErr := handler(chunk); hErr != nil {
				return "", UsageInfo{}, fmt.Errorf("обработчик потока прервал чтение: %w", hErr)
			}
		}
	}

	content := sb.String()
	if usage.TotalTokens == 0 {
		// Провайдер не вернул usage - оцениваем по токенизатору
		usage = estimateUsage(c.modelName, systemPrompt, messages, content)
	}

	duration := time.Since(start)
	aiRequestsTotal.WithLabelValues(c.modelName, "success").Inc()
	aiRequestDuration.WithLabelValues(c.modelName).Observe(duration.Seconds())
	aiTokensUsed.WithLabelValues(c.modelName, "prompt").Add(float64(usage.PromptTokens))
	aiTokensUsed.WithLabelValues(c.modelName, "completion").Add(float64(usage.CompletionTokens))

	log.Debug().
		Dur("duration", duration).
		Int("chars", len(content)).
		Msg("OpenAI stream finished")

	return content, usage, nil
}

// isRetryable определяет, имеет ли смысл повторять запрос
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	// Сетевые ошибки без структурированного ответа считаем временными
	return true
}
