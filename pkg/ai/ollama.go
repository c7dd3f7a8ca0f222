package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog/log"
)

// ollamaClient реализует Client через нативный API Ollama (для локальных моделей)
type ollamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

func newOllamaClient(cfg Config) (*ollamaClient, error) {
	// api.NewClient требует URL без суффикса /v1
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/v1")
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", baseURL, err)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	log.Info().
		Str("model", cfg.ModelName).
		Str("base_url", baseURL).
		Msg("Ollama client initialized")

	return &ollamaClient{
		client:  api.NewClient(parsedURL, httpClient),
		model:   cfg.ModelName,
		timeout: cfg.Timeout,
	}, nil
}

// WithAPIKey для Ollama не имеет смысла: локальный сервер ключей не требует
func (c *ollamaClient) WithAPIKey(string) Client { return c }

func (c *ollamaClient) buildMessages(systemPrompt string, messages []Message) []api.Message {
	out := make([]api.Message, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, api.Message{Role: RoleSystem, Content: systemPrompt})
	}
	for _, m := range messages {
		out = append(out, api.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *ollamaClient) Complete(ctx context.Context, systemPrompt string, messages []Message) (string, UsageInfo, error) {
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: c.buildMessages(systemPrompt, messages),
		Stream:   func(b bool) *bool { return &b }(false),
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		aiRequestsTotal.WithLabelValues(c.model, "error").Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Dur("timeout", c.timeout).Msg("Ollama request timed out")
		}
		return "", UsageInfo{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if resp.Message.Content == "" {
		aiRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", UsageInfo{}, fmt.Errorf("%w: получен пустой ответ", ErrGenerationFailed)
	}

	usage := UsageInfo{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}

	aiRequestsTotal.WithLabelValues(c.model, "success").Inc()
	aiRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
	aiTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(usage.PromptTokens))
	aiTokensUsed.WithLabelValues(c.model, "completion").Add(float64(usage.CompletionTokens))

	return resp.Message.Content, usage, nil
}

func (c *ollamaClient) Stream(ctx context.Context, systemPrompt string, messages []Message, handler ChunkHandler) (string, UsageInfo, error) {
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: c.buildMessages(systemPrompt, messages),
		Stream:   func(b bool) *bool { return &b }(true),
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var sb strings.Builder
	var usage UsageInfo

	err := c.client.Chat(requestCtx, req, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			sb.WriteString(resp.Message.Content)
			if handler != nil {
				if hErr := handler(resp.Message.Content); hErr != nil {
					return fmt.Errorf("обработчик потока прервал чтение: %w", hErr)
				}
			}
		}
		if resp.Done {
			usage.PromptTokens = resp.PromptEvalCount
			usage.CompletionTokens = resp.EvalCount
			usage.TotalTokens = resp.PromptEvalCount + resp.EvalCount
			if resp.DoneReason != "" && resp.DoneReason != "stop" {
				log.Warn().Str("reason", resp.DoneReason).Msg("Ollama stream finished with non-stop reason")
			}
		}
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		aiRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", UsageInfo{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	aiRequestsTotal.WithLabelValues(c.model, "success").Inc()
	aiRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
	aiTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(usage.PromptTokens))
	aiTokensUsed.WithLabelValues(c.model, "completion").Add(float64(usage.CompletionTokens))

	return sb.String(), usage, nil
}
