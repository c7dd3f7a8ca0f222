package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
)

// Метрики Prometheus для запросов к completion-сервису
var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubeplanner_ai_requests_total",
			Help: "Total number of AI completion requests by model and status.",
		},
		[]string{"model", "status"},
	)

	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubeplanner_ai_request_duration_seconds",
			Help:    "Duration of AI completion requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"model"},
	)

	aiTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubeplanner_ai_tokens_total",
			Help: "Total number of tokens consumed by AI requests.",
		},
		[]string{"model", "kind"},
	)
)

// estimateUsage оценивает расход токенов локальным токенизатором,
// когда провайдер не вернул usage в потоковом ответе
func estimateUsage(model, systemPrompt string, messages []Message, completion string) UsageInfo {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Незнакомая модель - берем базовую кодировку
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Warn().Err(err).Msg("token estimation unavailable")
			return UsageInfo{}
		}
	}

	prompt := len(enc.Encode(systemPrompt, nil, nil))
	for _, m := range messages {
		prompt += len(enc.Encode(m.Content, nil, nil))
	}
	out := len(enc.Encode(completion, nil, nil))

	return UsageInfo{
		PromptTokens:     prompt,
		CompletionTokens: out,
		TotalTokens:      prompt + out,
	}
}
