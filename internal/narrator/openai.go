package narrator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"

	"mediadash/internal/aggregate"
)

type openaiNarrator struct {
	client    openai.Client
	model     string
	maxTokens int
}

func newOpenAI(cfg Config) *openaiNarrator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &openaiNarrator{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokensOr(cfg.MaxTokens),
	}
}

func (n *openaiNarrator) Summarize(ctx context.Context, facts aggregate.Facts) (string, error) {
	start := time.Now()
	resp, err := n.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               n.model,
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(Prompt(facts))},
		MaxCompletionTokens: openai.Int(int64(n.maxTokens)),
	})
	if err != nil {
		return "", &ServiceError{Provider: ProviderOpenAI, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ServiceError{Provider: ProviderOpenAI, Err: fmt.Errorf("no choices in response")}
	}

	logrus.WithFields(logrus.Fields{
		"provider":          ProviderOpenAI,
		"model":             n.model,
		"duration_ms":       time.Since(start).Milliseconds(),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("summary generated")

	return resp.Choices[0].Message.Content, nil
}

func maxTokensOr(n int) int {
	if n <= 0 {
		return 1000
	}
	return n
}
