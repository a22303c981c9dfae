package narrator

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"mediadash/internal/aggregate"
)

type anthropicNarrator struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

func newAnthropic(cfg Config) *anthropicNarrator {
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
		model = "claude-sonnet-4-5"
	}
	return &anthropicNarrator{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokensOr(cfg.MaxTokens),
	}
}

func (n *anthropicNarrator) Summarize(ctx context.Context, facts aggregate.Facts) (string, error) {
	start := time.Now()
	resp, err := n.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(n.model),
		MaxTokens: int64(n.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(Prompt(facts))),
		},
	})
	if err != nil {
		return "", &ServiceError{Provider: ProviderAnthropic, Err: err}
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", &ServiceError{Provider: ProviderAnthropic, Err: fmt.Errorf("no text in response (stop reason %s)", resp.StopReason)}
	}

	logrus.WithFields(logrus.Fields{
		"provider":      ProviderAnthropic,
		"model":         n.model,
		"duration_ms":   time.Since(start).Milliseconds(),
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
	}).Debug("summary generated")

	return b.String(), nil
}
