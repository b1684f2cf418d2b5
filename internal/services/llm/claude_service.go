package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/common"
	"github.com/ternarybob/meeple/internal/interfaces"
)

// ErrRateLimited signals that the completion provider refused the call due
// to rate limiting. Callers stop their remaining batch when they see it.
var ErrRateLimited = errors.New("completion provider rate limited")

// ClaudeService implements the CompletionService interface using the
// Anthropic Claude API.
type ClaudeService struct {
	config  *common.EnrichmentConfig
	logger  arbor.ILogger
	client  anthropic.Client
	timeout time.Duration
}

// NewClaudeService creates a new Claude completion service instance
func NewClaudeService(config *common.EnrichmentConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or enrichment.api_key in config)")
	}

	if config.Model == "" {
		config.Model = "claude-haiku-4-5"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		config.MaxTokens = 1024
	}

	client := anthropic.NewClient(option.WithAPIKey(config.APIKey))

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Msg("Claude completion service initialized")

	return &ClaudeService{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}, nil
}

// Complete sends one prompt and returns the generated text. Rate-limit
// responses are translated to ErrRateLimited.
func (s *ClaudeService) Complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	message, err := s.client.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		if isRateLimitError(err) {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("completion returned no text content")
	}

	return strings.TrimSpace(text.String()), nil
}

// isRateLimitError detects an HTTP 429 from the Anthropic API
func isRateLimitError(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return strings.Contains(err.Error(), "429")
}

var _ interfaces.CompletionService = (*ClaudeService)(nil)
