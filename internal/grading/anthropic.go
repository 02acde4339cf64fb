package grading

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/rs/zerolog/log"
)

// AnthropicConfig configures the Anthropic-backed grader.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	BaseURL   string // optional, for proxies and tests
	MaxTokens int64
	Timeout   time.Duration // per attempt; 0 disables
}

// AnthropicGrader grades imitations with the Anthropic Messages API.
type AnthropicGrader struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewAnthropic builds an AnthropicGrader. SDK-level retries are disabled;
// callers wrap Grade with their own retry policy.
func NewAnthropic(cfg AnthropicConfig) *AnthropicGrader {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicGrader{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   cfg.Timeout,
	}
}

// Grade sends one grading request. Errors are classified as ErrUnavailable,
// ErrRejected or ErrFormat; cancellation of ctx is returned as ctx.Err().
func (g *AnthropicGrader) Grade(ctx context.Context, req Request) (Result, error) {
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	msg, err := g.client.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   g.maxTokens,
		Temperature: param.NewOpt(0.3),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(req))),
		},
	})
	if err != nil {
		return Result{}, classify(ctx, err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return Result{}, fmt.Errorf("%w: no text content in response", ErrFormat)
	}

	res, err := parseResult(text)
	if err != nil {
		log.Debug().Err(err).Str("model", g.model).Int("len", len(text)).Msg("grader output rejected")
		return Result{}, err
	}
	return res, nil
}

// classify maps SDK and transport errors onto the package's error classes.
// The caller's ctx is consulted first so a cancelled request is not mistaken
// for an outage.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		code := apiErr.StatusCode
		switch {
		case code == http.StatusRequestTimeout, code == http.StatusConflict,
			code == http.StatusTooManyRequests, code >= 500:
			return fmt.Errorf("%w: status %d", ErrUnavailable, code)
		default:
			return fmt.Errorf("%w: status %d", ErrRejected, code)
		}
	}
	// Network failures and per-attempt timeouts.
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
