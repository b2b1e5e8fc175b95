package adapter

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"ravel/internal/logging"
)

// AnthropicConfig configures the real Anthropic adapter.
type AnthropicConfig struct {
	Model     string
	MaxTokens int64
	APIKey    string // falls back to ANTHROPIC_API_KEY when empty
}

// DefaultAnthropicConfig mirrors the defaults used across the reference
// corpus's Anthropic clients.
func DefaultAnthropicConfig() AnthropicConfig {
	return AnthropicConfig{
		Model:     "claude-sonnet-4-5-20250514",
		MaxTokens: 4096,
	}
}

// AnthropicAdapter implements Adapter against the real Anthropic API using
// the official streaming client, so genuine token deltas (not
// request/response round trips) drive the parser.
type AnthropicAdapter struct {
	cfg    AnthropicConfig
	client anthropic.Client
	log    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAnthropicAdapter builds an adapter from cfg, resolving the API key
// from the environment if cfg.APIKey is empty.
func NewAnthropicAdapter(cfg AnthropicConfig, log *zap.Logger) (*AnthropicAdapter, error) {
	apiKey := cfg.APIKey
	if cfg.Model == "" {
		cfg = DefaultAnthropicConfig()
	}
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("adapter: ANTHROPIC_API_KEY is not set")
	}
	return &AnthropicAdapter{
		cfg:    cfg,
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		log:    logging.NopIfNil(log).Named("adapter.anthropic"),
	}, nil
}

// Stream opens a streaming generation and forwards text deltas on the
// returned channel until the model completes, the context is cancelled,
// or Cancel is called.
func (a *AnthropicAdapter) Stream(ctx context.Context, messages []Message, systemPrompt string, temperature float64) (<-chan Delta, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	a.mu.Lock()
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.cfg.Model),
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: anthropic.Float(temperature),
		Messages:    toAnthropicMessages(messages),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	stream := a.client.Messages.NewStreaming(streamCtx, params)
	out := make(chan Delta)

	go func() {
		defer close(done)
		defer close(out)
		defer cancel()

		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch d := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					select {
					case out <- Delta{Text: d.Text}:
					case <-streamCtx.Done():
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			a.log.Warn("stream ended with error", zap.Error(err))
			select {
			case out <- Delta{Err: err}:
			case <-streamCtx.Done():
			}
		}
	}()

	return out, nil
}

// Cancel cancels the currently active stream, if any, and blocks until
// its goroutine has actually exited, so the caller can safely start a
// new stream immediately afterward.
func (a *AnthropicAdapter) Cancel() {
	a.mu.Lock()
	cancel := a.cancel
	done := a.done
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
