package adapter

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"ravel/internal/logging"
)

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	Model  string
	APIKey string // falls back to GEMINI_API_KEY when empty
}

// DefaultGeminiConfig mirrors the defaults used across the reference
// corpus's GenAI clients.
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{Model: "gemini-2.5-flash"}
}

// GeminiAdapter implements Adapter against Google's GenAI API. It exists
// chiefly to demonstrate that the orchestrator is provider-agnostic: it
// depends only on Adapter, never on AnthropicAdapter or GeminiAdapter
// directly.
type GeminiAdapter struct {
	cfg    GeminiConfig
	client *genai.Client
	log    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewGeminiAdapter builds an adapter from cfg, resolving the API key from
// the environment if cfg.APIKey is empty.
func NewGeminiAdapter(ctx context.Context, cfg GeminiConfig, log *zap.Logger) (*GeminiAdapter, error) {
	apiKey := cfg.APIKey
	if cfg.Model == "" {
		cfg = DefaultGeminiConfig()
	}
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("adapter: GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("adapter: failed to create GenAI client: %w", err)
	}

	return &GeminiAdapter{
		cfg:    cfg,
		client: client,
		log:    logging.NopIfNil(log).Named("adapter.gemini"),
	}, nil
}

// Stream opens a streaming generation and forwards text deltas until the
// model completes, the context is cancelled, or Cancel is called.
func (a *GeminiAdapter) Stream(ctx context.Context, messages []Message, systemPrompt string, temperature float64) (<-chan Delta, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	a.mu.Lock()
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	contents := toGenaiContents(messages)
	temp := float32(temperature)
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	out := make(chan Delta)

	go func() {
		defer close(done)
		defer close(out)
		defer cancel()

		for chunk, err := range a.client.Models.GenerateContentStream(streamCtx, a.cfg.Model, contents, config) {
			if err != nil {
				a.log.Warn("stream ended with error", zap.Error(err))
				select {
				case out <- Delta{Err: err}:
				case <-streamCtx.Done():
				}
				return
			}
			text := chunk.Text()
			if text == "" {
				continue
			}
			select {
			case out <- Delta{Text: text}:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Cancel cancels the currently active stream, if any, and blocks until
// its goroutine has actually exited, so the caller can safely start a
// new stream immediately afterward.
func (a *GeminiAdapter) Cancel() {
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

func toGenaiContents(messages []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return out
}
