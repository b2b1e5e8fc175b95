package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ravel/cmd/ravel/tui"
	"ravel/internal/adapter"
	"ravel/internal/orchestrator"
)

var scriptPath string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat interface",
	RunE:  runChat,
}

var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Process one turn non-interactively, streaming its text to stdout",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().StringVar(&scriptPath, "script", "", "Replay a JSON array of response strings instead of calling a real provider (implies --provider scripted)")
	chatCmd.Flags().StringVar(&scriptPath, "script", "", "Replay a JSON array of response strings instead of calling a real provider (implies --provider scripted)")
}

// buildAdapter resolves cfg.Provider (possibly overridden to "scripted"
// by --script) into a concrete adapter.Adapter.
func buildAdapter(ctx context.Context) (adapter.Adapter, error) {
	if scriptPath != "" {
		return loadScriptedAdapter(scriptPath)
	}

	switch cfg.Provider {
	case "anthropic":
		return adapter.NewAnthropicAdapter(adapter.AnthropicConfig{Model: cfg.Model}, logger)
	case "gemini":
		return adapter.NewGeminiAdapter(ctx, adapter.GeminiConfig{Model: cfg.Model}, logger)
	case "scripted":
		return nil, fmt.Errorf("provider \"scripted\" requires --script path/to/responses.json")
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// loadScriptedAdapter reads a JSON array of strings from path, one per
// simulated retry, and wraps it as an adapter.Scripted. Used by --script
// for dry runs and CI smoke checks that must not call a live API.
func loadScriptedAdapter(path string) (*adapter.Scripted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}
	var responses []string
	if err := json.Unmarshal(data, &responses); err != nil {
		return nil, fmt.Errorf("parsing script %s: %w", path, err)
	}
	return adapter.NewScripted(responses...), nil
}

func newProcessor(ad adapter.Adapter) *orchestrator.Processor {
	procCfg := orchestrator.Config{
		MaxRewinds:  cfg.MaxRewinds,
		MinSpacing:  cfg.MinSpacing,
		DefaultMode: cfg.DefaultMode,
	}
	return orchestrator.New(procCfg, ad, logger)
}

func runChat(cmd *cobra.Command, args []string) error {
	ad, err := buildAdapter(cmd.Context())
	if err != nil {
		return err
	}
	proc := newProcessor(ad)

	model := tui.New(proc, cfg.MaxRewinds)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// runOnce drives a single turn non-interactively: it prints streamed
// text to stdout as it arrives and exits once the turn commits.
func runOnce(cmd *cobra.Command, args []string) error {
	ad, err := buildAdapter(cmd.Context())
	if err != nil {
		return err
	}
	proc := newProcessor(ad)

	message := strings.Join(args, " ")
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	done := make(chan struct{})
	var runErr string

	proc.Run(cmd.Context(), message, orchestrator.Callbacks{
		OnText: func(segment string) {
			out.WriteString(segment)
			out.Flush()
		},
		OnBacktrack: func(ev orchestrator.BacktrackEvent, newPrefix string) {
			if logger != nil {
				logger.Debug("backtrack", zap.String("id", ev.ID), zap.String("reason", ev.Reason))
			}
		},
		OnError: func(message string) {
			runErr = message
			close(done)
		},
		OnDone: func(fullText string) {
			out.WriteString("\n")
			out.Flush()
			close(done)
		},
	})

	<-done
	if runErr != "" {
		return fmt.Errorf("run failed: %s", runErr)
	}
	return nil
}
