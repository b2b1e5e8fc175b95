// Command ravel drives the cognitive backtracking orchestrator from a
// terminal: either interactively (ravel chat) or for one non-interactive
// turn (ravel run). Either command can replay a script of responses
// instead of calling a provider (--script).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ravel/internal/config"
	"ravel/internal/logging"
)

var (
	configPath string
	verbose    bool
	provider   string

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ravel",
	Short: "A streaming LLM orchestrator that honours inline checkpoint/backtrack markers",
	Long: `ravel drives a model's streaming generation while watching for two
inline control markers: <<checkpoint:ID>> and <<backtrack:ID|reason>>.
Checkpoints and backtracks are stripped from what the user sees; a
backtrack cancels the active generation, rewinds to a named checkpoint,
and resumes with the model's own stated reason folded into its prompt.

Run without a subcommand to start the interactive chat.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if provider != "" {
			cfg.Provider = provider
		}

		logger, err = logging.New(verbose || cfg.Logging.Debug)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "ravel.yaml", "Path to the ravel config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "Override the configured provider (anthropic, gemini, scripted)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
