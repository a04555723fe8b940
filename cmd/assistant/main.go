// Command assistant runs the conversational task assistant: the webhook
// and mailbox gateways with the reminder scheduler (serve), a local chat
// console (chat) and maintenance commands.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/task-assistant/internal/config"
	"github.com/nhle/task-assistant/internal/credential"
	"github.com/nhle/task-assistant/internal/logging"
)

var Version = "dev"

var (
	// Global flags
	configPath string
	verbose    bool

	cfg      *config.Config
	logger   *zap.Logger
	logLevel zap.AtomicLevel
)

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Asistente de tareas por chat",
	Long: `A Spanish conversational task assistant.

Messages such as "Recuérdame pagar la luz mañana a las 9" arrive over
WhatsApp, email or the local console; the assistant creates tasks,
lists them, completes or deletes them by position, and sends reminders
and a daily digest.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		// setup writes the secrets, so it must not require them.
		if cmd.Name() != setupCmd.Name() {
			if err := cfg.ResolveSecrets(credential.Get); err != nil {
				return err
			}
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		var outputs []string
		if cmd.Name() == chatCmd.Name() {
			// The TUI owns the terminal.
			outputs = []string{filepath.Join(filepath.Dir(configPath), "chat.log")}
			if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
		}
		logger, logLevel, err = logging.New(level, cfg.Logging.Development, outputs...)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, chatCmd, setupCmd, seedCmd, sweepCmd, remindersCmd, tasksCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
