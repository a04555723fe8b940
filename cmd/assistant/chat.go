package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/task-assistant/internal/assistant"
	"github.com/nhle/task-assistant/internal/keys"
	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/ui/chat"
)

var (
	chatAddress string
	chatName    string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Open a terminal chat that talks to the assistant over the console
channel. The scheduler runs alongside, so reminders and the daily digest
for the console user show up in the conversation.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatAddress, "as", defaultConsoleAddress(), "console address of the user")
	chatCmd.Flags().StringVar(&chatName, "name", "", "display name used when the user is new")
}

func defaultConsoleAddress() string {
	if u := os.Getenv("USER"); u != "" {
		return "console:" + u
	}
	return "console:local"
}

func runChat(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	rt.scheduler.Start(ctx)

	submit := func(ctx context.Context, text string) error {
		return rt.assistant.HandleMessage(ctx, assistant.Inbound{
			Channel:     model.ChannelConsole,
			From:        chatAddress,
			Text:        text,
			ProfileName: chatName,
		})
	}

	m := chat.New(submit, rt.console.Messages(), keys.DefaultKeyMap(), "Asistente de tareas · "+chatAddress)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running chat: %w", err)
	}
	return nil
}
