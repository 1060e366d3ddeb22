package cli

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/sakhi-go/internal/chat"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	Long: `Open the interactive chat.

With a stored session you talk to the real assistant and conversations are
saved server-side. Without one you chat anonymously: nothing leaves your
terminal and replies are canned introductions.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	deck, err := chat.LoadDeck(cfg.RepliesFile)
	if err != nil {
		return fmt.Errorf("load replies: %w", err)
	}

	core := chat.NewCore(apiClient, deck, logger)
	core.SetTypingDelay(cfg.TypingDelayMin, cfg.TypingDelayMax)

	authed := authCtl.Restore(ctx)
	if authed {
		if err := core.SetAuthenticated(ctx, true); err != nil {
			return fmt.Errorf("load chat history: %w", err)
		}
	}

	return runChatUI(core, authed)
}
