package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your chat sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if !authCtl.Restore(ctx) {
			return fmt.Errorf("not logged in; run 'sakhi login' first")
		}

		sessions, err := apiClient.ListSessions(ctx)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No saved sessions yet. Start one with 'sakhi chat'.")
			return nil
		}

		for _, s := range sessions {
			fmt.Printf("%6d  %-40s  %s\n", s.ID, s.Title, s.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a chat session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id %q", args[0])
		}

		ctx := context.Background()
		if !authCtl.Restore(ctx) {
			return fmt.Errorf("not logged in; run 'sakhi login' first")
		}

		if err := apiClient.DeleteSession(ctx, id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		fmt.Printf("Deleted session %d.\n", id)
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
