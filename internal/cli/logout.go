package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		authCtl.Logout()
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the currently logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !authCtl.Restore(context.Background()) {
			fmt.Println("Not logged in.")
			return nil
		}
		user, _ := authCtl.User()
		fmt.Printf("%s (%s)\n", user.Username, user.Email)
		if !user.IsVerified {
			fmt.Println("Email not verified yet.")
		}
		return nil
	},
}
