package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	registerEmail    string
	registerUsername string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Long: `Create a new account. On success you are logged in immediately with the
same credentials.

Passwords need at least 8 characters with upper/lower case, a digit, and a
special character; the server rejects anything weaker.`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVarP(&registerEmail, "email", "e", "", "account email")
	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "display name")
}

func runRegister(cmd *cobra.Command, args []string) error {
	email := registerEmail
	if email == "" {
		var err error
		email, err = promptLine("Email: ")
		if err != nil {
			return err
		}
	}

	username := registerUsername
	if username == "" {
		var err error
		username, err = promptLine("Username: ")
		if err != nil {
			return err
		}
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	if err := authCtl.Register(context.Background(), email, username, password); err != nil {
		return err
	}

	user, _ := authCtl.User()
	fmt.Printf("Welcome, %s! Your account is ready and you are logged in.\n", user.Username)
	return nil
}
