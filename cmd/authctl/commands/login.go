package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/authsession/cmd/authctl/cmdutil"
	"github.com/marmos91/authsession/internal/cli/prompt"
	"github.com/marmos91/authsession/pkg/session"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the API",
	Long: `Authenticate with the API and store the session on this device.

Missing values are prompted for. Passing --password puts the password in
your shell history; prefer the prompt.

Examples:
  # Interactive login
  authctl login

  # Login against a specific server
  authctl login --server http://192.168.1.20:8000 --email demo@example.com`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password")
}

func runLogin(cmd *cobra.Command, args []string) error {
	email := loginEmail
	if email == "" {
		var err error
		email, err = prompt.InputEmail("Email")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	password := loginPassword
	if password == "" {
		var err error
		password, err = prompt.Password("Password")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	ctx := cmd.Context()
	rt, err := cmdutil.Open(ctx, Version)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	if err := rt.Manager.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	printWelcome(rt.Manager.Session())
	return nil
}

func printWelcome(s session.Session) {
	if s.User == nil {
		cmdutil.PrintSuccess("Logged in")
		return
	}
	cmdutil.PrintSuccess(fmt.Sprintf("Logged in as %s (%s)", s.User.DisplayName(), s.User.Email))
}
