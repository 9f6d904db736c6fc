package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/authsession/cmd/authctl/cmdutil"
	"github.com/marmos91/authsession/internal/cli/prompt"
)

var forgotEmail string

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Request a password reset email",
	RunE:  runForgotPassword,
}

func init() {
	forgotPasswordCmd.Flags().StringVarP(&forgotEmail, "email", "e", "", "Account email")
}

func runForgotPassword(cmd *cobra.Command, args []string) error {
	email := forgotEmail
	if email == "" {
		var err error
		email, err = prompt.InputEmail("Email")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	} else if err := prompt.ValidateEmail(email); err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := cmdutil.Open(ctx, Version)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	if err := rt.Manager.ForgotPassword(ctx, email); err != nil {
		return fmt.Errorf("password reset request failed: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("If an account exists for %s, a reset link is on its way", email))
	return nil
}
