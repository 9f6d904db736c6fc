package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/authsession/cmd/authctl/cmdutil"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear stored credentials",
	Long: `Tell the server the session is over and clear the stored credentials.

The local session is cleared even when the server cannot be reached.`,
	RunE: runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := cmdutil.Open(ctx, Version)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	wasLoggedIn := rt.Manager.IsAuthenticated()
	rt.Manager.Logout(ctx)

	if !wasLoggedIn {
		cmdutil.PrintSuccess("Not logged in")
		return nil
	}
	cmdutil.PrintSuccess("Logged out")
	return nil
}
