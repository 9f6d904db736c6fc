package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/authsession/cmd/authctl/cmdutil"
	"github.com/marmos91/authsession/internal/cli/health"
	"github.com/marmos91/authsession/internal/cli/output"
	"github.com/marmos91/authsession/internal/cli/timeutil"
	"github.com/marmos91/authsession/pkg/apiclient"
	"github.com/marmos91/authsession/pkg/credentials"
)

var statusProfile bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the server and session status",
	Long: `Show whether the API server is reachable and who is logged in.

Examples:
  # Show status
  authctl status

  # Re-fetch the profile from the server first
  authctl status --profile

  # As JSON
  authctl status -o json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusProfile, "profile", false, "Re-fetch the user profile from the server")
}

// StatusInfo is the status command's result.
type StatusInfo struct {
	Server        string            `json:"server" yaml:"server"`
	Reachable     bool              `json:"reachable" yaml:"reachable"`
	Healthy       bool              `json:"healthy" yaml:"healthy"`
	Backend       string            `json:"credential_backend" yaml:"credential_backend"`
	Authenticated bool              `json:"authenticated" yaml:"authenticated"`
	User          *credentials.User `json:"user,omitempty" yaml:"user,omitempty"`
	TokenExpires  *time.Time        `json:"access_token_expires,omitempty" yaml:"access_token_expires,omitempty"`
	Error         string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// Headers implements output.TableRenderer.
func (s StatusInfo) Headers() []string { return []string{"FIELD", "VALUE"} }

// Rows implements output.TableRenderer.
func (s StatusInfo) Rows() [][]string {
	rows := [][]string{
		{"Server", s.Server},
		{"Reachable", cmdutil.BoolToYesNo(s.Reachable)},
		{"Healthy", cmdutil.BoolToYesNo(s.Healthy)},
		{"Credential backend", s.Backend},
		{"Logged in", cmdutil.BoolToYesNo(s.Authenticated)},
	}
	if s.User != nil {
		rows = append(rows,
			[]string{"User", s.User.DisplayName()},
			[]string{"Email", s.User.Email},
			[]string{"Account type", cmdutil.EmptyOr(string(s.User.CustomerType), "-")},
			[]string{"Company", cmdutil.EmptyOr(s.User.CompanyName, "-")},
		)
	}
	if s.Authenticated {
		exp := "-"
		if s.TokenExpires != nil {
			exp = timeutil.FormatExpiry(*s.TokenExpires, time.Now())
		}
		rows = append(rows, []string{"Access token", exp})
	}
	if s.Error != "" {
		rows = append(rows, []string{"Error", s.Error})
	}
	return rows
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := cmdutil.Open(ctx, Version)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	info := StatusInfo{
		Server:  rt.Client.BaseURL(),
		Backend: rt.Config.Credentials.Backend,
	}

	hr, err := probeHealth(ctx, rt.Client)
	if err != nil {
		info.Error = err.Error()
	}
	info.Reachable = err == nil || apiclient.KindOf(err) != apiclient.KindConnectivity
	info.Healthy = err == nil && hr.Healthy()

	if statusProfile && rt.Manager.IsAuthenticated() && info.Reachable {
		if _, err := rt.Manager.RefreshProfile(ctx); err != nil {
			info.Error = cmdutil.FriendlyError(err).Error()
		}
	}

	s := rt.Manager.Session()
	info.Authenticated = s.IsAuthenticated
	info.User = s.User
	if s.AccessToken != "" {
		if exp, err := cmdutil.TokenExpiry(s.AccessToken); err == nil && !exp.IsZero() {
			info.TokenExpires = &exp
		}
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		pairs := make([][2]string, 0, len(info.Rows()))
		for _, row := range info.Rows() {
			pairs = append(pairs, [2]string{row[0], row[1]})
		}
		return output.KeyValueTable(cmd.OutOrStdout(), pairs)
	}
	return cmdutil.PrintResource(cmd.OutOrStdout(), info, info)
}

func probeHealth(ctx context.Context, client *apiclient.Client) (health.Response, error) {
	var hr health.Response
	err := client.Execute(ctx, "/health", &apiclient.RequestOptions{Public: true}, &hr)
	return hr, err
}
