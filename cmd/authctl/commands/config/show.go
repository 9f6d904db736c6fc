package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/authsession/cmd/authctl/cmdutil"
	"github.com/marmos91/authsession/internal/cli/output"
)

var (
	showOutput  string
	showSecrets bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective configuration: file values, environment
overrides and defaults combined.

By default outputs YAML format. Use --format to change format.
Secrets are masked unless --show-secrets is given.

Examples:
  # Show the effective config as YAML
  authctl config show

  # Show as JSON
  authctl config show --format json

  # Show a specific config file
  authctl config show --config ./authsession.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVar(&showOutput, "format", "yaml", "Output format (yaml|json)")
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print secrets instead of masking them")
}

func redact(s *string) {
	if *s != "" {
		*s = "********"
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	if !showSecrets {
		redact(&cfg.DevServer.JWT.Secret)
		redact(&cfg.Credentials.Postgres.Password)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	default:
		return output.PrintYAML(cmd.OutOrStdout(), cfg)
	}
}
