package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/authsession/cmd/authctl/cmdutil"
	"github.com/marmos91/authsession/internal/devserver"
	"github.com/marmos91/authsession/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample authsession configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/authsession/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  authctl config init

  # Initialize with custom path
  authctl config init --config ./authsession.yaml

  # Force overwrite existing config
  authctl config init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := cmdutil.Flags.ConfigFile

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(w, "\nNext steps:")
	_, _ = fmt.Fprintln(w, "  1. Point api.base_url at your API server")
	_, _ = fmt.Fprintln(w, "  2. Or start the bundled server with: authctl dev-server")
	_, _ = fmt.Fprintln(w, "  3. Log in with: authctl login (demo@example.com / demo-password on the dev server)")
	_, _ = fmt.Fprintln(w, "\nSecurity note:")
	_, _ = fmt.Fprintln(w, "  A random JWT secret has been generated for the dev server.")
	_, _ = fmt.Fprintln(w, "  To keep it out of the file, use an environment variable instead:")
	_, _ = fmt.Fprintf(w, "    export %s=$(openssl rand -hex 32)\n", devserver.EnvJWTSecret)

	return nil
}
