package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/doeshing/euca-validator/assets"
	"github.com/doeshing/euca-validator/internal/domain"
	configinfra "github.com/doeshing/euca-validator/internal/infrastructure/config"
)

// NewInitCommand creates the init command. It writes the default admin
// config to the path the loader would read, so it can be edited in place.
func NewInitCommand(configFile *string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default admin configuration",
		Long: `Write the default admin configuration.

The file is written to the path given by --config-file, $EUCA_VALIDATOR_CONFIG,
or /etc/eucadmin/validator-admin.yaml, in that order. Afterwards, run
'euca-validator doctor' to verify the setup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configinfra.NewFileLoader(*configFile).Path()
			return writeDefaultConfig(cmd.OutOrStdout(), path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")

	return cmd
}

// writeDefaultConfig writes the embedded defaults to path
func writeDefaultConfig(out io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf(MsgConfigExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, assets.DefaultAdminYAML, domain.FilePermissions); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(out, MsgConfigWritten+"\n", path)
	return nil
}
