package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/euca-validator/internal/app"
	configapp "github.com/doeshing/euca-validator/internal/application/config"
	"github.com/doeshing/euca-validator/internal/application/validator"
	"github.com/doeshing/euca-validator/internal/domain"
	configinfra "github.com/doeshing/euca-validator/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(factory app.Factory) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect validator configuration",
		RunE: withContainer(factory, func(cmd *cobra.Command, args []string, container *app.Container) error {
			return showConfiguration(cmd.OutOrStdout(), container.Config)
		}),
	}

	configCmd.AddCommand(
		newConfigShowCommand(factory),
		newConfigGetCommand(factory),
		newConfigValidateCommand(factory),
		newConfigDiffCommand(factory),
		newConfigScriptsCommand(factory),
	)

	return configCmd
}

// newConfigShowCommand creates the 'config show' subcommand
func newConfigShowCommand(factory app.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective admin configuration",
		RunE: withContainer(factory, func(cmd *cobra.Command, args []string, container *app.Container) error {
			return showConfiguration(cmd.OutOrStdout(), container.Config)
		}),
	}
}

// newConfigGetCommand creates the 'config get' subcommand
func newConfigGetCommand(factory app.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a specific configuration value (e.g. remote.user)",
		Args:  cobra.ExactArgs(1),
		RunE: withContainer(factory, func(cmd *cobra.Command, args []string, container *app.Container) error {
			return getConfigurationValue(cmd.OutOrStdout(), container.Config, args[0])
		}),
	}
}

// newConfigValidateCommand creates the 'config validate' subcommand
func newConfigValidateCommand(factory app.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the admin config and parse every validator document",
		RunE: withContainer(factory, func(cmd *cobra.Command, args []string, container *app.Container) error {
			return validateConfiguration(cmd.Context(), cmd.OutOrStdout(), container)
		}),
	}
}

// newConfigDiffCommand creates the 'config diff' subcommand
func newConfigDiffCommand(factory app.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show diff versus default configuration",
		RunE: withContainer(factory, func(cmd *cobra.Command, args []string, container *app.Container) error {
			return showConfigurationDiff(cmd.OutOrStdout(), container.Config)
		}),
	}
}

// newConfigScriptsCommand creates the 'config scripts' subcommand
func newConfigScriptsCommand(factory app.Factory) *cobra.Command {
	var component string

	cmd := &cobra.Command{
		Use:   "scripts [stage]",
		Short: "List the scripts a stage runs and where they resolve",
		Args:  cobra.MaximumNArgs(1),
		RunE: withContainer(factory, func(cmd *cobra.Command, args []string, container *app.Container) error {
			stage := domain.DefaultStage
			if len(args) == 1 {
				stage = args[0]
			}
			return listScripts(cmd.Context(), cmd.OutOrStdout(), container, stage, domain.Role(component))
		}),
	}

	cmd.Flags().StringVarP(&component, "component", "C", string(domain.RoleCLC), "The cloud component role of this system")
	return cmd
}

// showConfiguration displays the full configuration in YAML format
func showConfiguration(out io.Writer, cfg domain.AdminConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	fmt.Fprint(out, string(data))
	return nil
}

// getConfigurationValue retrieves a specific configuration value by key path
func getConfigurationValue(out io.Writer, cfg domain.AdminConfig, keyPath string) error {
	generic, err := convertConfigToMap(cfg)
	if err != nil {
		return err
	}

	value, found := generic.Lookup(strings.Split(keyPath, ".")...)
	if !found {
		return fmt.Errorf("key %s not found in configuration", keyPath)
	}

	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	fmt.Fprint(out, string(data))
	return nil
}

// validateConfiguration checks the admin settings and merges the validator
// documents so parse errors surface before a run
func validateConfiguration(ctx context.Context, out io.Writer, container *app.Container) error {
	if err := configapp.Validate(container.Config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if container.Validator == nil || container.Validator.Merger == nil {
		return errors.New(ErrValidatorUnavailable)
	}
	if _, err := container.Validator.Merger.Merge(ctx, container.Config.ConfigPaths()); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	fmt.Fprintln(out, MsgConfigurationValid)
	return nil
}

// showConfigurationDiff shows the difference between current and default configuration
func showConfigurationDiff(out io.Writer, current domain.AdminConfig) error {
	defaults, err := configinfra.Defaults()
	if err != nil {
		return fmt.Errorf("failed to load default configuration: %w", err)
	}

	diff := cmp.Diff(defaults, current)
	if diff == "" {
		fmt.Fprintln(out, MsgNoDifferencesFromDefault)
		return nil
	}

	fmt.Fprintln(out, diff)
	return nil
}

// listScripts prints each configured script with its resolved path
func listScripts(ctx context.Context, out io.Writer, container *app.Container, stage string, role domain.Role) error {
	if container.Validator == nil || container.Validator.Merger == nil {
		return errors.New(ErrValidatorUnavailable)
	}
	merged, err := container.Validator.Merger.Merge(ctx, container.Config.ConfigPaths())
	if err != nil {
		return err
	}

	catalog := validator.NewCatalog(container.Config.ScriptPaths())
	names := catalog.Scripts(merged, stage, role)
	if len(names) == 0 {
		fmt.Fprintf(out, "No scripts configured for %s/%s.\n", stage, role)
		return nil
	}
	for _, name := range names {
		path, found := catalog.Resolve(name)
		if !found {
			path = "(missing)"
		}
		fmt.Fprintf(out, "%s\t%s\n", name, path)
	}
	return nil
}

// withContainer builds the container for a subcommand and closes it after
func withContainer(factory app.Factory, run func(*cobra.Command, []string, *app.Container) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		container, err := factory(cmd.Context())
		if err != nil {
			return err
		}
		defer container.Close()
		return run(cmd, args, container)
	}
}

// convertConfigToMap converts the admin config to a generic map for traversal
func convertConfigToMap(cfg domain.AdminConfig) (domain.MergedConfig, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	var generic map[string]interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to generic map: %w", err)
	}
	return domain.MergedConfig(generic), nil
}
