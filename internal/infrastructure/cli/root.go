package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/euca-validator/internal/app"
	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(opts Options) *cobra.Command {
	appOpts := &app.Options{Verbose: opts.Verbose}
	factory := app.NewFactory(appOpts)

	var (
		component string
		traverse  bool
		jsonOut   bool
		quiet     bool
		debug     bool
		timeout   time.Duration
		parallel  int
	)

	root := &cobra.Command{
		Use:   "euca-validator [stage]",
		Short: "Eucalyptus cloud validator",
		Long: "Runs the diagnostic scripts configured for a component and lifecycle stage, " +
			"optionally traversing the other components of the cloud, and reports every failing check.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage := domain.DefaultStage
			if len(args) == 1 {
				stage = args[0]
			}
			if debug {
				appOpts.Verbose = true
			}
			opts := commands.ValidateOptions{
				Stage:     stage,
				Component: component,
				Traverse:  traverse,
				JSON:      jsonOut,
				Quiet:     quiet,
				Timeout:   timeout,
				Parallel:  parallel,
			}
			if traverse && !jsonOut && !quiet && stderrIsTerminal() {
				opts.Progress = NewSpinner(cmd.ErrOrStderr(), "validating "+component+" and its peers")
			}
			return commands.RunValidation(cmd.Context(), cmd.OutOrStdout(), factory, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&appOpts.ConfigFile, "config-file", "c", "", "The path to the validator admin config")
	root.Flags().StringVarP(&component, "component", "C", string(domain.RoleCLC), "The cloud component role of this system")
	root.Flags().BoolVarP(&traverse, "traverse", "t", false, "Traverse other components in the cloud (requires ssh credentials)")
	root.Flags().BoolVarP(&jsonOut, "json", "j", false, "Output JSON-formatted results")
	root.Flags().BoolVarP(&quiet, "quiet", "q", false, "No output; only a return code")
	root.Flags().BoolVar(&debug, "debug", false, "Enable verbose logging")
	root.Flags().DurationVar(&timeout, "timeout", 0, "Abort the whole run after this long (0 disables)")
	root.Flags().IntVar(&parallel, "parallel", 0, "Peers validated concurrently (0 uses the config value)")

	root.AddCommand(commands.NewHistoryCommand(factory))
	root.AddCommand(commands.NewDoctorCommand(factory))
	root.AddCommand(commands.NewConfigCommand(factory))
	root.AddCommand(commands.NewInitCommand(&appOpts.ConfigFile))
	root.AddCommand(commands.NewVersionCommand())
	return root
}
