package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/euca-validator/internal/app"
	"github.com/doeshing/euca-validator/internal/application/doctor"
	"github.com/doeshing/euca-validator/internal/domain"
)

// NewDoctorCommand creates the doctor command
func NewDoctorCommand(factory app.Factory) *cobra.Command {
	var (
		component string
		stage     string
		network   bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose validator setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()
			return runDoctorDiagnostics(cmd.Context(), cmd.OutOrStdout(), container, doctor.Request{
				Stage:   stage,
				Role:    domain.Role(component),
				Network: network,
			})
		},
	}

	cmd.Flags().StringVarP(&component, "component", "C", string(domain.RoleCLC), "The cloud component role of this system")
	cmd.Flags().StringVar(&stage, "stage", domain.DefaultStage, "Stage whose scripts are checked")
	cmd.Flags().BoolVar(&network, "network", false, "Also query service discovery or the node list")
	return cmd
}

// runDoctorDiagnostics runs setup diagnostics
func runDoctorDiagnostics(ctx context.Context, out io.Writer, container *app.Container, req doctor.Request) error {
	if container.Doctor == nil {
		return errors.New(ErrDoctorUnavailable)
	}

	report, err := container.Doctor.Run(ctx, req)

	// Display report even if there were errors
	displayDoctorReport(out, report)

	if err != nil {
		return fmt.Errorf("diagnostics completed with errors: %w", err)
	}
	if report.HasErrors() {
		return domain.ErrChecksFailed
	}
	return nil
}

// displayDoctorReport displays the health check report
func displayDoctorReport(out io.Writer, report domain.HealthReport) {
	for _, check := range report.Checks {
		fmt.Fprintf(out, "[%s] %s - %s\n",
			strings.ToUpper(string(check.Status)),
			check.Name,
			check.Details)
	}
}
