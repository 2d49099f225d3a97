package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/doeshing/euca-validator/internal/app"
	configapp "github.com/doeshing/euca-validator/internal/application/config"
	"github.com/doeshing/euca-validator/internal/domain"
)

// Indicator shows progress while checks run.
type Indicator interface {
	Start()
	Stop()
}

// ValidateOptions carries the root command flags.
type ValidateOptions struct {
	Stage     string
	Component string
	Traverse  bool
	JSON      bool
	Quiet     bool
	Timeout   time.Duration
	Parallel  int
	// Progress is started before the checks and stopped before any output.
	Progress Indicator
}

// RunValidation builds the container, runs one validation and renders it.
// A failing verdict is reported as domain.ErrChecksFailed, except in JSON
// mode where the tree itself is the answer.
func RunValidation(ctx context.Context, out io.Writer, factory app.Factory, opts ValidateOptions) error {
	container, err := factory(ctx)
	if err != nil {
		return err
	}
	defer container.Close()
	return runValidation(ctx, out, container, opts)
}

func runValidation(ctx context.Context, out io.Writer, container *app.Container, opts ValidateOptions) error {
	if container.Validator == nil {
		return errors.New(ErrValidatorUnavailable)
	}
	if err := configapp.Validate(container.Config); err != nil {
		return fmt.Errorf("invalid admin config: %w", err)
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if opts.Parallel > 0 && container.Validator.Fanout != nil {
		container.Validator.Fanout.Parallelism = opts.Parallel
	}

	if opts.Progress != nil {
		opts.Progress.Start()
	}
	report, err := container.Validator.Check(ctx, domain.ValidationRequest{
		Stage:    opts.Stage,
		Role:     domain.Role(opts.Component),
		Traverse: opts.Traverse,
		Record:   !opts.JSON,
	})
	if opts.Progress != nil {
		opts.Progress.Stop()
	}
	if err != nil {
		return err
	}

	switch {
	case opts.JSON:
		return displayJSON(out, report.Result)
	case opts.Quiet:
	default:
		displayFailures(out, report.Verdict.Lines)
	}

	if report.Verdict.Failed {
		return domain.ErrChecksFailed
	}
	return nil
}

// displayJSON prints the whole result tree.
func displayJSON(out io.Writer, result *domain.Group) error {
	raw, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(out, string(raw))
	return err
}

// displayFailures prints one line per failing check.
func displayFailures(out io.Writer, lines []string) {
	red := color.New(color.FgRed)
	for _, line := range lines {
		red.Fprintln(out, line)
	}
}
