package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/slicecore/internal/app"
	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/print"
	"github.com/felixgeelhaar/slicecore/internal/ports"
	"github.com/felixgeelhaar/slicecore/internal/tui"
)

var invalidateCmd = &cobra.Command{
	Use:   "invalidate SCENE",
	Short: "Show which steps a configuration change would recompute",
	Long: `Invalidate slices the scene, then applies a changed configuration (--against)
or marks option keys as changed (--keys), and lists the steps that would run
again on the next slice.

Examples:
  slicecore invalidate scene.yaml --config printer.ini --against printer-fast.ini
  slicecore invalidate scene.yaml --keys skirt_distance,fill_angle`,
	Args: cobra.ExactArgs(1),
	RunE: runInvalidate,
}

var (
	invalidateAgainst string
	invalidateKeys    []string
)

func init() {
	rootCmd.AddCommand(invalidateCmd)

	invalidateCmd.Flags().StringVar(&invalidateAgainst, "against", "", "changed configuration to apply after slicing")
	invalidateCmd.Flags().StringSliceVar(&invalidateKeys, "keys", nil, "option keys to mark as changed")
}

func runInvalidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if invalidateAgainst == "" && len(invalidateKeys) == 0 {
		return errors.New("one of --against or --keys is required")
	}

	in, err := app.LoadInputs(args[0], cfgFile)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr())
	session, err := app.NewSession(
		app.WithLogger(logger),
		app.WithWorkers(workers),
	)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close(context.Background()) }()

	if _, err := session.Apply(ctx, in.Model, in.Bundle); err != nil {
		return err
	}
	if err := session.Run(ctx); err != nil {
		return err
	}

	if invalidateAgainst != "" {
		changed, err := config.Load(invalidateAgainst)
		if err != nil {
			return err
		}
		if err := changed.Validate(); err != nil {
			return fmt.Errorf("invalid configuration %s: %w", invalidateAgainst, err)
		}
		status, err := session.Apply(ctx, in.Model, changed)
		if err != nil {
			return err
		}
		logger.Info(ctx, "configuration applied", ports.F("status", status.String()))
	}
	if len(invalidateKeys) > 0 {
		if _, err := session.InvalidateKeys(ctx, invalidateKeys); err != nil {
			return err
		}
	}

	writeStepTable(cmd.OutOrStdout(), session.Print())
	return nil
}

// writeStepTable lists every step with whether it still holds valid results.
// The export step is left out since invalidate never exports.
func writeStepTable(w io.Writer, p *print.Print) {
	styles := tui.DefaultStyles()
	line := func(done bool, label string) {
		if done {
			fmt.Fprintf(w, "  %s %s\n", styles.Success.Render("✓"), label)
			return
		}
		fmt.Fprintf(w, "  %s %s\n", styles.Warning.Render("↻"), label)
	}

	fmt.Fprintln(w, styles.Subtitle.Render("Object steps"))
	for _, s := range print.ObjectSteps() {
		line(p.IsObjectStepDone(s), s.Label())
	}
	fmt.Fprintln(w, styles.Subtitle.Render("Print steps"))
	for _, s := range print.PrintSteps() {
		if s == print.StepGCodeExport {
			continue
		}
		line(p.IsStepDone(s), s.Label())
	}
}
