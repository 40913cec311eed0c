package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/slicecore/internal/adapters/summary"
	"github.com/felixgeelhaar/slicecore/internal/app"
	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/ports"
	"github.com/felixgeelhaar/slicecore/internal/tui"
)

var sliceCmd = &cobra.Command{
	Use:   "slice SCENE",
	Short: "Slice a scene and write its report",
	Long: `Slice processes every object of a scene with the printer configuration and
writes a YAML report of the result: layer counts, skirt and brim loops,
wipe tower, extruded volume per role and any conflicts found.

Interactive terminals show a progress display; press Ctrl+C to cancel.

Examples:
  slicecore slice scene.yaml
  slicecore slice scene.yaml --config printer.ini --output report.yaml
  slicecore slice scene.toml --no-progress --strict`,
	Args: cobra.ExactArgs(1),
	RunE: runSlice,
}

var (
	sliceOutput     string
	sliceNoProgress bool
	sliceStrict     bool
)

func init() {
	rootCmd.AddCommand(sliceCmd)

	sliceCmd.Flags().StringVarP(&sliceOutput, "output", "o", "-", "report path (- for stdout)")
	sliceCmd.Flags().BoolVar(&sliceNoProgress, "no-progress", false, "disable the progress display")
	sliceCmd.Flags().BoolVar(&sliceStrict, "strict", false, "treat validation warnings as errors")
}

func runSlice(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stderr := cmd.ErrOrStderr()

	in, err := app.LoadInputs(args[0], cfgFile)
	if err != nil {
		return err
	}

	interactive := !sliceNoProgress && isTerminal(cmd.OutOrStdout()) && sliceOutput != "-"
	programReporter := tui.NewProgramReporter()
	var reporter ports.StatusReporter = textReporter(stderr)
	if interactive {
		reporter = programReporter
	}

	session, err := app.NewSession(
		app.WithLogger(newLogger(stderr)),
		app.WithReporter(reporter),
		app.WithWorkers(workers),
	)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close(context.Background()) }()

	if _, err := session.Apply(ctx, in.Model, in.Bundle); err != nil {
		return err
	}
	warnings, err := session.Validate()
	printWarnings(stderr, warnings)
	if err != nil {
		return err
	}
	if sliceStrict && len(warnings) > 0 {
		return fmt.Errorf("validation produced %d warning(s)", len(warnings))
	}

	if interactive {
		opts := tui.NewProgressOptions().WithTitle("Slicing " + filepath.Base(args[0]))
		_, err = tui.RunProgress(ctx, programReporter, func(ctx context.Context) ([]execution.StepResult, error) {
			err := session.Run(ctx)
			return session.Results(), err
		}, opts)
	} else {
		err = session.Run(ctx)
	}
	if err != nil {
		return err
	}

	w := summary.NewStreamWriter(cmd.OutOrStdout())
	if sliceOutput != "" && sliceOutput != "-" {
		w = summary.NewFileWriter(sliceOutput)
	}
	if err := session.Export(ctx, w); err != nil {
		return err
	}
	if w.Path != "" {
		fmt.Fprintf(stderr, "Report written to %s\n", w.Path)
	}
	return nil
}

// textReporter prints print warnings as they appear and, with --verbose,
// every progress update.
func textReporter(w io.Writer) ports.StatusReporter {
	styles := tui.DefaultStyles()
	return ports.StatusFunc(func(_ context.Context, s ports.Status) {
		switch {
		case s.Warning:
			fmt.Fprintln(w, styles.Warning.Render("warning: "+s.Message))
		case verbose && s.Percent >= 0:
			fmt.Fprintf(w, "[%3d%%] %s\n", s.Percent, s.Step)
		}
	})
}

func printWarnings(w io.Writer, warnings []string) {
	styles := tui.DefaultStyles()
	for _, id := range warnings {
		fmt.Fprintln(w, styles.Warning.Render("warning: "+id))
	}
}
