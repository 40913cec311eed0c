package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/slicecore/internal/adapters/summary"
	"github.com/felixgeelhaar/slicecore/internal/app"
	"github.com/felixgeelhaar/slicecore/internal/domain/print"
	"github.com/felixgeelhaar/slicecore/internal/ports"
)

var watchCmd = &cobra.Command{
	Use:   "watch SCENE",
	Short: "Slice again whenever the scene or configuration changes",
	Long: `Watch slices the scene, writes the report, then polls the scene and
configuration files. After every change only the steps the change affects
run again before the report is rewritten.

Examples:
  slicecore watch scene.yaml --config printer.ini --output report.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchOutput   string
	watchInterval time.Duration
	watchDebounce time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "report.yaml", "report path")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Second, "polling interval")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before slicing again")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	scene := args[0]
	logger := newLogger(cmd.ErrOrStderr())
	session, err := app.NewSession(
		app.WithLogger(logger),
		app.WithReporter(textReporter(cmd.ErrOrStderr())),
		app.WithWorkers(workers),
	)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close(context.Background()) }()

	paths := []string{scene}
	if cfgFile != "" {
		paths = append(paths, cfgFile)
	}
	writer := summary.NewFileWriter(watchOutput)
	w := app.NewWatcher(app.WatchOptions{
		Paths:    paths,
		Interval: watchInterval,
		Debounce: watchDebounce,
		Logger:   logger,
	}, func(ctx context.Context) error {
		status, err := session.Reload(ctx, scene, cfgFile)
		if err != nil {
			return err
		}
		if status != print.ApplyUnchanged || session.State() != app.StateFinished {
			if err := session.Run(ctx); err != nil {
				return err
			}
		}
		if err := session.Export(ctx, writer); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s (%s)\n", watchOutput, status)
		return nil
	})

	logger.Info(ctx, "watching", ports.F("paths", paths))
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
