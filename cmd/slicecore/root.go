package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/slicecore/internal/adapters/logging"
	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/print"
	"github.com/felixgeelhaar/slicecore/internal/ports"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	jsonLog bool
	workers int
)

var rootCmd = &cobra.Command{
	Use:   "slicecore",
	Short: "Slice 3D models into layered toolpaths",
	Long: `Slicecore turns a scene of placed objects and a printer configuration into
per-layer extrusion paths, skirt and brim, and an optional wipe tower:
  Slice → Perimeters → Infill → Support → Wipe tower → Skirt/Brim → Checks`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "printer configuration (.ini, .yaml or .toml; default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "write logs as JSON")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "worker count for per-object stages (0: one per CPU)")

	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"ini", "yaml", "yml", "toml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	rootCmd.AddCommand(versionCmd)
}

// newLogger creates the logger selected by the global flags.
func newLogger(w io.Writer) ports.Logger {
	level := ports.LevelWarn
	if verbose {
		level = ports.LevelDebug
	}
	return logging.NewConsoleLogger(
		logging.WithOutput(w),
		logging.WithLevel(level),
		logging.WithJSONFormat(jsonLog),
	)
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var printErr *print.Error
	if errors.As(err, &printErr) {
		if verbose {
			return printErr.Format()
		}
		msg := printErr.Message
		if printErr.Object != "" {
			msg += fmt.Sprintf(" (object %s)", printErr.Object)
		}
		if printErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", printErr.Suggestion)
		}
		return msg
	}

	var userErr *config.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
