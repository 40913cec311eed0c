package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/slicecore/internal/app"
	"github.com/felixgeelhaar/slicecore/internal/tui"
)

var validateCmd = &cobra.Command{
	Use:   "validate SCENE",
	Short: "Check a scene and configuration without slicing",
	Long: `Validate applies the configuration to the scene and reports whether it can
be printed, without generating any toolpaths.

Exit codes:
  0 - Printable (warnings may be reported)
  1 - Not printable, or the inputs could not be read

Examples:
  slicecore validate scene.yaml
  slicecore validate scene.yaml --config printer.ini --json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var validateJSON bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "output results as JSON")
}

// validationResult is the JSON output of validate.
type validationResult struct {
	Valid    bool     `json:"valid"`
	Objects  int      `json:"objects"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	in, err := app.LoadInputs(args[0], cfgFile)
	if err != nil {
		return err
	}
	session, err := app.NewSession(app.WithLogger(newLogger(cmd.ErrOrStderr())))
	if err != nil {
		return err
	}
	defer func() { _ = session.Close(context.Background()) }()

	if _, err := session.Apply(ctx, in.Model, in.Bundle); err != nil {
		return err
	}
	warnings, verr := session.Validate()

	result := validationResult{
		Valid:    verr == nil,
		Objects:  len(session.Print().Objects()),
		Warnings: warnings,
	}
	if verr != nil {
		result.Error = formatError(verr)
	}
	if validateJSON {
		if err := outputValidationJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		outputValidationText(cmd.OutOrStdout(), result)
	}
	return verr
}

func outputValidationJSON(w io.Writer, result validationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func outputValidationText(w io.Writer, result validationResult) {
	styles := tui.DefaultStyles()
	for _, id := range result.Warnings {
		fmt.Fprintln(w, styles.Warning.Render("! "+id))
	}
	if result.Valid {
		fmt.Fprintln(w, styles.Success.Render(fmt.Sprintf("✓ %d object(s) printable", result.Objects)))
		return
	}
	fmt.Fprintln(w, styles.Error.Render("✗ "+result.Error))
}
