package main

import (
	"bytes"
	"context"
	"testing"
	"time"
)

// resetFlags restores every flag variable to its default.
func resetFlags() {
	cfgFile, verbose, jsonLog, workers = "", false, false, 0
	sliceOutput, sliceNoProgress, sliceStrict = "-", false, false
	validateJSON = false
	invalidateAgainst, invalidateKeys = "", nil
	watchOutput, watchInterval, watchDebounce = "report.yaml", time.Second, 500*time.Millisecond
}

// executeCommand runs the root command with args and returns its output.
// Commands share global flag state, so callers must not run in parallel.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	return executeCommandContext(t, context.Background(), args...)
}

// executeCommandContext is executeCommand with a caller-controlled context.
func executeCommandContext(t *testing.T, ctx context.Context, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags()
	})

	err = rootCmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}
