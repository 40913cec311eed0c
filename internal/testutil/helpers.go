// Package testutil provides builders, fixtures and assertions shared by
// slicecore tests.
package testutil

import (
	"context"
	"embed"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// WriteTempFile writes content to a file in dir and returns its path.
func WriteTempFile(t *testing.T, dir, filename, content string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err, "failed to write temp file: %s", filename)

	return path
}

// LoadFixture loads a fixture file from the embedded fixtures directory.
func LoadFixture(t *testing.T, name string) []byte {
	t.Helper()

	content, err := fixturesFS.ReadFile("fixtures/" + name)
	require.NoError(t, err, "failed to load fixture: %s", name)

	return content
}

// WriteFixture copies a fixture into a fresh temp directory and returns its path.
func WriteFixture(t *testing.T, name string) string {
	t.Helper()
	return WriteTempFile(t, t.TempDir(), name, string(LoadFixture(t, name)))
}

// RunContext returns a run context that is canceled when the test ends.
func RunContext(t *testing.T) execution.RunContext {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return execution.NewRunContext(ctx)
}
