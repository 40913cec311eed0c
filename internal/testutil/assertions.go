package testutil

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// AssertFileContains asserts that a file contains the expected substring.
func AssertFileContains(t testing.TB, path, expected string, msgAndArgs ...interface{}) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)

	assert.Contains(t, string(content), expected, msgAndArgs...)
}

// AssertYAMLEquals asserts that two YAML documents are semantically equal.
func AssertYAMLEquals(t testing.TB, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedDoc, actualDoc interface{}

	err := yaml.Unmarshal([]byte(expected), &expectedDoc)
	require.NoError(t, err, "failed to parse expected YAML")

	err = yaml.Unmarshal([]byte(actual), &actualDoc)
	require.NoError(t, err, "failed to parse actual YAML")

	assert.Equal(t, expectedDoc, actualDoc, msgAndArgs...)
}

// AssertNoDiff fails with a readable diff when want and got differ.
func AssertNoDiff(t testing.TB, want, got interface{}, opts ...cmp.Option) {
	t.Helper()

	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
