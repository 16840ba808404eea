package testutil

import (
	"os"
	"testing"
)

// FindEnvOrSkip returns the value of `variable` or skips the test when it is
// not set, for tests that need credentials or network access.
func FindEnvOrSkip(t testing.TB, variable string) string {
	t.Helper()
	res, ok := os.LookupEnv(variable)
	if !ok || res == "" {
		t.Skipf("env var '%s' must be set to run this test", variable)
	}
	return res
}
