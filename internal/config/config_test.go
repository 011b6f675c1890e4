package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	c := Default()
	require.Equal(t, uint32(10_000_000), c.MaxBlocks)
	require.Equal(t, ".", c.OutputDir)
}

func TestEnvOrDefaultReturnsEnvWhenSet(t *testing.T) {
	t.Setenv("BLOCKCHAIN21_TEST_VAR", "custom")
	require.Equal(t, "custom", EnvOrDefault("BLOCKCHAIN21_TEST_VAR", "fallback"))
}

func TestEnvOrDefaultReturnsDefaultWhenUnset(t *testing.T) {
	require.NoError(t, os.Unsetenv("BLOCKCHAIN21_TEST_VAR_UNSET"))
	require.Equal(t, "fallback", EnvOrDefault("BLOCKCHAIN21_TEST_VAR_UNSET", "fallback"))
}

func TestEnvOrDefaultTreatsEmptyAsUnset(t *testing.T) {
	t.Setenv("BLOCKCHAIN21_TEST_VAR_EMPTY", "")
	require.Equal(t, "fallback", EnvOrDefault("BLOCKCHAIN21_TEST_VAR_EMPTY", "fallback"))
}
