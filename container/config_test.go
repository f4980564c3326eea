package container

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"fiberkernel/service"
)

func TestLoadRuntimeConfigAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := LoadRuntimeConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultOpBudget, cfg.OpBudget)
	require.Equal(t, "Open", cfg.DefaultMode)
	require.False(t, cfg.TraceEnabled)
}

func TestParseReentrancyModeUnknownFallsBackToOpen(t *testing.T) {
	require.Equal(t, service.Exclusive, ParseReentrancyMode("exclusive"))
	require.Equal(t, service.Open, ParseReentrancyMode("bogus"))
}

func TestParseLogLevelUnknownFallsBackToInfo(t *testing.T) {
	require.Equal(t, zerolog.WarnLevel, ParseLogLevel("warn"))
	require.Equal(t, zerolog.InfoLevel, ParseLogLevel("bogus"))
}

func TestSaveRuntimeConfigThenLoadRoundTrips(t *testing.T) {
	rc := DefaultRuntimeConfig()
	rc.OpBudget = 4242
	rc.DefaultMode = "Exclusive"

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveRuntimeConfig(rc, path))

	loaded, err := LoadRuntimeConfig(path)
	require.NoError(t, err)
	require.Equal(t, 4242, loaded.OpBudget)
	require.Equal(t, "Exclusive", loaded.DefaultMode)
}

func TestRuntimeConfigToConfigWiresLogAndTracer(t *testing.T) {
	rc := DefaultRuntimeConfig()
	rc.TraceEnabled = true
	cfg := rc.ToConfig(nil)
	require.NotNil(t, cfg.Log)
	require.NotNil(t, cfg.Trace)
	require.Equal(t, DefaultOpBudget, cfg.OpBudget)
}
