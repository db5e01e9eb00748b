package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFramework(t *testing.T) {
	tests := []struct {
		in   string
		want Framework
	}{
		{"", Commercial},
		{"commercial", Commercial},
		{"moderate", FedRAMPModerate},
		{"FedRAMP-Moderate", FedRAMPModerate},
		{"high", FedRAMPHigh},
		{" fedramp-high ", FedRAMPHigh},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFramework(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFramework("gov-cloud")
	assert.ErrorContains(t, err, "unknown compliance framework")
}

func TestFramework_LevelEscalates(t *testing.T) {
	assert.Less(t, Commercial.Level(), FedRAMPModerate.Level())
	assert.Less(t, FedRAMPModerate.Level(), FedRAMPHigh.Level())
	assert.False(t, Commercial.IsFedRAMP())
	assert.True(t, FedRAMPHigh.IsFedRAMP())
}

const platformYAML = `
environment: dev
region: us-east-1
account: "123456789012"
services:
  - tagging
defaults:
  storage:
    versioned: true
    lifecycle:
      expire_days: 90
environments:
  prod:
    storage:
      lifecycle:
        expire_days: 365
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "platform.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, platformYAML))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "123456789012", cfg.Account)
	assert.Equal(t, []string{"tagging"}, cfg.Services)

	defaults := cfg.PlatformDefaults("storage")
	require.NotNil(t, defaults)
	assert.Equal(t, true, defaults["versioned"])

	prod := cfg.EnvironmentOverrides("prod", "storage")
	require.NotNil(t, prod)
	lifecycle, ok := prod["lifecycle"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 365, lifecycle["expire_days"])

	assert.Nil(t, cfg.EnvironmentOverrides("dev", "storage"))
	assert.Nil(t, cfg.PlatformDefaults("queue"))
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("SHINOBI_REGION", "us-gov-west-1")
	cfg, err := LoadConfig(writeConfig(t, platformYAML))
	require.NoError(t, err)
	assert.Equal(t, "us-gov-west-1", cfg.Region)
}

func TestLoadConfig_MissingExplicitPath(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_MissingDefaultFileIsEmpty(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServices, cfg.Services)
	assert.Empty(t, cfg.Defaults)
}

func TestLoadConfig_EmptyServicesDisables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "platform.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services: []\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Services)
	assert.Empty(t, cfg.Services)
}

func TestDefaultServices_ObservabilityBeforeTagging(t *testing.T) {
	assert.Equal(t, []string{"observability", "tagging"}, DefaultServices)
}

func TestConfig_NilSafe(t *testing.T) {
	var cfg *Config
	assert.Nil(t, cfg.PlatformDefaults("storage"))
	assert.Nil(t, cfg.EnvironmentOverrides("prod", "storage"))
}
