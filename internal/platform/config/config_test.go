package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTracker_Defaults(t *testing.T) {
	cfg, err := LoadTracker()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.TickInterval)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 600*time.Second, cfg.RepositoryTTL)
	assert.Equal(t, 24*time.Hour, cfg.StaleAfter)
	assert.Equal(t, 10, cfg.CloneDepth)
	assert.Equal(t, "scorecard", cfg.ScorecardBin)
}

func TestLoadTracker_EnvOverridesDefault(t *testing.T) {
	t.Setenv("CLOMONITOR_CONCURRENCY", "16")
	t.Setenv("CLOMONITOR_CLONE_DEPTH", "50")

	cfg, err := LoadTracker()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Concurrency)
	assert.Equal(t, 50, cfg.CloneDepth)
}

// The credential pool falls back to a single bare CLOMONITOR_GITHUB_TOKEN
// env var when no github.tokens list is configured.
func TestLoadTracker_FallsBackToSingleGithubToken(t *testing.T) {
	t.Setenv("CLOMONITOR_GITHUB_TOKEN", "solo-token")

	cfg, err := LoadTracker()
	require.NoError(t, err)

	require.Len(t, cfg.GitHub.Tokens, 1)
	assert.Equal(t, "solo-token", cfg.GitHub.Tokens[0])
}

func TestLoadRegistrar_Defaults(t *testing.T) {
	cfg, err := LoadRegistrar()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.TickInterval)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 300*time.Second, cfg.FoundationTTL)
}

func TestLoadArchiver_Defaults(t *testing.T) {
	cfg, err := LoadArchiver()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.TickInterval)
}

func TestLoadViewTracker_Defaults(t *testing.T) {
	cfg, err := LoadViewTracker()
	require.NoError(t, err)
	assert.Equal(t, 300*time.Second, cfg.FlushInterval)
	assert.Equal(t, 100, cfg.QueueCapacity)
}
