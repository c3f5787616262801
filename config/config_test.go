package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "assistant", cfg.AgentProfile)
	assert.Equal(t, "openai", cfg.ModelProvider)
	assert.Equal(t, 20, cfg.MaxRoundCount)
	assert.Equal(t, 3, cfg.MaxStallCount)
	assert.Equal(t, 2, cfg.MaxResetCount)
	assert.False(t, cfg.EnablePlanReview)
	assert.Equal(t, 2*time.Minute, cfg.RoundTimeout)
	assert.Equal(t, 10, cfg.ContextTransferTurns)
	assert.False(t, cfg.WorkflowEventLoggingEnabled)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AGENTHUB_HTTP_ADDR", ":9090")
	t.Setenv("AGENTHUB_MAX_ROUND_COUNT", "7")
	t.Setenv("AGENTHUB_ENABLE_PLAN_REVIEW", "true")
	t.Setenv("AGENTHUB_MODEL_PROVIDER", "static")
	t.Setenv("AGENTHUB_CONTEXT_TRANSFER_TURNS", "-1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 7, cfg.MaxRoundCount)
	assert.True(t, cfg.EnablePlanReview)
	assert.Equal(t, "static", cfg.ModelProvider)
	assert.Equal(t, -1, cfg.ContextTransferTurns)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agenthub.yaml")
	content := "http_addr: \":7070\"\nagent_profile: magentic\nmodel_provider: anthropic\nmax_stall_count: 5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "magentic", cfg.AgentProfile)
	assert.Equal(t, "anthropic", cfg.ModelProvider)
	assert.Equal(t, 5, cfg.MaxStallCount)
	// Unset keys fall back to defaults.
	assert.Equal(t, 20, cfg.MaxRoundCount)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("round count", func(t *testing.T) {
		t.Setenv("AGENTHUB_MAX_ROUND_COUNT", "0")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_round_count")
	})

	t.Run("provider", func(t *testing.T) {
		t.Setenv("AGENTHUB_MODEL_PROVIDER", "mystery")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model_provider")
	})

	t.Run("transfer turns", func(t *testing.T) {
		t.Setenv("AGENTHUB_CONTEXT_TRANSFER_TURNS", "-2")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "context_transfer_turns")
	})
}
