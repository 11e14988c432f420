package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ADAUSDT", cfg.Symbol)
	assert.Equal(t, "15m", cfg.Interval)
	assert.Equal(t, 60, cfg.Window)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 0.6, cfg.ConfidenceThreshold)
	assert.Equal(t, "localhost:19530", cfg.MilvusAddress)
	assert.Equal(t, "hekla", cfg.NATSStream)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SYMBOL", "BTCUSDT")
	t.Setenv("WINDOW", "96")
	t.Setenv("GATE_MAX_DISTANCE", "0.25")
	t.Setenv("JUDGE_TIMEOUT", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, 96, cfg.Window)
	assert.Equal(t, 0.25, cfg.GateMaxDistance)
	assert.Equal(t, "1m30s", cfg.JudgeTimeout.String())
}

func TestLoadCollectsErrors(t *testing.T) {
	t.Setenv("WINDOW", "1")
	t.Setenv("TOP_K", "bogus")
	t.Setenv("CONFIDENCE_THRESHOLD", "1.5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WINDOW")
	assert.Contains(t, err.Error(), "TOP_K")
	assert.Contains(t, err.Error(), "CONFIDENCE_THRESHOLD")
}
