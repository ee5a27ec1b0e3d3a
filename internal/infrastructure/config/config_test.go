package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/loanledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.DatabaseURL)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.SequenceLockTimeout)
	assert.Equal(t, time.Minute, cfg.DatabaseStatementTimeout)
	assert.Equal(t, 40, cfg.ReconciliationDPThreshold)
	assert.Equal(t, "COP", cfg.LedgerCurrency)
	assert.Equal(t, "30 1 * * *", cfg.AccrualCron)
	assert.True(t, cfg.AccrualEnabled)
	assert.True(t, cfg.OutboxEnabled)
	assert.Equal(t, "loanledger.events", cfg.OutboxStream)
	assert.Equal(t, "stream", cfg.OutboxSink)
	assert.Equal(t, 4, cfg.DatabaseSequenceMaxConns)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("SEQUENCE_LOCK_TIMEOUT", "750ms")
	t.Setenv("RECONCILIATION_DP_THRESHOLD", "25")
	t.Setenv("ACCRUAL_ENABLED", "false")
	t.Setenv("RATE_LIMIT_RPS", "12.5")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://example", cfg.DatabaseURL)
	assert.Equal(t, "redis://example", cfg.RedisURL)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 45*time.Second, cfg.DatabaseTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.SequenceLockTimeout)
	assert.Equal(t, 25, cfg.ReconciliationDPThreshold)
	assert.False(t, cfg.AccrualEnabled)
	assert.InDelta(t, 12.5, cfg.RateLimitRPS, 1e-9)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"HTTP_READ_TIMEOUT", "not-a-duration"},
		{"SEQUENCE_LOCK_TIMEOUT", "soon"},
		{"RECONCILIATION_DP_THRESHOLD", "forty"},
		{"OUTBOX_ENABLED", "maybe"},
		{"LEDGER_CURRENCY", "ZZZ"},
		{"SEQUENCE_LOCK_TIMEOUT", "0s"},
		{"RECONCILIATION_DP_THRESHOLD", "-1"},
		{"OUTBOX_SINK", "kafka"},
		{"DATABASE_SEQUENCE_MAX_CONNS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadNormalizesCurrency(t *testing.T) {
	t.Setenv("LEDGER_CURRENCY", " usd ")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.LedgerCurrency)
}
