package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/loanledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/loanledger/internal/adapter/repository/postgres"
	"github.com/iho/loanledger/internal/infrastructure/config"
	"github.com/iho/loanledger/internal/infrastructure/eventpublisher"
)

func TestOutboxRepository_DisabledDiscards(t *testing.T) {
	repo := outboxRepository(&config.Config{OutboxEnabled: false}, nil, zerolog.Nop())

	_, ok := repo.(*postgresRepo.NullOutboxRepository)
	assert.True(t, ok, "expected the discarding outbox when the relay is disabled")
}

func TestOutboxRepository_Enabled(t *testing.T) {
	repo := outboxRepository(&config.Config{OutboxEnabled: true}, nil, zerolog.Nop())

	_, ok := repo.(*postgresRepo.OutboxRepository)
	assert.True(t, ok)
}

func TestEventSink(t *testing.T) {
	_, ok := eventSink(&config.Config{OutboxSink: "log"}, nil, zerolog.Nop()).(*eventpublisher.LogPublisher)
	assert.True(t, ok, "expected the log sink")

	_, ok = eventSink(&config.Config{OutboxSink: "stream", OutboxStream: "loanledger.events"}, nil, zerolog.Nop()).(*eventpublisher.StreamPublisher)
	assert.True(t, ok)
}

func TestSequencePoolConfig(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL:              "postgres://ledger@db/loanledger",
		DatabaseMaxConns:         25,
		DatabaseMinConns:         5,
		DatabaseTimeout:          10 * time.Second,
		DatabaseStatementTimeout: time.Minute,
		DatabaseSequenceMaxConns: 3,
	}

	shared := poolConfig(cfg)
	assert.Equal(t, 25, shared.MaxConns)
	assert.Equal(t, 5, shared.MinConns)

	seq := sequencePoolConfig(cfg)
	assert.Equal(t, cfg.DatabaseURL, seq.DatabaseURL)
	assert.Equal(t, 3, seq.MaxConns)
	assert.Equal(t, 1, seq.MinConns)
	assert.Equal(t, time.Minute, seq.StatementTimeout)
}

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{
		HTTPPort:         "9090",
		HTTPReadTimeout:  3 * time.Second,
		HTTPWriteTimeout: 4 * time.Second,
		HTTPIdleTimeout:  5 * time.Second,
	}

	srv := newHTTPServer(cfg, http.NotFoundHandler())
	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, 3*time.Second, srv.ReadTimeout)
	assert.Equal(t, 4*time.Second, srv.WriteTimeout)
	assert.Equal(t, 5*time.Second, srv.IdleTimeout)
}

func TestInstanceName(t *testing.T) {
	name := instanceName()
	require.NotEmpty(t, name)
	assert.True(t, strings.HasSuffix(name, "-"+strconv.Itoa(os.Getpid())))
}

func TestCleanupRateLimiterStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleanupRateLimiter(ctx, middleware.NewRateLimiter(1, 1), time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
