package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const applyBody = `{"as_of":"2024-03-15","require_matched":true}`

// memoryIdempotencyStore keeps claims in a map the way the redis store does.
type memoryIdempotencyStore struct {
	values   map[string][]byte
	ttls     []time.Duration
	released []string
	checkErr error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: make(map[string][]byte)}
}

func (s *memoryIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if s.checkErr != nil {
		return false, nil, s.checkErr
	}
	s.ttls = append(s.ttls, ttl)
	if existing, ok := s.values[key]; ok {
		return true, existing, nil
	}
	if response == nil {
		response = []byte(pendingMarker)
	}
	s.values[key] = response
	return false, nil, nil
}

func (s *memoryIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	s.values[key] = append([]byte(nil), response...)
	return nil
}

func (s *memoryIdempotencyStore) Release(ctx context.Context, key string) error {
	s.released = append(s.released, key)
	delete(s.values, key)
	return nil
}

func newPaymentApply(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/7/apply", bytes.NewBufferString(body))
	req.Header.Set(IdempotencyKeyHeader, key)
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIdempotencyMiddleware_ReplaysStatusAndBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	h := NewIdempotencyMiddleware(store, zerolog.Nop()).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		require.JSONEq(t, applyBody, string(body), "handler sees the original body")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"payment_id":7,"applied":"400000"}`))
	}))

	first := serve(h, newPaymentApply("key-1", applyBody))
	second := serve(h, newPaymentApply("key-1", applyBody))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(IdempotencyReplayHeader))
	assert.Empty(t, first.Header().Get(IdempotencyReplayHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	var stored storedResponse
	require.NoError(t, json.Unmarshal(store.values["POST /api/v1/payments/7/apply key-1"], &stored))
	assert.Equal(t, http.StatusCreated, stored.Status)
	assert.Equal(t, fingerprintOf([]byte(applyBody)), stored.Fingerprint)
}

func TestIdempotencyMiddleware_RejectsReusedKeyWithDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	h := NewIdempotencyMiddleware(store, zerolog.Nop()).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve(h, newPaymentApply("key-2", applyBody))
	rr := serve(h, newPaymentApply("key-2", `{"as_of":"2024-04-15"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.JSONEq(t, keyReusedBody, rr.Body.String())
}

func TestIdempotencyMiddleware_ScopesKeysByRoute(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	h := NewIdempotencyMiddleware(store, zerolog.Nop()).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	serve(h, newPaymentApply("shared", applyBody))
	other := httptest.NewRequest(http.MethodPost, "/api/v1/movements/3/reconcile", strings.NewReader(applyBody))
	other.Header.Set(IdempotencyKeyHeader, "shared")
	serve(h, other)

	assert.Equal(t, 2, calls)
}

func TestIdempotencyMiddleware_RejectsInFlightDuplicate(t *testing.T) {
	store := newMemoryIdempotencyStore()
	store.values["POST /api/v1/payments/7/apply key-dup"] = []byte(pendingMarker)
	h := NewIdempotencyMiddleware(store, zerolog.Nop()).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not run while the first request is in flight")
	}))

	rr := serve(h, newPaymentApply("key-dup", applyBody))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, inProgressBody, rr.Body.String())
	assert.Empty(t, store.released, "in-flight key must not be released")
}

func TestIdempotencyMiddleware_ReleasesFailedResponses(t *testing.T) {
	store := newMemoryIdempotencyStore()
	h := NewIdempotencyMiddleware(store, zerolog.Nop()).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	serve(h, newPaymentApply("key-fail", applyBody))

	require.Len(t, store.released, 1)
	assert.True(t, strings.HasSuffix(store.released[0], "key-fail"))
	assert.NotContains(t, store.values, store.released[0])
}

func TestIdempotencyMiddleware_FailsOnStoreErrors(t *testing.T) {
	store := newMemoryIdempotencyStore()
	store.checkErr = context.DeadlineExceeded
	h := NewIdempotencyMiddleware(store, zerolog.Nop()).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called when the store errors")
	}))

	rr := serve(h, newPaymentApply("key-err", applyBody))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, storeErrorBody, rr.Body.String())
}

func TestIdempotencyMiddleware_RejectsCorruptStoredValue(t *testing.T) {
	store := newMemoryIdempotencyStore()
	store.values["POST /api/v1/payments/7/apply key-bad"] = []byte(`not json`)
	h := NewIdempotencyMiddleware(store, zerolog.Nop()).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not run for a claimed key")
	}))

	rr := serve(h, newPaymentApply("key-bad", applyBody))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestIdempotencyMiddleware_SkipsRequestsWithoutKey(t *testing.T) {
	store := newMemoryIdempotencyStore()
	store.checkErr = context.Canceled
	called := 0
	h := NewIdempotencyMiddleware(store, zerolog.Nop()).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))

	serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/loans/90001", nil))
	serve(h, httptest.NewRequest(http.MethodPost, "/api/v1/loans", strings.NewReader(`{}`)))

	assert.Equal(t, 2, called)
}

func TestIdempotencyMiddleware_WithTTL(t *testing.T) {
	store := newMemoryIdempotencyStore()
	h := NewIdempotencyMiddleware(store, zerolog.Nop()).WithTTL(time.Hour).WithTTL(0).
		Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	serve(h, newPaymentApply("key-ttl", applyBody))

	assert.Equal(t, []time.Duration{time.Hour}, store.ttls)
}
