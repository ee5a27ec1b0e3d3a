package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/loanledger/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks a response served from the store.
	IdempotencyReplayHeader = "X-Idempotency-Replay"
	// pendingMarker matches the value the store keeps while a request runs.
	pendingMarker = "processing"
	// maxIdempotentBody caps the request body read for fingerprinting.
	maxIdempotentBody = 1 << 20
)

const (
	inProgressBody = `{"error":"idempotency_in_progress","message":"request with this idempotency key is in progress"}`
	keyReusedBody  = `{"error":"idempotency_key_reused","message":"idempotency key was used with a different request body"}`
	storeErrorBody = `{"error":"internal_error","message":"idempotency check failed"}`
)

// storedResponse is what the store keeps for a completed request.
type storedResponse struct {
	Status      int    `json:"status"`
	Fingerprint string `json:"fingerprint"`
	Body        []byte `json:"body"`
}

// IdempotencyMiddleware replays the stored response of a repeated mutating
// request. Failed requests release their key so the client can retry.
type IdempotencyMiddleware struct {
	store  usecase.IdempotencyStore
	logger zerolog.Logger
	ttl    time.Duration
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, logger zerolog.Logger) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{store: store, logger: logger, ttl: usecase.IdempotencyKeyTTL}
}

// WithTTL overrides how long responses are kept. Non-positive values are ignored.
func (m *IdempotencyMiddleware) WithTTL(ttl time.Duration) *IdempotencyMiddleware {
	if ttl > 0 {
		m.ttl = ttl
	}
	return m
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		clientKey := r.Header.Get(IdempotencyKeyHeader)
		if clientKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Method + " " + r.URL.Path + " " + clientKey

		body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody))
		if err != nil {
			writeRaw(w, http.StatusBadRequest, `{"error":"invalid_request","message":"unreadable request body"}`)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		fingerprint := fingerprintOf(body)

		exists, cached, err := m.store.CheckAndSet(r.Context(), key, nil, m.ttl)
		if err != nil {
			m.logger.Error().Err(err).Str("path", r.URL.Path).Msg("idempotency store unavailable")
			writeRaw(w, http.StatusInternalServerError, storeErrorBody)
			return
		}
		if exists {
			m.replay(w, r, cached, fingerprint)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(recorder, r)

		// The client may have gone away; the key must still be settled.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Second)
		defer cancel()

		if recorder.statusCode >= 200 && recorder.statusCode < 300 {
			stored, err := json.Marshal(storedResponse{
				Status:      recorder.statusCode,
				Fingerprint: fingerprint,
				Body:        recorder.body.Bytes(),
			})
			if err == nil {
				err = m.store.Update(ctx, key, stored, m.ttl)
			}
			if err != nil {
				m.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("failed to store idempotent response")
			}
			return
		}
		if err := m.store.Release(ctx, key); err != nil {
			m.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("failed to release idempotency key")
		}
	})
}

// replay answers a repeated request from the stored value.
func (m *IdempotencyMiddleware) replay(w http.ResponseWriter, r *http.Request, cached []byte, fingerprint string) {
	if string(cached) == pendingMarker {
		writeRaw(w, http.StatusConflict, inProgressBody)
		return
	}

	var stored storedResponse
	if err := json.Unmarshal(cached, &stored); err != nil || stored.Status == 0 {
		m.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("unreadable idempotent response")
		writeRaw(w, http.StatusInternalServerError, storeErrorBody)
		return
	}
	if stored.Fingerprint != fingerprint {
		writeRaw(w, http.StatusUnprocessableEntity, keyReusedBody)
		return
	}

	w.Header().Set(IdempotencyReplayHeader, "true")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
