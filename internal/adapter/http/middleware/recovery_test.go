package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	before := testutil.ToFloat64(httpPanicsTotal)

	handler := chimiddleware.RequestID(NewRecovery(zerolog.New(&logs))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("allocation invariant broken")
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/payments/1/apply", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if rr.Body.String() != panicBody {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
	if got := testutil.ToFloat64(httpPanicsTotal); got != before+1 {
		t.Fatalf("expected panic counter to grow by one, got %v -> %v", before, got)
	}
	if !strings.Contains(logs.String(), "allocation invariant broken") || !strings.Contains(logs.String(), `"request_id"`) {
		t.Fatalf("expected panic log with request id, got %s", logs.String())
	}
}

func TestRecoveryPassesThrough(t *testing.T) {
	handler := NewRecovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/loans/", nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
}
