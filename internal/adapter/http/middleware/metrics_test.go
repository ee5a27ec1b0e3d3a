package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	testCases := []struct {
		name       string
		method     string
		path       string
		statusCode int
	}{
		{
			name:       "normalizes loan path",
			method:     http.MethodGet,
			path:       "/api/v1/loans/90001/statement",
			statusCode: http.StatusTeapot,
		},
		{
			name:       "keeps non-matching path as-is",
			method:     http.MethodPost,
			path:       "/health",
			statusCode: http.StatusCreated,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			httpRequestsTotal.Reset()
			httpRequestDuration.Reset()
			httpRequestsInFlight.Set(0)

			handlerCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(tc.statusCode)
			})

			req := httptest.NewRequest(tc.method, tc.path, nil)
			rr := httptest.NewRecorder()

			Metrics(next).ServeHTTP(rr, req)

			if !handlerCalled {
				t.Fatalf("next handler was not invoked")
			}

			if got := testutil.ToFloat64(httpRequestsInFlight); got != 0 {
				t.Fatalf("expected in-flight gauge to return to 0, got %v", got)
			}

			normalized := normalizePath(tc.path)
			counter := httpRequestsTotal.WithLabelValues(tc.method, normalized, strconv.Itoa(tc.statusCode))
			if got := testutil.ToFloat64(counter); got != 1 {
				t.Fatalf("expected counter to be 1, got %v", got)
			}
		})
	}
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	httpRequestsTotal.Reset()

	r := chi.NewRouter()
	r.Use(Metrics)
	r.Post("/api/v1/payments/{id}/apply", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/payments/17/apply", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/payments/18/apply", nil))

	counter := httpRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/payments/{id}/apply", "409")
	if got := testutil.ToFloat64(counter); got != 2 {
		t.Fatalf("expected both payments under one route label, got %v", got)
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/loans/90001", nil))
	notFound := httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/loans/:number", "404")
	if got := testutil.ToFloat64(notFound); got != 1 {
		t.Fatalf("expected unrouted request to use the normalized path, got %v", got)
	}
}

func TestNormalizePath(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "loan path without suffix",
			input:    "/api/v1/loans/90001",
			expected: "/api/v1/loans/:number",
		},
		{
			name:     "loan path with suffix",
			input:    "/api/v1/loans/90001/entries/pending",
			expected: "/api/v1/loans/:number/entries/pending",
		},
		{
			name:     "payment path",
			input:    "/api/v1/payments/12/apply",
			expected: "/api/v1/payments/:id/apply",
		},
		{
			name:     "movement path",
			input:    "/api/v1/movements/4/reconcile",
			expected: "/api/v1/movements/:id/reconcile",
		},
		{
			name:     "sequence path",
			input:    "/api/v1/sequences/aux3/next",
			expected: "/api/v1/sequences/:domain/next",
		},
		{
			name:     "collection root",
			input:    "/api/v1/loans",
			expected: "/api/v1/loans",
		},
		{
			name:     "non-matching path",
			input:    "/api/v1/accruals/close-all",
			expected: "/api/v1/accruals/close-all",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizePath(tc.input); got != tc.expected {
				t.Fatalf("normalizePath(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}
