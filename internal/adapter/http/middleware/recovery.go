package middleware

import (
	"net/http"
	"runtime/debug"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var httpPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "http_panics_total",
	Help: "Handler panics recovered by the HTTP server",
})

const panicBody = `{"error":"internal_error","message":"internal server error"}`

// NewRecovery turns a handler panic into a 500 and logs it with the request id.
func NewRecovery(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				httpPanicsTotal.Inc()
				logger.Error().
					Interface("panic", rec).
					Str("request_id", chimiddleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				writeRaw(w, http.StatusInternalServerError, panicBody)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
