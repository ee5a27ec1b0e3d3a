package middleware

import (
	"net/http"
	"strings"

	"github.com/iho/loanledger/internal/domain"
)

// ActorHeader names the user on whose behalf a request runs.
const ActorHeader = "X-Actor"

const maxActorLength = 64

// Actor copies the X-Actor header into the request context. Entries and
// loans record it as created_by.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))
		if len(actor) > maxActorLength {
			actor = actor[:maxActorLength]
		}
		if actor != "" {
			r = r.WithContext(domain.WithActor(r.Context(), actor))
		}

		next.ServeHTTP(w, r)
	})
}
