package middleware

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/pts-sync/pkg/composables"
)

const UserIDHeader = "X-User-Id"

// Provide makes the pool available to repositories through the context.
func Provide(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pool != nil {
				r = r.WithContext(composables.WithPool(r.Context(), pool))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ProvideUserID records the caller set by the fronting proxy so sync runs
// can be attributed. Missing or malformed headers leave the run anonymous.
func ProvideUserID() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := r.Header.Get(UserIDHeader); raw != "" {
				if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
					r = r.WithContext(composables.WithUserID(r.Context(), uint(id)))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
