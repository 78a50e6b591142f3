package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/pts-sync/pkg/composables"
	"github.com/iota-uz/pts-sync/pkg/logging"
)

func TestWithLogger_RecoversPanics(t *testing.T) {
	r := mux.NewRouter()
	r.Use(WithLogger(logging.NopLogger()))
	r.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))
	require.Contains(t, rec.Body.String(), "INTERNAL_SERVER_ERROR")
}

func TestProvideUserID(t *testing.T) {
	var got []uint
	r := mux.NewRouter()
	r.Use(ProvideUserID())
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if id, ok := composables.UseUserID(r.Context()); ok {
			got = append(got, id)
		}
	})

	for _, header := range []string{"42", "nope", ""} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(UserIDHeader, header)
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	require.Equal(t, []uint{42}, got)
}
