package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/pts-sync/pkg/serrors"
)

func TestWriteServiceError_UsesBaseErrorCode(t *testing.T) {
	rec := httptest.NewRecorder()
	err := serrors.NewError("PTS_SYNC_RUNNING", "a sync is already running", "").Wrapf("holder %s", "cli")

	require.NoError(t, WriteServiceError(rec, http.StatusConflict, "INTERNAL", err))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "PTS_SYNC_RUNNING", env.Code)
	require.Contains(t, env.Message, "holder cli")
}

func TestWriteServiceError_Fallback(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteServiceError(rec, http.StatusInternalServerError, "INTERNAL", http.ErrHandlerTimeout))

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "INTERNAL", env.Code)
}

func TestErrorCode(t *testing.T) {
	base := serrors.NewError("PTS_SYNC_RUNNING", "running", "")
	require.Equal(t, "PTS_SYNC_RUNNING", ErrorCode(fmt.Errorf("start: %w", base), "INTERNAL"))
	require.Equal(t, "INTERNAL", ErrorCode(http.ErrHandlerTimeout, "INTERNAL"))
}
