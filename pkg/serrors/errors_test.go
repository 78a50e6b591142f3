package serrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseError_IsMatchesByCode(t *testing.T) {
	sentinel := NewError("PTS_PROJECT_NOT_FOUND", "project not found", "")
	other := NewError("PTS_PROJECT_NOT_FOUND", "different message", "")

	require.ErrorIs(t, other, sentinel)
	require.NotErrorIs(t, NewError("OTHER", "x", ""), sentinel)
}

func TestBaseError_Wrapf(t *testing.T) {
	sentinel := NewError("PTS_SYNC_RUNNING", "sync already running", "")
	err := sentinel.Wrapf("key %s", "pts-sync")

	require.EqualError(t, err, "sync already running: key pts-sync")
	require.ErrorIs(t, err, sentinel)

	var be *BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, "PTS_SYNC_RUNNING", be.Code)
}

func TestBaseError_WrapfKeepsCause(t *testing.T) {
	sentinel := NewError("PTS_SOURCE_FETCH_FAILED", "fetch failed", "")
	cause := errors.New("quota exceeded")
	err := sentinel.Wrapf("sheet %s: %w", "04-Log", cause)

	require.EqualError(t, err, "fetch failed: sheet 04-Log: quota exceeded")
	require.ErrorIs(t, err, sentinel)
	require.ErrorIs(t, err, cause)
}
