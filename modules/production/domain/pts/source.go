package pts

import (
	"context"

	"github.com/iota-uz/pts-sync/pkg/serrors"
)

var ErrSourceNotInitialized = serrors.NewError(
	"PTS_SOURCE_NOT_INITIALIZED",
	"PTS data source is not initialized: check the service account credentials",
	"PtsSync.Errors.SourceNotInitialized",
)

var ErrFetchFailed = serrors.NewError(
	"PTS_SOURCE_FETCH_FAILED",
	"PTS data source could not be read",
	"PtsSync.Errors.FetchFailed",
)

// Source fetches rectangular cell data for a named range. Rows may be
// shorter than the range width when trailing cells are empty.
type Source interface {
	FetchRange(ctx context.Context, sheet string, spec RangeSpec) ([][]string, error)
}

type unavailableSource struct {
	cause error
}

// UnavailableSource returns a Source whose every fetch fails with
// ErrSourceNotInitialized wrapping cause.
func UnavailableSource(cause error) Source {
	return &unavailableSource{cause: cause}
}

func (s *unavailableSource) FetchRange(context.Context, string, RangeSpec) ([][]string, error) {
	if s.cause == nil {
		return nil, ErrSourceNotInitialized
	}
	return nil, ErrSourceNotInitialized.Wrapf("%v", s.cause)
}
