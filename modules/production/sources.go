package production

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
	"github.com/iota-uz/pts-sync/modules/production/infrastructure/sheets"
	"github.com/iota-uz/pts-sync/modules/production/infrastructure/workbook"
	"github.com/iota-uz/pts-sync/pkg/configuration"
	"github.com/iota-uz/pts-sync/pkg/runlock"
)

// NewSource opens the configured spreadsheet: a local workbook when
// PTS_WORKBOOK_PATH is set, Google Sheets otherwise. A source that cannot be
// opened is replaced by one that fails every fetch with
// pts.ErrSourceNotInitialized, so the process still starts. The returned
// func releases the source.
func NewSource(ctx context.Context, conf *configuration.Configuration, log *logrus.Logger) (pts.Source, func()) {
	if path := conf.PTS.WorkbookPath; path != "" {
		wb, err := workbook.Open(path)
		if err != nil {
			log.WithError(err).WithField("path", path).Warn("pts workbook unavailable")
			return pts.UnavailableSource(err), func() {}
		}
		return wb, func() {
			if err := wb.Close(); err != nil {
				log.WithError(err).Warn("failed to close pts workbook")
			}
		}
	}

	creds, err := conf.Google.Credentials()
	if err != nil {
		err = errors.Wrap(err, "read google service account")
		log.WithError(err).Warn("pts sheets source unavailable")
		return pts.UnavailableSource(err), func() {}
	}
	client, err := sheets.New(ctx, creds, conf.PTS.SpreadsheetID)
	if err != nil {
		log.WithError(err).Warn("pts sheets source unavailable")
		return pts.UnavailableSource(err), func() {}
	}
	return client, func() {}
}

// NewLocker returns the run lock backend selected by LOCK_BACKEND.
func NewLocker(ctx context.Context, opts configuration.LockOptions) (runlock.Locker, func(), error) {
	if opts.Backend != "redis" {
		return runlock.NewMemoryLocker(), func() {}, nil
	}
	l, err := runlock.NewRedisLocker(ctx, opts.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = l.Close() }, nil
}
