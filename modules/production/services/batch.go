package services

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
)

// batchProcessor walks rows in order, chunk by chunk. handle must classify
// every row it sees; the processor only drives iteration, cancellation and
// progress.
type batchProcessor struct {
	size  int
	phase Phase
	noun  string

	// renew, when set, runs before every chunk and aborts the phase on error.
	renew      func(context.Context) error
	onProgress ProgressFunc
	log        *logrus.Entry
}

func (b *batchProcessor) run(ctx context.Context, rows []pts.SourceRow, handle func(context.Context, pts.SourceRow)) error {
	size := b.size
	if size <= 0 {
		size = len(rows)
	}
	total := len(rows)
	b.emit(Progress{Phase: b.phase, Current: 0, Total: total, Message: fmt.Sprintf("Processing %d %s...", total, b.noun)})

	for start := 0; start < total; start += size {
		if err := ctx.Err(); err != nil {
			return ErrSyncCancelled.Wrapf("%s phase stopped at row %d of %d: %v", b.phase, start, total, err)
		}
		if b.renew != nil {
			if err := b.renew(ctx); err != nil {
				return errors.Wrapf(err, "%s phase stopped at row %d of %d", b.phase, start, total)
			}
		}
		end := min(start+size, total)
		for _, row := range rows[start:end] {
			handle(ctx, row)
		}
		b.emit(Progress{
			Phase:   b.phase,
			Current: end,
			Total:   total,
			Message: fmt.Sprintf("Processed %d of %d %s", end, total, b.noun),
		})
	}
	return nil
}

func (b *batchProcessor) emit(p Progress) {
	if b.onProgress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.WithField("phase", p.Phase).Errorf("progress callback panicked: %v", r)
		}
	}()
	b.onProgress(p)
}
