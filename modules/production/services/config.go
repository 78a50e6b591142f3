package services

import (
	"time"

	"github.com/go-faster/errors"

	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
	"github.com/iota-uz/pts-sync/pkg/configuration"
)

// LockKey guards both sync and rollback runs.
const LockKey = "pts-sync"

type Config struct {
	RawDataSheet     string
	LogSheet         string
	RawDataRange     pts.RangeSpec
	LogRange         pts.RangeSpec
	Columns          pts.ColumnMapping
	BatchSize        int
	Source           string
	DateFallback     string
	MaxReportedItems int
	LockTTL          time.Duration
}

func DefaultConfig() Config {
	return Config{
		RawDataSheet:     "02-Raw Data",
		LogSheet:         "04-Log",
		RawDataRange:     pts.RangeSpec{StartCol: 0, StartRow: 2, EndCol: 19},
		LogRange:         pts.RangeSpec{StartCol: 0, StartRow: 2, EndCol: 17},
		Columns:          pts.DefaultColumnMapping(),
		BatchSize:        100,
		Source:           "PTS",
		DateFallback:     configuration.DateFallbackNow,
		MaxReportedItems: 500,
		LockTTL:          30 * time.Minute,
	}
}

// NewConfig builds the engine configuration from validated options.
func NewConfig(opts configuration.PTSOptions, lock configuration.LockOptions) (Config, error) {
	rawRange, err := pts.ParseRangeSpec(opts.RawDataRange)
	if err != nil {
		return Config{}, errors.Wrap(err, "PTS_RAW_DATA_RANGE")
	}
	logRange, err := pts.ParseRangeSpec(opts.LogRange)
	if err != nil {
		return Config{}, errors.Wrap(err, "PTS_LOG_RANGE")
	}
	columns := pts.DefaultColumnMapping()
	if opts.ColumnsFile != "" {
		columns, err = pts.LoadColumnMapping(opts.ColumnsFile)
		if err != nil {
			return Config{}, errors.Wrap(err, "PTS_COLUMNS_FILE")
		}
	}
	return Config{
		RawDataSheet:     opts.RawDataSheet,
		LogSheet:         opts.LogSheet,
		RawDataRange:     rawRange,
		LogRange:         logRange,
		Columns:          columns,
		BatchSize:        opts.BatchSize,
		Source:           opts.SourceTag,
		DateFallback:     opts.DateFallback,
		MaxReportedItems: opts.MaxReportedItems,
		LockTTL:          lock.TTL,
	}, nil
}
