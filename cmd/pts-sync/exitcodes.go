package main

import (
	"errors"

	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
	"github.com/iota-uz/pts-sync/modules/production/services"
	"github.com/iota-uz/pts-sync/pkg/runlock"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 3
	exitSource    = 4
	exitDB        = 5
	exitSafetyNet = 6
	exitPartial   = 7
	exitLocked    = 8
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

// classify attaches an exit code to a service error.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pts.ErrSourceNotInitialized), errors.Is(err, pts.ErrFetchFailed):
		return withCode(exitSource, err)
	case errors.Is(err, runlock.ErrLocked), errors.Is(err, runlock.ErrLeaseLost):
		return withCode(exitLocked, err)
	case errors.Is(err, services.ErrProjectNotFound):
		return withCode(exitUsage, err)
	default:
		return withCode(exitDB, err)
	}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitFailure
}
