package composables

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/pts-sync/pkg/constants"
)

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger stored in ctx, or the standard logrus logger
// when none is set.
func UseLogger(ctx context.Context) *logrus.Entry {
	switch typed := ctx.Value(constants.LoggerKey).(type) {
	case *logrus.Entry:
		return typed
	case *logrus.Logger:
		return logrus.NewEntry(typed)
	default:
		return logrus.NewEntry(logrus.StandardLogger())
	}
}

func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, constants.UserIDKey, userID)
}

func UseUserID(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(constants.UserIDKey).(uint)
	return id, ok
}
