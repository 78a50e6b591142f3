package services

import (
	"github.com/go-faster/errors"

	"github.com/iota-uz/pts-sync/pkg/serrors"
)

var (
	ErrProjectNotFound = serrors.NewError(
		"PTS_PROJECT_NOT_FOUND",
		"project not found",
		"PtsSync.Errors.ProjectNotFound",
	)
	ErrSyncCancelled = serrors.NewError(
		"PTS_SYNC_CANCELLED",
		"sync cancelled",
		"PtsSync.Errors.SyncCancelled",
	)
	ErrDateUnparsable = serrors.NewError(
		"PTS_DATE_UNPARSABLE",
		"process date could not be parsed",
		"PtsSync.Errors.DateUnparsable",
	)
)

// Resolution failures. Rows hitting these are skipped, not errored.
var (
	ErrProjectUnresolved  = errors.New("project not found")
	ErrBuildingUnresolved = errors.New("building not found")
)

// Skip reasons reported in SkippedItem.Reason.
const (
	ReasonBlankRow            = "blank row"
	ReasonMissingBuilding     = "missing building designation"
	ReasonProjectNotFound     = "project not found"
	ReasonBuildingNotFound    = "building not found and auto-create is disabled"
	ReasonProjectNotSelected  = "project not selected"
	ReasonBuildingNotSelected = "building not selected"
	ReasonNoMatchingPart      = "no matching assembly part"
	ReasonAmbiguousPart       = "part designation matches several projects"
)
