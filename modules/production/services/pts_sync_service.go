package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/pts-sync/modules/production/domain/aggregates/assemblypart"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/building"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/productionlog"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/project"
	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
	"github.com/iota-uz/pts-sync/pkg/composables"
	"github.com/iota-uz/pts-sync/pkg/configuration"
	"github.com/iota-uz/pts-sync/pkg/eventbus"
	"github.com/iota-uz/pts-sync/pkg/runlock"
)

type Repositories struct {
	Projects  project.Repository
	Buildings building.Repository
	Parts     assemblypart.Repository
	Logs      productionlog.Repository
}

// PtsSyncService imports PTS rows into parts and production logs.
type PtsSyncService struct {
	source    pts.Source
	repos     Repositories
	upserter  *Upserter
	publisher eventbus.EventBus
	locker    runlock.Locker
	cfg       Config
	tracer    trace.Tracer
	now       func() time.Time
}

func NewPtsSyncService(
	source pts.Source,
	repos Repositories,
	publisher eventbus.EventBus,
	locker runlock.Locker,
	cfg Config,
) *PtsSyncService {
	if locker == nil {
		locker = runlock.NewMemoryLocker()
	}
	return &PtsSyncService{
		source:    source,
		repos:     repos,
		upserter:  NewUpserter(repos.Parts, repos.Logs),
		publisher: publisher,
		locker:    locker,
		cfg:       cfg,
		tracer:    otel.Tracer("github.com/iota-uz/pts-sync/modules/production/services"),
		now:       time.Now,
	}
}

func (s *PtsSyncService) Config() Config {
	return s.cfg
}

// Running reports whether a sync or rollback currently holds the run lock.
func (s *PtsSyncService) Running(ctx context.Context) (bool, error) {
	return s.locker.Held(ctx, LockKey)
}

// syncRun carries the state owned by one FullSync call.
type syncRun struct {
	opts       Options
	userID     *uint
	result     *SyncResult
	resolver   *Resolver
	log        *logrus.Entry
	onProgress ProgressFunc
	renew      func(context.Context) error
}

// FullSync runs the raw-data phase and then the log phase. Row problems are
// reported in the result; the returned error is set only for fatal
// failures, in which case the result is still returned with Success false.
func (s *PtsSyncService) FullSync(ctx context.Context, userID *uint, opts Options, onProgress ProgressFunc) (*SyncResult, error) {
	lease, err := s.locker.TryLock(ctx, LockKey, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			composables.UseLogger(ctx).WithError(err).Warn("failed to release run lock")
		}
	}()

	batchID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "pts.FullSync", trace.WithAttributes(
		attribute.String("sync_batch_id", batchID),
		attribute.Bool("sync_raw_data", opts.SyncRawData),
		attribute.Bool("sync_logs", opts.SyncLogs),
	))
	defer span.End()

	run := &syncRun{
		opts:       opts,
		userID:     userID,
		result:     newSyncResult(batchID, s.cfg.MaxReportedItems, s.now()),
		log:        composables.UseLogger(ctx).WithField("sync_batch_id", batchID),
		onProgress: onProgress,
	}
	run.renew = func(ctx context.Context) error {
		return lease.Extend(ctx, s.cfg.LockTTL)
	}
	run.log.WithFields(logrus.Fields{
		"projects":  opts.SelectedProjects,
		"buildings": opts.SelectedBuildings,
	}).Info("pts sync started")

	err = s.runPhases(ctx, run)
	if err == nil {
		stats, statsErr := s.GetStats(ctx, opts.SelectedProjects...)
		if statsErr != nil {
			err = errors.Wrap(statsErr, "compute project stats")
		} else {
			run.result.ProjectStats = stats
		}
	}

	run.result.finish(s.now(), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		run.log.WithError(err).Error("pts sync aborted")
	} else {
		s.progress(run, Progress{Phase: PhaseComplete, Current: 1, Total: 1, Message: "Sync complete"})
		run.log.WithFields(logrus.Fields{
			"parts_created": run.result.PartsCreated,
			"parts_updated": run.result.PartsUpdated,
			"logs_created":  run.result.LogsCreated,
			"logs_updated":  run.result.LogsUpdated,
			"skipped":       run.result.SkippedCount(),
			"errors":        run.result.ErrorCount(),
			"duration_ms":   run.result.DurationMs,
		}).Info("pts sync finished")
	}

	if s.publisher != nil {
		s.publisher.Publish(&SyncCompletedEvent{Result: run.result, TriggeredByID: userID, Err: err})
	}
	return run.result, err
}

func (s *PtsSyncService) runPhases(ctx context.Context, run *syncRun) error {
	s.progress(run, Progress{Phase: PhaseValidating, Message: "Loading projects and buildings..."})
	resolver, err := LoadResolver(ctx, s.repos.Projects, s.repos.Buildings, run.opts.AutoCreateBuildings)
	if err != nil {
		return err
	}
	resolver.now = s.now
	run.resolver = resolver

	if run.opts.SyncRawData {
		if err := s.syncRawData(ctx, run); err != nil {
			return err
		}
	}
	if run.opts.SyncLogs {
		if err := s.syncLogs(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

func (s *PtsSyncService) progress(run *syncRun, p Progress) {
	(&batchProcessor{onProgress: run.onProgress, log: run.log}).emit(p)
}

func (s *PtsSyncService) fetch(ctx context.Context, sheet string, spec pts.RangeSpec) ([]pts.SourceRow, error) {
	values, err := s.source.FetchRange(ctx, sheet, spec)
	if err != nil {
		if errors.Is(err, pts.ErrSourceNotInitialized) {
			return nil, err
		}
		return nil, pts.ErrFetchFailed.Wrapf("fetch %s: %w", spec.A1(sheet), err)
	}
	return pts.Rows(values, spec), nil
}

func (s *PtsSyncService) syncRawData(ctx context.Context, run *syncRun) error {
	ctx, span := s.tracer.Start(ctx, "pts.syncRawData")
	defer span.End()

	rows, err := s.fetch(ctx, s.cfg.RawDataSheet, s.cfg.RawDataRange)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	log := run.log.WithField("phase", PhaseRawData)
	bp := &batchProcessor{size: s.cfg.BatchSize, phase: PhaseRawData, noun: "parts", renew: run.renew, onProgress: run.onProgress, log: log}
	err = bp.run(ctx, rows, func(ctx context.Context, row pts.SourceRow) {
		s.processPartRow(ctx, run, log, row)
	})
	log.WithFields(logrus.Fields{
		"created": run.result.RawData.Created,
		"updated": run.result.RawData.Updated,
		"skipped": run.result.RawData.Skipped,
		"errors":  run.result.RawData.Errored,
	}).Info("raw data phase finished")
	return err
}

func (s *PtsSyncService) processPartRow(ctx context.Context, run *syncRun, log *logrus.Entry, row pts.SourceRow) {
	rec, err := pts.ParsePartRow(row, s.cfg.Columns.Parts)
	if err != nil {
		if errors.Is(err, pts.ErrBlankRow) {
			run.result.skip(SkippedItem{RowNumber: row.Number, Reason: ReasonBlankRow, Type: ItemPart})
			return
		}
		run.result.fail(RowError{RowNumber: row.Number, Type: ItemPart, Message: err.Error()})
		return
	}
	skip := func(reason string) {
		run.result.skip(SkippedItem{
			RowNumber:       rec.Row,
			PartDesignation: rec.Designation,
			ProjectNumber:   rec.ProjectNumber,
			Reason:          reason,
			Type:            ItemPart,
		})
	}

	if rec.BuildingDesignation == "" {
		skip(ReasonMissingBuilding)
		return
	}
	if !run.opts.projectSelected(rec.ProjectNumber) {
		skip(ReasonProjectNotSelected)
		return
	}
	if _, ok := run.resolver.Project(rec.ProjectNumber); !ok {
		skip(ReasonProjectNotFound)
		return
	}
	if !run.opts.buildingSelected(rec.ProjectNumber, rec.BuildingDesignation) {
		skip(ReasonBuildingNotSelected)
		return
	}

	// Buildings are provisioned outside the row transaction so the
	// resolver's index never points at a rolled back row.
	target, err := run.resolver.Resolve(ctx, rec.ProjectNumber, rec.BuildingDesignation, rec.BuildingName)
	switch {
	case errors.Is(err, ErrBuildingUnresolved):
		skip(ReasonBuildingNotFound)
		return
	case errors.Is(err, ErrProjectUnresolved):
		skip(ReasonProjectNotFound)
		return
	case err != nil:
		run.result.fail(RowError{RowNumber: rec.Row, PartDesignation: rec.Designation, Type: ItemPart, Message: err.Error()})
		return
	}
	if target.BuildingCreated {
		log.WithFields(logrus.Fields{
			"row":            rec.Row,
			"project_number": rec.ProjectNumber,
			"building":       target.Building.Designation,
		}).Info("created building")
	}

	part := s.partFromRecord(rec, target, run.userID)
	var action Action
	err = composables.InTxIfPool(ctx, func(txCtx context.Context) error {
		var upsertErr error
		action, _, upsertErr = s.upserter.UpsertPart(txCtx, part)
		return upsertErr
	})
	if err != nil {
		log.WithError(err).WithField("row", rec.Row).Warn("part row failed")
		run.result.fail(RowError{RowNumber: rec.Row, PartDesignation: rec.Designation, Type: ItemPart, Message: err.Error()})
		return
	}
	buildingName := target.Building.Name
	run.result.synced(SyncedItem{
		PartDesignation: rec.Designation,
		ProjectNumber:   rec.ProjectNumber,
		BuildingName:    &buildingName,
		Action:          action,
		Type:            ItemPart,
	})
}

func (s *PtsSyncService) partFromRecord(rec pts.PartRecord, target Target, userID *uint) *assemblypart.AssemblyPart {
	source := s.cfg.Source
	ref := pts.PartExternalRef(rec.Designation)
	buildingID := target.Building.ID
	return &assemblypart.AssemblyPart{
		ProjectID:       target.Project.ID,
		BuildingID:      &buildingID,
		Designation:     rec.Designation,
		AssemblyMark:    rec.AssemblyMark,
		SubAssemblyMark: rec.SubAssemblyMark,
		PartMark:        rec.PartMark,
		Quantity:        rec.Quantity,
		Name:            rec.Name,
		Profile:         rec.Profile,
		Grade:           rec.Grade,
		LengthMm:        rec.LengthMm,
		NetAreaPerUnit:  rec.AreaPerUnit,
		NetAreaTotal:    rec.AreaTotal,
		SingleWeight:    rec.WeightPerUnit,
		NetWeightTotal:  rec.WeightTotal,
		Status:          assemblypart.StatusNotStarted,
		Source:          &source,
		ExternalRef:     &ref,
		CreatedByID:     userID,
	}
}

// partRef is a stored part with the natural keys of its owners.
type partRef struct {
	part                *assemblypart.AssemblyPart
	projectNumber       string
	buildingDesignation string
	buildingName        *string
}

type partIndex map[string][]partRef

// lookup finds the part a log row refers to. The row's project number
// disambiguates designations stored under several projects.
func (idx partIndex) lookup(designation, projectNumber string) (partRef, string) {
	refs := idx[designation]
	if len(refs) == 0 {
		return partRef{}, ReasonNoMatchingPart
	}
	if projectNumber != "" {
		var matched []partRef
		for _, r := range refs {
			if r.projectNumber == projectNumber {
				matched = append(matched, r)
			}
		}
		if len(matched) == 1 {
			return matched[0], ""
		}
	}
	if len(refs) == 1 {
		return refs[0], ""
	}
	return partRef{}, ReasonAmbiguousPart
}

func (s *PtsSyncService) loadPartIndex(ctx context.Context, resolver *Resolver, rows []pts.SourceRow) (partIndex, error) {
	seen := make(map[string]struct{})
	designations := make([]string, 0, len(rows))
	for _, row := range rows {
		d := row.Cell(s.cfg.Columns.Logs.PartNumber)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		designations = append(designations, d)
	}
	idx := make(partIndex)
	if len(designations) == 0 {
		return idx, nil
	}
	parts, err := s.repos.Parts.FindByDesignations(ctx, designations)
	if err != nil {
		return nil, errors.Wrap(err, "load assembly parts")
	}
	for _, p := range parts {
		ref := partRef{part: p}
		if proj, ok := resolver.ProjectByID(p.ProjectID); ok {
			ref.projectNumber = proj.Number
		}
		if p.BuildingID != nil {
			if b, ok := resolver.Buildings().Get(*p.BuildingID); ok {
				ref.buildingDesignation = b.Designation
				name := b.Name
				ref.buildingName = &name
			}
		}
		idx[p.Designation] = append(idx[p.Designation], ref)
	}
	return idx, nil
}

func (s *PtsSyncService) syncLogs(ctx context.Context, run *syncRun) error {
	ctx, span := s.tracer.Start(ctx, "pts.syncLogs")
	defer span.End()

	rows, err := s.fetch(ctx, s.cfg.LogSheet, s.cfg.LogRange)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	idx, err := s.loadPartIndex(ctx, run.resolver, rows)
	if err != nil {
		span.RecordError(err)
		return err
	}
	log := run.log.WithField("phase", PhaseLogs)
	bp := &batchProcessor{size: s.cfg.BatchSize, phase: PhaseLogs, noun: "logs", renew: run.renew, onProgress: run.onProgress, log: log}
	err = bp.run(ctx, rows, func(ctx context.Context, row pts.SourceRow) {
		s.processLogRow(ctx, run, log, idx, row)
	})
	log.WithFields(logrus.Fields{
		"created":         run.result.Logs.Created,
		"updated":         run.result.Logs.Updated,
		"skipped":         run.result.Logs.Skipped,
		"errors":          run.result.Logs.Errored,
		"dates_defaulted": run.result.DatesDefaulted,
	}).Info("log phase finished")
	return err
}

// projectPrefix guesses the project number of an unmatched designation
// such as "253-103-CO11".
func projectPrefix(designation string) string {
	if i := strings.Index(designation, "-"); i > 0 {
		return designation[:i]
	}
	return designation
}

func (s *PtsSyncService) processLogRow(ctx context.Context, run *syncRun, log *logrus.Entry, idx partIndex, row pts.SourceRow) {
	rec, err := pts.ParseLogRow(row, s.cfg.Columns.Logs)
	if err != nil {
		if errors.Is(err, pts.ErrBlankRow) {
			run.result.skip(SkippedItem{RowNumber: row.Number, Reason: ReasonBlankRow, Type: ItemLog})
			return
		}
		run.result.fail(RowError{RowNumber: row.Number, Type: ItemLog, Message: err.Error()})
		return
	}

	ref, reason := idx.lookup(rec.PartDesignation, rec.ProjectNumber)
	if reason != "" {
		projectNumber := rec.ProjectNumber
		if projectNumber == "" {
			projectNumber = projectPrefix(rec.PartDesignation)
		}
		run.result.skip(SkippedItem{
			RowNumber:       rec.Row,
			PartDesignation: rec.PartDesignation,
			ProjectNumber:   projectNumber,
			Reason:          reason,
			Type:            ItemLog,
		})
		return
	}
	skip := func(reason string) {
		run.result.skip(SkippedItem{
			RowNumber:       rec.Row,
			PartDesignation: rec.PartDesignation,
			ProjectNumber:   ref.projectNumber,
			Reason:          reason,
			Type:            ItemLog,
		})
	}
	if !run.opts.projectSelected(ref.projectNumber) {
		skip(ReasonProjectNotSelected)
		return
	}
	if !run.opts.buildingSelected(ref.projectNumber, ref.buildingDesignation) {
		skip(ReasonBuildingNotSelected)
		return
	}

	date := rec.Date
	dateDefaulted := !rec.DateOK
	if dateDefaulted {
		if s.cfg.DateFallback == configuration.DateFallbackError {
			run.result.fail(RowError{
				RowNumber:       rec.Row,
				PartDesignation: rec.PartDesignation,
				Type:            ItemLog,
				Code:            ErrDateUnparsable.Code,
				Message:         ErrDateUnparsable.Wrapf("%q", rec.RawDate).Error(),
			})
			return
		}
		now := s.now().UTC()
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		run.result.DatesDefaulted++
		log.WithFields(logrus.Fields{
			"row":      rec.Row,
			"raw_date": rec.RawDate,
		}).Warn("unparsable process date, using the run date")
	}

	source := s.cfg.Source
	externalRef := pts.LogExternalRef(source, rec.Row, rec.PartDesignation, rec.ProcessType)
	entry := &productionlog.ProductionLog{
		PartID:        ref.part.ID,
		ProcessType:   rec.ProcessType,
		DateProcessed: date,
		ProcessedQty:  rec.ProcessedQty,
		Location:      rec.Location,
		Team:          rec.ProcessedBy,
		ReportNumber:  rec.ReportNumber,
		Source:        &source,
		ExternalRef:   &externalRef,
		CreatedByID:   run.userID,
	}
	var action Action
	err = composables.InTxIfPool(ctx, func(txCtx context.Context) error {
		var upsertErr error
		action, upsertErr = s.upserter.UpsertLog(txCtx, ref.part, entry, dateDefaulted)
		return upsertErr
	})
	if err != nil {
		log.WithError(err).WithField("row", rec.Row).Warn("log row failed")
		run.result.fail(RowError{RowNumber: rec.Row, PartDesignation: rec.PartDesignation, Type: ItemLog, Message: err.Error()})
		return
	}
	run.result.synced(SyncedItem{
		PartDesignation: rec.PartDesignation,
		ProjectNumber:   ref.projectNumber,
		BuildingName:    ref.buildingName,
		ProcessType:     rec.ProcessType,
		Action:          action,
		Type:            ItemLog,
	})
}
