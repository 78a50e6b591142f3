package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/pts-sync/modules/production/domain/entities/building"
	"github.com/iota-uz/pts-sync/modules/production/domain/entities/project"
	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
	"github.com/iota-uz/pts-sync/modules/production/infrastructure/memstore"
	"github.com/iota-uz/pts-sync/pkg/eventbus"
	"github.com/iota-uz/pts-sync/pkg/logging"
	"github.com/iota-uz/pts-sync/pkg/runlock"
)

const (
	rawSheet = "02-Raw Data"
	logSheet = "04-Log"
)

var fixedNow = time.Date(2024, time.October, 9, 15, 30, 0, 0, time.UTC)

type fakeSource struct {
	mu     sync.Mutex
	sheets map[string][][]string
	err    error
}

func (f *fakeSource) FetchRange(_ context.Context, sheet string, _ pts.RangeSpec) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.sheets[sheet], nil
}

func (f *fakeSource) set(sheet string, rows ...[]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sheets[sheet] = rows
}

// partRow builds a Raw Data row (columns A..T).
func partRow(projectNumber, designation, qty, buildingDesignation, buildingName string) []string {
	row := make([]string, 20)
	row[1] = projectNumber
	row[2] = designation
	row[4] = "A1"
	row[6] = "p1"
	row[7] = qty
	row[8] = "Column"
	row[9] = "HEA200"
	row[10] = "S355"
	row[11] = "1200"
	row[14] = "42.5"
	row[17] = buildingDesignation
	row[19] = buildingName
	return row
}

// logRow builds a Log row (columns A..I).
func logRow(partDesignation, process, qty, date, projectNumber string) []string {
	return []string{"", partDesignation, process, qty, date, "Bay 1", "Team A", "R-1", projectNumber}
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memstore.Store
	source *fakeSource
	bus    eventbus.EventBus
	locker *runlock.MemoryLocker
	svc    *PtsSyncService

	p254 *project.Project
	p253 *project.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	p254 := &project.Project{Number: "254", Name: "Tower"}
	p253 := &project.Project{Number: "253", Name: "Warehouse"}
	require.NoError(t, store.Projects().Create(ctx, p254))
	require.NoError(t, store.Projects().Create(ctx, p253))

	src := &fakeSource{sheets: map[string][][]string{}}
	bus := eventbus.NewEventPublisher(logging.NopLogger())
	locker := runlock.NewMemoryLocker()
	svc := NewPtsSyncService(src, Repositories{
		Projects:  store.Projects(),
		Buildings: store.Buildings(),
		Parts:     store.Parts(),
		Logs:      store.Logs(),
	}, bus, locker, DefaultConfig())
	svc.now = func() time.Time { return fixedNow }

	return &fixture{
		t:      t,
		ctx:    ctx,
		store:  store,
		source: src,
		bus:    bus,
		locker: locker,
		svc:    svc,
		p254:   p254,
		p253:   p253,
	}
}

func (f *fixture) addBuilding(p *project.Project, designation, name string) *building.Building {
	f.t.Helper()
	b := &building.Building{ProjectID: p.ID, Designation: designation, Name: name}
	require.NoError(f.t, f.store.Buildings().Create(f.ctx, b))
	return b
}

func (f *fixture) sync(opts Options) *SyncResult {
	f.t.Helper()
	res, err := f.svc.FullSync(f.ctx, nil, opts, nil)
	require.NoError(f.t, err)
	require.True(f.t, res.RawData.Consistent(), "raw data counters: %+v", res.RawData)
	require.True(f.t, res.Logs.Consistent(), "log counters: %+v", res.Logs)
	return res
}
