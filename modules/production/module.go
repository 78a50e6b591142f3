package production

import (
	"embed"

	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
	"github.com/iota-uz/pts-sync/modules/production/handlers"
	"github.com/iota-uz/pts-sync/modules/production/infrastructure/persistence"
	"github.com/iota-uz/pts-sync/modules/production/presentation/controllers"
	"github.com/iota-uz/pts-sync/modules/production/services"
	"github.com/iota-uz/pts-sync/pkg/application"
	"github.com/iota-uz/pts-sync/pkg/runlock"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

const SchemaDir = "infrastructure/persistence/schema"

type ModuleOptions struct {
	Source pts.Source
	Locker runlock.Locker
	Config services.Config
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(SchemaDir, &migrationFiles)

	syncRuns := persistence.NewSyncRunRepository()
	svc := services.NewPtsSyncService(
		m.options.Source,
		services.Repositories{
			Projects:  persistence.NewProjectRepository(),
			Buildings: persistence.NewBuildingRepository(),
			Parts:     persistence.NewAssemblyPartRepository(),
			Logs:      persistence.NewProductionLogRepository(),
		},
		app.EventPublisher(),
		m.options.Locker,
		m.options.Config,
	)
	app.RegisterServices(svc, services.NewSyncRunner(svc))
	app.RegisterControllers(controllers.NewPtsSyncController(app, syncRuns))
	handlers.RegisterSyncRunHandler(app, syncRuns)
	handlers.RegisterMetricsHandlers(app)
	return nil
}

func (m *Module) Name() string {
	return "production"
}
