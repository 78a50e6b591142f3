package application

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

// MigrationManager collects embedded goose schema directories from modules
// and applies them against the application database.
type MigrationManager interface {
	RegisterSchema(dir string, fsys ...*embed.FS)
	Schemas() []Schema
	Run(ctx context.Context, dsn string) error
}

type Schema struct {
	Dir string
	FS  fs.FS
}

func NewMigrationManager(pool *pgxpool.Pool, log *logrus.Logger) MigrationManager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &migrationManager{pool: pool, log: log}
}

type migrationManager struct {
	pool    *pgxpool.Pool
	log     *logrus.Logger
	schemas []Schema
}

func (m *migrationManager) RegisterSchema(dir string, fsys ...*embed.FS) {
	for _, f := range fsys {
		m.schemas = append(m.schemas, Schema{Dir: dir, FS: f})
	}
}

func (m *migrationManager) Schemas() []Schema {
	return m.schemas
}

// Run applies every registered schema in registration order. goose keeps
// its version table in the target database, so re-running is a no-op.
func (m *migrationManager) Run(ctx context.Context, dsn string) error {
	if len(m.schemas) == 0 {
		return nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return errors.Wrap(err, "open sql connection")
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "ping sql connection")
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "configure goose")
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	defer goose.SetBaseFS(nil)
	for _, schema := range m.schemas {
		goose.SetBaseFS(schema.FS)
		m.log.WithField("dir", schema.Dir).Info("applying migrations")
		if err := goose.UpContext(runCtx, db, schema.Dir); err != nil {
			return errors.Wrapf(err, "apply migrations from %s", schema.Dir)
		}
	}
	m.log.Info("migrations applied")
	return nil
}
