package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/pts-sync/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files from the working directory. When none of
// them exist there, it retries from the nearest directory holding go.mod, so
// tests running inside package directories still see the repo's .env files.
func LoadEnv(envFiles []string) (int, error) {
	existing := existingFiles("", envFiles)
	if len(existing) == 0 {
		if root := goModRoot(); root != "" {
			existing = existingFiles(root, envFiles)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func existingFiles(dir string, envFiles []string) []string {
	out := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		path := file
		if dir != "" {
			path = filepath.Join(dir, file)
		}
		if fs.FileExists(path) {
			out = append(out, path)
		}
	}
	return out
}

func goModRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"ots"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type GoogleOptions struct {
	// Raw service account JSON. Takes precedence over ServiceAccountFile.
	ServiceAccountKey  string `env:"GOOGLE_SERVICE_ACCOUNT_KEY"`
	ServiceAccountFile string `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`
}

// Credentials returns the service account JSON, or nil when none is configured.
func (g *GoogleOptions) Credentials() ([]byte, error) {
	if key := strings.TrimSpace(g.ServiceAccountKey); key != "" {
		return []byte(key), nil
	}
	if path := strings.TrimSpace(g.ServiceAccountFile); path != "" {
		return os.ReadFile(path)
	}
	return nil, nil
}

const (
	DateFallbackNow   = "now"
	DateFallbackError = "error"
)

type PTSOptions struct {
	SpreadsheetID    string `env:"PTS_SPREADSHEET_ID"`
	RawDataSheet     string `env:"PTS_RAW_DATA_SHEET" envDefault:"02-Raw Data"`
	LogSheet         string `env:"PTS_LOG_SHEET" envDefault:"04-Log"`
	RawDataRange     string `env:"PTS_RAW_DATA_RANGE" envDefault:"A2:T"`
	LogRange         string `env:"PTS_LOG_RANGE" envDefault:"A2:R"`
	BatchSize        int    `env:"PTS_BATCH_SIZE" envDefault:"100"`
	SourceTag        string `env:"PTS_SOURCE_TAG" envDefault:"PTS"`
	ColumnsFile      string `env:"PTS_COLUMNS_FILE"`
	DateFallback     string `env:"PTS_DATE_FALLBACK" envDefault:"now"`
	MaxReportedItems int    `env:"PTS_MAX_REPORTED_ITEMS" envDefault:"500"`
	// When set, rows are read from this .xlsx file instead of Google Sheets.
	WorkbookPath string `env:"PTS_WORKBOOK_PATH"`
}

func (p *PTSOptions) Validate() error {
	if p.BatchSize <= 0 {
		return fmt.Errorf("PTS_BATCH_SIZE must be positive, got %d", p.BatchSize)
	}
	if p.MaxReportedItems < 1 {
		return fmt.Errorf("PTS_MAX_REPORTED_ITEMS must be at least 1, got %d", p.MaxReportedItems)
	}
	if strings.TrimSpace(p.SourceTag) == "" {
		return fmt.Errorf("PTS_SOURCE_TAG must not be empty")
	}
	mode := strings.ToLower(strings.TrimSpace(p.DateFallback))
	switch mode {
	case DateFallbackNow, DateFallbackError:
	default:
		return fmt.Errorf("invalid PTS_DATE_FALLBACK=%q (expected now|error)", p.DateFallback)
	}
	p.DateFallback = mode
	return nil
}

type LockOptions struct {
	Backend  string        `env:"LOCK_BACKEND" envDefault:"memory"` // memory or redis
	RedisURL string        `env:"REDIS_URL" envDefault:"localhost:6379"`
	TTL      time.Duration `env:"LOCK_TTL" envDefault:"30m"`
}

func (l *LockOptions) Validate() error {
	if l.Backend != "memory" && l.Backend != "redis" {
		return fmt.Errorf("LOCK_BACKEND must be 'memory' or 'redis', got '%s'", l.Backend)
	}
	if l.Backend == "redis" && l.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when LOCK_BACKEND is 'redis'")
	}
	if l.TTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive, got %s", l.TTL)
	}
	return nil
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"pts-sync"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type Configuration struct {
	Database      DatabaseOptions
	Google        GoogleOptions
	PTS           PTSOptions
	Lock          LockOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions

	MigrateOnStart   bool   `env:"MIGRATE_ON_START" envDefault:"false"`
	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

// Parse reads the environment into a fresh Configuration without touching
// the singleton or opening the log file.
func Parse() (*Configuration, error) {
	c := &Configuration{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Configuration) validate() error {
	if err := c.PTS.Validate(); err != nil {
		return fmt.Errorf("pts configuration error: %w", err)
	}
	if err := c.Lock.Validate(); err != nil {
		return fmt.Errorf("lock configuration error: %w", err)
	}
	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
