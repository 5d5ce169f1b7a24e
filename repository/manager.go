package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	phoneconfirm "github.com/goliatone/go-phoneconfirm"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config describes the database the confirmations live in
type Config struct {
	Debug          bool          `koanf:"debug" mapstructure:"debug"`
	Driver         string        `koanf:"driver" mapstructure:"driver"`
	DSN            string        `koanf:"dsn" mapstructure:"dsn"`
	PingTimeout    time.Duration `koanf:"ping_timeout" mapstructure:"ping_timeout"`
	OtelIdentifier string        `koanf:"otel_identifier" mapstructure:"otel_identifier"`
}

func (c Config) GetDebug() bool {
	return c.Debug
}

func (c Config) GetDriver() string {
	return c.Driver
}

func (c Config) GetServer() string {
	return c.DSN
}

func (c Config) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return time.Second
	}
	return c.PingTimeout
}

func (c Config) GetOtelIdentifier() string {
	if c.OtelIdentifier == "" {
		return "phoneconfirm"
	}
	return c.OtelIdentifier
}

// Open opens the sql.DB and picks the bun dialect for cfg.Driver
func Open(cfg Config) (*sql.DB, schema.Dialect, error) {
	switch cfg.Driver {
	case DriverSQLite, "sqlite3", "":
		db, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(1)
		return db, sqlitedialect.New(), nil
	case DriverPostgres:
		return OpenPostgres(cfg.DSN)
	default:
		return nil, nil, fmt.Errorf("repository: unsupported driver %q", cfg.Driver)
	}
}

// OpenPostgres opens a lib/pq connection with the bun postgres dialect
func OpenPostgres(dsn string) (*sql.DB, schema.Dialect, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	return db, pgdialect.New(), nil
}

// NewClient builds a persistence client for db, registers the confirmation
// model and migrations and applies them.
func NewClient(ctx context.Context, cfg Config, db *sql.DB, dialect schema.Dialect) (*persistence.Client, error) {
	if db == nil {
		return nil, errors.New("repository: sql db is required")
	}

	persistence.RegisterModel((*phoneconfirm.Confirmation)(nil))

	client, err := persistence.New(cfg, db, dialect)
	if err != nil {
		return nil, fmt.Errorf("repository: new persistence client: %w", err)
	}

	migrations, err := phoneconfirm.MigrationsFS()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("repository: migrations filesystem: %w", err)
	}
	client.RegisterSQLMigrations(migrations)

	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("repository: migrate: %w", err)
	}

	return client, nil
}

// NewManager returns the repository manager backed by client
func NewManager(client *persistence.Client) phoneconfirm.RepositoryManager {
	return phoneconfirm.NewRepositoryManager(client.DB())
}
