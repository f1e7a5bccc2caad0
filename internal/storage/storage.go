package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/claude/wlog/internal/models"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Supported session store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Session is a signed-in browser: the remote access token obtained through
// OAuth and the tables the user picked.
type Session struct {
	ID            string
	AccessToken   string
	WorkspaceID   string
	WorkspaceName string
	BotID         string
	Databases     models.DatabaseConfig
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Credentials returns what workout operations need from the session.
func (s *Session) Credentials() models.Credentials {
	return models.Credentials{AccessToken: s.AccessToken, Databases: s.Databases}
}

// Sessions persists sessions.
type Sessions interface {
	CreateSession(ctx context.Context, s *Session) error
	// GetSession returns ErrNotFound for unknown and expired sessions.
	GetSession(ctx context.Context, id string) (*Session, error)
	// SaveDatabaseConfig stores the picked tables. An empty routine table id
	// keeps the stored one.
	SaveDatabaseConfig(ctx context.Context, id string, cfg models.DatabaseConfig) error
	ClearDatabaseConfig(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
	Close() error
}

// Open connects to the session store for driver and applies pending
// migrations.
func Open(ctx context.Context, driver, dsn string) (Sessions, error) {
	var (
		store Sessions
		err   error
	)
	switch driver {
	case DriverSQLite, "":
		store, err = OpenSQLite(dsn)
	case DriverPostgres:
		store, err = NewPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown session driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(driver, dsn); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// RunMigrations applies all pending migrations embedded for driver.
func RunMigrations(driver, dsn string) error {
	var dir, url string
	switch driver {
	case DriverSQLite, "":
		dir, url = "migrations/sqlite", "sqlite://"+dsn
	case DriverPostgres:
		dir, url = "migrations/postgres", dsn
	default:
		return fmt.Errorf("unknown session driver %q", driver)
	}

	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("opening embedded migrations: %w", err)
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("reading embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
