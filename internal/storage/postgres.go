package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/wlog/internal/models"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores sessions in PostgreSQL through a pgx pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres creates a new Postgres store with a connection pool.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Postgres{Pool: pool}, nil
}

func (p *Postgres) CreateSession(ctx context.Context, s *Session) error {
	_, err := p.Pool.Exec(ctx, `INSERT INTO sessions
		(id, access_token, workspace_id, workspace_name, bot_id,
		 workout_db_id, log_db_id, routine_db_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.AccessToken, s.WorkspaceID, s.WorkspaceName, s.BotID,
		s.Databases.WorkoutDBID, s.Databases.LogDBID, s.Databases.RoutineDBID,
		s.CreatedAt, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (p *Postgres) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := p.Pool.QueryRow(ctx, `SELECT id, access_token, workspace_id, workspace_name, bot_id,
		workout_db_id, log_db_id, routine_db_id, created_at, expires_at
		FROM sessions WHERE id = $1 AND expires_at > now()`, id,
	).Scan(&s.ID, &s.AccessToken, &s.WorkspaceID, &s.WorkspaceName, &s.BotID,
		&s.Databases.WorkoutDBID, &s.Databases.LogDBID, &s.Databases.RoutineDBID,
		&s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &s, nil
}

func (p *Postgres) SaveDatabaseConfig(ctx context.Context, id string, cfg models.DatabaseConfig) error {
	tag, err := p.Pool.Exec(ctx, `UPDATE sessions SET
		workout_db_id = $1, log_db_id = $2,
		routine_db_id = COALESCE(NULLIF($3, ''), routine_db_id)
		WHERE id = $4`,
		cfg.WorkoutDBID, cfg.LogDBID, cfg.RoutineDBID, id,
	)
	if err != nil {
		return fmt.Errorf("saving database config: %w", err)
	}
	return requireTag(tag)
}

func (p *Postgres) ClearDatabaseConfig(ctx context.Context, id string) error {
	tag, err := p.Pool.Exec(ctx,
		`UPDATE sessions SET workout_db_id = '', log_db_id = '', routine_db_id = '' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clearing database config: %w", err)
	}
	return requireTag(tag)
}

func (p *Postgres) DeleteSession(ctx context.Context, id string) error {
	if _, err := p.Pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := p.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.Pool.Close()
	return nil
}

func requireTag(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
