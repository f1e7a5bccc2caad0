package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/wlog/internal/models"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"
)

// SQLite stores sessions in a local SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the SQLite session database at path.
// The schema is expected to be migrated already.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating session dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging session db: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) CreateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions
		(id, access_token, workspace_id, workspace_name, bot_id,
		 workout_db_id, log_db_id, routine_db_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.AccessToken, sess.WorkspaceID, sess.WorkspaceName, sess.BotID,
		sess.Databases.WorkoutDBID, sess.Databases.LogDBID, sess.Databases.RoutineDBID,
		sess.CreatedAt.Unix(), sess.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (s *SQLite) GetSession(ctx context.Context, id string) (*Session, error) {
	var (
		sess             Session
		created, expires int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, access_token, workspace_id, workspace_name, bot_id,
		workout_db_id, log_db_id, routine_db_id, created_at, expires_at
		FROM sessions WHERE id = ? AND expires_at > ?`, id, time.Now().Unix(),
	).Scan(&sess.ID, &sess.AccessToken, &sess.WorkspaceID, &sess.WorkspaceName, &sess.BotID,
		&sess.Databases.WorkoutDBID, &sess.Databases.LogDBID, &sess.Databases.RoutineDBID,
		&created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	sess.CreatedAt = time.Unix(created, 0)
	sess.ExpiresAt = time.Unix(expires, 0)
	return &sess, nil
}

func (s *SQLite) SaveDatabaseConfig(ctx context.Context, id string, cfg models.DatabaseConfig) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET
		workout_db_id = ?, log_db_id = ?,
		routine_db_id = COALESCE(NULLIF(?, ''), routine_db_id)
		WHERE id = ?`,
		cfg.WorkoutDBID, cfg.LogDBID, cfg.RoutineDBID, id,
	)
	if err != nil {
		return fmt.Errorf("saving database config: %w", err)
	}
	return requireRow(res)
}

func (s *SQLite) ClearDatabaseConfig(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET workout_db_id = '', log_db_id = '', routine_db_id = '' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clearing database config: %w", err)
	}
	return requireRow(res)
}

func (s *SQLite) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the session database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
