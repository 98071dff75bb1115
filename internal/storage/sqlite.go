package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

func openSQLite(cfg Config, log zerolog.Logger) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) UpsertUser(ctx context.Context, u User) error {
	now := time.Now().Format(time.RFC3339Nano)
	lang := u.Language
	if lang == "" {
		lang = "en"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(user_id, username, first_name, language, joined_at, last_active)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   username = excluded.username,
		   first_name = excluded.first_name,
		   last_active = excluded.last_active`,
		u.ID, nullStr(u.Username), nullStr(u.FirstName), lang, now, now,
	)
	return err
}

func (s *sqliteStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (s *sqliteStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *sqliteStore) CreateBroadcast(ctx context.Context, adminID int64, total int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO broadcasts(admin_id, total_users, status, created_at)
		 VALUES(?,?,?,?)`,
		adminID, total, BroadcastInProgress, time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// IncrementBroadcast applies the batch delta with atomic in-database adds,
// so there is no read-modify-write race even with concurrent runs.
func (s *sqliteStore) IncrementBroadcast(ctx context.Context, id int64, success, failed, blocked int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE broadcasts
		 SET success = success + ?, failed = failed + ?, blocked = blocked + ?
		 WHERE id = ?`,
		success, failed, blocked, id,
	)
	return err
}

func (s *sqliteStore) CompleteBroadcast(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE broadcasts SET status = ?, completed_at = ? WHERE id = ?`,
		BroadcastCompleted, time.Now().Format(time.RFC3339Nano), id,
	)
	return err
}

func (s *sqliteStore) RecentBroadcasts(ctx context.Context, limit int) ([]BroadcastRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, admin_id, total_users, success, failed, blocked, status, created_at, completed_at
		 FROM broadcasts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BroadcastRecord
	for rows.Next() {
		var (
			r           BroadcastRecord
			createdAt   string
			completedAt sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.AdminID, &r.TotalUsers, &r.Success, &r.Failed, &r.Blocked, &r.Status, &createdAt, &completedAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		if completedAt.Valid {
			r.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt.String)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) PruneBroadcasts(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM broadcasts WHERE status = ? AND created_at < ?`,
		BroadcastCompleted, olderThan.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
