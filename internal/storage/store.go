package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Store is the persistence API used by the router and the broadcast engine.
type Store interface {
	UpsertUser(ctx context.Context, u User) error
	CountUsers(ctx context.Context) (int, error)
	ListUserIDs(ctx context.Context) ([]int64, error)

	CreateBroadcast(ctx context.Context, adminID int64, total int) (int64, error)
	IncrementBroadcast(ctx context.Context, id int64, success, failed, blocked int) error
	CompleteBroadcast(ctx context.Context, id int64) error
	RecentBroadcasts(ctx context.Context, limit int) ([]BroadcastRecord, error)
	PruneBroadcasts(ctx context.Context, olderThan time.Time) (int64, error)

	Close() error
}

// Open initializes the SQLite store at cfg.Path.
func Open(cfg Config, log zerolog.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage path is required")
	}
	return openSQLite(cfg, log.With().Str("comp", "storage").Logger())
}
