package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"subtitlebot/internal/transport"
)

// ErrSetup marks a failure before any delivery was attempted (recipient
// enumeration, payload acquisition). Per-recipient failures never surface
// as errors; they are classified into the job's Stats instead.
var ErrSetup = errors.New("broadcast setup")

// Recorder is the narrow repository surface the engine needs: the recipient
// snapshot plus the append-only audit record with atomic counter increments.
type Recorder interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
	CreateBroadcast(ctx context.Context, adminID int64, total int) (int64, error)
	IncrementBroadcast(ctx context.Context, id int64, success, failed, blocked int) error
	CompleteBroadcast(ctx context.Context, id int64) error
}

// Service runs broadcast jobs one at a time. Config can be swapped at
// runtime with Apply; a running job keeps the snapshot it started with.
type Service struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	sender transport.Sender
	store  Recorder
	log    zerolog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, sender transport.Sender, store Recorder, log zerolog.Logger) *Service {
	s := &Service{
		sender: sender,
		store:  store,
		log:    log.With().Str("comp", "broadcast").Logger(),
		sleep:  ctxSleep,
	}
	s.Apply(cfg)
	return s
}

// Apply replaces the engine configuration. Takes effect for the next job.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	if cfg.RatePerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	} else {
		s.limiter = nil
	}
}

func (s *Service) snapshot() (Config, *rate.Limiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.withDefaults(), s.limiter
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
