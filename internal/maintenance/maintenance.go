// Package maintenance runs the scheduled housekeeping job: pruning old
// broadcast records and sweeping expired admin sessions.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"subtitlebot/internal/config"
	"subtitlebot/internal/session"
	"subtitlebot/internal/storage"
)

const jobTimeout = time.Minute

type Service struct {
	cfg      config.MaintenanceConfig
	store    storage.Store
	sessions *session.Store
	log      zerolog.Logger

	c *cron.Cron
}

func New(cfg config.MaintenanceConfig, store storage.Store, sessions *session.Store, log zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		log:      log.With().Str("comp", "maintenance").Logger(),
	}
}

// Start registers the cron entry and begins scheduling. It is a no-op when
// maintenance is disabled.
func (s *Service) Start() error {
	if !s.cfg.Enabled {
		s.log.Debug().Msg("maintenance disabled")
		return nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s.c = cron.New(cron.WithParser(parser))
	if _, err := s.c.AddFunc(s.cfg.Schedule, s.runOnce); err != nil {
		return fmt.Errorf("maintenance schedule %q: %w", s.cfg.Schedule, err)
	}
	s.c.Start()
	s.log.Info().Str("schedule", s.cfg.Schedule).Dur("retention", time.Duration(s.cfg.Retention)).Msg("maintenance scheduled")
	return nil
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Service) Stop() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
}

func (s *Service) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	cutoff := time.Now().Add(-time.Duration(s.cfg.Retention))
	pruned, err := s.store.PruneBroadcasts(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("broadcast prune failed")
	}
	swept := s.sessions.Prune()
	s.log.Info().Int64("records_pruned", pruned).Int("sessions_swept", swept).Msg("maintenance run complete")
}
