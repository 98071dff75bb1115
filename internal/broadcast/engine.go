package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"subtitlebot/internal/transport"
)

var errUnknownPayload = errors.New("payload has no recognized variant")

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailed
	outcomeBlocked
)

// Run delivers the job payload to every known recipient and returns the
// final counters. A failure for one recipient never aborts delivery to the
// rest; only setup failures return a non-nil error alongside an empty
// report. Cancellation is honored between batches and returns the partial
// report together with ctx.Err().
func (s *Service) Run(ctx context.Context, job Job) (Report, error) {
	start := time.Now()
	cfg, limiter := s.snapshot()

	if !job.Payload.Valid() {
		// Keep going: every recipient is counted as failed, which preserves
		// the success+failed+blocked == total invariant.
		s.log.Warn().Str("kind", string(job.Payload.Kind)).Msg("payload has no recognized variant; all sends will fail")
	}

	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("%w: list recipients: %w", ErrSetup, err)
	}

	stats := Stats{Total: len(ids)}
	recordID, err := s.store.CreateBroadcast(ctx, job.AdminID, stats.Total)
	if err != nil {
		// Delivery is the primary goal; auditing is secondary.
		s.log.Warn().Err(err).Msg("broadcast record unavailable; continuing with in-memory stats only")
		recordID = 0
	}

	s.log.Info().Int64("admin_id", job.AdminID).Int("total", stats.Total).
		Str("kind", string(job.Payload.Kind)).Int64("record_id", recordID).
		Msg("broadcast started")

	batches := chunk(ids, cfg.BatchSize)
	for i, batch := range batches {
		if i > 0 {
			if err := s.sleep(ctx, cfg.BatchDelay); err != nil {
				return s.finish(ctx, recordID, stats, start), err
			}
		}
		if err := ctx.Err(); err != nil {
			return s.finish(ctx, recordID, stats, start), err
		}

		var delta Stats
		for _, uid := range batch {
			switch s.deliver(ctx, cfg, limiter, transport.ChatTarget{ChatID: uid}, job.Payload) {
			case outcomeSuccess:
				delta.Success++
			case outcomeBlocked:
				delta.Blocked++
			default:
				delta.Failed++
			}
		}
		stats = stats.plus(delta)

		if recordID != 0 {
			if err := s.store.IncrementBroadcast(ctx, recordID, delta.Success, delta.Failed, delta.Blocked); err != nil {
				s.log.Warn().Err(err).Int64("record_id", recordID).Msg("broadcast record increment failed")
			}
		}

		if job.Progress != nil && (i+1)%cfg.ProgressEvery == 0 {
			s.updateProgress(ctx, *job.Progress, stats)
		}
	}

	rep := s.finish(ctx, recordID, stats, start)
	s.log.Info().Int("success", rep.Success).Int("failed", rep.Failed).
		Int("blocked", rep.Blocked).Str("took", rep.Took).Msg("broadcast finished")
	return rep, nil
}

// finish closes out the audit record and assembles the report. The record
// update must survive caller cancellation, hence WithoutCancel.
func (s *Service) finish(ctx context.Context, recordID int64, stats Stats, start time.Time) Report {
	if recordID != 0 {
		fctx := context.WithoutCancel(ctx)
		if err := s.store.CompleteBroadcast(fctx, recordID); err != nil {
			s.log.Warn().Err(err).Int64("record_id", recordID).Msg("broadcast record completion failed")
		}
	}
	elapsed := time.Since(start)
	return Report{Stats: stats, Elapsed: elapsed, Took: formatDuration(elapsed)}
}

// deliver sends the payload to one recipient and classifies the outcome.
// A rate-limit response suspends this delivery path for the mandated wait
// and retries exactly once.
func (s *Service) deliver(ctx context.Context, cfg Config, limiter *rate.Limiter, to transport.ChatTarget, p Payload) outcome {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return outcomeFailed
		}
	}

	err := s.sendOnce(ctx, cfg.SendTimeout, to, p)
	if err == nil {
		return outcomeSuccess
	}
	if transport.IsUnreachable(err) {
		return outcomeBlocked
	}
	if wait, ok := transport.AsRateLimit(err); ok {
		s.log.Warn().Int64("user_id", to.ChatID).Dur("wait", wait).Msg("rate limited; retrying after mandated wait")
		if err := s.sleep(ctx, wait); err != nil {
			return outcomeFailed
		}
		if err := s.sendOnce(ctx, cfg.SendTimeout, to, p); err != nil {
			s.log.Error().Err(err).Int64("user_id", to.ChatID).Msg("send failed after rate-limit retry")
			if transport.IsUnreachable(err) {
				return outcomeBlocked
			}
			return outcomeFailed
		}
		return outcomeSuccess
	}

	s.log.Error().Err(err).Int64("user_id", to.ChatID).Msg("send failed")
	return outcomeFailed
}

func (s *Service) sendOnce(ctx context.Context, timeout time.Duration, to transport.ChatTarget, p Payload) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var err error
	switch p.Kind {
	case PayloadText:
		_, err = s.sender.SendText(ctx, to, p.Text, nil)
	case PayloadPhoto:
		_, err = s.sender.SendPhoto(ctx, to, p.FileID, p.Text, nil)
	case PayloadVideo:
		_, err = s.sender.SendVideo(ctx, to, p.FileID, p.Text, nil)
	case PayloadDocument:
		_, err = s.sender.SendDocument(ctx, to, p.FileID, p.Text, nil)
	case PayloadAnimation:
		_, err = s.sender.SendAnimation(ctx, to, p.FileID, p.Text, nil)
	default:
		err = errUnknownPayload
	}
	return err
}
