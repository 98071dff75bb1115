package broadcast

import (
	"time"

	"subtitlebot/internal/transport"
)

// PayloadKind discriminates the broadcast content variants.
type PayloadKind string

const (
	PayloadText      PayloadKind = "text"
	PayloadPhoto     PayloadKind = "photo"
	PayloadVideo     PayloadKind = "video"
	PayloadDocument  PayloadKind = "document"
	PayloadAnimation PayloadKind = "animation"
)

// Payload is the content delivered to every recipient. Exactly one variant
// is populated: Text holds the message body for PayloadText and the optional
// caption for media kinds; FileID is the platform media reference.
type Payload struct {
	Kind   PayloadKind
	Text   string
	FileID string
}

// Valid reports whether the payload carries a recognized variant.
func (p Payload) Valid() bool {
	switch p.Kind {
	case PayloadText:
		return true
	case PayloadPhoto, PayloadVideo, PayloadDocument, PayloadAnimation:
		return p.FileID != ""
	default:
		return false
	}
}

// Stats are the running delivery counters. They only ever grow, and
// Success+Failed+Blocked == Total once a job completes.
type Stats struct {
	Total   int
	Success int
	Failed  int
	Blocked int
}

// Done is the number of recipients with a classified outcome.
func (s Stats) Done() int { return s.Success + s.Failed + s.Blocked }

// Remaining is Total minus classified outcomes, clamped at zero.
func (s Stats) Remaining() int {
	if r := s.Total - s.Done(); r > 0 {
		return r
	}
	return 0
}

func (s Stats) plus(d Stats) Stats {
	s.Success += d.Success
	s.Failed += d.Failed
	s.Blocked += d.Blocked
	return s
}

// Report is the final result returned to the caller.
type Report struct {
	Stats

	Elapsed time.Duration
	Took    string // human form of Elapsed, e.g. "2m 13s"
}

// Job describes one broadcast invocation.
type Job struct {
	Payload Payload
	AdminID int64

	// Progress, when set, is an existing status message that gets edited in
	// place with running totals. Best-effort only.
	Progress *transport.MessageRef
}

// Config tunes the fan-out engine. Zero values fall back to defaults.
type Config struct {
	BatchSize     int           // recipients per batch (default 50)
	BatchDelay    time.Duration // pause between batches (default 1s)
	ProgressEvery int           // progress edit cadence in batches (default 5)
	RatePerSec    int           // global send rate limit; 0 disables
	SendTimeout   time.Duration // per-delivery bound (default 30s)
}

const (
	defaultBatchSize     = 50
	defaultBatchDelay    = time.Second
	defaultProgressEvery = 5
	defaultSendTimeout   = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = defaultBatchDelay
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = defaultProgressEvery
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = defaultSendTimeout
	}
	return c
}
