package config

import (
	"bytes"
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 250 * time.Millisecond

// Manager watches the config file and republishes it on change. Reloads are
// debounced (editors produce bursts of write events), skipped when the file
// content is unchanged, and dropped with a warning when the new content does
// not parse or validate — the last good config stays in effect.
type Manager struct {
	path string
	log  zerolog.Logger

	mu      sync.Mutex
	lastRaw []byte
	onApply []func(*Config)
}

func NewManager(path string, log zerolog.Logger) *Manager {
	return &Manager{path: path, log: log.With().Str("comp", "config").Logger()}
}

// OnReload registers fn to be called with every successfully reloaded
// config. Register before Watch.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onApply = append(m.onApply, fn)
}

// Load reads the config and remembers its content for change detection.
func (m *Manager) Load() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	cfg, err := parse(b)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.lastRaw = b
	m.mu.Unlock()
	return cfg, nil
}

// Watch blocks until ctx is done, applying config reloads as the file
// changes.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(m.path); err != nil {
		return err
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		// Debounce partial writes.
		timer = time.AfterFunc(reloadDebounce, m.reload)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				schedule()
			}
			// Some editors replace the file on save; re-add the watch.
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				_ = w.Add(m.path)
				schedule()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (m *Manager) reload() {
	b, err := os.ReadFile(m.path)
	if err != nil {
		m.log.Warn().Err(err).Str("path", m.path).Msg("config reload read failed")
		return
	}

	m.mu.Lock()
	unchanged := bytes.Equal(b, m.lastRaw)
	m.mu.Unlock()
	if unchanged {
		return
	}

	cfg, err := parse(b)
	if err != nil {
		m.log.Warn().Err(err).Str("path", m.path).Msg("config reload rejected; keeping previous config")
		return
	}

	m.mu.Lock()
	m.lastRaw = b
	fns := append([]func(*Config){}, m.onApply...)
	m.mu.Unlock()

	m.log.Info().Str("path", m.path).Msg("config reloaded")
	for _, fn := range fns {
		fn(cfg)
	}
}
