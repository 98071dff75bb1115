// Package bot routes incoming Telegram updates to the thin command handlers
// that drive user registration and the admin broadcast dialog.
package bot

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"subtitlebot/internal/broadcast"
	"subtitlebot/internal/session"
	"subtitlebot/internal/storage"
	"subtitlebot/internal/transport"
)

const updateQueueSize = 256

type Router struct {
	adapter  transport.Adapter
	store    storage.Store
	bcast    *broadcast.Service
	sessions *session.Store
	log      zerolog.Logger

	mu     sync.Mutex
	admins map[int64]bool

	// broadcasting guards the single-active-broadcast assumption; the
	// engine itself is sequential, this just rejects a second confirm.
	bcastMu      sync.Mutex
	broadcasting bool
}

func New(adapter transport.Adapter, store storage.Store, bcast *broadcast.Service, sessions *session.Store, admins []int64, log zerolog.Logger) *Router {
	r := &Router{
		adapter:  adapter,
		store:    store,
		bcast:    bcast,
		sessions: sessions,
		log:      log.With().Str("comp", "router").Logger(),
	}
	r.SetAdmins(admins)
	return r
}

// SetAdmins replaces the admin allowlist (config hot reload).
func (r *Router) SetAdmins(ids []int64) {
	m := make(map[int64]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	r.mu.Lock()
	r.admins = m
	r.mu.Unlock()
}

func (r *Router) isAdmin(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.admins[id]
}

// Run starts the adapter and consumes updates until ctx is done.
func (r *Router) Run(ctx context.Context) error {
	out := make(chan transport.Update, updateQueueSize)
	if err := r.adapter.Start(ctx, out); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return r.adapter.Stop(context.WithoutCancel(ctx))
		case up := <-out:
			r.dispatch(ctx, up)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, up transport.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Any("panic", rec).Str("stack", string(debug.Stack())).Msg("panic in update handler")
		}
	}()

	switch up.Kind {
	case transport.UpdateMessage:
		if up.Message != nil {
			r.handleMessage(ctx, up.Message)
		}
	case transport.UpdateCallback:
		if up.Callback != nil {
			r.handleCallback(ctx, up.Callback)
		}
	}
}

// commandName extracts "broadcast" from "/broadcast" or "/broadcast@SomeBot".
// Empty result means the message is not a command.
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd)
}

// payloadFromMessage maps an admin's content message onto a broadcast
// payload variant. ok is false when the message carries nothing we can
// fan out.
func payloadFromMessage(m *transport.Message) (broadcast.Payload, bool) {
	switch {
	case m.PhotoID != "":
		return broadcast.Payload{Kind: broadcast.PayloadPhoto, FileID: m.PhotoID, Text: m.Caption}, true
	case m.AnimationID != "":
		return broadcast.Payload{Kind: broadcast.PayloadAnimation, FileID: m.AnimationID, Text: m.Caption}, true
	case m.VideoID != "":
		return broadcast.Payload{Kind: broadcast.PayloadVideo, FileID: m.VideoID, Text: m.Caption}, true
	case m.DocumentID != "":
		return broadcast.Payload{Kind: broadcast.PayloadDocument, FileID: m.DocumentID, Text: m.Caption}, true
	case strings.TrimSpace(m.Text) != "":
		return broadcast.Payload{Kind: broadcast.PayloadText, Text: m.Text}, true
	default:
		return broadcast.Payload{}, false
	}
}
