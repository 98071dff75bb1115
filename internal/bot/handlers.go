package bot

import (
	"context"
	"fmt"
	"strings"

	"subtitlebot/internal/broadcast"
	"subtitlebot/internal/session"
	"subtitlebot/internal/storage"
	"subtitlebot/internal/transport"
)

var htmlOpts = &transport.SendOptions{ParseMode: "HTML"}

func (r *Router) handleMessage(ctx context.Context, m *transport.Message) {
	switch commandName(m.Text) {
	case "start":
		r.handleStart(ctx, m)
	case "broadcast":
		if r.isAdmin(m.FromID) {
			r.handleBroadcastCommand(ctx, m)
		}
	case "stats":
		if r.isAdmin(m.FromID) {
			r.handleStats(ctx, m)
		}
	case "":
		// Non-command content only matters for an admin mid-dialog.
		if r.isAdmin(m.FromID) {
			r.handleAdminContent(ctx, m)
		}
	}
}

func (r *Router) handleStart(ctx context.Context, m *transport.Message) {
	u := storage.User{ID: m.FromID, Username: m.FromUsername}
	if err := r.store.UpsertUser(ctx, u); err != nil {
		r.log.Error().Err(err).Int64("user_id", m.FromID).Msg("user registration failed")
	}
	r.reply(ctx, m, msgWelcome, nil)
}

func (r *Router) handleBroadcastCommand(ctx context.Context, m *transport.Message) {
	r.sessions.Set(m.FromID, session.Session{State: session.StateAwaitingContent})
	r.reply(ctx, m, msgBroadcastPrompt, nil)
}

// handleAdminContent captures the broadcast content while the admin's
// dialog is awaiting it, then asks for confirmation.
func (r *Router) handleAdminContent(ctx context.Context, m *transport.Message) {
	sess, ok := r.sessions.Get(m.FromID)
	if !ok || sess.State != session.StateAwaitingContent {
		return
	}

	payload, ok := payloadFromMessage(m)
	if !ok {
		r.reply(ctx, m, msgBroadcastUnsupported, nil)
		return
	}

	r.sessions.Set(m.FromID, session.Session{
		State:   session.StateAwaitingConfirmation,
		Payload: payload,
	})

	total, err := r.store.CountUsers(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("user count failed")
	}
	opt := &transport.SendOptions{
		ParseMode: "HTML",
		Keyboard: [][]transport.InlineButton{
			{{Text: btnConfirm, Data: cbConfirm}, {Text: btnCancel, Data: cbCancel}},
		},
	}
	r.reply(ctx, m, fmt.Sprintf(msgBroadcastConfirm, total), opt)
}

func (r *Router) handleCallback(ctx context.Context, cb *transport.Callback) {
	if !strings.HasPrefix(cb.Data, "bc:") || !r.isAdmin(cb.FromID) {
		return
	}
	_ = r.adapter.AnswerCallback(ctx, cb.ID, "")

	switch cb.Data {
	case cbCancel:
		r.sessions.Clear(cb.FromID)
		r.edit(ctx, cb, msgBroadcastCancelled, nil)
	case cbConfirm:
		r.confirmBroadcast(ctx, cb)
	}
}

func (r *Router) confirmBroadcast(ctx context.Context, cb *transport.Callback) {
	sess, ok := r.sessions.Get(cb.FromID)
	if !ok || sess.State != session.StateAwaitingConfirmation {
		return
	}
	r.sessions.Clear(cb.FromID)

	r.bcastMu.Lock()
	if r.broadcasting {
		r.bcastMu.Unlock()
		r.edit(ctx, cb, msgBroadcastBusy, nil)
		return
	}
	r.broadcasting = true
	r.bcastMu.Unlock()

	total, err := r.store.CountUsers(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("user count failed")
	}
	// The confirmation message becomes the progress surface.
	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	r.edit(ctx, cb, fmt.Sprintf(msgBroadcastStarted, total), htmlOpts)

	job := broadcast.Job{Payload: sess.Payload, AdminID: cb.FromID, Progress: &ref}
	go func() {
		defer func() {
			r.bcastMu.Lock()
			r.broadcasting = false
			r.bcastMu.Unlock()
		}()

		rep, err := r.bcast.Run(ctx, job)
		if err != nil && rep.Total == 0 {
			r.log.Error().Err(err).Msg("broadcast failed")
			r.edit(ctx, cb, msgBroadcastFailed, nil)
			return
		}
		summary := fmt.Sprintf(msgBroadcastComplete, rep.Total, rep.Success, rep.Failed, rep.Blocked, rep.Took)
		r.edit(context.WithoutCancel(ctx), cb, summary, htmlOpts)
	}()
}

func (r *Router) handleStats(ctx context.Context, m *transport.Message) {
	total, err := r.store.CountUsers(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("user count failed")
		return
	}
	recs, err := r.store.RecentBroadcasts(ctx, 5)
	if err != nil {
		r.log.Error().Err(err).Msg("recent broadcasts lookup failed")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Bot Statistics</b>\n\n👥 Total Users: %d\n", total)
	if len(recs) > 0 {
		b.WriteString("\n<b>📢 Recent Broadcasts:</b>\n")
		for _, rec := range recs {
			fmt.Fprintf(&b, "#%d — %d sent, %d failed, %d blocked (%s)\n",
				rec.ID, rec.Success, rec.Failed, rec.Blocked, rec.Status)
		}
	}
	r.reply(ctx, m, b.String(), htmlOpts)
}

func (r *Router) reply(ctx context.Context, m *transport.Message, text string, opt *transport.SendOptions) {
	if _, err := r.adapter.SendText(ctx, transport.ChatTarget{ChatID: m.ChatID}, text, opt); err != nil {
		r.log.Error().Err(err).Int64("chat_id", m.ChatID).Msg("reply failed")
	}
}

func (r *Router) edit(ctx context.Context, cb *transport.Callback, text string, opt *transport.SendOptions) {
	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	if err := r.adapter.EditText(ctx, ref, text, opt); err != nil {
		r.log.Error().Err(err).Int64("chat_id", cb.ChatID).Msg("edit failed")
	}
}
