package broadcast

import (
	"context"
	"fmt"
	"strings"

	"subtitlebot/internal/transport"
)

const progressBarLength = 10

// updateProgress edits the status surface with running totals. Best-effort:
// a deleted message, an edit rate limit or any transport error must never
// disturb the fan-out, so failures are logged at debug and dropped.
func (s *Service) updateProgress(ctx context.Context, ref transport.MessageRef, stats Stats) {
	if err := s.sender.EditText(ctx, ref, ProgressText(stats), nil); err != nil {
		s.log.Debug().Err(err).Msg("progress update skipped")
	}
}

// ProgressText renders the running totals plus a proportional bar.
func ProgressText(st Stats) string {
	var b strings.Builder
	b.WriteString("📢 Broadcasting...\n\n")
	fmt.Fprintf(&b, "✅ Success: %d\n", st.Success)
	fmt.Fprintf(&b, "❌ Failed: %d\n", st.Failed)
	fmt.Fprintf(&b, "🚫 Blocked: %d\n", st.Blocked)
	fmt.Fprintf(&b, "⏳ Remaining: %d\n\n", st.Remaining())
	b.WriteString(progressBar(st.Done(), st.Total, progressBarLength))
	return b.String()
}

// progressBar renders a fixed-width bar like "▰▰▱▱▱▱▱▱▱▱ 25%".
// Fill and percent both truncate toward zero.
func progressBar(current, total, length int) string {
	if length <= 0 {
		length = progressBarLength
	}
	if total <= 0 {
		return strings.Repeat("▱", length) + " 0%"
	}
	if current < 0 {
		current = 0
	}
	if current > total {
		current = total
	}
	filled := current * length / total
	percent := current * 100 / total
	return strings.Repeat("▰", filled) + strings.Repeat("▱", length-filled) + fmt.Sprintf(" %d%%", percent)
}
