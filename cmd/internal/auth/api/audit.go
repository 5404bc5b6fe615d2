package authapi

import (
	"context"
	"log/slog"
	"strings"
)

// audit records an auth event as a structured log line. Passwords and tokens never reach it.
func (h *Handler) audit(ctx context.Context, action, userID, identifier, reason string) {
	if h == nil || h.log == nil {
		return
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	attrs := []slog.Attr{slog.String("action", action)}
	if userID != "" {
		attrs = append(attrs, slog.String("user_id", userID))
	}
	if identifier = trimIdentifier(identifier); identifier != "" {
		attrs = append(attrs, slog.String("identifier", identifier))
	}
	if reason != "" {
		attrs = append(attrs, slog.String("reason", reason))
	}

	level := slog.LevelInfo
	if strings.HasSuffix(action, ".failed") {
		level = slog.LevelWarn
	}
	h.log.LogAttrs(ctx, level, "auth.audit", attrs...)
}

// trimIdentifier bounds attacker-supplied usernames before they reach logs.
func trimIdentifier(s string) string {
	s = strings.TrimSpace(s)
	const maxLen = 64
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
