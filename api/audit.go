package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditLoginSuccess   AuditEvent = "login_success"
	AuditLoginFailure   AuditEvent = "login_failure"
	AuditLogout         AuditEvent = "logout"
	AuditAdminDenied    AuditEvent = "admin_denied"
	AuditChatDeleted    AuditEvent = "chat_deleted"
	AuditNotifyFailed   AuditEvent = "notification_failed"
	AuditChatExported   AuditEvent = "chat_exported"
	AuditItemCreated    AuditEvent = "kb_item_created"
	AuditItemUpdated    AuditEvent = "kb_item_updated"
	AuditItemDeleted    AuditEvent = "kb_item_deleted"
	AuditItemSubmitted  AuditEvent = "kb_item_submitted"
	AuditFileDeleted    AuditEvent = "assistant_file_deleted"
	AuditFeedSynced     AuditEvent = "feed_synced"
	AuditCrawlCompleted AuditEvent = "crawl_completed"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
}

// logFailure logs a denied or failed request with its reason.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
