package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/PawornpratKongdaeng/shodaiev/internal/audit"
	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
)

// auditChanSize is the buffer size for the async audit log channel.
// Entries beyond this are dropped (best-effort) to avoid back-pressure on requests.
const auditChanSize = 256

// auditLog enqueues a change log entry for asynchronous write (best-effort).
// The username defaults to the current session's. If the channel is full the
// entry is dropped and a warning is logged.
func (s *Server) auditLog(r *http.Request, entry audit.Entry) {
	if s.auditCh == nil {
		return
	}
	if entry.Username == "" {
		entry.Username = sessionUser(r)
	}
	entry.Source = "api"

	select {
	case s.auditCh <- &entry:
	default:
		s.logger.Warn("audit log channel full, dropping entry",
			"action", entry.Action,
			"section", entry.Section,
		)
	}
}

// auditChange records a successful write of section.
func (s *Server) auditChange(r *http.Request, action, section string, before, after *siteconfig.SiteConfig) {
	s.auditLog(r, audit.Entry{
		Action:   action,
		Section:  section,
		Revision: siteconfig.Revision(after),
		Fields:   siteconfig.ChangedFields(before, after),
	})
}

// drainAuditLog writes queued entries serially until ctx is cancelled, then
// flushes whatever is still buffered.
func (s *Server) drainAuditLog(ctx context.Context) {
	for {
		select {
		case entry := <-s.auditCh:
			s.writeAudit(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-s.auditCh:
					s.writeAudit(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *Server) writeAudit(entry *audit.Entry) {
	if err := s.auditRepo.Create(context.Background(), entry); err != nil {
		s.logger.Error("audit log write failed",
			"action", entry.Action,
			"section", entry.Section,
			"error", err,
		)
	}
}

// handleListAudit returns paginated change log entries.
//
// Query parameters:
//   - action: save, upload, login, logout, reload
//   - section: hero, contact, theme, topics, ...
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "change log not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:  q.Get("action"),
		Section: q.Get("section"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
