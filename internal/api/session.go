package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/PawornpratKongdaeng/shodaiev/internal/audit"
	"github.com/PawornpratKongdaeng/shodaiev/internal/auth"
)

// sessionCookieName is the admin session cookie, scoped to /admin.
const (
	sessionCookieName = "admin_auth"
	sessionCookiePath = "/admin"
)

// loginRequest is the request body for POST /admin/api/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// handleLogin checks the admin credentials and sets the session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	session, err := s.gate.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		writeBadRequest(w, "username and password are required")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.metrics.IncLogin(false)
		s.logger.Warn("admin login failed", "username", req.Username, "remote", r.RemoteAddr)
		writeUnauthorized(w, "invalid username or password")
		return
	case err != nil:
		s.metrics.IncLogin(false)
		s.logger.Error("admin login error", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	s.metrics.IncLogin(true)
	http.SetCookie(w, s.sessionCookie(session.Token, session.ExpiresAt))
	s.logger.Info("admin logged in", "username", session.Username, "session", session.ID)
	s.auditLog(r, audit.Entry{Action: audit.ActionLogin, Username: session.Username})

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// handleLogout revokes the current session, if any, and expires the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if claims, verr := s.gate.Validate(c.Value); verr == nil {
			if err := s.gate.Logout(c.Value); err == nil {
				s.logger.Info("admin logged out", "username", claims.Subject, "session", claims.SessionID)
				s.auditLog(r, audit.Entry{Action: audit.ActionLogout, Username: claims.Subject})
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     sessionCookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secCfg.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// sessionResponse is the body of GET /admin/api/session.
type sessionResponse struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleSession reports who is logged in.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(ctxKeySession).(*auth.SessionClaims)
	if !ok {
		writeUnauthorized(w, "login required")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Username:  claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

func (s *Server) sessionCookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     sessionCookiePath,
		MaxAge:   int(s.gate.SessionTTL().Seconds()),
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secCfg.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
