package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/paragondesignz/spachat/adminauth"
)

const misconfiguredMessage = "admin authentication is not configured: set ADMIN_PASSWORD and ADMIN_SESSION_SECRET"

// Login verifies the admin password and establishes a session cookie.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	switch a.auth.VerifyPassword(req.Password) {
	case adminauth.Misconfigured:
		a.audit.logFailure(AuditLoginFailure, r, "misconfigured")
		writeError(w, http.StatusInternalServerError, misconfiguredMessage)
		return
	case adminauth.Unauthorized:
		a.audit.logFailure(AuditLoginFailure, r, "invalid password")
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	if a.auth.AttachSessionCookie(w, r) != adminauth.Authorized {
		// password alone is usable as a bearer credential, but without a
		// signing secret no cookie session can be minted
		a.audit.logFailure(AuditLoginFailure, r, "misconfigured")
		writeError(w, http.StatusInternalServerError, misconfiguredMessage)
		return
	}

	a.audit.log(AuditLoginSuccess, r)
	writeJSON(w, http.StatusOK, SessionResponse{Authenticated: true})
}

// Logout clears the session cookie. The token itself stays valid until it
// expires, there is no server-side session state to revoke.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	a.auth.ClearSessionCookie(w, r)
	a.audit.log(AuditLogout, r)
	writeJSON(w, http.StatusOK, SessionResponse{Authenticated: false})
}

// SessionProbe reports whether the caller currently holds a valid session
// cookie. The bearer header is deliberately not consulted here, the dashboard
// polls this to decide whether to show the login screen.
func (a *API) SessionProbe(w http.ResponseWriter, r *http.Request) {
	switch a.auth.HasValidSession(r) {
	case adminauth.Authorized:
		writeJSON(w, http.StatusOK, SessionResponse{Authenticated: true})
	case adminauth.Misconfigured:
		writeError(w, http.StatusInternalServerError, misconfiguredMessage)
	default:
		writeJSON(w, http.StatusUnauthorized, SessionResponse{Authenticated: false})
	}
}

// RequireAdmin guards admin endpoints. A missing or invalid credential gets
// 401; a service missing its auth configuration gets 500 so the operator
// sees a server fault rather than a login prompt.
func (a *API) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch a.auth.Authorize(r) {
		case adminauth.Authorized:
			next.ServeHTTP(w, r)
		case adminauth.Misconfigured:
			a.audit.logFailure(AuditAdminDenied, r, "misconfigured", slog.String("path", r.URL.Path))
			writeError(w, http.StatusInternalServerError, misconfiguredMessage)
		default:
			a.audit.logFailure(AuditAdminDenied, r, "unauthorized", slog.String("path", r.URL.Path))
			writeError(w, http.StatusUnauthorized, "authentication required")
		}
	})
}
