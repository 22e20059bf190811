package adminauth

import (
	"net/http"
	"strings"
	"time"
)

// CookieName is the session cookie carrying the signed admin token.
const CookieName = "ps_admin_session"

// AttachSessionCookie mints a session token and sets it as an HTTP-only,
// same-site-lax cookie scoped to the whole application. If the signing secret
// is absent it reports Misconfigured and sets nothing.
func (a *Authenticator) AttachSessionCookie(w http.ResponseWriter, r *http.Request) Status {
	if a.signingSecret == nil {
		return Misconfigured
	}
	buf, err := a.signingSecret.Open()
	if err != nil {
		return Misconfigured
	}
	defer buf.Destroy()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    a.mintToken(buf.Bytes()),
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secureCookies || requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionDuration.Seconds()),
	})
	return Authorized
}

// ClearSessionCookie overwrites the session cookie with an immediately
// expiring empty value. It needs no secret and never fails; clearing is
// idempotent even on a misconfigured server.
func (a *Authenticator) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secureCookies || requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
