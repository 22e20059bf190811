// Package adminauth implements the admin authentication and authorization
// scheme: a constant-time shared-password check, stateless HMAC-signed
// session tokens carried in a cookie, and a request authorizer that accepts
// either a session cookie or a bearer password header.
//
// There is deliberately no server-side session store. A token is valid iff
// its signature verifies under the current signing secret and it has not
// expired; logout only instructs the client to drop the cookie. Compromise
// of a token is bounded by the 12 hour expiry window.
package adminauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/awnumar/memguard"
)

// Status is the outcome of an authentication or authorization check.
// Misconfigured means the server is missing required secret material and must
// never be conflated with Unauthorized: callers map it to a 500, not a 401,
// so operators can tell "bad password" apart from "server not set up".
type Status int

const (
	// Unauthorized means a credential was absent, wrong, or expired.
	Unauthorized Status = iota
	// Authorized means a valid credential was presented.
	Authorized
	// Misconfigured means a required secret is not configured.
	Misconfigured
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case Misconfigured:
		return "misconfigured"
	default:
		return "unauthorized"
	}
}

// Authenticator performs all admin credential checks. Both secrets are held
// in memguard enclaves and only decrypted for the duration of a comparison.
// All methods are safe for concurrent use; nothing here mutates shared state.
type Authenticator struct {
	password      *memguard.Enclave
	signingSecret *memguard.Enclave
	secureCookies bool
	now           func() time.Time
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithClock overrides the time source used for token expiry. Tests use this
// to pin the clock; production code should not.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// WithSecureCookies forces the Secure flag on session cookies regardless of
// how the request arrived. Set for production deployments behind TLS
// termination.
func WithSecureCookies(secure bool) Option {
	return func(a *Authenticator) {
		a.secureCookies = secure
	}
}

// New creates an Authenticator from the configured admin password and session
// signing secret. Either may be empty; the corresponding checks then report
// Misconfigured rather than failing open or closed ambiguously.
func New(adminPassword, sessionSecret string, opts ...Option) *Authenticator {
	a := &Authenticator{now: time.Now}
	if adminPassword != "" {
		a.password = memguard.NewEnclave([]byte(adminPassword))
	}
	if sessionSecret != "" {
		a.signingSecret = memguard.NewEnclave([]byte(sessionSecret))
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// VerifyPassword compares a submitted password against the configured admin
// password. Both values are hashed with SHA-256 before the constant-time
// compare so that execution time does not depend on where the first
// differing byte occurs.
func (a *Authenticator) VerifyPassword(candidate string) Status {
	if a.password == nil {
		return Misconfigured
	}
	buf, err := a.password.Open()
	if err != nil {
		return Misconfigured
	}
	defer buf.Destroy()
	if timingSafeEqual([]byte(candidate), buf.Bytes()) {
		return Authorized
	}
	return Unauthorized
}

// Authorize decides whether an incoming request may access protected admin
// endpoints. The session cookie is checked first; a cookie that fails
// validation does not short-circuit to Unauthorized, the bearer header is
// still tried. Browser sessions and bearer-token automation work
// independently of each other.
func (a *Authenticator) Authorize(r *http.Request) Status {
	if a.password == nil {
		return Misconfigured
	}

	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		if status := a.validateSession(cookie.Value); status != Unauthorized {
			return status
		}
	}

	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return a.VerifyPassword(token)
	}

	return Unauthorized
}

// HasValidSession reports whether the request carries a valid session cookie.
// Unlike Authorize it never consults the bearer header; it backs the
// session-probe endpoint the admin UI polls.
func (a *Authenticator) HasValidSession(r *http.Request) Status {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Unauthorized
	}
	return a.validateSession(cookie.Value)
}

func (a *Authenticator) validateSession(token string) Status {
	if a.signingSecret == nil {
		return Misconfigured
	}
	buf, err := a.signingSecret.Open()
	if err != nil {
		return Misconfigured
	}
	defer buf.Destroy()
	return a.validateToken(token, buf.Bytes())
}

// timingSafeEqual hashes both inputs with a fixed digest and compares the
// digests in constant time, so unequal lengths do not leak either.
func timingSafeEqual(a, b []byte) bool {
	ha := sha256.Sum256(a)
	hb := sha256.Sum256(b)
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
