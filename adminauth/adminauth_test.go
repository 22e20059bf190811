package adminauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPassword = "correct-horse"
	testSecret   = "0123456789abcdef0123456789abcdef"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
}

// sessionCookie mints a session cookie through the public surface.
func sessionCookie(t *testing.T, a *Authenticator) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.Equal(t, Authorized, a.AttachSessionCookie(rec, newRequest(t)))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestVerifyPassword(t *testing.T) {
	a := New(testPassword, testSecret)

	assert.Equal(t, Authorized, a.VerifyPassword(testPassword))
	assert.Equal(t, Unauthorized, a.VerifyPassword("wrong"))
	assert.Equal(t, Unauthorized, a.VerifyPassword(""))
}

func TestVerifyPasswordMisconfigured(t *testing.T) {
	a := New("", testSecret)

	// Misconfiguration takes precedence over every input, including the
	// empty string and the password that used to be correct.
	assert.Equal(t, Misconfigured, a.VerifyPassword(""))
	assert.Equal(t, Misconfigured, a.VerifyPassword(testPassword))
	assert.Equal(t, Misconfigured, a.VerifyPassword("wrong"))
}

func TestAuthorizeCookie(t *testing.T) {
	a := New(testPassword, testSecret)

	r := newRequest(t)
	r.AddCookie(sessionCookie(t, a))
	assert.Equal(t, Authorized, a.Authorize(r))
}

func TestAuthorizeBearer(t *testing.T) {
	a := New(testPassword, testSecret)

	r := newRequest(t)
	r.Header.Set("Authorization", "Bearer "+testPassword)
	assert.Equal(t, Authorized, a.Authorize(r))

	r = newRequest(t)
	r.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, Unauthorized, a.Authorize(r))
}

func TestAuthorizeNoCredentials(t *testing.T) {
	a := New(testPassword, testSecret)
	assert.Equal(t, Unauthorized, a.Authorize(newRequest(t)))
}

func TestAuthorizeFallbackOrdering(t *testing.T) {
	// An expired cookie must not short-circuit to Unauthorized before the
	// bearer header is tried: automation callers replaying a stale cookie
	// alongside a correct bearer password stay authorized.
	past := time.Now().Add(-24 * time.Hour)
	stale := New(testPassword, testSecret, WithClock(func() time.Time { return past }))
	expired := sessionCookie(t, stale)

	a := New(testPassword, testSecret)

	r := newRequest(t)
	r.AddCookie(expired)
	assert.Equal(t, Unauthorized, a.Authorize(r), "expired cookie alone")

	r = newRequest(t)
	r.AddCookie(expired)
	r.Header.Set("Authorization", "Bearer "+testPassword)
	assert.Equal(t, Authorized, a.Authorize(r), "expired cookie + correct bearer")

	r = newRequest(t)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage.token"})
	r.Header.Set("Authorization", "Bearer "+testPassword)
	assert.Equal(t, Authorized, a.Authorize(r), "garbage cookie + correct bearer")
}

func TestAuthorizeMisconfigured(t *testing.T) {
	noPassword := New("", testSecret)
	r := newRequest(t)
	r.Header.Set("Authorization", "Bearer anything")
	assert.Equal(t, Misconfigured, noPassword.Authorize(r))

	// A cookie on a server without a signing secret is Misconfigured, not
	// Unauthorized: the cookie cannot be validated at all.
	noSecret := New(testPassword, "")
	r = newRequest(t)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "some.token"})
	assert.Equal(t, Misconfigured, noSecret.Authorize(r))

	// Bearer auth still works without a signing secret when no cookie is sent.
	r = newRequest(t)
	r.Header.Set("Authorization", "Bearer "+testPassword)
	assert.Equal(t, Authorized, noSecret.Authorize(r))
}

func TestAttachSessionCookie(t *testing.T) {
	a := New(testPassword, testSecret)
	cookie := sessionCookie(t, a)

	assert.Equal(t, CookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int(SessionDuration.Seconds()), cookie.MaxAge)
	assert.False(t, cookie.Secure, "plain local request must not set Secure")

	r := newRequest(t)
	r.AddCookie(cookie)
	assert.Equal(t, Authorized, a.HasValidSession(r))
}

func TestAttachSessionCookieSecure(t *testing.T) {
	a := New(testPassword, testSecret, WithSecureCookies(true))
	assert.True(t, sessionCookie(t, a).Secure)

	// Forwarded TLS also turns the flag on without the production option.
	b := New(testPassword, testSecret)
	rec := httptest.NewRecorder()
	r := newRequest(t)
	r.Header.Set("X-Forwarded-Proto", "https")
	require.Equal(t, Authorized, b.AttachSessionCookie(rec, r))
	assert.True(t, rec.Result().Cookies()[0].Secure)
}

func TestAttachSessionCookieMisconfigured(t *testing.T) {
	a := New(testPassword, "")
	rec := httptest.NewRecorder()
	assert.Equal(t, Misconfigured, a.AttachSessionCookie(rec, newRequest(t)))
	assert.Empty(t, rec.Result().Cookies(), "no cookie may be set without a signing secret")
}

func TestClearSessionCookie(t *testing.T) {
	// Clearing must work even with nothing configured.
	a := New("", "")
	rec := httptest.NewRecorder()
	a.ClearSessionCookie(rec, newRequest(t))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestHasValidSession(t *testing.T) {
	a := New(testPassword, testSecret)

	assert.Equal(t, Unauthorized, a.HasValidSession(newRequest(t)))

	r := newRequest(t)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-token"})
	assert.Equal(t, Unauthorized, a.HasValidSession(r))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "authorized", Authorized.String())
	assert.Equal(t, "unauthorized", Unauthorized.String())
	assert.Equal(t, "misconfigured", Misconfigured.String())
}
