package adminauth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// SessionDuration is the validity window of a minted session token. There is
// no revocation list, so this window also bounds token compromise.
const SessionDuration = 12 * time.Hour

const nonceLen = 16

// sessionPayload is the signed cookie payload. Exp is epoch milliseconds;
// the nonce carries no authorization meaning and only guarantees that two
// tokens minted in the same millisecond differ.
type sessionPayload struct {
	Exp   int64  `json:"exp"`
	Nonce string `json:"nonce"`
}

// mintToken builds a fresh signed session token:
// base64url(JSON payload) + "." + base64url(HMAC-SHA256(secret, payload)).
func (a *Authenticator) mintToken(secret []byte) string {
	nonce := make([]byte, nonceLen)
	rand.Read(nonce)

	payload := sessionPayload{
		Exp:   a.now().Add(SessionDuration).UnixMilli(),
		Nonce: hex.EncodeToString(nonce),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		// Marshalling a struct of an int64 and a string cannot fail.
		panic(err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return encoded + "." + signPayload(encoded, secret)
}

// validateToken checks a token against the signing secret. Every failure
// mode (malformed shape, bad signature, undecodable payload, missing fields,
// expiry) is Unauthorized; the missing-secret case is handled by callers.
func (a *Authenticator) validateToken(token string, secret []byte) Status {
	encoded, signature, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || signature == "" {
		return Unauthorized
	}

	expected := signPayload(encoded, secret)
	if !timingSafeEqual([]byte(signature), []byte(expected)) {
		return Unauthorized
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Unauthorized
	}
	var payload sessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Unauthorized
	}
	if payload.Exp == 0 || payload.Nonce == "" {
		return Unauthorized
	}
	if payload.Exp < a.now().UnixMilli() {
		return Unauthorized
	}
	return Authorized
}

func signPayload(encodedPayload string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(encodedPayload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
