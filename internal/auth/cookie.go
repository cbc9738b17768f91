package auth

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// CookieCodec signs the session id carried in the session cookie so a
// client cannot forge or tamper with it.
type CookieCodec struct {
	sc  *securecookie.SecureCookie
	ttl time.Duration
}

func NewCookieCodec(secret string, ttl time.Duration) *CookieCodec {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	sc := securecookie.New([]byte(secret), nil)
	sc.MaxAge(int(ttl / time.Second))
	return &CookieCodec{sc: sc, ttl: ttl}
}

// Encode returns the signed cookie value for a session id.
func (c *CookieCodec) Encode(sessionID string) (string, error) {
	return c.sc.Encode(SessionCookie, sessionID)
}

// Set writes the signed session cookie.
func (c *CookieCodec) Set(w http.ResponseWriter, sessionID string) error {
	val, err := c.Encode(sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.ttl / time.Second),
	})
	return nil
}

// Read returns the session id from the request cookie. It fails when the
// cookie is missing or its signature does not verify.
func (c *CookieCodec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", err
	}
	var sid string
	if err := c.sc.Decode(SessionCookie, cookie.Value, &sid); err != nil {
		return "", err
	}
	return sid, nil
}

// Clear expires the session cookie on the client.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
