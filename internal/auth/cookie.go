package auth

import (
	"net/http"
	"time"
)

const DefaultCookieName = "jwt"

// CookieConfig describes the session cookie. Cross-site front ends need
// SameSite=None, which browsers only accept together with Secure.
type CookieConfig struct {
	Name   string
	Secure bool
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

func (c CookieConfig) sameSite() http.SameSite {
	if c.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (c CookieConfig) Issue(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}

// Clear overwrites the session cookie with an already expired one.
func (c CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}

func (c CookieConfig) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.name())
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
