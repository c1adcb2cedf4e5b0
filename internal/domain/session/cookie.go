// internal/domain/session/cookie.go
package session

import (
	"net/http"
	"strings"
	"time"
)

// Cookie is the persisted form of a session cookie harvested from the
// browser. Expires is a unix timestamp in seconds, zero for session cookies.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expiry,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

// HTTPCookie converts c for use with a cookie jar.
func (c Cookie) HTTPCookie() *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		HttpOnly: c.HTTPOnly,
		Secure:   c.Secure,
	}
	if hc.Path == "" {
		hc.Path = "/"
	}
	if c.Expires > 0 {
		hc.Expires = time.Unix(int64(c.Expires), 0)
	}
	return hc
}

// Host returns the cookie domain without the leading dot.
func (c Cookie) Host() string {
	return strings.TrimPrefix(c.Domain, ".")
}
