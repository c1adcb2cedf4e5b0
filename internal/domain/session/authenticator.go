// internal/domain/session/authenticator.go
package session

import "context"

// Authenticator performs the interactive single-sign-on login and returns the
// cookies of the authenticated session.
type Authenticator interface {
	Login(ctx context.Context) ([]Cookie, error)
}

// Probe decides from a response body whether the session has expired and
// the server answered with the login page instead of the requested content.
type Probe interface {
	Expired(body string) bool
}

// CookieStore persists the cookie set between process restarts.
type CookieStore interface {
	LoadCookies(ctx context.Context) ([]Cookie, error)
	SaveCookies(ctx context.Context, cookies []Cookie) error
}
