package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	domain "grade_watchdog/internal/domain/session"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
)

const DefaultTimeout = 15 * time.Second

var (
	// ErrSessionExpired is returned when the login page is still served
	// after a re-authentication attempt.
	ErrSessionExpired = errors.New("session expired after re-authentication")
	// ErrUnexpectedStatus is returned for HTTP error responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

type Options struct {
	// BaseURL supplies scheme and host for cookies persisted without a domain.
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Manager owns the HTTP client and its cookie jar. When a response turns
// out to be the SSO login page it runs the Authenticator, persists the new
// cookies and retries the request exactly once.
//
// A Manager must not be used from more than one goroutine at a time.
type Manager struct {
	http    *resty.Client
	baseURL *url.URL
	auth    domain.Authenticator
	probe   domain.Probe
	store   domain.CookieStore
	logger  *logrus.Entry
}

func NewManager(
	opts Options,
	auth domain.Authenticator,
	probe domain.Probe,
	store domain.CookieStore,
	logger *logrus.Entry,
) (*Manager, error) {
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(20))
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	m := &Manager{
		http:    client,
		baseURL: baseURL,
		auth:    auth,
		probe:   probe,
		store:   store,
		logger:  logger,
	}
	if err := m.applyCookies(nil); err != nil {
		return nil, err
	}
	return m, nil
}

// RestoreCookies loads the persisted cookie set into the client so a restart
// does not force an immediate login.
func (m *Manager) RestoreCookies(ctx context.Context) error {
	cookies, err := m.store.LoadCookies(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cookies: %w", err)
	}
	if err := m.applyCookies(cookies); err != nil {
		return err
	}
	m.logger.WithField("count", len(cookies)).Debug("Restored session cookies")
	return nil
}

// Fetch returns the decoded body of rawURL. Transport failures are logged
// and returned; the caller skips whatever depended on the page.
func (m *Manager) Fetch(ctx context.Context, rawURL string) (string, error) {
	body, err := m.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if !m.probe.Expired(body) {
		return body, nil
	}

	m.logger.WithField("url", rawURL).Warn("Session expired, starting browser login")
	m.reauthenticate(ctx)

	body, err = m.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if m.probe.Expired(body) {
		m.logger.WithField("url", rawURL).Error("Still on the login page after re-authentication")
		return "", ErrSessionExpired
	}
	return body, nil
}

func (m *Manager) fetch(ctx context.Context, rawURL string) (string, error) {
	res, err := m.http.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		m.logger.WithError(err).WithField("url", rawURL).Error("GET request failed")
		return "", fmt.Errorf("GET %s: %w", rawURL, err)
	}
	if res.StatusCode() >= http.StatusBadRequest {
		m.logger.WithFields(logrus.Fields{"url": rawURL, "status": res.StatusCode()}).Error("GET request failed")
		return "", fmt.Errorf("%w: GET %s returned %d", ErrUnexpectedStatus, rawURL, res.StatusCode())
	}
	body, err := decodeBody(res.Body(), res.Header().Get("Content-Type"))
	if err != nil {
		m.logger.WithError(err).WithField("url", rawURL).Error("Failed to decode response body")
		return "", fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return body, nil
}

// reauthenticate never fails: on error the current cookies stay in place
// and the next cycle tries again.
func (m *Manager) reauthenticate(ctx context.Context) {
	cookies, err := m.auth.Login(ctx)
	if err != nil {
		m.logger.WithError(err).Error("Browser login failed, keeping existing cookies")
		return
	}
	if err := m.applyCookies(cookies); err != nil {
		m.logger.WithError(err).Error("Failed to apply login cookies")
		return
	}
	if err := m.store.SaveCookies(ctx, cookies); err != nil {
		m.logger.WithError(err).Error("Failed to persist login cookies")
	}
	m.logger.WithField("count", len(cookies)).Info("Login successful, session cookies updated")
}

// applyCookies replaces the cookie jar with one holding exactly cookies.
func (m *Manager) applyCookies(cookies []domain.Cookie) error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	for _, c := range cookies {
		u := url.URL{Scheme: m.baseURL.Scheme, Host: m.baseURL.Host, Path: "/"}
		hc := c.HTTPCookie()
		if host := c.Host(); host != "" {
			u.Host = host
			if strings.HasPrefix(c.Domain, ".") {
				hc.Domain = host
			}
		}
		jar.SetCookies(&u, []*http.Cookie{hc})
	}
	m.http.SetCookieJar(jar)
	return nil
}

func decodeBody(raw []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
