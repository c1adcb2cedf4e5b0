package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"grade_watchdog/internal/domain/session"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

var (
	ErrMissingCredentials = errors.New("SSO username or password is not configured")
	ErrLoginFormNotFound  = errors.New("login form field did not appear")
)

// Options configures the browser login. Zero durations take the defaults.
type Options struct {
	EntryURL      string
	SuccessMarker string // substring of the host reached after a successful login
	ChromePath    string
	UserAgent     string // overrides Chrome's native user agent when set

	FieldTimeout    time.Duration
	RedirectTimeout time.Duration
	SettleDelay     time.Duration
	OverallTimeout  time.Duration
}

// Shibboleth IdP login form.
const (
	loginTitleMarker = "Single Sign-On"
	usernameField    = "j_username"
	passwordField    = "j_password"
	submitField      = "_eventId_proceed"
)

type Credentials struct {
	Username string
	Password string
}

// ChromeAuthenticator logs in through the identity provider with a headless
// Chrome and returns the cookies of the resulting session.
type ChromeAuthenticator struct {
	opts   Options
	creds  Credentials
	logger *logrus.Entry
}

func NewChromeAuthenticator(opts Options, creds Credentials, logger *logrus.Entry) *ChromeAuthenticator {
	if opts.FieldTimeout <= 0 {
		opts.FieldTimeout = 10 * time.Second
	}
	if opts.RedirectTimeout <= 0 {
		opts.RedirectTimeout = 20 * time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 2 * time.Second
	}
	if opts.OverallTimeout <= 0 {
		opts.OverallTimeout = 90 * time.Second
	}
	return &ChromeAuthenticator{opts: opts, creds: creds, logger: logger}
}

// Login starts a fresh browser for every call. The browser process is torn
// down by the deferred cancels on every return path.
func (a *ChromeAuthenticator) Login(ctx context.Context) ([]session.Cookie, error) {
	ctx, cancelTimeout := context.WithTimeout(ctx, a.opts.OverallTimeout)
	defer cancelTimeout()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, a.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(a.logger.Debugf),
		chromedp.WithErrorf(a.logger.Debugf),
	)
	defer cancelBrowser()

	var title, page string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(a.opts.EntryURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", a.opts.EntryURL, err)
	}

	if isLoginPage(title, page) {
		if a.creds.Username == "" || a.creds.Password == "" {
			return nil, ErrMissingCredentials
		}
		if err := a.submitCredentials(browserCtx); err != nil {
			return nil, err
		}
		if err := a.waitForRedirect(browserCtx); err != nil {
			return nil, err
		}
		select {
		case <-time.After(a.opts.SettleDelay):
		case <-browserCtx.Done():
			return nil, browserCtx.Err()
		}
	} else {
		a.logger.Info("No login form shown, capturing current cookies")
	}

	var cdpCookies []*network.Cookie
	err = chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cdpCookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}
	return convertCookies(cdpCookies), nil
}

func (a *ChromeAuthenticator) allocatorOptions() []chromedp.ExecAllocatorOption {
	// DefaultExecAllocatorOptions already runs headless.
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("log-level", "3"),
	)
	if a.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(a.opts.UserAgent))
	}
	if a.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(a.opts.ChromePath))
	}
	return opts
}

func (a *ChromeAuthenticator) submitCredentials(ctx context.Context) error {
	fieldCtx, cancel := context.WithTimeout(ctx, a.opts.FieldTimeout)
	defer cancel()
	if err := chromedp.Run(fieldCtx, chromedp.WaitVisible(byName(usernameField), chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFormNotFound, err)
	}

	err := chromedp.Run(ctx,
		chromedp.SendKeys(byName(usernameField), a.creds.Username, chromedp.ByQuery),
		chromedp.SendKeys(byName(passwordField), a.creds.Password, chromedp.ByQuery),
		chromedp.Click(byName(submitField), chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}
	return nil
}

func (a *ChromeAuthenticator) waitForRedirect(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, a.opts.RedirectTimeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		var location string
		if err := chromedp.Run(waitCtx, chromedp.Location(&location)); err == nil && redirectReached(location, a.opts.SuccessMarker) {
			return nil
		}
		select {
		case <-waitCtx.Done():
			return fmt.Errorf("timed out waiting for redirect to %s: %w", a.opts.SuccessMarker, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func isLoginPage(title, page string) bool {
	return strings.Contains(title, loginTitleMarker) || strings.Contains(page, usernameField)
}

// redirectReached matches the marker against the host only, since the IdP
// URL carries the target address in its query string.
func redirectReached(location, marker string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return marker != "" && strings.Contains(u.Host, marker)
}

func byName(name string) string {
	return `[name="` + name + `"]`
}

func convertCookies(in []*network.Cookie) []session.Cookie {
	out := make([]session.Cookie, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		expires := c.Expires
		if c.Session || expires < 0 {
			expires = 0
		}
		out = append(out, session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return out
}
