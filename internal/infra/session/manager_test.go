package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	domain "grade_watchdog/internal/domain/session"
	"grade_watchdog/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ssoPage = `<html><head><title>Single Sign-On | ZČU</title></head><body></body></html>`

type fakeAuthenticator struct {
	cookies []domain.Cookie
	err     error
	calls   int
}

func (f *fakeAuthenticator) Login(context.Context) ([]domain.Cookie, error) {
	f.calls++
	return f.cookies, f.err
}

type memoryCookieStore struct {
	cookies []domain.Cookie
	saves   int
}

func (s *memoryCookieStore) LoadCookies(context.Context) ([]domain.Cookie, error) {
	return s.cookies, nil
}

func (s *memoryCookieStore) SaveCookies(_ context.Context, cookies []domain.Cookie) error {
	s.saves++
	s.cookies = cookies
	return nil
}

// newResultsServer serves content only to requests carrying session=ok.
func newResultsServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		c, err := r.Cookie("session")
		if err != nil || c.Value != "ok" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(ssoPage))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<table class=\"timetable-tab\"></table>"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestManager(t *testing.T, baseURL string, auth domain.Authenticator, store domain.CookieStore) *Manager {
	t.Helper()
	m, err := NewManager(Options{BaseURL: baseURL, UserAgent: "test-agent"}, auth, DefaultProbe(), store, logger.Discard())
	require.NoError(t, err)
	return m
}

func TestManager_FetchWithValidSession(t *testing.T) {
	srv := newResultsServer(t, nil)
	auth := &fakeAuthenticator{}
	store := &memoryCookieStore{cookies: []domain.Cookie{{Name: "session", Value: "ok"}}}
	m := newTestManager(t, srv.URL, auth, store)
	require.NoError(t, m.RestoreCookies(context.Background()))

	body, err := m.Fetch(context.Background(), srv.URL+"/results")

	require.NoError(t, err)
	assert.Contains(t, body, "timetable-tab")
	assert.Equal(t, 0, auth.calls)
}

func TestManager_ReauthenticatesOnceAndPersists(t *testing.T) {
	var hits int32
	srv := newResultsServer(t, &hits)
	auth := &fakeAuthenticator{cookies: []domain.Cookie{{Name: "session", Value: "ok", Path: "/"}}}
	store := &memoryCookieStore{}
	m := newTestManager(t, srv.URL, auth, store)

	body, err := m.Fetch(context.Background(), srv.URL+"/results")

	require.NoError(t, err)
	assert.Contains(t, body, "timetable-tab")
	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, auth.cookies, store.cookies)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestManager_SecondLoginPageIsNoContent(t *testing.T) {
	var hits int32
	srv := newResultsServer(t, &hits)
	auth := &fakeAuthenticator{cookies: []domain.Cookie{{Name: "session", Value: "stale"}}}
	m := newTestManager(t, srv.URL, auth, &memoryCookieStore{})

	_, err := m.Fetch(context.Background(), srv.URL+"/results")

	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestManager_LoginFailureKeepsCookies(t *testing.T) {
	srv := newResultsServer(t, nil)
	auth := &fakeAuthenticator{err: errors.New("chrome not found")}
	store := &memoryCookieStore{cookies: []domain.Cookie{{Name: "session", Value: "stale"}}}
	m := newTestManager(t, srv.URL, auth, store)
	require.NoError(t, m.RestoreCookies(context.Background()))

	_, err := m.Fetch(context.Background(), srv.URL+"/results")

	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, "stale", store.cookies[0].Value)
}

func TestManager_TransportFailure(t *testing.T) {
	srv := newResultsServer(t, nil)
	url := srv.URL
	srv.Close()
	auth := &fakeAuthenticator{}
	m := newTestManager(t, url, auth, &memoryCookieStore{})

	_, err := m.Fetch(context.Background(), url+"/results")

	require.Error(t, err)
	assert.Equal(t, 0, auth.calls)
}

func TestManager_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	m := newTestManager(t, srv.URL, &fakeAuthenticator{}, &memoryCookieStore{})

	_, err := m.Fetch(context.Background(), srv.URL)

	require.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestManager_SendsUserAgentAndDecodesCharset(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=windows-1250")
		// "Prospěl" in windows-1250
		w.Write([]byte{'P', 'r', 'o', 's', 'p', 0xEC, 'l'})
	}))
	defer srv.Close()
	m := newTestManager(t, srv.URL, &fakeAuthenticator{}, &memoryCookieStore{})

	body, err := m.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "Prospěl", body)
	assert.Equal(t, "test-agent", userAgent)
}

func TestMarkerProbe(t *testing.T) {
	p := DefaultProbe()

	assert.True(t, p.Expired(ssoPage))
	assert.True(t, p.Expired(`<form action="/idp/profile/SAML2/Redirect/SSO">`))
	assert.False(t, p.Expired(`<form action="/search"></form>`))
	assert.False(t, p.Expired(`SAML mentioned without a form`))
}
