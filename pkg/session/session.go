package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

// CSRFCookieName is the cookie the back office mirrors the token into.
const CSRFCookieName = "csrftoken"

var ErrInvalidOrigin = errors.New("session origin must be an absolute http(s) URL")

// Store persists session cookies between process runs.
type Store interface {
	Load(ctx context.Context) ([]*http.Cookie, error)
	Save(ctx context.Context, cookies []*http.Cookie) error
}

// Session is the explicit replacement for the browser's ambient cookie
// store: it owns the cookie jar for the API origin and the CSRF token slot.
type Session struct {
	origin *url.URL
	jar    http.CookieJar
	tokens *TokenCache
}

type Option func(*Session)

func WithJar(jar http.CookieJar) Option {
	return func(s *Session) {
		s.jar = jar
	}
}

func New(origin string, opts ...Option) (*Session, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parsing origin: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidOrigin
	}

	s := &Session{origin: u}
	for _, opt := range opts {
		opt(s)
	}
	if s.jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		s.jar = jar
	}
	s.tokens = NewTokenCache(func() string {
		return s.Cookie(CSRFCookieName)
	})
	return s, nil
}

func (s *Session) Origin() *url.URL {
	u := *s.origin
	return &u
}

func (s *Session) Jar() http.CookieJar {
	return s.jar
}

func (s *Session) Tokens() *TokenCache {
	return s.tokens
}

// CSRFToken returns the cached token or the cookie mirror.
func (s *Session) CSRFToken() string {
	return s.tokens.Get()
}

func (s *Session) Cookies() []*http.Cookie {
	return s.jar.Cookies(s.origin)
}

// CookieHeader renders the cookies visible to the origin as a Cookie header.
func (s *Session) CookieHeader() string {
	cookies := s.Cookies()
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

func (s *Session) Cookie(name string) string {
	return ReadCookie(s.CookieHeader(), name)
}

// SetCookies stores cookies for the whole origin host.
func (s *Session) SetCookies(cookies []*http.Cookie) {
	for _, c := range cookies {
		if c.Path == "" {
			c.Path = "/"
		}
	}
	s.jar.SetCookies(s.origin, cookies)
}

// Restore loads previously persisted cookies into the jar.
func (s *Session) Restore(ctx context.Context, store Store) error {
	cookies, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	if len(cookies) > 0 {
		s.SetCookies(cookies)
	}
	return nil
}

func (s *Session) Persist(ctx context.Context, store Store) error {
	if err := store.Save(ctx, s.Cookies()); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	return nil
}
