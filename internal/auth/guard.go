package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/chrisdamba/excursiondesk/internal/ports"
	"github.com/chrisdamba/excursiondesk/pkg/salesapi"
)

const (
	DefaultProbePath = "bookings/?limit=1"
	DefaultLoginPath = "login/"
	LoginRoute       = "/login"
)

// Guard decides whether the current session may see protected content.
type Guard struct {
	transport ports.Transport
	probePath string
	loginPath string
	logger    *slog.Logger
}

type Option func(*Guard)

func WithProbePath(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.probePath = path
		}
	}
}

func WithLoginPath(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.loginPath = path
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

func NewGuard(transport ports.Transport, opts ...Option) *Guard {
	g := &Guard{
		transport: transport,
		probePath: DefaultProbePath,
		loginPath: DefaultLoginPath,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsAuthenticated probes a protected GET. Any failure, including transport
// errors, counts as not authenticated.
func (g *Guard) IsAuthenticated(ctx context.Context) bool {
	if _, err := g.transport.Do(ctx, g.probePath, salesapi.RequestOptions{Method: http.MethodGet}); err != nil {
		g.logger.Debug("session probe failed", "error", err)
		return false
	}
	return true
}

// Login always acquires a fresh token before posting credentials; a cached
// token is never reused here.
func (g *Guard) Login(ctx context.Context, username, password string) error {
	token, err := g.transport.AcquireCSRF(ctx)
	if err != nil {
		return fmt.Errorf("acquiring csrf token: %w", err)
	}

	header := http.Header{}
	if token != "" {
		header.Set(salesapi.CSRFHeader, token)
	}
	opts := salesapi.RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"username": username, "password": password},
		Header: header,
	}
	if _, err := g.transport.Do(ctx, g.loginPath, opts); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	g.logger.Info("logged in", "user", username)
	return nil
}

// Require reports whether the session is authenticated and, when it is not,
// the login route that returns to next afterwards.
func (g *Guard) Require(ctx context.Context, next string) (bool, string) {
	if g.IsAuthenticated(ctx) {
		return true, ""
	}
	return false, LoginRedirect(next)
}

func LoginRedirect(next string) string {
	if next == "" {
		return LoginRoute
	}
	return LoginRoute + "?next=" + url.QueryEscape(next)
}
