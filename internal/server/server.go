package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"collabvc/internal/store"
	"collabvc/internal/versioning"
)

const (
	allowRemoteEnvKey = "COLLABVC_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second

	loginMaxFailures = 5
	loginWindow      = 5 * time.Minute
	loginLockout     = 15 * time.Minute
)

// Options configures a Server.
type Options struct {
	// BackendName is reported by /v1/info, e.g. "sqlite" or "memory".
	BackendName     string
	DBPath          string
	MaxContentBytes int64
	Logger          *slog.Logger
}

// Server wraps HTTP handlers for the collabvc API.
type Server struct {
	addr            string
	backend         store.Backend
	versions        *versioning.Service
	authService     *AuthService
	loginLimiter    *loginRateLimiter
	logger          *slog.Logger
	backendName     string
	dbPath          string
	maxContentBytes int64
	now             func() time.Time
}

// New creates a new server instance.
func New(addr string, backend store.Backend, versions *versioning.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxContent := opts.MaxContentBytes
	if maxContent <= 0 {
		maxContent = versioning.DefaultMaxContentBytes
	}

	return &Server{
		addr:            addr,
		backend:         backend,
		versions:        versions,
		authService:     NewAuthService(backend),
		loginLimiter:    newLoginRateLimiter(loginMaxFailures, loginWindow, loginLockout),
		logger:          logger,
		backendName:     opts.BackendName,
		dbPath:          opts.DBPath,
		maxContentBytes: maxContent,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.withRequestLogging(s.withAuth(s.routes())))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log().Info("starting server", "addr", s.addr, "backend", s.backendName)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// commitBodyLimit bounds commit payloads: base64 inflates content by 4/3.
func (s *Server) commitBodyLimit() int64 {
	return s.maxContentBytes/3*4 + 4 + commitBodyOverhead
}
