package server

import (
	"fmt"
	"net/http"
	"strings"
)

// isPublicRoute reports whether a request may proceed without a session.
func isPublicRoute(r *http.Request) bool {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		return true
	case r.Method == http.MethodPost && r.URL.Path == "/v1/auth/login":
		return true
	default:
		return false
	}
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicRoute(r) {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
			return
		}

		user, err := s.authService.AuthenticateSessionToken(r.Context(), token, s.clock())
		if err != nil {
			s.writeErrorReq(w, r, http.StatusServiceUnavailable, storageUnavailable(fmt.Errorf("authenticate session: %w", err)))
			return
		}
		if user == nil {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("invalid or expired session")))
			return
		}

		ctx := contextWithAuthPrincipal(r.Context(), authPrincipal{User: user, Token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
