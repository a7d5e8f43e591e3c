package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"collabvc/internal/api"
)

func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req api.AuthLoginRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	now := s.clock()
	limiterKey := loginAttemptKey(req.Username, r)
	if !s.loginLimiter.Allow(limiterKey, now) {
		s.writeErrorReq(w, r, http.StatusTooManyRequests, makeAPIError(
			http.StatusTooManyRequests, "resource_exhausted", ErrCodeResourceExhausted,
			fmt.Errorf("too many login attempts; retry later"),
		))
		return
	}

	result, err := s.authService.Login(r.Context(), req.Username, req.Password, now)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidCredentials):
			s.loginLimiter.RegisterFailure(limiterKey, now)
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(errInvalidCredentials))
		case errors.Is(err, errInvalidLogin):
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidArgument))
		default:
			s.writeErrorReq(w, r, http.StatusServiceUnavailable, storageUnavailable(fmt.Errorf("login: %w", err)))
		}
		return
	}
	s.loginLimiter.Reset(limiterKey)
	s.log().Info("session opened", "user_id", result.User.ID, "request_id", requestIDFromContext(r.Context()))

	s.writeJSON(w, http.StatusOK, api.AuthLoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		UserID:    result.User.ID,
		Username:  result.User.Username,
	})
}

func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	principal, ok := authPrincipalFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
		return
	}
	if err := s.authService.RevokeSessionToken(r.Context(), principal.Token, s.clock()); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := authPrincipalFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusOK, api.AuthMeResponse{Authenticated: false})
		return
	}
	s.writeJSON(w, http.StatusOK, api.AuthMeResponse{
		Authenticated: true,
		UserID:        principal.User.ID,
		Username:      principal.User.Username,
	})
}

func loginAttemptKey(username string, r *http.Request) string {
	user := strings.ToLower(strings.TrimSpace(username))
	if user == "" {
		user = "<empty>"
	}
	ip := requestClientIP(r)
	if ip == "" {
		ip = "<unknown>"
	}
	return ip + "|" + user
}

func requestClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remote)
	if err == nil {
		return strings.TrimSpace(host)
	}
	return remote
}
