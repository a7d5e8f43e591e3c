package server

import (
	"net/http"
	"testing"

	"collabvc/internal/api"
	"collabvc/internal/versioning"
)

func TestLoginMeLogout(t *testing.T) {
	env := newTestEnv(t, versioning.Options{})
	user, token := env.userWithToken(t, "alice")

	w := env.do(t, http.MethodGet, "/v1/auth/me", token, nil)
	me := decodeBody[api.AuthMeResponse](t, w)
	if !me.Authenticated || me.UserID != user.ID || me.Username != "alice" {
		t.Fatalf("unexpected me: %+v", me)
	}

	w = env.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/v1/auth/me", token, nil)
	requireError(t, w, http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t, versioning.Options{})
	env.addUser(t, "alice")

	w := env.do(t, http.MethodPost, "/v1/auth/login", "", api.AuthLoginRequest{Username: "alice", Password: "wrong-password"})
	requireError(t, w, http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized)

	w = env.do(t, http.MethodPost, "/v1/auth/login", "", api.AuthLoginRequest{Username: "nobody", Password: "wrong-password"})
	resp := requireError(t, w, http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized)
	if resp.Error != "invalid credentials" {
		t.Fatalf("unknown users must look like bad passwords, got %q", resp.Error)
	}

	w = env.do(t, http.MethodPost, "/v1/auth/login", "", api.AuthLoginRequest{Username: "", Password: "x"})
	requireError(t, w, http.StatusBadRequest, "invalid_argument", ErrCodeInvalidArgument)
}

func TestLoginLockout(t *testing.T) {
	env := newTestEnv(t, versioning.Options{})
	env.addUser(t, "alice")

	for i := 0; i < loginMaxFailures; i++ {
		w := env.do(t, http.MethodPost, "/v1/auth/login", "", api.AuthLoginRequest{Username: "alice", Password: "wrong-password"})
		requireError(t, w, http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized)
	}

	w := env.do(t, http.MethodPost, "/v1/auth/login", "", api.AuthLoginRequest{Username: "alice", Password: testPassword})
	requireError(t, w, http.StatusTooManyRequests, "resource_exhausted", ErrCodeResourceExhausted)
}

func TestDisabledUserSessionsStopWorking(t *testing.T) {
	env := newTestEnv(t, versioning.Options{})
	_, token := env.userWithToken(t, "alice")

	if _, err := env.st.SetUserDisabled(t.Context(), "alice", true, env.srv.clock()); err != nil {
		t.Fatalf("disable user: %v", err)
	}

	w := env.do(t, http.MethodGet, "/v1/workspaces", token, nil)
	requireError(t, w, http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized)

	w = env.do(t, http.MethodPost, "/v1/auth/login", "", api.AuthLoginRequest{Username: "alice", Password: testPassword})
	requireError(t, w, http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized)
}
