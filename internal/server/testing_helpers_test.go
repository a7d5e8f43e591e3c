package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"collabvc/internal/api"
	internalauth "collabvc/internal/auth"
	"collabvc/internal/blobstore"
	"collabvc/internal/models"
	"collabvc/internal/store"
	"collabvc/internal/versioning"
)

const testPassword = "correct-horse"

type testEnv struct {
	st      *store.Store
	srv     *Server
	handler http.Handler
}

func newTestEnv(t *testing.T, opts versioning.Options) *testEnv {
	t.Helper()
	return newTestEnvWithVersions(t, opts, func(st *store.Store) versioning.Backend { return st })
}

// newTestEnvWithVersions lets a test wrap the backend seen by the
// versioning service. Handlers still use the plain store.
func newTestEnvWithVersions(t *testing.T, opts versioning.Options, wrap func(*store.Store) versioning.Backend) *testEnv {
	t.Helper()
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc := versioning.NewService(wrap(st), blobstore.NewMemoryCAS(), opts)
	srv := New("127.0.0.1:0", st, svc, Options{
		BackendName:     "memory",
		MaxContentBytes: opts.MaxContentBytes,
	})
	return &testEnv{st: st, srv: srv, handler: srv.Handler()}
}

func (e *testEnv) addUser(t *testing.T, username string) *store.AuthUser {
	t.Helper()
	hash, err := internalauth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := e.st.CreateUser(context.Background(), username, hash, time.Now().UTC())
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/auth/login", "", api.AuthLoginRequest{Username: username, Password: testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, w.Code, w.Body.String())
	}
	return decodeBody[api.AuthLoginResponse](t, w).Token
}

// userWithToken provisions a user and opens a session for it.
func (e *testEnv) userWithToken(t *testing.T, username string) (*store.AuthUser, string) {
	t.Helper()
	user := e.addUser(t, username)
	return user, e.login(t, username)
}

func (e *testEnv) workspace(t *testing.T, ownerID, id string) *models.Workspace {
	t.Helper()
	ws := &models.Workspace{ID: id, Name: id, OwnerID: ownerID}
	if err := e.st.CreateWorkspace(context.Background(), ws); err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	return ws
}

func (e *testEnv) addMember(t *testing.T, workspaceID, userID string, role models.MemberRole) {
	t.Helper()
	err := e.st.UpsertMember(context.Background(), models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		JoinedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(v)
	default:
		payload, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) commit(t *testing.T, token, workspaceID, filePath, content string) models.VersionRecord {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/workspaces/"+workspaceID+"/versions", token,
		api.NewCommitRequest(filePath, "edit "+filePath, []byte(content), ""))
	if w.Code != http.StatusCreated {
		t.Fatalf("commit %s: status %d body %s", filePath, w.Code, w.Body.String())
	}
	return decodeBody[models.VersionRecord](t, w)
}

// contendedStore reports a moved head on every append.
type contendedStore struct {
	*store.Store
}

func (contendedStore) AppendVersion(context.Context, *models.VersionRecord) error {
	return store.ErrHeadMismatch
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string, errorCode int) api.ErrorResponse {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	resp := decodeBody[api.ErrorResponse](t, w)
	if code != "" && resp.Code != code {
		t.Fatalf("expected code %q, got %q", code, resp.Code)
	}
	if errorCode != 0 && resp.ErrorCode != errorCode {
		t.Fatalf("expected error_code %d, got %d", errorCode, resp.ErrorCode)
	}
	return resp
}
