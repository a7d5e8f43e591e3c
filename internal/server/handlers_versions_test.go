package server

import (
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"testing"

	"collabvc/internal/api"
	"collabvc/internal/models"
	"collabvc/internal/store"
	"collabvc/internal/versioning"
)

func TestCommitReadHistoryAndRevert(t *testing.T) {
	env := newTestEnv(t, versioning.Options{})
	owner, token := env.userWithToken(t, "alice")
	env.workspace(t, owner.ID, "ws-docs")

	v1 := env.commit(t, token, "ws-docs", "notes/plan.md", "first draft")
	v2 := env.commit(t, token, "ws-docs", "notes/plan.md", "second draft")
	if v1.ParentVersionID != "" {
		t.Fatalf("expected root version, got parent %q", v1.ParentVersionID)
	}
	if v2.ParentVersionID != v1.VersionID {
		t.Fatalf("expected parent %s, got %s", v1.VersionID, v2.ParentVersionID)
	}
	if v1.AuthorID != owner.ID || v1.Status != models.VersionCommitted {
		t.Fatalf("unexpected version metadata: %+v", v1)
	}

	w := env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/files/notes/plan.md", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get file: %d %s", w.Code, w.Body.String())
	}
	file := decodeBody[api.FileResponse](t, w)
	if file.Version.VersionID != v2.VersionID || file.Content != "second draft" || file.Encoding != api.EncodingUTF8 {
		t.Fatalf("unexpected latest file: %+v", file)
	}

	w = env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/files/notes/plan.md?version="+v1.VersionID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get file at version: %d %s", w.Code, w.Body.String())
	}
	if got := decodeBody[api.FileResponse](t, w).Content; got != "first draft" {
		t.Fatalf("expected first draft, got %q", got)
	}

	w = env.do(t, http.MethodPost, "/v1/workspaces/ws-docs/revert/"+v1.VersionID+"/notes/plan.md", token, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("revert: %d %s", w.Code, w.Body.String())
	}
	v3 := decodeBody[models.VersionRecord](t, w)
	if v3.ParentVersionID != v2.VersionID {
		t.Fatalf("revert parent: expected %s, got %s", v2.VersionID, v3.ParentVersionID)
	}
	if v3.RevertedFromVersionID != v1.VersionID || v3.ContentHash != v1.ContentHash {
		t.Fatalf("revert should reuse %s content: %+v", v1.VersionID, v3)
	}
	if v3.Message != "Reverted to version "+v1.VersionID {
		t.Fatalf("unexpected revert message %q", v3.Message)
	}

	w = env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/history/notes/plan.md", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history: %d %s", w.Code, w.Body.String())
	}
	history := decodeBody[api.VersionListResponse](t, w)
	if history.Count != 3 || history.FilePath != "notes/plan.md" {
		t.Fatalf("unexpected history: %+v", history)
	}
	wantOrder := []string{v3.VersionID, v2.VersionID, v1.VersionID}
	for i, rec := range history.Versions {
		if rec.VersionID != wantOrder[i] {
			t.Fatalf("history[%d]: expected %s, got %s", i, wantOrder[i], rec.VersionID)
		}
	}

	w = env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/history/notes/plan.md?limit=1", token, nil)
	if got := decodeBody[api.VersionListResponse](t, w).Count; got != 1 {
		t.Fatalf("expected limited history of 1, got %d", got)
	}

	w = env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/files/notes/plan.md", token, nil)
	if got := decodeBody[api.FileResponse](t, w).Content; got != "first draft" {
		t.Fatalf("expected reverted content, got %q", got)
	}
}

func TestListFilesAndRecentVersions(t *testing.T) {
	env := newTestEnv(t, versioning.Options{})
	owner, token := env.userWithToken(t, "alice")
	env.workspace(t, owner.ID, "ws-docs")

	w := env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/files", token, nil)
	empty := decodeBody[api.FilesResponse](t, w)
	if empty.Count != 0 || empty.Files == nil {
		t.Fatalf("expected empty non-nil file list, got %+v", empty)
	}

	env.commit(t, token, "ws-docs", "b.txt", "b")
	env.commit(t, token, "ws-docs", "a.txt", "a")
	last := env.commit(t, token, "ws-docs", "b.txt", "b2")

	w = env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/files", token, nil)
	files := decodeBody[api.FilesResponse](t, w)
	if strings.Join(files.Files, ",") != "a.txt,b.txt" {
		t.Fatalf("unexpected files: %v", files.Files)
	}

	w = env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/versions?limit=2", token, nil)
	recent := decodeBody[api.VersionListResponse](t, w)
	if recent.Count != 2 || recent.Versions[0].VersionID != last.VersionID {
		t.Fatalf("unexpected recent versions: %+v", recent)
	}

	w = env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/versions/"+last.VersionID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get version: %d %s", w.Code, w.Body.String())
	}
	if got := decodeBody[api.FileResponse](t, w).Content; got != "b2" {
		t.Fatalf("expected b2, got %q", got)
	}

	w = env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/versions?limit=abc", token, nil)
	requireError(t, w, http.StatusBadRequest, "invalid_argument", ErrCodeInvalidQuery)
}

func TestCommitBinaryContent(t *testing.T) {
	env := newTestEnv(t, versioning.Options{})
	owner, token := env.userWithToken(t, "alice")
	env.workspace(t, owner.ID, "ws-docs")

	payload := []byte{0xff, 0x00, 0xfe, 0x10}
	w := env.do(t, http.MethodPost, "/v1/workspaces/ws-docs/versions", token, api.CommitRequest{
		FilePath:      "img/logo.bin",
		Message:       "add logo",
		ContentBase64: base64.StdEncoding.EncodeToString(payload),
		ContentType:   "application/octet-stream",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("commit: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/files/img/logo.bin", token, nil)
	file := decodeBody[api.FileResponse](t, w)
	if file.Encoding != api.EncodingBase64 || file.ContentType != "application/octet-stream" {
		t.Fatalf("unexpected binary file response: %+v", file)
	}
	got, err := file.DecodeContent()
	if err != nil {
		t.Fatalf("decode content: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("content mismatch: %v", got)
	}
}

func TestCommitValidation(t *testing.T) {
	env := newTestEnv(t, versioning.Options{MaxContentBytes: 1024})
	owner, token := env.userWithToken(t, "alice")
	env.workspace(t, owner.ID, "ws-docs")
	endpoint := "/v1/workspaces/ws-docs/versions"

	tests := []struct {
		name      string
		body      any
		errorCode int
	}{
		{"invalid json", `{"file_path":`, ErrCodeInvalidJSON},
		{"missing message", api.CommitRequest{FilePath: "a.txt", Content: "x"}, ErrCodeInvalidArgument},
		{"missing path", api.CommitRequest{Message: "m", Content: "x"}, ErrCodeInvalidArgument},
		{"escaping path", api.CommitRequest{FilePath: "../etc/passwd", Message: "m", Content: "x"}, ErrCodeInvalidArgument},
		{"both encodings", api.CommitRequest{FilePath: "a.txt", Message: "m", Content: "x", ContentBase64: "eA=="}, ErrCodeInvalidContent},
		{"bad base64", api.CommitRequest{FilePath: "a.txt", Message: "m", ContentBase64: "!!"}, ErrCodeInvalidContent},
		{"content over limit", api.CommitRequest{FilePath: "a.txt", Message: "m", Content: strings.Repeat("x", 2048)}, ErrCodeInvalidArgument},
		{"body over limit", api.CommitRequest{FilePath: "a.txt", Message: "m", Content: strings.Repeat("x", 200<<10)}, ErrCodeRequestTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, endpoint, token, tt.body)
			requireError(t, w, http.StatusBadRequest, "invalid_argument", tt.errorCode)
		})
	}

	info, err := env.st.Info(t.Context())
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Versions != 0 || info.Blobs != 0 {
		t.Fatalf("rejected commits must not persist anything: %+v", info)
	}
}

func TestRevertErrors(t *testing.T) {
	env := newTestEnv(t, versioning.Options{})
	owner, token := env.userWithToken(t, "alice")
	env.workspace(t, owner.ID, "ws-docs")
	other := env.commit(t, token, "ws-docs", "other.txt", "other")
	env.commit(t, token, "ws-docs", "main.txt", "main")

	w := env.do(t, http.MethodPost, "/v1/workspaces/ws-docs/revert/"+other.VersionID+"/main.txt", token, nil)
	requireError(t, w, http.StatusBadRequest, "invalid_argument", ErrCodeInvalidArgument)

	w = env.do(t, http.MethodPost, "/v1/workspaces/ws-docs/revert/v999999999999/main.txt", token, nil)
	requireError(t, w, http.StatusNotFound, "not_found", ErrCodeVersionNotFound)

	w = env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/files/missing.txt", token, nil)
	requireError(t, w, http.StatusNotFound, "not_found", ErrCodeVersionNotFound)
}

func TestVersionsAreWorkspaceScoped(t *testing.T) {
	env := newTestEnv(t, versioning.Options{})
	alice, aliceToken := env.userWithToken(t, "alice")
	env.workspace(t, alice.ID, "ws-a")
	env.workspace(t, alice.ID, "ws-b")
	rec := env.commit(t, aliceToken, "ws-a", "a.txt", "a")

	w := env.do(t, http.MethodGet, "/v1/workspaces/ws-b/versions/"+rec.VersionID, aliceToken, nil)
	requireError(t, w, http.StatusNotFound, "not_found", ErrCodeVersionNotFound)

	w = env.do(t, http.MethodPost, "/v1/workspaces/ws-b/revert/"+rec.VersionID+"/a.txt", aliceToken, nil)
	requireError(t, w, http.StatusNotFound, "not_found", ErrCodeVersionNotFound)
}

func TestWorkspaceAccessChecks(t *testing.T) {
	env := newTestEnv(t, versioning.Options{})
	owner, ownerToken := env.userWithToken(t, "alice")
	viewer, viewerToken := env.userWithToken(t, "victor")
	_, outsiderToken := env.userWithToken(t, "mallory")
	env.workspace(t, owner.ID, "ws-docs")
	env.addMember(t, "ws-docs", viewer.ID, models.RoleViewer)
	env.commit(t, ownerToken, "ws-docs", "a.txt", "a")

	commit := api.NewCommitRequest("a.txt", "edit", []byte("b"), "")

	w := env.do(t, http.MethodPost, "/v1/workspaces/ws-docs/versions", "", commit)
	requireError(t, w, http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized)

	w = env.do(t, http.MethodPost, "/v1/workspaces/ws-missing/versions", ownerToken, commit)
	requireError(t, w, http.StatusNotFound, "workspace_not_found", ErrCodeWorkspaceNotFound)

	w = env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/files/a.txt", outsiderToken, nil)
	requireError(t, w, http.StatusForbidden, "forbidden", ErrCodeNotMember)

	w = env.do(t, http.MethodPost, "/v1/workspaces/ws-docs/versions", outsiderToken, commit)
	requireError(t, w, http.StatusForbidden, "forbidden", ErrCodeNotMember)

	w = env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/files/a.txt", viewerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("viewer read: expected 200, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/v1/workspaces/ws-docs/versions", viewerToken, commit)
	requireError(t, w, http.StatusForbidden, "forbidden", ErrCodeReadOnlyMember)
}

func TestConcurrentCommitsOverHTTPStayLinear(t *testing.T) {
	env := newTestEnv(t, versioning.Options{CommitAttempts: 100})
	owner, token := env.userWithToken(t, "alice")
	env.workspace(t, owner.ID, "ws-docs")

	const writers = 8
	var wg sync.WaitGroup
	codes := make([]int, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := env.do(t, http.MethodPost, "/v1/workspaces/ws-docs/versions", token,
				api.NewCommitRequest("shared.txt", "writer", []byte(strings.Repeat("z", i+1)), ""))
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusCreated {
			t.Fatalf("writer %d: expected 201, got %d", i, code)
		}
	}

	w := env.do(t, http.MethodGet, "/v1/workspaces/ws-docs/history/shared.txt", token, nil)
	history := decodeBody[api.VersionListResponse](t, w)
	if history.Count != writers {
		t.Fatalf("expected %d versions, got %d", writers, history.Count)
	}
	for i := 0; i < len(history.Versions)-1; i++ {
		if history.Versions[i].ParentVersionID != history.Versions[i+1].VersionID {
			t.Fatalf("history forks at %d: %+v", i, history.Versions)
		}
	}
	if !history.Versions[len(history.Versions)-1].IsRoot() {
		t.Fatal("oldest version should be the root")
	}
}

func TestCommitLosingEveryRaceIsConflict(t *testing.T) {
	env := newTestEnvWithVersions(t, versioning.Options{CommitAttempts: 2}, func(st *store.Store) versioning.Backend {
		return contendedStore{Store: st}
	})
	owner, token := env.userWithToken(t, "alice")
	env.workspace(t, owner.ID, "ws-busy")

	w := env.do(t, http.MethodPost, "/v1/workspaces/ws-busy/versions", token,
		api.NewCommitRequest("hot.md", "edit", []byte("x"), ""))
	resp := requireError(t, w, http.StatusConflict, "conflict", ErrCodeConcurrentModification)
	if !strings.Contains(resp.Error, "hot.md") {
		t.Fatalf("expected conflict message to name the file, got %q", resp.Error)
	}

	w = env.do(t, http.MethodGet, "/v1/workspaces/ws-busy/history/hot.md", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history: %d %s", w.Code, w.Body.String())
	}
	if got := decodeBody[api.VersionListResponse](t, w).Count; got != 0 {
		t.Fatalf("expected no versions after conflict, got %d", got)
	}
}
