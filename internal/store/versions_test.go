package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"collabvc/internal/models"
)

func isHeadMismatch(err error) bool {
	return errors.Is(err, ErrHeadMismatch)
}

func appendOrFail(t *testing.T, st *Store, rec *models.VersionRecord) *models.VersionRecord {
	t.Helper()
	if err := st.AppendVersion(context.Background(), rec); err != nil {
		t.Fatalf("append %s: %v", rec.FilePath, err)
	}
	return rec
}

func TestAppendVersionBuildsChain(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(st, base)
	seedWorkspace(t, st, "ws-1")
	seedContent(t, st, "h1")
	seedContent(t, st, "h2")

	v1 := appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "docs/a.md", ContentHash: "h1", AuthorID: "us-a", Message: "first"})
	if v1.VersionID != FormatVersionID(1) || v1.Seq != 1 {
		t.Fatalf("unexpected first version %+v", v1)
	}
	if v1.Status != models.VersionCommitted {
		t.Fatalf("expected default status committed, got %q", v1.Status)
	}
	if !v1.IsRoot() {
		t.Fatal("first version must be a root")
	}

	v2 := appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "docs/a.md", ContentHash: "h2", AuthorID: "us-b", Message: "second", ParentVersionID: v1.VersionID})
	if v2.VersionID <= v1.VersionID {
		t.Fatalf("version ids must increase: %s then %s", v1.VersionID, v2.VersionID)
	}
	if !v2.CreatedAt.After(v1.CreatedAt) {
		t.Fatalf("created_at must advance: %v then %v", v1.CreatedAt, v2.CreatedAt)
	}

	latest, err := st.LatestVersion(ctx, "ws-1", "docs/a.md")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.VersionID != v2.VersionID {
		t.Fatalf("expected latest %s, got %+v", v2.VersionID, latest)
	}
	if latest.ParentVersionID != v1.VersionID {
		t.Fatalf("expected parent %s, got %q", v1.VersionID, latest.ParentVersionID)
	}

	got, err := st.GetVersion(ctx, "ws-1", v1.VersionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Message != "first" || got.AuthorID != "us-a" || !got.CreatedAt.Equal(v1.CreatedAt) {
		t.Fatalf("unexpected stored version %+v", got)
	}
}

func TestAppendVersionRejectsStaleParent(t *testing.T) {
	st := testStore(t)
	seedWorkspace(t, st, "ws-1")
	seedContent(t, st, "h1")

	v1 := appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "a.txt", ContentHash: "h1", AuthorID: "us-a"})
	appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "a.txt", ContentHash: "h1", AuthorID: "us-a", ParentVersionID: v1.VersionID})

	stale := &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "a.txt", ContentHash: "h1", AuthorID: "us-b", ParentVersionID: v1.VersionID}
	if err := st.AppendVersion(context.Background(), stale); !isHeadMismatch(err) {
		t.Fatalf("expected head mismatch, got %v", err)
	}
	if stale.VersionID != "" {
		t.Fatalf("rejected append must not assign an id, got %q", stale.VersionID)
	}

	root := &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "a.txt", ContentHash: "h1", AuthorID: "us-b"}
	if err := st.AppendVersion(context.Background(), root); !isHeadMismatch(err) {
		t.Fatalf("expected head mismatch for second root, got %v", err)
	}
}

func TestAppendVersionRequiresKnownContentAndWorkspace(t *testing.T) {
	st := testStore(t)
	seedWorkspace(t, st, "ws-1")

	err := st.AppendVersion(context.Background(), &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "a.txt", ContentHash: "missing", AuthorID: "us-a"})
	if err == nil {
		t.Fatal("expected foreign key failure for unknown content")
	}

	seedContent(t, st, "h1")
	err = st.AppendVersion(context.Background(), &models.VersionRecord{WorkspaceID: "ws-nope", FilePath: "a.txt", ContentHash: "h1", AuthorID: "us-a"})
	if err == nil {
		t.Fatal("expected foreign key failure for unknown workspace")
	}

	var seq int64
	if err := st.db.QueryRow("SELECT value FROM version_seq WHERE id = 1").Scan(&seq); err != nil {
		t.Fatalf("read seq: %v", err)
	}
	if seq != 0 {
		t.Fatalf("failed appends must roll back the sequence, got %d", seq)
	}
}

func TestCreatedAtNeverGoesBackwards(t *testing.T) {
	st := testStore(t)
	seedWorkspace(t, st, "ws-1")
	seedContent(t, st, "h1")

	later := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return later }
	v1 := appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "a.txt", ContentHash: "h1", AuthorID: "us-a"})

	st.now = func() time.Time { return later.Add(-time.Hour) }
	v2 := appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "b.txt", ContentHash: "h1", AuthorID: "us-a"})

	if v2.CreatedAt.Before(v1.CreatedAt) {
		t.Fatalf("created_at went backwards: %v then %v", v1.CreatedAt, v2.CreatedAt)
	}
}

func TestListFileVersionsBreaksTimestampTiesBySeq(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	instant := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return instant })
	seedWorkspace(t, st, "ws-1")
	seedContent(t, st, "h1")

	parent := ""
	for i := 0; i < 3; i++ {
		rec := appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "a.txt", ContentHash: "h1", AuthorID: "us-a", ParentVersionID: parent})
		parent = rec.VersionID
	}

	history, err := st.ListFileVersions(ctx, "ws-1", "a.txt", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(history))
	}
	for i, rec := range history {
		if !rec.CreatedAt.Equal(instant) {
			t.Fatalf("position %d: expected created_at %v, got %v", i, instant, rec.CreatedAt)
		}
		if want := int64(3 - i); rec.Seq != want {
			t.Fatalf("position %d: expected seq %d, got %d (%s)", i, want, rec.Seq, rec.VersionID)
		}
	}

	latest, err := st.LatestVersion(ctx, "ws-1", "a.txt")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.VersionID != history[0].VersionID {
		t.Fatalf("expected latest %s, got %+v", history[0].VersionID, latest)
	}
}

func TestListFileVersionsNewestFirst(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	fixedClock(st, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	seedWorkspace(t, st, "ws-1")
	seedContent(t, st, "h1")

	parent := ""
	var ids []string
	for i := 0; i < 5; i++ {
		rec := appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "a.txt", ContentHash: "h1", AuthorID: "us-a", ParentVersionID: parent})
		parent = rec.VersionID
		ids = append(ids, rec.VersionID)
	}
	appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "other.txt", ContentHash: "h1", AuthorID: "us-a"})

	history, err := st.ListFileVersions(ctx, "ws-1", "a.txt", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("expected 5 versions, got %d", len(history))
	}
	for i, rec := range history {
		if rec.VersionID != ids[len(ids)-1-i] {
			t.Fatalf("position %d: expected %s, got %s", i, ids[len(ids)-1-i], rec.VersionID)
		}
	}

	limited, err := st.ListFileVersions(ctx, "ws-1", "a.txt", 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].VersionID != ids[4] {
		t.Fatalf("unexpected limited history %+v", limited)
	}

	empty, err := st.ListFileVersions(ctx, "ws-1", "never.txt", 0)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestVersionsAreWorkspaceScoped(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	seedWorkspace(t, st, "ws-1")
	seedWorkspace(t, st, "ws-2")
	seedContent(t, st, "h1")

	v1 := appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "a.txt", ContentHash: "h1", AuthorID: "us-a"})
	appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-2", FilePath: "a.txt", ContentHash: "h1", AuthorID: "us-a"})

	got, err := st.GetVersion(ctx, "ws-2", v1.VersionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("version from ws-1 leaked into ws-2: %+v", got)
	}

	recent, err := st.ListWorkspaceVersions(ctx, "ws-1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || recent[0].VersionID != v1.VersionID {
		t.Fatalf("unexpected ws-1 recent versions %+v", recent)
	}
}

func TestListWorkspaceFilesDistinctSorted(t *testing.T) {
	st := testStore(t)
	seedWorkspace(t, st, "ws-1")
	seedContent(t, st, "h1")

	a := appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "z.txt", ContentHash: "h1", AuthorID: "us-a"})
	appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "z.txt", ContentHash: "h1", AuthorID: "us-a", ParentVersionID: a.VersionID})
	appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "docs/a.md", ContentHash: "h1", AuthorID: "us-a"})

	files, err := st.ListWorkspaceFiles(context.Background(), "ws-1")
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 2 || files[0] != "docs/a.md" || files[1] != "z.txt" {
		t.Fatalf("unexpected files %v", files)
	}
}

func TestConcurrentAppendsKeepOneChain(t *testing.T) {
	st := testStore(t)
	seedWorkspace(t, st, "ws-1")
	seedContent(t, st, "h1")
	root := appendOrFail(t, st, &models.VersionRecord{WorkspaceID: "ws-1", FilePath: "a.txt", ContentHash: "h1", AuthorID: "us-a"})

	const writers = 6
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- st.AppendVersion(context.Background(), &models.VersionRecord{
				WorkspaceID: "ws-1", FilePath: "a.txt", ContentHash: "h1", AuthorID: "us-b", ParentVersionID: root.VersionID,
			})
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case isHeadMismatch(err):
		default:
			t.Fatalf("unexpected append error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one append on the same parent, got %d", succeeded)
	}
}
