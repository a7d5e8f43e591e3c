package versioning

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"collabvc/internal/blobstore"
	"collabvc/internal/models"
	"collabvc/internal/store"
)

type fixture struct {
	st    *store.Store
	blobs *blobstore.MemoryCAS
	svc   *Service
	ctx   context.Context
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	blobs := blobstore.NewMemoryCAS()
	ctx := context.Background()
	require.NoError(t, st.CreateWorkspace(ctx, &models.Workspace{ID: "ws-1", Name: "one", OwnerID: "u1"}))
	require.NoError(t, st.CreateWorkspace(ctx, &models.Workspace{ID: "ws-2", Name: "two", OwnerID: "u2"}))

	return &fixture{st: st, blobs: blobs, svc: NewService(st, blobs, opts), ctx: ctx}
}

func (f *fixture) commit(t *testing.T, path, content string) models.VersionRecord {
	t.Helper()
	rec, err := f.svc.Commit(f.ctx, CommitInput{
		WorkspaceID: "ws-1",
		FilePath:    path,
		AuthorID:    "u1",
		Message:     "update " + path,
		Content:     []byte(content),
	})
	require.NoError(t, err)
	return rec
}

func (f *fixture) contentRows(t *testing.T) int {
	t.Helper()
	info, err := f.st.Info(f.ctx)
	require.NoError(t, err)
	return info.Blobs
}

// failingBlobs is a blob store whose every call fails.
type failingBlobs struct{}

var errDiskGone = errors.New("disk gone")

func (failingBlobs) Put(context.Context, io.Reader) (blobstore.BlobPutResult, error) {
	return blobstore.BlobPutResult{}, errDiskGone
}

func (failingBlobs) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errDiskGone
}

func (failingBlobs) Exists(context.Context, string) (bool, error) {
	return false, errDiskGone
}

// forgetfulBlobs accepts writes but has lost every object.
type forgetfulBlobs struct {
	*blobstore.MemoryCAS
}

func (forgetfulBlobs) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, blobstore.ErrBlobNotFound
}

func (forgetfulBlobs) Exists(context.Context, string) (bool, error) {
	return false, nil
}


// existsOnlyBlobs answers Exists from the wrapped store but refuses writes.
type existsOnlyBlobs struct {
	*blobstore.MemoryCAS
}

func (existsOnlyBlobs) Put(context.Context, io.Reader) (blobstore.BlobPutResult, error) {
	return blobstore.BlobPutResult{}, errDiskGone
}

// racingBackend lands a competing version on the file's head just before
// each of the first rivals calls to AppendVersion.
type racingBackend struct {
	*store.Store
	rivals   int
	appended []models.VersionRecord
}

func (b *racingBackend) AppendVersion(ctx context.Context, rec *models.VersionRecord) error {
	if b.rivals > 0 {
		b.rivals--
		head, err := b.Store.LatestVersion(ctx, rec.WorkspaceID, rec.FilePath)
		if err != nil {
			return err
		}
		rival := models.VersionRecord{
			WorkspaceID: rec.WorkspaceID,
			FilePath:    rec.FilePath,
			ContentHash: rec.ContentHash,
			AuthorID:    "rival",
			Message:     "rival edit",
		}
		if head != nil {
			rival.ParentVersionID = head.VersionID
		}
		if err := b.Store.AppendVersion(ctx, &rival); err != nil {
			return err
		}
		b.appended = append(b.appended, rival)
	}
	return b.Store.AppendVersion(ctx, rec)
}

func newRacingFixture(t *testing.T, rivals int, opts Options) (*fixture, *racingBackend) {
	t.Helper()
	f := newFixture(t, opts)
	backend := &racingBackend{Store: f.st, rivals: rivals}
	f.svc = NewService(backend, f.blobs, opts)
	return f, backend
}
