package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notefiber-editor/pkg/command"
	"notefiber-editor/pkg/document"
)

// fakeStorage blocks every upload until release is closed, then answers with url
// or with the next queued error.
type fakeStorage struct {
	mu      sync.Mutex
	release chan struct{}
	url     string
	errs    []error
	calls   int
}

func newFakeStorage(url string) *fakeStorage {
	return &fakeStorage{release: make(chan struct{}), url: url}
}

func (s *fakeStorage) Upload(ctx context.Context, f File, scope string) (Result, error) {
	s.mu.Lock()
	s.calls++
	release := s.release
	s.mu.Unlock()

	select {
	case <-release:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return Result{}, err
	}
	return Result{URL: s.url}, nil
}

type recorder struct {
	mu  sync.Mutex
	got []command.Notification
}

func (r *recorder) Notify(n command.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) all() []command.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]command.Notification(nil), r.got...)
}

var png = File{Name: "y.png", ContentType: "image/png", Data: []byte("\x89PNG")}

func TestReconcileSurvivesConcurrentEdit(t *testing.T) {
	e := document.NewEditor(document.NewParagraph("intro"))
	require.NoError(t, e.Select(document.Caret(document.Point{Path: document.Path{0, 0}, Offset: 5})))

	st := newFakeStorage("https://x/y.png")
	rec := &recorder{}
	r := NewReconciler(e, st, WithNotifier(rec))
	defer r.Close()

	ref, err := r.Insert(document.TypeImage, png, document.WithAlt("diagram"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, LocalRefPrefix))

	path, ok := e.Find(document.TypeImage, ref)
	require.True(t, ok)
	assert.Equal(t, document.Path{1}, path)

	// Unrelated edits move the placeholder before the upload lands.
	require.NoError(t, e.Select(document.Caret(document.Point{Path: document.Path{0, 0}, Offset: 0})))
	require.NoError(t, e.InsertBreak())
	require.NoError(t, e.InsertText("x"))

	close(st.release)
	r.Wait()

	_, ok = e.Find(document.TypeImage, ref)
	assert.False(t, ok)
	path, ok = e.Find(document.TypeImage, "https://x/y.png")
	require.True(t, ok)
	assert.Equal(t, document.Path{2}, path)

	img, err := e.Block(path)
	require.NoError(t, err)
	assert.Equal(t, "diagram", img.Alt)

	assert.Equal(t, []command.Notification{
		command.MediaUploaded{Kind: document.TypeImage, LocalRef: ref, URL: "https://x/y.png"},
	}, rec.all())
	assert.Equal(t, 0, r.blobs.Len())
}

func TestFailedUploadCanBeRetried(t *testing.T) {
	e := document.NewEditor()
	st := newFakeStorage("https://x/y.png")
	st.errs = []error{errors.New("connection reset")}
	close(st.release)

	rec := &recorder{}
	r := NewReconciler(e, st, WithNotifier(rec))
	defer r.Close()

	ref, err := r.Insert("", png)
	require.NoError(t, err)
	r.Wait()

	failed := r.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, ref, failed[0].LocalRef)
	assert.Equal(t, document.TypeImage, failed[0].Kind)
	assert.Equal(t, []command.Notification{
		command.MediaUploadFailed{Kind: document.TypeImage, LocalRef: ref, Error: "connection reset"},
	}, rec.all())

	_, ok := e.Find(document.TypeImage, ref)
	assert.True(t, ok, "placeholder stays in place")

	require.NoError(t, r.Retry(ref))
	r.Wait()

	assert.Empty(t, r.Failed())
	_, ok = e.Find(document.TypeImage, "https://x/y.png")
	assert.True(t, ok)
	assert.ErrorIs(t, r.Retry(ref), ErrUnknownPlaceholder)
}

func TestCloseDropsPendingUploads(t *testing.T) {
	e := document.NewEditor()
	st := newFakeStorage("https://x/y.png")
	rec := &recorder{}
	r := NewReconciler(e, st, WithNotifier(rec))

	ref, err := r.Insert(document.TypeVideo, File{Name: "v.mp4", ContentType: "video/mp4", Data: []byte("v")})
	require.NoError(t, err)
	version := e.Version()

	r.Close()

	assert.Equal(t, version, e.Version())
	_, ok := e.Find(document.TypeVideo, ref)
	assert.True(t, ok)
	assert.Empty(t, r.Failed())
	assert.Empty(t, rec.all())

	_, err = r.Insert(document.TypeImage, png)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestInsertRacingCloseLeavesNoPlaceholder(t *testing.T) {
	e := document.NewEditor()
	st := newFakeStorage("https://x/y.png")
	blobs := NewBlobCache(time.Hour)
	r := NewReconciler(e, st, WithBlobCache(blobs))
	before := e.Children()

	// Close lands between the placeholder commit and the upload start.
	cancel := e.OnChange(func(document.Change) { r.Close() })
	defer cancel()

	ref, err := r.Insert(document.TypeImage, png)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, ref)

	assert.Equal(t, before, e.Children())
	assert.Zero(t, blobs.Len())
	assert.Empty(t, r.Failed())
	st.mu.Lock()
	assert.Zero(t, st.calls)
	st.mu.Unlock()
}

func TestGenericFilesAreReconciled(t *testing.T) {
	e := document.NewEditor()
	st := newFakeStorage("https://x/r.pdf")
	close(st.release)
	r := NewReconciler(e, st)
	defer r.Close()

	refs, err := r.Drop([]File{{Name: "r.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	r.Wait()

	path, ok := e.Find(document.TypeFile, "https://x/r.pdf")
	require.True(t, ok)
	f, err := e.Block(path)
	require.NoError(t, err)
	assert.Equal(t, "r.pdf", f.FileName)
	assert.Equal(t, "application/pdf", f.FileType)
}

func TestInsertValidation(t *testing.T) {
	r := NewReconciler(document.NewEditor(), newFakeStorage(""), WithMaxBytes(2))
	defer r.Close()

	_, err := r.Insert(document.TypeDivider, File{Data: []byte("a")})
	assert.ErrorIs(t, err, document.ErrBadType)

	_, err = r.Insert(document.TypeImage, File{Data: []byte("abc")})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUploadTimeoutRecordsFailure(t *testing.T) {
	e := document.NewEditor()
	r := NewReconciler(e, newFakeStorage(""), WithUploadTimeout(10*time.Millisecond))
	defer r.Close()

	_, err := r.Insert(document.TypeImage, png)
	require.NoError(t, err)
	r.Wait()

	failed := r.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, context.DeadlineExceeded.Error(), failed[0].Error)
}

func TestObjectKey(t *testing.T) {
	a := ObjectKey(File{Name: "A.PNG", Data: []byte("same")}, "note-1")
	b := ObjectKey(File{Name: "b.png", Data: []byte("same")}, "/note-1/")
	c := ObjectKey(File{Name: "c.png", Data: []byte("other")}, "note-1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "note-1/"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(a, "note-1/"), ".png"), 64)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		contentType string
		want        document.BlockType
	}{
		{"image/png", document.TypeImage},
		{"video/webm", document.TypeVideo},
		{"application/pdf", document.TypeFile},
		{"", document.TypeFile},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.contentType))
		})
	}
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://localhost:3000/uploads/")
	require.NoError(t, err)

	res, err := s.Upload(context.Background(), png, "note-1")
	require.NoError(t, err)

	key := ObjectKey(png, "note-1")
	assert.Equal(t, "http://localhost:3000/uploads/"+key, res.URL)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, png.Data, data)
}

func TestBlobCache(t *testing.T) {
	c := NewBlobCache(time.Minute)
	ref := c.Put(png)
	assert.True(t, strings.HasPrefix(ref, LocalRefPrefix))

	got, ok := c.Get(ref)
	require.True(t, ok)
	assert.Equal(t, png, got)

	c.Delete(ref)
	_, ok = c.Get(ref)
	assert.False(t, ok)
}
