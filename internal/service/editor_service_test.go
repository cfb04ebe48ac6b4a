package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"notefiber-editor/internal/config"
	"notefiber-editor/internal/dto"
	"notefiber-editor/internal/entity"
	"notefiber-editor/internal/pkg/logger"
	"notefiber-editor/pkg/autosave"
	"notefiber-editor/pkg/document"
	"notefiber-editor/pkg/events"
	"notefiber-editor/pkg/media"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelopeRecorder struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (r *envelopeRecorder) Publish(env events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return nil
}

func (r *envelopeRecorder) names(kind string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.envs {
		if e.Type == kind {
			out = append(out, e.Name)
		}
	}
	return out
}

type instantStorage struct{}

func (instantStorage) Upload(ctx context.Context, f media.File, scope string) (media.Result, error) {
	return media.Result{URL: "https://cdn.test/" + media.ObjectKey(f, scope)}, nil
}

type editorFixture struct {
	store  *fakeStore
	bus    *envelopeRecorder
	svc    IEditorService
	notes  INoteService
	userId uuid.UUID
	noteId uuid.UUID
}

func newEditorFixture(t *testing.T) *editorFixture {
	t.Helper()
	store := newFakeStore()
	notes := NewNoteService(store, nil, logger.NewNop())
	bus := &envelopeRecorder{}

	userId := uuid.New()
	created, err := notes.Create(context.Background(), userId, &dto.CreateNoteRequest{Title: "Notes"})
	require.NoError(t, err)

	svc := NewEditorService(notes, instantStorage{}, bus, nil, logger.NewNop(), config.EditorConfig{
		AutosaveEnabled: false,
		AutosaveDelay:   time.Hour,
		UploadTimeout:   time.Second,
		BlobTTL:         time.Minute,
		MaxUploadBytes:  1 << 20,
		SessionTTL:      time.Hour,
	})
	t.Cleanup(svc.Shutdown)

	return &editorFixture{store: store, bus: bus, svc: svc, notes: notes, userId: userId, noteId: created.Id}
}

func (f *editorFixture) apply(t *testing.T, ops ...dto.EditorOperation) {
	t.Helper()
	for _, op := range ops {
		require.NoError(t, f.svc.Apply(context.Background(), f.userId, f.noteId, op), op.Op)
	}
}

func (f *editorFixture) children(t *testing.T) []document.Node {
	t.Helper()
	snap, err := f.svc.Open(context.Background(), f.userId, f.noteId)
	require.NoError(t, err)
	return snap.Children
}

func TestEditorAppliesMarkdownShortcut(t *testing.T) {
	f := newEditorFixture(t)

	f.apply(t,
		dto.EditorOperation{Op: dto.OpInsertText, Text: "# "},
		dto.EditorOperation{Op: dto.OpInsertText, Text: "Title"},
	)

	children := f.children(t)
	require.Len(t, children, 1)
	assert.Equal(t, document.TypeHeadingOne, children[0].(*document.Block).Type)
	assert.Equal(t, "Title", document.TextContent(children[0]))
	assert.NotEmpty(t, f.bus.names(events.TypeDocument))
}

func TestEditorSlashMenuOverWebsocketOps(t *testing.T) {
	f := newEditorFixture(t)

	f.apply(t,
		dto.EditorOperation{Op: dto.OpInsertText, Text: "/todo"},
		dto.EditorOperation{Op: dto.OpInsertBreak},
	)

	children := f.children(t)
	require.Len(t, children, 1)
	assert.Equal(t, document.TypeTodoList, children[0].(*document.Block).Type)
	assert.Contains(t, f.bus.names(events.TypeNotification), "slash_menu_open")
	assert.Contains(t, f.bus.names(events.TypeNotification), "slash_menu_close")
}

func TestEditorSaveAndRelease(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()

	res, err := f.svc.Save(ctx, f.userId, f.noteId)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.store.note(f.noteId).Version)

	f.apply(t, dto.EditorOperation{Op: dto.OpPaste, Text: "hello world"})

	res, err = f.svc.Save(ctx, f.userId, f.noteId)
	require.NoError(t, err)
	assert.False(t, res.State.Dirty)
	assert.NotNil(t, res.State.LastSaved)
	assert.Equal(t, "hello world\n", f.store.note(f.noteId).Excerpt)

	// unsaved edits are flushed when the last client leaves
	f.apply(t, dto.EditorOperation{Op: dto.OpInsertText, Text: "!"})
	f.svc.Release(f.noteId)
	assert.Equal(t, "hello world!\n", f.store.note(f.noteId).Excerpt)
}

func TestEditorSaveNeedsTitle(t *testing.T) {
	f := newEditorFixture(t)

	f.apply(t, dto.EditorOperation{Op: dto.OpSetMeta, Title: "", Slug: ""})
	_, err := f.svc.Save(context.Background(), f.userId, f.noteId)
	assert.ErrorIs(t, err, autosave.ErrNotSavable)

	f.apply(t, dto.EditorOperation{Op: dto.OpSetMeta, Title: "Renamed", Slug: "renamed"})
	_, err = f.svc.Save(context.Background(), f.userId, f.noteId)
	require.NoError(t, err)
	assert.Equal(t, "renamed", f.store.note(f.noteId).Slug)
}

func TestEditorUploadReconciles(t *testing.T) {
	f := newEditorFixture(t)

	res, err := f.svc.UploadMedia(context.Background(), f.userId,
		&dto.UploadMediaRequest{NoteId: f.noteId},
		media.File{Name: "a.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}})
	require.NoError(t, err)
	assert.Equal(t, "image", res.Kind)

	assert.Eventually(t, func() bool {
		m, _ := f.store.NoteMediaRepository().FindOne(context.Background())
		return m != nil && m.Status == entity.MediaUploaded
	}, 2*time.Second, 10*time.Millisecond)

	m, _ := f.store.NoteMediaRepository().FindOne(context.Background())
	assert.Equal(t, "a.png", m.FileName)
	assert.Contains(t, f.bus.names(events.TypeNotification), "media_uploaded")

	var urls []string
	for _, n := range f.children(t) {
		if b, ok := n.(*document.Block); ok && b.Type == document.TypeImage {
			urls = append(urls, b.URL)
		}
	}
	assert.Equal(t, []string{m.URL}, urls)
}

func TestEditorRejects(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		userId uuid.UUID
		op     dto.EditorOperation
		want   error
	}{
		{name: "other user", userId: uuid.New(), op: dto.EditorOperation{Op: dto.OpInsertText, Text: "x"}, want: ErrNoteNotFound},
		{name: "unknown op", userId: f.userId, op: dto.EditorOperation{Op: "explode"}, want: ErrUnknownOperation},
		{name: "select without selection", userId: f.userId, op: dto.EditorOperation{Op: dto.OpSelect}, want: document.ErrNoSelection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, f.svc.Apply(ctx, tt.userId, f.noteId, tt.op), tt.want)
		})
	}
}

func TestRenameSurvivesLaterSave(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()
	notes := WithSessionSync(f.notes, f.svc)

	f.apply(t, dto.EditorOperation{Op: dto.OpInsertText, Text: "body"})

	_, err := notes.Update(ctx, f.userId, &dto.UpdateNoteRequest{Id: f.noteId, Title: "Renamed", Slug: "Renamed Note"})
	require.NoError(t, err)

	f.apply(t, dto.EditorOperation{Op: dto.OpInsertText, Text: "!"})
	_, err = f.svc.Save(ctx, f.userId, f.noteId)
	require.NoError(t, err)

	note := f.store.note(f.noteId)
	assert.Equal(t, "Renamed", note.Title)
	assert.Equal(t, "renamed-note", note.Slug)
	assert.Equal(t, "body!\n", note.Excerpt)
}

// gatedNotes holds the first SaveDraft until release is closed.
type gatedNotes struct {
	INoteService
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedNotes) SaveDraft(ctx context.Context, noteId uuid.UUID, content []document.Node, meta autosave.Metadata) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.INoteService.SaveDraft(ctx, noteId, content, meta)
}

func TestReopenWaitsForFinalSave(t *testing.T) {
	store := newFakeStore()
	notes := NewNoteService(store, nil, logger.NewNop())
	userId := uuid.New()
	created, err := notes.Create(context.Background(), userId, &dto.CreateNoteRequest{Title: "Notes"})
	require.NoError(t, err)

	gate := &gatedNotes{INoteService: notes, entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewEditorService(gate, instantStorage{}, &envelopeRecorder{}, nil, logger.NewNop(), config.EditorConfig{
		AutosaveEnabled: false,
		AutosaveDelay:   time.Hour,
		UploadTimeout:   time.Second,
		BlobTTL:         time.Minute,
		MaxUploadBytes:  1 << 20,
		SessionTTL:      time.Hour,
	})
	t.Cleanup(svc.Shutdown)

	ctx := context.Background()
	require.NoError(t, svc.Apply(ctx, userId, created.Id, dto.EditorOperation{Op: dto.OpInsertText, Text: "draft"}))

	released := make(chan struct{})
	go func() {
		svc.Release(created.Id)
		close(released)
	}()
	<-gate.entered

	opened := make(chan *dto.DocumentSnapshot, 1)
	go func() {
		snap, err := svc.Open(ctx, userId, created.Id)
		assert.NoError(t, err)
		opened <- snap
	}()

	select {
	case <-opened:
		t.Fatal("session reopened before the final save landed")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	<-released

	select {
	case snap := <-opened:
		require.NotNil(t, snap)
		assert.Equal(t, "draft", document.PlainText(snap.Children))
	case <-time.After(2 * time.Second):
		t.Fatal("open never returned")
	}
}

func TestOpenGivesUpWhileClosing(t *testing.T) {
	f := newEditorFixture(t)
	svc := f.svc.(*editorService)

	done, owned := svc.beginClose(f.noteId.String())
	require.True(t, owned)
	defer svc.endClose(f.noteId.String(), done)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Open(ctx, f.userId, f.noteId)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
