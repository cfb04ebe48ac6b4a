package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"notefiber-editor/internal/config"
	"notefiber-editor/internal/dto"
	"notefiber-editor/internal/entity"
	"notefiber-editor/internal/pkg/logger"
	"notefiber-editor/internal/repository/memory"
	"notefiber-editor/pkg/autosave"
	"notefiber-editor/pkg/command"
	"notefiber-editor/pkg/document"
	"notefiber-editor/pkg/events"
	"notefiber-editor/pkg/media"
	"notefiber-editor/pkg/paste"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const editorModule = "EDITOR_SERVICE"

const teardownTimeout = 10 * time.Second

var ErrUnknownOperation = errors.New("unknown editor operation")

// EnvelopePublisher delivers session output to connected clients; *events.Bus satisfies it.
type EnvelopePublisher interface {
	Publish(env events.Envelope) error
}

type IEditorService interface {
	// Open returns the live session for a note, loading it on first use.
	Open(ctx context.Context, userId, noteId uuid.UUID) (*dto.DocumentSnapshot, error)
	Apply(ctx context.Context, userId, noteId uuid.UUID, op dto.EditorOperation) error
	UploadMedia(ctx context.Context, userId uuid.UUID, req *dto.UploadMediaRequest, f media.File) (*dto.UploadMediaResponse, error)
	Save(ctx context.Context, userId, noteId uuid.UUID) (*dto.SaveNoteResponse, error)
	// SyncMeta hands a title and slug changed outside the editor to the live session, if any.
	SyncMeta(noteId uuid.UUID, title, slug string)
	// Release ends a session: pending changes are flushed and uploads still in flight are dropped.
	// Opening the note again waits until the final save has landed.
	Release(noteId uuid.UUID)
	Shutdown()
}

type editorSession struct {
	noteId   uuid.UUID
	userId   uuid.UUID
	editor   *document.Editor
	pipeline *command.Pipeline
	media    *media.Reconciler
	autosave *autosave.Scheduler
	stop     func()

	mu   sync.Mutex
	meta autosave.Metadata
}

func (s *editorSession) metadata() autosave.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

func (s *editorSession) setMetadata(title, slug string) autosave.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta.Title = title
	s.meta.Slug = slug
	return s.meta
}

type editorService struct {
	notes     INoteService
	storage   media.Storage
	bus       EnvelopePublisher
	publisher EventPublisher
	logger    logger.ILogger
	cfg       config.EditorConfig
	tracer    trace.Tracer

	openMu   sync.Mutex
	closing  map[string]chan struct{} // notes whose session is being torn down
	sessions *memory.SessionRepository[*editorSession]
}

func NewEditorService(
	notes INoteService,
	storage media.Storage,
	bus EnvelopePublisher,
	publisher EventPublisher,
	log logger.ILogger,
	cfg config.EditorConfig,
) IEditorService {
	s := &editorService{
		notes:     notes,
		storage:   storage,
		bus:       bus,
		publisher: publisher,
		logger:    log,
		cfg:       cfg,
		tracer:    otel.Tracer("notefiber-editor/editor"),
		closing:   make(map[string]chan struct{}),
	}
	s.sessions = memory.NewSessionRepository(cfg.SessionTTL, func(key string, sess *editorSession) {
		done, owned := s.beginClose(key)
		s.teardown(sess)
		if owned {
			s.endClose(key, done)
		}
	})
	return s
}

// beginClose marks key as closing. owned is false when a close is already under way
// and the caller must leave ending it to its owner.
func (s *editorService) beginClose(key string) (chan struct{}, bool) {
	s.openMu.Lock()
	defer s.openMu.Unlock()
	if done, ok := s.closing[key]; ok {
		return done, false
	}
	done := make(chan struct{})
	s.closing[key] = done
	return done, true
}

func (s *editorService) endClose(key string, done chan struct{}) {
	s.openMu.Lock()
	delete(s.closing, key)
	s.openMu.Unlock()
	close(done)
}

func (s *editorService) acquire(ctx context.Context, userId, noteId uuid.UUID) (*editorSession, error) {
	key := noteId.String()
	for {
		s.openMu.Lock()
		done, ok := s.closing[key]
		if !ok {
			break
		}
		s.openMu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	defer s.openMu.Unlock()

	sess, _, err := s.sessions.GetOrCreate(key, func() (*editorSession, error) {
		return s.newSession(ctx, userId, noteId)
	})
	if err != nil {
		return nil, err
	}
	if sess.userId != userId {
		return nil, ErrNoteNotFound
	}
	return sess, nil
}

func (s *editorService) newSession(ctx context.Context, userId, noteId uuid.UUID) (*editorSession, error) {
	note, nodes, err := s.notes.LoadDocument(ctx, userId, noteId)
	if err != nil {
		return nil, err
	}

	key := noteId.String()
	editor := document.NewEditor(nodes...)
	sess := &editorSession{
		noteId: noteId,
		userId: userId,
		editor: editor,
		meta:   autosave.Metadata{Title: note.Title, Slug: note.Slug},
	}

	notify := command.NotifierFunc(func(n command.Notification) {
		s.emit(key, events.TypeNotification, n.Name(), n)
	})
	sess.pipeline = command.New(editor, notify, command.WithLogger(s.logger))

	sess.autosave = autosave.NewScheduler(
		autosave.PersisterFunc(func(ctx context.Context, content []document.Node, meta autosave.Metadata) error {
			return s.persist(ctx, noteId, content, meta)
		}),
		autosave.WithBaseline(editor.Children(), sess.meta),
		autosave.WithDelay(s.cfg.AutosaveDelay),
		autosave.WithEnabled(s.cfg.AutosaveEnabled),
		autosave.WithLogger(s.logger),
		autosave.WithStateListener(func(st autosave.State) {
			s.emit(key, events.TypeAutosave, "", st)
		}),
	)

	sess.media = media.NewReconciler(editor, s.storage,
		media.WithNotifier(command.NotifierFunc(func(n command.Notification) {
			notify(n)
			s.mediaOutcome(noteId, n)
		})),
		media.WithLogger(s.logger),
		media.WithScope("notes/"+key),
		media.WithUploadTimeout(s.cfg.UploadTimeout),
		media.WithMaxBytes(s.cfg.MaxUploadBytes),
		media.WithBlobCache(media.NewBlobCache(s.cfg.BlobTTL)),
	)

	sess.stop = editor.OnChange(func(c document.Change) {
		s.emit(key, events.TypeDocument, "", snapshotOf(noteId, c))
		sess.autosave.Notify(c.Children, sess.metadata())
	})

	s.logger.Info(editorModule, "Session opened", map[string]interface{}{"note_id": key, "user_id": userId})
	return sess, nil
}

func (s *editorService) teardown(sess *editorSession) {
	sess.stop()

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	if err := sess.autosave.Flush(ctx); err != nil && !errors.Is(err, autosave.ErrNotSavable) {
		s.logger.Warn(editorModule, "Final save failed", map[string]interface{}{
			"note_id": sess.noteId,
			"error":   err.Error(),
		})
	}
	sess.autosave.Close()
	sess.media.Close()

	s.logger.Info(editorModule, "Session closed", map[string]interface{}{"note_id": sess.noteId})
}

func (s *editorService) Open(ctx context.Context, userId, noteId uuid.UUID) (*dto.DocumentSnapshot, error) {
	sess, err := s.acquire(ctx, userId, noteId)
	if err != nil {
		return nil, err
	}
	return snapshotOf(noteId, sess.editor.Snapshot()), nil
}

func (s *editorService) Apply(ctx context.Context, userId, noteId uuid.UUID, op dto.EditorOperation) error {
	sess, err := s.acquire(ctx, userId, noteId)
	if err != nil {
		return err
	}
	p, e := sess.pipeline, sess.editor

	switch op.Op {
	case dto.OpInsertText:
		return p.InsertText(op.Text)
	case dto.OpDeleteBackward:
		return p.DeleteBackward()
	case dto.OpInsertBreak:
		if p.MenuOpen() {
			_, err := p.HandleKey(command.KeyEnter)
			return err
		}
		return e.InsertBreak()
	case dto.OpPaste:
		return paste.Paste(e, paste.Payload{HTML: op.HTML, Text: op.Text})
	case dto.OpSelect:
		if op.Selection == nil {
			return document.ErrNoSelection
		}
		return e.Select(*op.Selection)
	case dto.OpFormat:
		if err := selectIfGiven(e, op); err != nil {
			return err
		}
		return p.FormatByName(op.Mark)
	case dto.OpLink:
		if err := selectIfGiven(e, op); err != nil {
			return err
		}
		return p.Link(op.URL)
	case dto.OpUnlink:
		if err := selectIfGiven(e, op); err != nil {
			return err
		}
		return p.Unlink()
	case dto.OpSlashKey:
		_, err := p.HandleKey(command.Key(op.Key))
		return err
	case dto.OpInvoke:
		return p.Invoke(op.Command)
	case dto.OpSetType, dto.OpWrapList, dto.OpSetChecked, dto.OpSetCollapsed:
		sel, err := selectionOf(e, op)
		if err != nil {
			return err
		}
		switch op.Op {
		case dto.OpSetType:
			return e.SetNodeType(sel, document.BlockType(op.Type))
		case dto.OpWrapList:
			return e.WrapInList(sel, document.BlockType(op.Type))
		case dto.OpSetChecked:
			return e.SetChecked(sel, op.Flag)
		default:
			return e.SetCollapsed(sel, op.Flag)
		}
	case dto.OpRetryMedia:
		return sess.media.Retry(op.LocalRef)
	case dto.OpSetMeta:
		meta := sess.setMetadata(op.Title, op.Slug)
		sess.autosave.Notify(e.Children(), meta)
		return nil
	case dto.OpSave:
		_, err := s.save(ctx, sess)
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownOperation, op.Op)
}

func selectIfGiven(e *document.Editor, op dto.EditorOperation) error {
	if op.Selection == nil {
		return nil
	}
	return e.Select(*op.Selection)
}

func selectionOf(e *document.Editor, op dto.EditorOperation) (document.Selection, error) {
	if op.Selection != nil {
		return *op.Selection, nil
	}
	sel, ok := e.Selection()
	if !ok {
		return document.Selection{}, document.ErrNoSelection
	}
	return sel, nil
}

func (s *editorService) UploadMedia(ctx context.Context, userId uuid.UUID, req *dto.UploadMediaRequest, f media.File) (*dto.UploadMediaResponse, error) {
	ctx, span := s.tracer.Start(ctx, "editor.upload_media", trace.WithAttributes(
		attribute.String("note.id", req.NoteId.String()),
		attribute.String("file.type", f.ContentType),
		attribute.Int("file.size", len(f.Data)),
	))
	defer span.End()

	sess, err := s.acquire(ctx, userId, req.NoteId)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	kind := document.BlockType(req.Kind)
	if kind == "" {
		kind = media.KindOf(f.ContentType)
	}
	ref, err := sess.media.Insert(kind, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.notes.RecordMedia(ctx, &entity.NoteMedia{
		NoteId:   req.NoteId,
		Kind:     string(kind),
		LocalRef: ref,
		FileName: f.Name,
		FileType: f.ContentType,
		Size:     int64(len(f.Data)),
	}); err != nil {
		s.logger.Warn(editorModule, "Failed to record media", map[string]interface{}{"local_ref": ref, "error": err.Error()})
	}

	return &dto.UploadMediaResponse{LocalRef: ref, Kind: string(kind)}, nil
}

func (s *editorService) Save(ctx context.Context, userId, noteId uuid.UUID) (*dto.SaveNoteResponse, error) {
	sess, err := s.acquire(ctx, userId, noteId)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, sess)
}

func (s *editorService) save(ctx context.Context, sess *editorSession) (*dto.SaveNoteResponse, error) {
	ctx, span := s.tracer.Start(ctx, "editor.save", trace.WithAttributes(attribute.String("note.id", sess.noteId.String())))
	defer span.End()

	if err := sess.autosave.SaveNow(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &dto.SaveNoteResponse{State: sess.autosave.State()}, err
	}
	return &dto.SaveNoteResponse{State: sess.autosave.State()}, nil
}

func (s *editorService) persist(ctx context.Context, noteId uuid.UUID, content []document.Node, meta autosave.Metadata) error {
	ctx, span := s.tracer.Start(ctx, "editor.persist", trace.WithAttributes(attribute.String("note.id", noteId.String())))
	defer span.End()

	if err := s.notes.SaveDraft(ctx, noteId, content, meta); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *editorService) Release(noteId uuid.UUID) {
	key := noteId.String()
	done, owned := s.beginClose(key)
	s.sessions.Delete(key)
	if owned {
		s.endClose(key, done)
	}
}

func (s *editorService) SyncMeta(noteId uuid.UUID, title, slug string) {
	sess, ok := s.sessions.Get(noteId.String())
	if !ok {
		return
	}
	meta := sess.setMetadata(title, slug)
	sess.autosave.Notify(sess.editor.Children(), meta)
}

func (s *editorService) Shutdown() {
	s.sessions.Flush()
}

// mediaOutcome turns an upload result into a domain event. Without a NATS publisher
// the outcome is recorded directly.
func (s *editorService) mediaOutcome(noteId uuid.UUID, n command.Notification) {
	var evt events.BaseEvent
	switch v := n.(type) {
	case command.MediaUploaded:
		evt = events.NewEvent(events.MediaUploaded, map[string]interface{}{
			"note_id":   noteId.String(),
			"kind":      string(v.Kind),
			"local_ref": v.LocalRef,
			"url":       v.URL,
		})
	case command.MediaUploadFailed:
		evt = events.NewEvent(events.MediaUploadFailed, map[string]interface{}{
			"note_id":   noteId.String(),
			"kind":      string(v.Kind),
			"local_ref": v.LocalRef,
			"error":     v.Error,
		})
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	var err error
	if s.publisher != nil {
		err = s.publisher.Publish(ctx, evt)
	} else {
		err = s.notes.HandleMediaEvent(ctx, evt)
	}
	if err != nil {
		s.logger.Warn(editorModule, "Failed to record upload outcome", map[string]interface{}{
			"type":  evt.Type,
			"error": err.Error(),
		})
	}
}

func (s *editorService) emit(noteId, kind, name string, data interface{}) {
	env, err := events.NewEnvelope(noteId, kind, name, data)
	if err != nil {
		s.logger.Error(editorModule, "Failed to encode envelope", map[string]interface{}{"type": kind, "error": err.Error()})
		return
	}
	if err := s.bus.Publish(env); err != nil {
		s.logger.Warn(editorModule, "Failed to publish envelope", map[string]interface{}{"type": kind, "error": err.Error()})
	}
}

func snapshotOf(noteId uuid.UUID, c document.Change) *dto.DocumentSnapshot {
	return &dto.DocumentSnapshot{
		NoteId:    noteId,
		Version:   c.Version,
		Children:  c.Children,
		Selection: c.Selection,
	}
}
