package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"notefiber-editor/internal/dto"
	"notefiber-editor/internal/entity"
	"notefiber-editor/internal/pkg/logger"
	"notefiber-editor/internal/repository/scope"
	"notefiber-editor/internal/repository/specification"
	"notefiber-editor/internal/repository/unitofwork"
	"notefiber-editor/pkg/autosave"
	"notefiber-editor/pkg/document"
	"notefiber-editor/pkg/events"

	"github.com/google/uuid"
)

const excerptLength = 280

var (
	ErrNoteNotFound = errors.New("note not found")
	ErrSlugTaken    = errors.New("slug already used by another note")
)

// EventPublisher sends domain events; *nats.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type INoteService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateNoteRequest) (*dto.CreateNoteResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowNoteResponse, error)
	Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateNoteRequest) (*dto.UpdateNoteResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error

	// LoadDocument returns a note owned by userId with its decoded content.
	LoadDocument(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*entity.Note, []document.Node, error)
	// SaveDraft persists editor content; it is the autosave backend of an editor session.
	SaveDraft(ctx context.Context, noteId uuid.UUID, content []document.Node, meta autosave.Metadata) error
	RecordMedia(ctx context.Context, media *entity.NoteMedia) error
	// HandleMediaEvent records the outcome of an upload from a MEDIA_* event.
	HandleMediaEvent(ctx context.Context, event events.Event) error
}

type noteService struct {
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher EventPublisher
	logger         logger.ILogger
}

func NewNoteService(
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher EventPublisher,
	log logger.ILogger,
) INoteService {
	return &noteService{
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (c *noteService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateNoteRequest) (*dto.CreateNoteResponse, error) {
	nodes := []document.Node{document.NewParagraph("")}
	if len(req.Content) > 0 {
		decoded, err := document.Unmarshal(req.Content)
		if err != nil {
			return nil, fmt.Errorf("invalid content: %w", err)
		}
		nodes = decoded
	}
	nodes = document.Normalize(nodes)
	content, err := document.Marshal(nodes)
	if err != nil {
		return nil, err
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)

	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Title)
	}
	slug, err = c.freeSlug(ctx, uow, userId, uuid.Nil, slug)
	if err != nil {
		return nil, err
	}

	note := entity.Note{
		Id:        uuid.New(),
		Title:     req.Title,
		Slug:      slug,
		Content:   content,
		Excerpt:   excerpt(nodes),
		UserId:    userId,
		CreatedAt: time.Now(),
	}
	if err := uow.NoteRepository().Create(ctx, &note); err != nil {
		return nil, err
	}

	return &dto.CreateNoteResponse{
		Id:   note.Id,
		Slug: note.Slug,
	}, nil
}

// freeSlug returns slug, or slug with a short suffix when another note of the user has it.
func (c *noteService) freeSlug(ctx context.Context, uow unitofwork.UnitOfWork, userId, self uuid.UUID, slug string) (string, error) {
	if slug == "" {
		slug = "untitled"
	}
	candidate := slug
	for i := 0; i < 3; i++ {
		existing, err := uow.NoteRepository().FindOne(ctx,
			specification.BySlug{Slug: candidate},
			specification.NoteOwnedByUser{UserID: userId},
		)
		if err != nil {
			return "", err
		}
		if existing == nil || existing.Id == self {
			return candidate, nil
		}
		candidate = slug + "-" + uuid.NewString()[:8]
	}
	return "", ErrSlugTaken
}

// checkSlug fails with ErrSlugTaken when another note of the user already has slug.
func (c *noteService) checkSlug(ctx context.Context, uow unitofwork.UnitOfWork, userId, self uuid.UUID, slug string) error {
	existing, err := uow.NoteRepository().FindOne(ctx,
		specification.BySlug{Slug: slug},
		specification.NoteOwnedByUser{UserID: userId},
	)
	if err != nil {
		return err
	}
	if existing != nil && existing.Id != self {
		return ErrSlugTaken
	}
	return nil
}

func (c *noteService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowNoteResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	note, err := uow.NoteRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.NoteOwnedByUser{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, ErrNoteNotFound
	}

	items, err := uow.NoteMediaRepository().FindAll(ctx,
		specification.ByNoteID{NoteID: note.Id},
		specification.Scoped(scope.OrderByCreatedAsc),
	)
	if err != nil {
		return nil, err
	}
	media := make([]dto.NoteMediaResponse, 0, len(items))
	for _, m := range items {
		media = append(media, dto.NoteMediaResponse{
			Kind:     m.Kind,
			LocalRef: m.LocalRef,
			URL:      m.URL,
			FileName: m.FileName,
			Status:   string(m.Status),
			Error:    m.Error,
		})
	}

	return &dto.ShowNoteResponse{
		Id:        note.Id,
		Title:     note.Title,
		Slug:      note.Slug,
		Content:   note.Content,
		Excerpt:   note.Excerpt,
		Version:   note.Version,
		Media:     media,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}, nil
}

func (c *noteService) Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateNoteRequest) (*dto.UpdateNoteResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	note, err := uow.NoteRepository().FindOne(ctx,
		specification.ByID{ID: req.Id},
		specification.NoteOwnedByUser{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, ErrNoteNotFound
	}

	slug := Slugify(req.Slug)
	if slug != note.Slug {
		if err := c.checkSlug(ctx, uow, userId, note.Id, slug); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	note.Title = req.Title
	note.Slug = slug
	note.UpdatedAt = &now

	if err := uow.NoteRepository().Update(ctx, note); err != nil {
		return nil, err
	}

	return &dto.UpdateNoteResponse{
		Id:      note.Id,
		Version: note.Version,
	}, nil
}

func (c *noteService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	note, err := uow.NoteRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.NoteOwnedByUser{UserID: userId},
	)
	if err != nil {
		return err
	}
	if note == nil {
		return ErrNoteNotFound
	}

	return uow.NoteRepository().Delete(ctx, id)
}

func (c *noteService) LoadDocument(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*entity.Note, []document.Node, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	note, err := uow.NoteRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.NoteOwnedByUser{UserID: userId},
	)
	if err != nil {
		return nil, nil, err
	}
	if note == nil {
		return nil, nil, ErrNoteNotFound
	}

	if len(note.Content) == 0 {
		return note, nil, nil
	}
	nodes, err := document.Unmarshal(note.Content)
	if err != nil {
		// a corrupt body must not lock the user out of the note
		c.logger.Warn("NOTE_SERVICE", "Stored content does not decode, opening empty document", map[string]interface{}{
			"note_id": id,
			"error":   err.Error(),
		})
		return note, nil, nil
	}
	return note, nodes, nil
}

func (c *noteService) SaveDraft(ctx context.Context, noteId uuid.UUID, content []document.Node, meta autosave.Metadata) error {
	data, err := document.Marshal(content)
	if err != nil {
		return err
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	current, err := uow.NoteRepository().FindOne(ctx, specification.ByID{ID: noteId})
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("save draft %s: %w", noteId, ErrNoteNotFound)
	}

	note := &entity.Note{
		Id:      noteId,
		Title:   meta.Title,
		Slug:    Slugify(meta.Slug),
		Content: data,
		Excerpt: excerpt(content),
	}
	if note.Slug != current.Slug {
		if err := c.checkSlug(ctx, uow, current.UserId, noteId, note.Slug); err != nil {
			return fmt.Errorf("save draft %s: %w", noteId, err)
		}
	}

	if err := uow.NoteRepository().SaveDraft(ctx, note); err != nil {
		return fmt.Errorf("save draft %s: %w", noteId, err)
	}

	c.publish(ctx, events.NewEvent(events.NoteAutosaved, map[string]interface{}{
		"note_id": noteId.String(),
		"title":   note.Title,
		"excerpt": note.Excerpt,
	}))
	return nil
}

func (c *noteService) RecordMedia(ctx context.Context, media *entity.NoteMedia) error {
	if media.Id == uuid.Nil {
		media.Id = uuid.New()
	}
	if media.Status == "" {
		media.Status = entity.MediaPending
	}
	media.CreatedAt = time.Now()

	uow := c.uowFactory.NewUnitOfWork(ctx)
	return uow.NoteMediaRepository().Create(ctx, media)
}

func (c *noteService) HandleMediaEvent(ctx context.Context, event events.Event) error {
	e := events.BaseEvent{Type: event.EventType(), Data: event.Payload(), OccurredAt: event.Timestamp()}

	noteId, err := uuid.Parse(e.String("note_id"))
	if err != nil {
		return fmt.Errorf("media event without note id: %w", err)
	}

	media := &entity.NoteMedia{
		Id:        uuid.New(),
		NoteId:    noteId,
		Kind:      e.String("kind"),
		LocalRef:  e.String("local_ref"),
		FileName:  e.String("file_name"),
		CreatedAt: e.OccurredAt,
	}
	switch e.Type {
	case events.MediaUploaded:
		media.Status = entity.MediaUploaded
		media.URL = e.String("url")
	case events.MediaUploadFailed:
		media.Status = entity.MediaFailed
		media.Error = e.String("error")
	default:
		return nil
	}
	now := time.Now()
	media.UpdatedAt = &now

	uow := c.uowFactory.NewUnitOfWork(ctx)
	return uow.NoteMediaRepository().SaveStatus(ctx, media)
}

func (c *noteService) publish(ctx context.Context, evt events.BaseEvent) {
	if c.eventPublisher == nil {
		return
	}
	// delivery is auxiliary; a failed publish never fails the save
	if err := c.eventPublisher.Publish(ctx, evt); err != nil {
		c.logger.Warn("NOTE_SERVICE", "Failed to publish event", map[string]interface{}{
			"type":  evt.Type,
			"error": err.Error(),
		})
	}
}

func excerpt(nodes []document.Node) string {
	md := document.ToMarkdown(nodes)
	if utf8.RuneCountInString(md) <= excerptLength {
		return md
	}
	r := []rune(md)
	return string(r[:excerptLength]) + "…"
}

// MetaSyncer is told about title and slug changes made through the note API.
type MetaSyncer interface {
	SyncMeta(noteId uuid.UUID, title, slug string)
}

type syncedNoteService struct {
	INoteService
	sessions MetaSyncer
}

// WithSessionSync returns notes whose Update also hands the new title and slug to the
// note's live editing session, whose autosave would otherwise write the old ones back.
func WithSessionSync(notes INoteService, sessions MetaSyncer) INoteService {
	return &syncedNoteService{INoteService: notes, sessions: sessions}
}

func (n *syncedNoteService) Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateNoteRequest) (*dto.UpdateNoteResponse, error) {
	res, err := n.INoteService.Update(ctx, userId, req)
	if err != nil {
		return nil, err
	}
	n.sessions.SyncMeta(req.Id, req.Title, Slugify(req.Slug))
	return res, nil
}
