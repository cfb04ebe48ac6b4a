package service

import (
	"context"
	"sync"

	"notefiber-editor/internal/entity"
	"notefiber-editor/internal/repository/contract"
	"notefiber-editor/internal/repository/specification"
	"notefiber-editor/internal/repository/unitofwork"
	"notefiber-editor/pkg/events"

	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for the database behind the unit of work.
type fakeStore struct {
	mu    sync.Mutex
	notes map[uuid.UUID]*entity.Note
	media map[string]*entity.NoteMedia
}

func newFakeStore() *fakeStore {
	return &fakeStore{notes: map[uuid.UUID]*entity.Note{}, media: map[string]*entity.NoteMedia{}}
}

func (s *fakeStore) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return s }
func (s *fakeStore) Begin(ctx context.Context) error                         { return nil }
func (s *fakeStore) Commit() error                                           { return nil }
func (s *fakeStore) Rollback() error                                         { return nil }
func (s *fakeStore) NoteRepository() contract.NoteRepository                 { return fakeNotes{s} }
func (s *fakeStore) NoteMediaRepository() contract.NoteMediaRepository       { return fakeMedia{s} }

func (s *fakeStore) note(id uuid.UUID) entity.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.notes[id]
}

type fakeNotes struct{ s *fakeStore }

func noteMatches(n *entity.Note, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.ByID:
			if n.Id != v.ID {
				return false
			}
		case specification.BySlug:
			if n.Slug != v.Slug {
				return false
			}
		case specification.NoteOwnedByUser:
			if n.UserId != v.UserID {
				return false
			}
		}
	}
	return true
}

func (r fakeNotes) Create(ctx context.Context, note *entity.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := *note
	r.s.notes[n.Id] = &n
	return nil
}

func (r fakeNotes) Update(ctx context.Context, note *entity.Note) error {
	return r.Create(ctx, note)
}

func (r fakeNotes) SaveDraft(ctx context.Context, note *entity.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notes[note.Id]
	if !ok {
		return ErrNoteNotFound
	}
	n.Title, n.Slug, n.Content, n.Excerpt = note.Title, note.Slug, note.Content, note.Excerpt
	n.Version++
	note.Version = n.Version
	return nil
}

func (r fakeNotes) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.notes, id)
	return nil
}

func (r fakeNotes) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Note, error) {
	all := r.matching(specs)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r fakeNotes) matching(specs []specification.Specification) []*entity.Note {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Note
	for _, n := range r.s.notes {
		if noteMatches(n, specs) {
			c := *n
			out = append(out, &c)
		}
	}
	return out
}

type fakeMedia struct{ s *fakeStore }

func (r fakeMedia) Create(ctx context.Context, m *entity.NoteMedia) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.media[m.LocalRef]; ok {
		existing.Kind, existing.FileName, existing.FileType, existing.Size = m.Kind, m.FileName, m.FileType, m.Size
		return nil
	}
	c := *m
	r.s.media[m.LocalRef] = &c
	return nil
}

func (r fakeMedia) SaveStatus(ctx context.Context, m *entity.NoteMedia) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.media[m.LocalRef]; ok {
		existing.Status, existing.URL, existing.Error = m.Status, m.URL, m.Error
		return nil
	}
	c := *m
	r.s.media[m.LocalRef] = &c
	return nil
}

func (r fakeMedia) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.NoteMedia, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r fakeMedia) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.NoteMedia, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.NoteMedia
	for _, m := range r.s.media {
		keep := true
		for _, spec := range specs {
			switch v := spec.(type) {
			case specification.ByNoteID:
				keep = keep && m.NoteId == v.NoteID
			case specification.ByLocalRef:
				keep = keep && m.LocalRef == v.LocalRef
			}
		}
		if keep {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}
