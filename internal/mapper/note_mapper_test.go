package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"notefiber-editor/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNoteMapperRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	m := NewNoteMapper()

	tests := []struct {
		name string
		note *entity.Note
	}{
		{
			name: "live note",
			note: &entity.Note{
				Id:        uuid.New(),
				Title:     "Draft",
				Slug:      "draft",
				Content:   json.RawMessage(`[{"type":"paragraph","children":[{"text":"x"}]}]`),
				Excerpt:   "x",
				UserId:    uuid.New(),
				Version:   3,
				CreatedAt: now,
				UpdatedAt: &now,
			},
		},
		{
			name: "deleted note",
			note: &entity.Note{Id: uuid.New(), Title: "Old", CreatedAt: now, UpdatedAt: &now, DeletedAt: &now, IsDeleted: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.ToEntity(m.ToModel(tt.note))
			if tt.note.Content == nil {
				got.Content = nil
			}
			assert.Equal(t, tt.note, got)
		})
	}

	assert.Nil(t, m.ToEntity(nil))
	assert.Nil(t, m.ToModel(nil))
}

func TestNoteMediaMapperKeepsStatus(t *testing.T) {
	m := NewNoteMediaMapper()
	in := &entity.NoteMedia{Id: uuid.New(), Kind: "image", LocalRef: "blob:1", Status: entity.MediaFailed, Error: "timeout"}

	got := m.ToEntity(m.ToModel(in))
	assert.Equal(t, entity.MediaFailed, got.Status)
	assert.Equal(t, "timeout", got.Error)
	assert.Nil(t, got.UpdatedAt)
}
