package mapper

import (
	"time"

	"notefiber-editor/internal/entity"
	"notefiber-editor/internal/model"
)

type NoteMediaMapper struct{}

func NewNoteMediaMapper() *NoteMediaMapper {
	return &NoteMediaMapper{}
}

func (m *NoteMediaMapper) ToEntity(n *model.NoteMedia) *entity.NoteMedia {
	if n == nil {
		return nil
	}
	var updatedAt *time.Time
	if !n.UpdatedAt.IsZero() {
		t := n.UpdatedAt
		updatedAt = &t
	}
	return &entity.NoteMedia{
		Id:        n.Id,
		NoteId:    n.NoteId,
		Kind:      n.Kind,
		LocalRef:  n.LocalRef,
		URL:       n.URL,
		FileName:  n.FileName,
		FileType:  n.FileType,
		Size:      n.Size,
		Status:    entity.MediaStatus(n.Status),
		Error:     n.Error,
		CreatedAt: n.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *NoteMediaMapper) ToModel(n *entity.NoteMedia) *model.NoteMedia {
	if n == nil {
		return nil
	}
	var updatedAt time.Time
	if n.UpdatedAt != nil {
		updatedAt = *n.UpdatedAt
	}
	return &model.NoteMedia{
		Id:        n.Id,
		NoteId:    n.NoteId,
		Kind:      n.Kind,
		LocalRef:  n.LocalRef,
		URL:       n.URL,
		FileName:  n.FileName,
		FileType:  n.FileType,
		Size:      n.Size,
		Status:    string(n.Status),
		Error:     n.Error,
		CreatedAt: n.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *NoteMediaMapper) ToEntities(items []*model.NoteMedia) []*entity.NoteMedia {
	out := make([]*entity.NoteMedia, len(items))
	for i, n := range items {
		out[i] = m.ToEntity(n)
	}
	return out
}
