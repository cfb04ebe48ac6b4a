package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CreateNoteRequest struct {
	Title string `json:"title" validate:"required,max=255"`
	Slug  string `json:"slug" validate:"omitempty,max=255"`
	// Content is a serialized document; empty means a single empty paragraph.
	Content json.RawMessage `json:"content"`
}

type CreateNoteResponse struct {
	Id   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
}

type ShowNoteResponse struct {
	Id        uuid.UUID           `json:"id"`
	Title     string              `json:"title"`
	Slug      string              `json:"slug"`
	Content   json.RawMessage     `json:"content"`
	Excerpt   string              `json:"excerpt"`
	Version   int64               `json:"version"`
	Media     []NoteMediaResponse `json:"media"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt *time.Time          `json:"updated_at"`
}

type UpdateNoteRequest struct {
	Id    uuid.UUID
	Title string `json:"title" validate:"required,max=255"`
	Slug  string `json:"slug" validate:"required,max=255"`
}

type UpdateNoteResponse struct {
	Id      uuid.UUID `json:"id"`
	Version int64     `json:"version"`
}

type NoteMediaResponse struct {
	Kind     string `json:"kind"`
	LocalRef string `json:"local_ref"`
	URL      string `json:"url,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}
