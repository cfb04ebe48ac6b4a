package entity

import (
	"time"

	"github.com/google/uuid"
)

type MediaStatus string

const (
	MediaPending  MediaStatus = "pending"
	MediaUploaded MediaStatus = "uploaded"
	MediaFailed   MediaStatus = "failed"
)

// NoteMedia tracks one file inserted into a note and the state of its upload.
type NoteMedia struct {
	Id        uuid.UUID
	NoteId    uuid.UUID
	Kind      string
	LocalRef  string
	URL       string
	FileName  string
	FileType  string
	Size      int64
	Status    MediaStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt *time.Time
}
