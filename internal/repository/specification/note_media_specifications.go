package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByNoteID struct {
	NoteID uuid.UUID
}

func (s ByNoteID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("note_id = ?", s.NoteID)
}

type ByLocalRef struct {
	LocalRef string
}

func (s ByLocalRef) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("local_ref = ?", s.LocalRef)
}
