package model

import (
	"time"

	"github.com/google/uuid"
)

type NoteMedia struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NoteId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Kind      string    `gorm:"type:varchar(16);not null"`
	LocalRef  string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	URL       string    `gorm:"type:text"`
	FileName  string    `gorm:"type:varchar(255)"`
	FileType  string    `gorm:"type:varchar(127)"`
	Size      int64
	Status    string    `gorm:"type:varchar(16);not null;index"`
	Error     string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (NoteMedia) TableName() string {
	return "note_media"
}
