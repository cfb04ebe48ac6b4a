package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Note struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title     string         `gorm:"type:varchar(255);not null"`
	Slug      string         `gorm:"type:varchar(255);not null;index:idx_notes_user_slug,unique"`
	Content   datatypes.JSON `gorm:"type:jsonb"`
	Excerpt   string         `gorm:"type:text"`
	UserId    uuid.UUID      `gorm:"type:uuid;not null;index;index:idx_notes_user_slug,unique"`
	Version   int64          `gorm:"not null;default:0"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Note) TableName() string {
	return "notes"
}
