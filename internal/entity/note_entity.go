package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Note struct {
	Id        uuid.UUID
	Title     string
	Slug      string
	Content   json.RawMessage // serialized document nodes
	Excerpt   string
	UserId    uuid.UUID
	Version   int64
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
