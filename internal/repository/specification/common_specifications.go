package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// Scoped lifts a plain gorm scope, such as the ones in the scope package, into a Specification.
type Scoped func(*gorm.DB) *gorm.DB

func (s Scoped) Apply(db *gorm.DB) *gorm.DB {
	return s(db)
}
