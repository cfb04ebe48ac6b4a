package contract

import (
	"context"

	"notefiber-editor/internal/entity"
	"notefiber-editor/internal/repository/specification"
)

type NoteMediaRepository interface {
	// Create inserts a record. When the upload outcome was recorded first, only the
	// descriptive columns of that record are filled in.
	Create(ctx context.Context, media *entity.NoteMedia) error
	// SaveStatus upserts by local reference, overwriting status, url and error.
	SaveStatus(ctx context.Context, media *entity.NoteMedia) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.NoteMedia, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.NoteMedia, error)
}
