package contract

import (
	"context"

	"notefiber-editor/internal/entity"
	"notefiber-editor/internal/repository/specification"

	"github.com/google/uuid"
)

type NoteRepository interface {
	Create(ctx context.Context, note *entity.Note) error
	Update(ctx context.Context, note *entity.Note) error
	// SaveDraft writes the editable fields of a note and bumps its version.
	SaveDraft(ctx context.Context, note *entity.Note) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Note, error)
}
