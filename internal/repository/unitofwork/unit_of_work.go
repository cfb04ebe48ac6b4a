package unitofwork

import (
	"context"

	"notefiber-editor/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	NoteRepository() contract.NoteRepository
	NoteMediaRepository() contract.NoteMediaRepository
}
