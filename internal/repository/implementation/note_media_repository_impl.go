package implementation

import (
	"context"
	"errors"

	"notefiber-editor/internal/entity"
	"notefiber-editor/internal/mapper"
	"notefiber-editor/internal/model"
	"notefiber-editor/internal/repository/contract"
	"notefiber-editor/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NoteMediaRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.NoteMediaMapper
}

func NewNoteMediaRepository(db *gorm.DB) contract.NoteMediaRepository {
	return &NoteMediaRepositoryImpl{
		db:     db,
		mapper: mapper.NewNoteMediaMapper(),
	}
}

func (r *NoteMediaRepositoryImpl) Create(ctx context.Context, media *entity.NoteMedia) error {
	m := r.mapper.ToModel(media)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "local_ref"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "file_name", "file_type", "size"}),
		}).
		Create(m).Error
}

func (r *NoteMediaRepositoryImpl) SaveStatus(ctx context.Context, media *entity.NoteMedia) error {
	m := r.mapper.ToModel(media)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "local_ref"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "url", "error", "updated_at"}),
		}).
		Create(m).Error
}

func (r *NoteMediaRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.NoteMedia, error) {
	var m model.NoteMedia
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *NoteMediaRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.NoteMedia, error) {
	var models []*model.NoteMedia
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
