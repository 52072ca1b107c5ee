package implementation

import (
	"context"
	"errors"

	"move-quote-be/internal/entity"
	"move-quote-be/internal/mapper"
	"move-quote-be/internal/model"
	"move-quote-be/internal/repository/contract"
	"move-quote-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRecordRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionRecordMapper
}

func NewSessionRecordRepository(db *gorm.DB) contract.SessionRecordRepository {
	return &SessionRecordRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionRecordMapper(),
	}
}

func (r *SessionRecordRepositoryImpl) Upsert(ctx context.Context, record *entity.SessionRecord) error {
	m, err := r.mapper.ToModel(record)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_phase", "fields_status", "items_count", "completion_rate", "last_activity_at", "updated_at",
		}),
	}).Create(m).Error
}

func (r *SessionRecordRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionRecord, error) {
	var m model.SessionRecord
	query := specification.ApplyAll(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}
