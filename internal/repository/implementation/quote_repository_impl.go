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
)

type QuoteRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.QuoteMapper
}

func NewQuoteRepository(db *gorm.DB) contract.QuoteRepository {
	return &QuoteRepositoryImpl{
		db:     db,
		mapper: mapper.NewQuoteMapper(),
	}
}

func (r *QuoteRepositoryImpl) Create(ctx context.Context, quote *entity.Quote) error {
	m, err := r.mapper.ToModel(quote)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*quote = *r.mapper.ToEntity(m)
	return nil
}

func (r *QuoteRepositoryImpl) Update(ctx context.Context, quote *entity.Quote) error {
	m, err := r.mapper.ToModel(quote)
	if err != nil {
		return err
	}
	// Save writes zero values too, so a cleared completed_at is persisted.
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*quote = *r.mapper.ToEntity(m)
	return nil
}

func (r *QuoteRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Quote, error) {
	var m model.Quote
	query := specification.ApplyAll(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *QuoteRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Quote, error) {
	var models []*model.Quote
	query := specification.ApplyAll(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
