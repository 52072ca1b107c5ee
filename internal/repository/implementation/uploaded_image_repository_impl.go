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

type UploadedImageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UploadedImageMapper
}

func NewUploadedImageRepository(db *gorm.DB) contract.UploadedImageRepository {
	return &UploadedImageRepositoryImpl{
		db:     db,
		mapper: mapper.NewUploadedImageMapper(),
	}
}

func (r *UploadedImageRepositoryImpl) Create(ctx context.Context, image *entity.UploadedImage) error {
	m, err := r.mapper.ToModel(image)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*image = *r.mapper.ToEntity(m)
	return nil
}

func (r *UploadedImageRepositoryImpl) Update(ctx context.Context, image *entity.UploadedImage) error {
	m, err := r.mapper.ToModel(image)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *UploadedImageRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UploadedImage, error) {
	var m model.UploadedImage
	query := specification.ApplyAll(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}
