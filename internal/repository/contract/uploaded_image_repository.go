package contract

import (
	"context"

	"move-quote-be/internal/entity"
	"move-quote-be/internal/repository/specification"
)

type UploadedImageRepository interface {
	Create(ctx context.Context, image *entity.UploadedImage) error
	Update(ctx context.Context, image *entity.UploadedImage) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UploadedImage, error)
}
