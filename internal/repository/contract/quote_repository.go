package contract

import (
	"context"

	"move-quote-be/internal/entity"
	"move-quote-be/internal/repository/specification"
)

type QuoteRepository interface {
	Create(ctx context.Context, quote *entity.Quote) error
	Update(ctx context.Context, quote *entity.Quote) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Quote, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Quote, error)
}
