package contract

import (
	"context"

	"move-quote-be/internal/entity"
	"move-quote-be/internal/repository/specification"
)

type SessionRecordRepository interface {
	// Upsert inserts the record or overwrites the row with the same session id.
	Upsert(ctx context.Context, record *entity.SessionRecord) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionRecord, error)
}
