package unitofwork

import (
	"context"

	"move-quote-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	QuoteRepository() contract.QuoteRepository
	SessionRecordRepository() contract.SessionRecordRepository
	UploadedImageRepository() contract.UploadedImageRepository
}
