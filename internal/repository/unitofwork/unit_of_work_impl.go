package unitofwork

import (
	"context"
	"errors"

	"move-quote-be/internal/repository/contract"
	"move-quote-be/internal/repository/implementation"

	"gorm.io/gorm"
)

var (
	ErrTxActive = errors.New("transaction already started")
	ErrNoTx     = errors.New("no active transaction")
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) conn() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrTxActive
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return ErrNoTx
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

// Rollback is safe to defer after Commit: with no active transaction it
// reports ErrNoTx and does nothing.
func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return ErrNoTx
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) QuoteRepository() contract.QuoteRepository {
	return implementation.NewQuoteRepository(u.conn())
}

func (u *UnitOfWorkImpl) SessionRecordRepository() contract.SessionRecordRepository {
	return implementation.NewSessionRecordRepository(u.conn())
}

func (u *UnitOfWorkImpl) UploadedImageRepository() contract.UploadedImageRepository {
	return implementation.NewUploadedImageRepository(u.conn())
}
