package contract

import (
	"context"

	"move-quote-be/internal/entity"
)

// HistoryRepository keeps the most recent chat messages of a session.
type HistoryRepository interface {
	Append(ctx context.Context, token string, msgs ...entity.HistoryMessage) error
	// Recent returns up to n messages, oldest first.
	Recent(ctx context.Context, token string, n int) ([]entity.HistoryMessage, error)
	Clear(ctx context.Context, token string) error
}
