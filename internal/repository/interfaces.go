package repository

import (
	"context"

	"github.com/kitbuilder587/webqa/internal/domain"
)

// HistoryRepository - журнал отвеченных вопросов.
type HistoryRepository interface {
	Save(ctx context.Context, rec *domain.HistoryRecord) error
	GetByID(ctx context.Context, id string) (*domain.HistoryRecord, error)
	// ListRecent - последние записи, новые первыми
	ListRecent(ctx context.Context, limit int) ([]domain.HistoryRecord, error)
	ListByChat(ctx context.Context, chatID int64, limit int) ([]domain.HistoryRecord, error)
}
