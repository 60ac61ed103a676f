package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kitbuilder587/webqa/internal/domain"
)

type MockHistoryRepository struct {
	mu      sync.RWMutex
	records map[string]domain.HistoryRecord
	// SaveErr возвращается из Save, если задан
	SaveErr error
}

func NewMockHistoryRepository() *MockHistoryRepository {
	return &MockHistoryRepository{
		records: make(map[string]domain.HistoryRecord),
	}
}

func (m *MockHistoryRepository) Save(ctx context.Context, rec *domain.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	stored := *rec
	stored.SourceURLs = append([]string(nil), rec.SourceURLs...)
	m.records[rec.ID] = stored
	return nil
}

func (m *MockHistoryRepository) GetByID(ctx context.Context, id string) (*domain.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (m *MockHistoryRepository) ListRecent(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	return m.list(func(domain.HistoryRecord) bool { return true }, limit), nil
}

func (m *MockHistoryRepository) ListByChat(ctx context.Context, chatID int64, limit int) ([]domain.HistoryRecord, error) {
	return m.list(func(r domain.HistoryRecord) bool { return r.ChatID == chatID }, limit), nil
}

func (m *MockHistoryRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MockHistoryRepository) list(keep func(domain.HistoryRecord) bool, limit int) []domain.HistoryRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.HistoryRecord
	for _, r := range m.records {
		if keep(r) {
			out = append(out, r)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

var _ HistoryRepository = (*MockHistoryRepository)(nil)
