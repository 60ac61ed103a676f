package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/repository"
)

type HistoryRepo struct {
	db *DB
}

func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) Save(ctx context.Context, rec *domain.HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	urls := rec.SourceURLs
	if urls == nil {
		urls = []string{}
	}

	query := `
        INSERT INTO answers (id, chat_id, question, provider, branch, success, answer, source_urls, duration_ms)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at
    `

	err := r.db.Pool.QueryRow(ctx, query,
		rec.ID,
		rec.ChatID,
		rec.Question,
		string(rec.Provider),
		rec.Branch,
		rec.Success,
		rec.Answer,
		urls,
		rec.DurationMs,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}

	return nil
}

const selectColumns = `id, chat_id, question, provider, branch, success, answer, source_urls, duration_ms, created_at`

func (r *HistoryRepo) GetByID(ctx context.Context, id string) (*domain.HistoryRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM answers WHERE id = $1`

	rec, err := scanRecord(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get answer: %w", err)
	}

	return rec, nil
}

func (r *HistoryRepo) ListRecent(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM answers ORDER BY created_at DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *HistoryRepo) ListByChat(ctx context.Context, chatID int64, limit int) ([]domain.HistoryRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM answers WHERE chat_id = $2 ORDER BY created_at DESC LIMIT $1`
	return r.list(ctx, query, limit, chatID)
}

func (r *HistoryRepo) list(ctx context.Context, query string, limit int, args ...any) ([]domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Pool.Query(ctx, query, append([]any{limit}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return records, nil
}

func scanRecord(row pgx.Row) (*domain.HistoryRecord, error) {
	var rec domain.HistoryRecord
	var provider string

	err := row.Scan(
		&rec.ID,
		&rec.ChatID,
		&rec.Question,
		&provider,
		&rec.Branch,
		&rec.Success,
		&rec.Answer,
		&rec.SourceURLs,
		&rec.DurationMs,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Provider = domain.Provider(provider)
	return &rec, nil
}

var _ repository.HistoryRepository = (*HistoryRepo)(nil)
