package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

const schema = `
    CREATE TABLE IF NOT EXISTS answers (
        id          TEXT PRIMARY KEY,
        chat_id     BIGINT NOT NULL DEFAULT 0,
        question    TEXT NOT NULL,
        provider    TEXT NOT NULL,
        branch      TEXT NOT NULL,
        success     BOOLEAN NOT NULL,
        answer      TEXT NOT NULL,
        source_urls TEXT[] NOT NULL DEFAULT '{}',
        duration_ms BIGINT NOT NULL DEFAULT 0,
        created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );
    CREATE INDEX IF NOT EXISTS answers_chat_created_idx ON answers (chat_id, created_at DESC);
`

// Migrate создаёт таблицы, если их нет. Схема маленькая, отдельный инструмент миграций не нужен.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
