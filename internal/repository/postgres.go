package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"rirblocks/internal/model"
)

// PostgresStore keeps one row per registry in the delegated_indexes
// table:
//
//	CREATE TABLE delegated_indexes (
//	    registry   text PRIMARY KEY,
//	    payload    jsonb NOT NULL,
//	    written_at timestamptz NOT NULL
//	);
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPostgresStore(db *sqlx.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

func (s *PostgresStore) Load(ctx context.Context, registry string) (model.AllocationIndex, time.Duration, error) {
	var row struct {
		Payload   []byte    `db:"payload"`
		WrittenAt time.Time `db:"written_at"`
	}

	query := `SELECT payload, written_at FROM delegated_indexes WHERE registry = $1`
	if err := s.db.GetContext(ctx, &row, query, registry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, fmt.Errorf("%w: %s", model.ErrCacheMiss, registry)
		}
		s.logger.Error("failed to load cache entry",
			zap.String("registry", registry),
			zap.Error(err))
		return nil, 0, fmt.Errorf("reading cache entry: %w", err)
	}

	var index model.AllocationIndex
	if err := json.Unmarshal(row.Payload, &index); err != nil {
		s.logger.Error("failed to decode cache entry",
			zap.String("registry", registry),
			zap.Error(err))
		return nil, 0, fmt.Errorf("%w: %s: %v", model.ErrCacheCorrupt, registry, err)
	}

	return index.EnsureFamilies(), time.Since(row.WrittenAt), nil
}

func (s *PostgresStore) Save(ctx context.Context, registry string, index model.AllocationIndex) error {
	payload, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	query := `
        INSERT INTO delegated_indexes (registry, payload, written_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (registry)
        DO UPDATE SET
            payload = EXCLUDED.payload,
            written_at = EXCLUDED.written_at
    `

	if _, err := s.db.ExecContext(ctx, query, registry, payload, time.Now()); err != nil {
		s.logger.Error("failed to save cache entry",
			zap.String("registry", registry),
			zap.Error(err))
		return fmt.Errorf("writing cache entry: %w", err)
	}

	return nil
}
