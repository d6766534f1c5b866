package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/models"
)

type cacheRepository struct {
	*DB
	logger *logger.Logger
}

func NewCacheRepository(db *DB, logger *logger.Logger) CacheRepository {
	return &cacheRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *cacheRepository) Put(ctx context.Context, kind models.Kind, id string, payload json.RawMessage, updatedAt time.Time) error {
	query, args, err := sq.Insert("cache_records").
		Columns("kind", "id", "payload", "updated_at").
		Values(string(kind), id, string(payload), updatedAt.UTC()).
		Suffix("ON CONFLICT(kind, id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build cache upsert: %w", err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		r.logger.Err(err).
			Str("func", "cacheRepository.Put").
			Str("kind", string(kind)).
			Str("id", id).
			Msg("failed to upsert cached record")
		return fmt.Errorf("failed to cache record (kind=%s id=%s): %w", kind, id, err)
	}

	return nil
}

func (r *cacheRepository) GetAll(ctx context.Context, kind models.Kind) ([]CachedRecord, error) {
	query, args, err := sq.Select("id", "payload", "updated_at").
		From("cache_records").
		Where(sq.Eq{"kind": string(kind)}).
		OrderBy("updated_at DESC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build cache select: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Err(err).
			Str("func", "cacheRepository.GetAll").
			Str("kind", string(kind)).
			Msg("failed to query cached records")
		return nil, fmt.Errorf("failed to query cached records: %w", err)
	}
	defer rows.Close()

	var records []CachedRecord
	for rows.Next() {
		var rec CachedRecord
		var payload string
		if err = rows.Scan(&rec.ID, &payload, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cached record: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading cached records: %w", err)
	}

	return records, nil
}

func (r *cacheRepository) GetByID(ctx context.Context, kind models.Kind, id string) (CachedRecord, error) {
	query, args, err := sq.Select("id", "payload", "updated_at").
		From("cache_records").
		Where(sq.Eq{"kind": string(kind), "id": id}).
		ToSql()
	if err != nil {
		return CachedRecord{}, fmt.Errorf("failed to build cache select: %w", err)
	}

	var rec CachedRecord
	var payload string
	err = r.DB.QueryRowContext(ctx, query, args...).Scan(&rec.ID, &payload, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedRecord{}, ErrNotFound
	}
	if err != nil {
		r.logger.Err(err).
			Str("func", "cacheRepository.GetByID").
			Str("kind", string(kind)).
			Str("id", id).
			Msg("failed to query cached record")
		return CachedRecord{}, fmt.Errorf("failed to query cached record: %w", err)
	}
	rec.Payload = json.RawMessage(payload)

	return rec, nil
}

func (r *cacheRepository) Remove(ctx context.Context, kind models.Kind, id string) error {
	query, args, err := sq.Delete("cache_records").
		Where(sq.Eq{"kind": string(kind), "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build cache delete: %w", err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		r.logger.Err(err).
			Str("func", "cacheRepository.Remove").
			Str("kind", string(kind)).
			Str("id", id).
			Msg("failed to delete cached record")
		return fmt.Errorf("failed to delete cached record: %w", err)
	}

	return nil
}

func (r *cacheRepository) ReplaceID(ctx context.Context, kind models.Kind, oldID, newID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rekey transaction: %w", err)
	}
	defer tx.Rollback()

	// A refetch may already have cached the record under its server id;
	// drop that copy so the rekeyed temp row does not collide with it.
	delQuery, delArgs, err := sq.Delete("cache_records").
		Where(sq.Eq{"kind": string(kind), "id": newID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build rekey delete: %w", err)
	}
	if _, err = tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
		return fmt.Errorf("failed to clear rekey target: %w", err)
	}

	updQuery, updArgs, err := sq.Update("cache_records").
		Set("id", newID).
		Set("payload", sq.Expr("REPLACE(payload, ?, ?)", oldID, newID)).
		Where(sq.Eq{"kind": string(kind), "id": oldID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build rekey update: %w", err)
	}
	if _, err = tx.ExecContext(ctx, updQuery, updArgs...); err != nil {
		r.logger.Err(err).
			Str("func", "cacheRepository.ReplaceID").
			Str("kind", string(kind)).
			Str("old_id", oldID).
			Str("new_id", newID).
			Msg("failed to rekey cached record")
		return fmt.Errorf("failed to rekey cached record: %w", err)
	}

	return tx.Commit()
}
