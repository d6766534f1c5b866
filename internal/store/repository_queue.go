package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/models"
)

type queueRepository struct {
	*DB
	logger *logger.Logger
}

func NewQueueRepository(db *DB, logger *logger.Logger) QueueRepository {
	return &queueRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *queueRepository) Enqueue(ctx context.Context, change models.PendingChange) error {
	var body sql.NullString
	if change.Body != nil {
		body = sql.NullString{String: string(change.Body), Valid: true}
	}

	query, args, err := sq.Insert("pending_changes").
		Columns("id", "method", "target_url", "body", "kind", "resource_id", "created_at").
		Values(change.ID, string(change.Method), change.TargetURL, body,
			string(change.Kind), change.ResourceID, change.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build change insert: %w", err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		r.logger.Err(err).
			Str("func", "queueRepository.Enqueue").
			Str("change_id", change.ID).
			Str("target_url", change.TargetURL).
			Msg("failed to enqueue pending change")
		return fmt.Errorf("failed to enqueue pending change %s: %w", change.ID, err)
	}

	return nil
}

func (r *queueRepository) List(ctx context.Context) ([]models.PendingChange, error) {
	// Secondary ordering by id keeps replay deterministic when two changes
	// land in the same timestamp granule; change ids are time-ordered v7.
	query, args, err := sq.Select("id", "method", "target_url", "body", "kind", "resource_id", "created_at").
		From("pending_changes").
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build change select: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Err(err).
			Str("func", "queueRepository.List").
			Msg("failed to query pending changes")
		return nil, fmt.Errorf("failed to query pending changes: %w", err)
	}
	defer rows.Close()

	var changes []models.PendingChange
	for rows.Next() {
		var ch models.PendingChange
		var method, kind string
		var body sql.NullString
		if err = rows.Scan(&ch.ID, &method, &ch.TargetURL, &body, &kind, &ch.ResourceID, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending change: %w", err)
		}
		ch.Method = models.ChangeMethod(method)
		ch.Kind = models.Kind(kind)
		if body.Valid {
			ch.Body = json.RawMessage(body.String)
		}
		changes = append(changes, ch)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading pending changes: %w", err)
	}

	return changes, nil
}

func (r *queueRepository) Remove(ctx context.Context, id string) error {
	query, args, err := sq.Delete("pending_changes").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build change delete: %w", err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		r.logger.Err(err).
			Str("func", "queueRepository.Remove").
			Str("change_id", id).
			Msg("failed to remove pending change")
		return fmt.Errorf("failed to remove pending change %s: %w", id, err)
	}

	return nil
}

func (r *queueRepository) Count(ctx context.Context) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From("pending_changes").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build change count: %w", err)
	}

	var n int
	if err = r.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		r.logger.Err(err).
			Str("func", "queueRepository.Count").
			Msg("failed to count pending changes")
		return 0, fmt.Errorf("failed to count pending changes: %w", err)
	}

	return n, nil
}

func (r *queueRepository) RewriteResource(ctx context.Context, oldID, newID string) error {
	query, args, err := sq.Update("pending_changes").
		Set("target_url", sq.Expr("REPLACE(target_url, ?, ?)", oldID, newID)).
		Set("body", sq.Expr("CASE WHEN body IS NULL THEN NULL ELSE REPLACE(body, ?, ?) END", oldID, newID)).
		Set("resource_id", sq.Expr("REPLACE(resource_id, ?, ?)", oldID, newID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build change rewrite: %w", err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		r.logger.Err(err).
			Str("func", "queueRepository.RewriteResource").
			Str("old_id", oldID).
			Str("new_id", newID).
			Msg("failed to rewrite queued changes")
		return fmt.Errorf("failed to rewrite queued changes: %w", err)
	}

	return nil
}
