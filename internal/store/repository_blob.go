package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/models"
)

type blobRepository struct {
	*DB
	logger *logger.Logger
}

func NewBlobRepository(db *DB, logger *logger.Logger) BlobRepository {
	return &blobRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *blobRepository) Store(ctx context.Context, blob models.MediaBlob) error {
	query, args, err := sq.Insert("media_blobs").
		Columns("id", "owner_id", "kind", "data", "filename", "mime_type", "created_at").
		Values(blob.ID, blob.OwnerResourceID, string(blob.Kind), blob.Data,
			blob.Filename, blob.MimeType, blob.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build blob insert: %w", err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		r.logger.Err(err).
			Str("func", "blobRepository.Store").
			Str("blob_id", blob.ID).
			Str("owner_id", blob.OwnerResourceID).
			Msg("failed to store media blob")
		return fmt.Errorf("failed to store media blob %s: %w", blob.ID, err)
	}

	return nil
}

func (r *blobRepository) ListForOwner(ctx context.Context, ownerID string) ([]models.MediaBlob, error) {
	return r.list(ctx, sq.Eq{"owner_id": ownerID})
}

func (r *blobRepository) ListAll(ctx context.Context) ([]models.MediaBlob, error) {
	return r.list(ctx, nil)
}

func (r *blobRepository) list(ctx context.Context, where any) ([]models.MediaBlob, error) {
	builder := sq.Select("id", "owner_id", "kind", "data", "filename", "mime_type", "created_at").
		From("media_blobs").
		OrderBy("created_at", "id")
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build blob select: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Err(err).
			Str("func", "blobRepository.list").
			Msg("failed to query media blobs")
		return nil, fmt.Errorf("failed to query media blobs: %w", err)
	}
	defer rows.Close()

	var blobs []models.MediaBlob
	for rows.Next() {
		var b models.MediaBlob
		var kind string
		if err = rows.Scan(&b.ID, &b.OwnerResourceID, &kind, &b.Data, &b.Filename, &b.MimeType, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media blob: %w", err)
		}
		b.Kind = models.BlobKind(kind)
		blobs = append(blobs, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading media blobs: %w", err)
	}

	return blobs, nil
}

func (r *blobRepository) Remove(ctx context.Context, id string) error {
	query, args, err := sq.Delete("media_blobs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build blob delete: %w", err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		r.logger.Err(err).
			Str("func", "blobRepository.Remove").
			Str("blob_id", id).
			Msg("failed to remove media blob")
		return fmt.Errorf("failed to remove media blob %s: %w", id, err)
	}

	return nil
}

func (r *blobRepository) RewriteOwner(ctx context.Context, oldID, newID string) error {
	query, args, err := sq.Update("media_blobs").
		Set("owner_id", newID).
		Where(sq.Eq{"owner_id": oldID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build blob owner rewrite: %w", err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		r.logger.Err(err).
			Str("func", "blobRepository.RewriteOwner").
			Str("old_id", oldID).
			Str("new_id", newID).
			Msg("failed to rewrite blob owner")
		return fmt.Errorf("failed to rewrite blob owner: %w", err)
	}

	return nil
}
