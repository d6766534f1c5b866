package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/avoskov/archivemind/internal/logger"
)

type sessionRepository struct {
	*DB
	logger *logger.Logger
}

func NewSessionRepository(db *DB, logger *logger.Logger) SessionRepository {
	return &sessionRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *sessionRepository) SaveToken(ctx context.Context, token string) error {
	query, args, err := sq.Insert("session").
		Columns("id", "token", "updated_at").
		Values(1, token, time.Now().UTC()).
		Suffix("ON CONFLICT(id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build session upsert: %w", err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		r.logger.Err(err).
			Str("func", "sessionRepository.SaveToken").
			Msg("failed to persist session token")
		return fmt.Errorf("failed to persist session token: %w", err)
	}

	return nil
}

func (r *sessionRepository) Token(ctx context.Context) (string, error) {
	query, args, err := sq.Select("token").From("session").Where(sq.Eq{"id": 1}).ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build session select: %w", err)
	}

	var token string
	err = r.DB.QueryRowContext(ctx, query, args...).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		r.logger.Err(err).
			Str("func", "sessionRepository.Token").
			Msg("failed to read session token")
		return "", fmt.Errorf("failed to read session token: %w", err)
	}

	return token, nil
}

func (r *sessionRepository) ClearAuth(ctx context.Context) error {
	query, args, err := sq.Delete("session").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build session delete: %w", err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		r.logger.Err(err).
			Str("func", "sessionRepository.ClearAuth").
			Msg("failed to clear session")
		return fmt.Errorf("failed to clear session: %w", err)
	}

	return nil
}
