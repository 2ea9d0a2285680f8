package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	intdb "omnia/internal/db"
	"omnia/internal/domain"
	"omnia/internal/domain/models"
)

type MySQLSessionRepository struct {
	DB intdb.DBTX
}

func NewMySQLSessionRepository(db intdb.DBTX) *MySQLSessionRepository {
	return &MySQLSessionRepository{DB: db}
}

func (r *MySQLSessionRepository) Create(ctx context.Context, s models.Session) error {
	query, args, err := squirrel.Insert("sessions").
		Columns("id", "user_id", "expires_at", "created_at").
		Values(s.ID, s.UserID, s.ExpiresAt, s.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert query: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *MySQLSessionRepository) Get(ctx context.Context, id string) (models.Session, error) {
	query, args, err := squirrel.Select("id", "user_id", "expires_at", "created_at").
		From("sessions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Session{}, fmt.Errorf("building select query: %w", err)
	}
	var s models.Session
	err = r.DB.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, domain.NotFoundError{Resource: "session", Err: err}
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("scanning session: %w", err)
	}
	return s, nil
}

func (r *MySQLSessionRepository) Delete(ctx context.Context, id string) error {
	query, args, err := squirrel.Delete("sessions").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (r *MySQLSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := squirrel.Delete("sessions").Where(squirrel.LtOrEq{"expires_at": now}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building delete query: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
