package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	intdb "omnia/internal/db"
	"omnia/internal/domain"
	"omnia/internal/domain/models"
)

var userColumns = []string{
	"id", "name", "username", "email", "password_hash", "role", "status", "created_at", "updated_at",
}

type MySQLUserRepository struct {
	DB intdb.DBTX
}

func NewMySQLUserRepository(db intdb.DBTX) *MySQLUserRepository {
	return &MySQLUserRepository{DB: db}
}

func (r *MySQLUserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	return r.getWhere(ctx, squirrel.Eq{"id": id})
}

func (r *MySQLUserRepository) GetByLogin(ctx context.Context, login string) (models.User, error) {
	return r.getWhere(ctx, squirrel.Or{
		squirrel.Eq{"username": login},
		squirrel.Expr("LOWER(email) = LOWER(?)", login),
	})
}

func (r *MySQLUserRepository) getWhere(ctx context.Context, pred squirrel.Sqlizer) (models.User, error) {
	query, args, err := squirrel.Select(userColumns...).
		From("users").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("building select query: %w", err)
	}
	var u models.User
	err = r.DB.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, domain.NotFoundError{Resource: "user", Err: err}
	}
	if err != nil {
		return models.User{}, fmt.Errorf("scanning user: %w", err)
	}
	return u, nil
}

func (r *MySQLUserRepository) Create(ctx context.Context, u *models.User) error {
	query, args, err := squirrel.Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.Name, u.Username, u.Email, u.PasswordHash, u.Role, u.Status, u.CreatedAt, u.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert query: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return domain.ConflictError{Resource: "user", Msg: "username or email already registered", Err: err}
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}
