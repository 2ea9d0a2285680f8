package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"omnia/internal/domain"
)

func TestUserGetByLogin(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMySQLUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE (username = ? OR LOWER(email) = LOWER(?)) LIMIT 1")).
		WithArgs("Alice@Example.com", "Alice@Example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "username", "email", "password_hash", "role", "status", "created_at", "updated_at"}).
			AddRow("u-1", "Alice", "alice", "alice@example.com", "$2a$hash", "admin", "active", now, now))

	u, err := repo.GetByLogin(context.Background(), "Alice@Example.com")
	if err != nil {
		t.Fatalf("GetByLogin: %v", err)
	}
	if u.Username != "alice" || u.PasswordHash != "$2a$hash" {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMySQLUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = ? LIMIT 1")).
		WithArgs("u-x").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "u-x"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
