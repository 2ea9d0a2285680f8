package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"omnia/internal/datatable"
	"omnia/internal/domain/models"
)

type IntentRepository interface {
	// List returns one page of intents for q and the total number of intents
	// matching q.Search. A page past the end yields no rows.
	List(ctx context.Context, q datatable.Query) ([]models.Intent, int, error)
	Get(ctx context.Context, id string) (models.Intent, error)
	Create(ctx context.Context, in *models.Intent) error
	Update(ctx context.Context, in *models.Intent) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (models.User, error)
	// GetByLogin finds a user by username or, case-insensitively, by email.
	GetByLogin(ctx context.Context, login string) (models.User, error)
	Create(ctx context.Context, u *models.User) error
}

type SessionRepository interface {
	Create(ctx context.Context, s models.Session) error
	Get(ctx context.Context, id string) (models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// intentOrder maps sortable column keys to SQL columns.
var intentOrder = map[string]string{
	"name":        "name",
	"description": "description",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// likePattern escapes LIKE wildcards in term and wraps it for a substring
// match.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}
