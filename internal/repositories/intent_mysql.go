package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"omnia/internal/datatable"
	intdb "omnia/internal/db"
	"omnia/internal/domain"
	"omnia/internal/domain/models"
)

var intentColumns = []string{
	"id", "name", "slug", "COALESCE(description,'')", "questions", "responses", "created_at", "updated_at",
}

type MySQLIntentRepository struct {
	DB intdb.DBTX
}

func NewMySQLIntentRepository(db intdb.DBTX) *MySQLIntentRepository {
	return &MySQLIntentRepository{DB: db}
}

func (r *MySQLIntentRepository) List(ctx context.Context, q datatable.Query) ([]models.Intent, int, error) {
	count := squirrel.Select("COUNT(*)").From("intents")
	sel := squirrel.Select(intentColumns...).From("intents")
	if q.Search != "" {
		cond := squirrel.Like{"LOWER(name)": likePattern(q.Search)}
		count = count.Where(cond)
		sel = sel.Where(cond)
	}

	query, args, err := count.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building count query: %w", err)
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting intents: %w", err)
	}

	if col, ok := intentOrder[q.Sort.Column]; ok && q.Sort.Active() {
		dir := "ASC"
		if q.Sort.Direction == datatable.Descending {
			dir = "DESC"
		}
		sel = sel.OrderBy(col+" "+dir, "id ASC")
	} else {
		sel = sel.OrderBy("created_at DESC", "id ASC")
	}
	size := q.Page.Size
	if size <= 0 {
		size = datatable.DefaultPageSize
	}
	sel = sel.Limit(uint64(size)).Offset(uint64(datatable.PageRequest{Index: q.Page.Index, Size: size}.Offset()))

	query, args, err = sel.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("building select query: %w", err)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing intents: %w", err)
	}
	defer rows.Close()

	out := []models.Intent{}
	for rows.Next() {
		in, err := scanIntent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("listing intents: %w", err)
	}
	return out, total, nil
}

func (r *MySQLIntentRepository) Get(ctx context.Context, id string) (models.Intent, error) {
	query, args, err := squirrel.Select(intentColumns...).
		From("intents").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Intent{}, fmt.Errorf("building select query: %w", err)
	}
	in, err := scanIntent(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Intent{}, domain.NotFoundError{Resource: "intent", Err: err}
	}
	return in, err
}

func (r *MySQLIntentRepository) Create(ctx context.Context, in *models.Intent) error {
	questions, responses, err := encodeLists(in)
	if err != nil {
		return err
	}
	query, args, err := squirrel.Insert("intents").
		Columns("id", "name", "slug", "description", "questions", "responses", "created_at", "updated_at").
		Values(in.ID, in.Name, in.Slug, intdb.NullIfEmpty(in.Description), questions, responses, in.CreatedAt, in.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert query: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return domain.ConflictError{Resource: "intent", Msg: "an intent with this name already exists", Err: err}
		}
		return fmt.Errorf("inserting intent: %w", err)
	}
	return nil
}

func (r *MySQLIntentRepository) Update(ctx context.Context, in *models.Intent) error {
	questions, responses, err := encodeLists(in)
	if err != nil {
		return err
	}
	query, args, err := squirrel.Update("intents").
		Set("name", in.Name).
		Set("slug", in.Slug).
		Set("description", intdb.NullIfEmpty(in.Description)).
		Set("questions", questions).
		Set("responses", responses).
		Set("updated_at", in.UpdatedAt).
		Where(squirrel.Eq{"id": in.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update query: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		if isDuplicate(err) {
			return domain.ConflictError{Resource: "intent", Msg: "an intent with this name already exists", Err: err}
		}
		return fmt.Errorf("updating intent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "intent"}
	}
	return nil
}

func (r *MySQLIntentRepository) Delete(ctx context.Context, id string) error {
	query, args, err := squirrel.Delete("intents").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting intent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "intent"}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntent(s rowScanner) (models.Intent, error) {
	var (
		in                   models.Intent
		questions, responses []byte
	)
	if err := s.Scan(&in.ID, &in.Name, &in.Slug, &in.Description, &questions, &responses, &in.CreatedAt, &in.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return in, err
		}
		return in, fmt.Errorf("scanning intent: %w", err)
	}
	if err := decodeList(questions, &in.Questions); err != nil {
		return in, fmt.Errorf("decoding questions of %s: %w", in.ID, err)
	}
	if err := decodeList(responses, &in.Responses); err != nil {
		return in, fmt.Errorf("decoding responses of %s: %w", in.ID, err)
	}
	return in, nil
}

func encodeLists(in *models.Intent) (questions, responses []byte, err error) {
	if questions, err = json.Marshal(nonNil(in.Questions)); err != nil {
		return nil, nil, fmt.Errorf("encoding questions: %w", err)
	}
	if responses, err = json.Marshal(nonNil(in.Responses)); err != nil {
		return nil, nil, fmt.Errorf("encoding responses: %w", err)
	}
	return questions, responses, nil
}

func decodeList(b []byte, dst *[]string) error {
	*dst = []string{}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
