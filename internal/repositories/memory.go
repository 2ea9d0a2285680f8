package repositories

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"omnia/internal/datatable"
	"omnia/internal/domain"
	"omnia/internal/domain/models"
)

// MemoryIntentRepository keeps intents in process. Listing runs a
// client-managed table over the whole set.
type MemoryIntentRepository struct {
	mu    sync.RWMutex
	order []string
	items map[string]models.Intent
}

func NewMemoryIntentRepository() *MemoryIntentRepository {
	return &MemoryIntentRepository{items: map[string]models.Intent{}}
}

func (r *MemoryIntentRepository) List(_ context.Context, q datatable.Query) ([]models.Intent, int, error) {
	r.mu.RLock()
	all := make([]models.Intent, 0, len(r.order))
	for _, id := range r.order {
		all = append(all, cloneIntent(r.items[id]))
	}
	r.mu.RUnlock()

	if !q.Sort.Active() {
		q.Sort = datatable.SortSpec{Column: "createdAt", Direction: datatable.Descending}
	}
	if q.Page.Size <= 0 {
		q.Page.Size = datatable.DefaultPageSize
	}

	table := datatable.New[models.Intent](
		datatable.ClientManaged[models.Intent]{Rows: all},
		datatable.Config[models.Intent]{Columns: models.IntentColumns(), SearchKey: "name"},
	)
	defer table.Close()
	table.Restore(q)

	st := table.State()
	if q.Page.Index >= st.PageCount {
		return []models.Intent{}, st.Total, nil
	}
	return table.Rows(), st.Total, nil
}

func (r *MemoryIntentRepository) Get(_ context.Context, id string) (models.Intent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.items[id]
	if !ok {
		return models.Intent{}, domain.NotFoundError{Resource: "intent"}
	}
	return cloneIntent(in), nil
}

func (r *MemoryIntentRepository) Create(_ context.Context, in *models.Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[in.ID]; ok {
		return domain.ConflictError{Resource: "intent", Msg: "id already exists"}
	}
	if r.slugTaken(in.Slug, in.ID) {
		return domain.ConflictError{Resource: "intent", Msg: "an intent with this name already exists"}
	}
	r.items[in.ID] = cloneIntent(*in)
	r.order = append(r.order, in.ID)
	return nil
}

func (r *MemoryIntentRepository) Update(_ context.Context, in *models.Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[in.ID]
	if !ok {
		return domain.NotFoundError{Resource: "intent"}
	}
	if r.slugTaken(in.Slug, in.ID) {
		return domain.ConflictError{Resource: "intent", Msg: "an intent with this name already exists"}
	}
	next := cloneIntent(*in)
	next.CreatedAt = cur.CreatedAt
	r.items[in.ID] = next
	return nil
}

func (r *MemoryIntentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.NotFoundError{Resource: "intent"}
	}
	delete(r.items, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return nil
}

func (r *MemoryIntentRepository) slugTaken(slug, except string) bool {
	for id, it := range r.items {
		if id != except && it.Slug == slug {
			return true
		}
	}
	return false
}

func cloneIntent(in models.Intent) models.Intent {
	in.Questions = slices.Clone(in.Questions)
	in.Responses = slices.Clone(in.Responses)
	return in
}

type MemoryUserRepository struct {
	mu    sync.RWMutex
	items map[string]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{items: map[string]models.User{}}
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.items[id]
	if !ok {
		return models.User{}, domain.NotFoundError{Resource: "user"}
	}
	return u, nil
}

func (r *MemoryUserRepository) GetByLogin(_ context.Context, login string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.items {
		if u.Username == login || strings.EqualFold(u.Email, login) {
			return u, nil
		}
	}
	return models.User{}, domain.NotFoundError{Resource: "user"}
}

func (r *MemoryUserRepository) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.items {
		if cur.ID == u.ID || cur.Username == u.Username || strings.EqualFold(cur.Email, u.Email) {
			return domain.ConflictError{Resource: "user", Msg: "username or email already registered"}
		}
	}
	r.items[u.ID] = *u
	return nil
}

type MemorySessionRepository struct {
	mu    sync.RWMutex
	items map[string]models.Session
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{items: map[string]models.Session{}}
}

func (r *MemorySessionRepository) Create(_ context.Context, s models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID] = s
	return nil
}

func (r *MemorySessionRepository) Get(_ context.Context, id string) (models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return models.Session{}, domain.NotFoundError{Resource: "session"}
	}
	return s, nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *MemorySessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.items {
		if s.Expired(now) {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}
