package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnia/internal/datatable"
	"omnia/internal/domain"
	"omnia/internal/domain/models"
)

func seedIntents(t *testing.T, n int) *MemoryIntentRepository {
	t.Helper()
	repo := NewMemoryIntentRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("intent_%02d", i)
		require.NoError(t, repo.Create(context.Background(), &models.Intent{
			ID: fmt.Sprintf("i-%02d", i), Name: name, Slug: name,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	return repo
}

func TestMemoryIntentList_Paging(t *testing.T) {
	repo := seedIntents(t, 95)
	ctx := context.Background()

	rows, total, err := repo.List(ctx, datatable.Query{Page: datatable.PageRequest{Index: 9, Size: 10}})
	require.NoError(t, err)
	assert.Equal(t, 95, total)
	require.Len(t, rows, 5)
	assert.Equal(t, "intent_05", rows[0].Name, "default order is newest first")

	rows, total, err = repo.List(ctx, datatable.Query{Page: datatable.PageRequest{Index: 15, Size: 10}})
	require.NoError(t, err)
	assert.Equal(t, 95, total)
	assert.Empty(t, rows, "a page past the end is empty, not an error")
}

func TestMemoryIntentList_SearchAndSort(t *testing.T) {
	repo := seedIntents(t, 30)
	rows, total, err := repo.List(context.Background(), datatable.Query{
		Page:   datatable.PageRequest{Size: 5},
		Sort:   datatable.SortSpec{Column: "name", Direction: datatable.Ascending},
		Search: "INTENT_2",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	require.Len(t, rows, 5)
	assert.Equal(t, "intent_20", rows[0].Name)
}

func TestMemoryIntent_CRUD(t *testing.T) {
	repo := seedIntents(t, 1)
	ctx := context.Background()

	in, err := repo.Get(ctx, "i-01")
	require.NoError(t, err)
	in.Questions = []string{"hello"}
	require.NoError(t, repo.Update(ctx, &in))

	in.Questions[0] = "mutated"
	got, _ := repo.Get(ctx, "i-01")
	assert.Equal(t, []string{"hello"}, got.Questions, "stored copy must not alias caller slices")

	dup := &models.Intent{ID: "i-02", Name: "intent_01", Slug: "intent_01"}
	assert.True(t, domain.IsConflict(repo.Create(ctx, dup)))

	require.NoError(t, repo.Delete(ctx, "i-01"))
	assert.True(t, domain.IsNotFound(repo.Delete(ctx, "i-01")))
	_, err = repo.Get(ctx, "i-01")
	assert.True(t, domain.IsNotFound(err))
}

func TestMemoryUsersAndSessions(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserRepository()
	require.NoError(t, users.Create(ctx, &models.User{ID: "u-1", Username: "alice", Email: "Alice@example.com"}))
	assert.True(t, domain.IsConflict(users.Create(ctx, &models.User{ID: "u-2", Username: "bob", Email: "alice@EXAMPLE.com"})))

	u, err := users.GetByLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)

	sessions := NewMemorySessionRepository()
	now := time.Now()
	require.NoError(t, sessions.Create(ctx, models.Session{ID: "s-1", UserID: "u-1", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, sessions.Create(ctx, models.Session{ID: "s-2", UserID: "u-1", ExpiresAt: now.Add(time.Hour)}))
	n, err := sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = sessions.Get(ctx, "s-1")
	assert.True(t, domain.IsNotFound(err))
}
