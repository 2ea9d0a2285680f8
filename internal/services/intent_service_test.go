package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnia/internal/datatable"
	"omnia/internal/domain"
	"omnia/internal/domain/models"
	"omnia/internal/logging"
	"omnia/internal/repositories"
)

func newIntentService(t *testing.T) *IntentService {
	t.Helper()
	return NewIntentService(repositories.NewMemoryIntentRepository(), logging.Nop())
}

func TestIntentCreate_NormalizesInput(t *testing.T) {
	svc := newIntentService(t)
	it, err := svc.Create(context.Background(), models.IntentInput{
		Name:        "  Check   Balance ",
		Description: " balance questions ",
		Questions:   []string{"what is my balance?", "  ", ""},
		Responses:   []string{" Your balance is... "},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, it.ID)
	assert.Equal(t, "Check Balance", it.Name)
	assert.Equal(t, "check-balance", it.Slug)
	assert.Equal(t, "balance questions", it.Description)
	assert.Equal(t, []string{"what is my balance?"}, it.Questions)
	assert.Equal(t, []string{"Your balance is..."}, it.Responses)
	assert.Equal(t, it.CreatedAt, it.UpdatedAt)
}

func TestIntentCreate_FieldErrors(t *testing.T) {
	svc := newIntentService(t)

	_, err := svc.Create(context.Background(), models.IntentInput{Name: "abc"})
	fe, ok := domain.AsFieldErrors(err)
	require.True(t, ok, "expected field errors, got %v", err)
	assert.Equal(t, "must have at least 5 characters", fe["name"])

	_, err = svc.Create(context.Background(), models.IntentInput{Name: "!!!!!!"})
	fe, ok = domain.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fe["name"], "letters or digits")

	_, err = svc.Create(context.Background(), models.IntentInput{})
	fe, _ = domain.AsFieldErrors(err)
	assert.Equal(t, "is required", fe["name"])
}

func TestIntentUpdateAndDelete(t *testing.T) {
	svc := newIntentService(t)
	ctx := context.Background()

	it, err := svc.Create(ctx, models.IntentInput{Name: "greeting"})
	require.NoError(t, err)

	upd, err := svc.Update(ctx, it.ID, models.IntentInput{Name: "greeting reply", Questions: []string{"hi"}})
	require.NoError(t, err)
	assert.Equal(t, "greeting-reply", upd.Slug)
	assert.Equal(t, it.CreatedAt, upd.CreatedAt)

	_, err = svc.Update(ctx, "missing", models.IntentInput{Name: "whatever"})
	assert.True(t, domain.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, it.ID))
	_, err = svc.Get(ctx, it.ID)
	assert.True(t, domain.IsNotFound(err))

	_, err = svc.Get(ctx, " ")
	assert.True(t, domain.IsValidation(err))
}

func TestIntentList_Envelope(t *testing.T) {
	svc := newIntentService(t)
	ctx := context.Background()
	for _, n := range []string{"alpha intent", "beta intent", "gamma intent"} {
		_, err := svc.Create(ctx, models.IntentInput{Name: n})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, datatable.Query{Page: datatable.PageRequest{Index: 0, Size: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, datatable.Pagination{Page: 1, Limit: 2, Total: 3, TotalPages: 2}, page.Pagination)

	page, err = svc.List(ctx, datatable.Query{Page: datatable.PageRequest{Index: 5, Size: 2}})
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
}
