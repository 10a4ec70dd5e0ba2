package docrepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedesk/internal/core/apperror"
	"invoicedesk/internal/domain"
	"invoicedesk/internal/domain/customer"
	"invoicedesk/internal/infrastructure/storage/memory"
)

func newCustomerRepo() *Repo[*customer.Customer] {
	store := memory.NewStore()
	return New(store.Collection(customer.CollectionName), "customer", func() *customer.Customer {
		return &customer.Customer{}
	})
}

func TestRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newCustomerRepo()

	c := &customer.Customer{Name: "Asha Traders", Phone: "9876543210"}
	require.NoError(t, repo.Create(ctx, c))
	require.NotEmpty(t, c.ID)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Traders", got.Name)
	assert.Equal(t, c.ID, got.ID)

	byPhone, err := repo.FindOne(ctx, "phone", "9876543210")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byPhone.ID)
}

func TestRepo_NotFoundAndDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := newCustomerRepo()

	_, err := repo.GetByID(ctx, "missing")
	assert.True(t, apperror.IsNotFound(err))

	c := &customer.Customer{ID: "c-1", Name: "First"}
	require.NoError(t, repo.Create(ctx, c))

	err = repo.Create(ctx, &customer.Customer{ID: "c-1", Name: "Second"})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestRepo_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := newCustomerRepo()

	c := &customer.Customer{Name: "Old"}
	require.NoError(t, repo.Create(ctx, c))

	c.Name = "New"
	matched, err := repo.Update(ctx, c)
	require.NoError(t, err)
	assert.True(t, matched)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)

	matched, err = repo.Update(ctx, &customer.Customer{ID: "ghost", Name: "x"})
	require.NoError(t, err)
	assert.False(t, matched)

	deleted, err := repo.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRepo_List(t *testing.T) {
	ctx := context.Background()
	repo := newCustomerRepo()

	for _, name := range []string{"b", "c", "a"} {
		require.NoError(t, repo.Create(ctx, &customer.Customer{Name: name}))
	}

	all, err := repo.List(ctx, domain.DefaultListFilter())
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.TotalCount)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "b", all.Items[0].Name)

	page, err := repo.List(ctx, domain.ListFilter{OrderBy: "-name", Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalCount)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "c", page.Items[0].Name)
	assert.Equal(t, "b", page.Items[1].Name)
}
