package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeeper/backend/internal/models"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	user := &models.User{ID: uuid.New(), Name: "Jill", Email: "jill@example.com", PasswordHash: "hash"}

	require.NoError(t, repo.Create(ctx, user))

	byEmail, err := repo.GetByEmail(ctx, "jill@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", byID.PasswordHash)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{ID: uuid.New(), Email: "a@example.com"}))
	err := repo.Create(ctx, &models.User{ID: uuid.New(), Email: "a@example.com"})
	assert.ErrorIs(t, err, models.ErrEmailExists)
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestContactRepository_ListByUserNewestFirst(t *testing.T) {
	repo := NewContactRepository()
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, &models.Contact{
			ID: uuid.New(), UserID: owner, Name: name, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.Contact{ID: uuid.New(), UserID: other, Name: "foreign", CreatedAt: base}))

	contacts, err := repo.ListByUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, contacts, 3)
	assert.Equal(t, "third", contacts[0].Name)
	assert.Equal(t, "first", contacts[2].Name)

	empty, err := repo.ListByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestContactRepository_ListByUserTiesAreDeterministic(t *testing.T) {
	repo := NewContactRepository()
	ctx := context.Background()
	owner := uuid.New()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		require.NoError(t, repo.Create(ctx, &models.Contact{ID: uuid.New(), UserID: owner, Name: "same", CreatedAt: at}))
	}

	first, err := repo.ListByUser(ctx, owner)
	require.NoError(t, err)
	for i := 1; i < len(first); i++ {
		assert.Greater(t, first[i-1].ID.String(), first[i].ID.String())
	}
	for i := 0; i < 5; i++ {
		again, err := repo.ListByUser(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestContactRepository_UpdateKeepsOwner(t *testing.T) {
	repo := NewContactRepository()
	ctx := context.Background()
	owner := uuid.New()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &models.Contact{ID: uuid.New(), UserID: owner, Name: "Jill", CreatedAt: created}
	require.NoError(t, repo.Create(ctx, c))

	require.NoError(t, repo.Update(ctx, &models.Contact{ID: c.ID, UserID: uuid.New(), Name: "Jillian"}))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jillian", got.Name)
	assert.Equal(t, owner, got.UserID)
	assert.Equal(t, created, got.CreatedAt)
}

func TestContactRepository_MissingContact(t *testing.T) {
	repo := NewContactRepository()
	ctx := context.Background()
	id := uuid.New()

	_, err := repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, models.ErrContactNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &models.Contact{ID: id}), models.ErrContactNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, id), models.ErrContactNotFound)
}

func TestContactRepository_Delete(t *testing.T) {
	repo := NewContactRepository()
	ctx := context.Background()
	c := &models.Contact{ID: uuid.New(), UserID: uuid.New(), Name: "Jill"}
	require.NoError(t, repo.Create(ctx, c))

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err := repo.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, models.ErrContactNotFound)
}

func TestContactRepository_ConcurrentAccess(t *testing.T) {
	repo := NewContactRepository()
	ctx := context.Background()
	owner := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Create(ctx, &models.Contact{ID: uuid.New(), UserID: owner, Name: "n"})
			_, _ = repo.ListByUser(ctx, owner)
		}()
	}
	wg.Wait()

	contacts, err := repo.ListByUser(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, contacts, 50)
}
