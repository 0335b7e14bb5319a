//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozyapp/cozyapp-api/internal/domain"
	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
	"github.com/cozyapp/cozyapp-api/pkg/helpers"
)

// Run with: TEST_POSTGRES_DSN=postgres://... go test -tags integration ./internal/infrastructure/postgres/
func newIntegrationRepo(t *testing.T) *UserRepository {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	require.NoError(t, RunMigrations(dsn, "../../../db/migrations", helpers.NewNopLogger()))

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn, 4, 1, time.Minute)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE users`)
	require.NoError(t, err)
	return NewUserRepository(pool)
}

func TestIntegration_CreateDuplicate(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()

	u := &entity.User{Email: "alice@example.com", Name: "Alice", PasswordHash: "hash", IsActive: true}
	require.NoError(t, r.Create(ctx, u))
	assert.Equal(t, entity.Roles{entity.RoleUser}, u.Roles)

	err := r.Create(ctx, &entity.User{Email: "alice@example.com", Name: "Alice", PasswordHash: "hash"})
	assert.ErrorIs(t, err, domain.ErrDuplicateCredential)
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "email", de.Field)
}

func TestIntegration_ResetTokenSingleUse(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()
	u := &entity.User{Email: "alice@example.com", Name: "Alice", PasswordHash: "hash", IsActive: true}
	require.NoError(t, r.Create(ctx, u))

	now := time.Now().UTC()
	require.NoError(t, r.SetResetToken(ctx, u.ID, "tok", now.Add(time.Hour)))

	_, err := r.ConsumeResetToken(ctx, "tok", now.Add(2*time.Hour), "late")
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.ConsumeResetToken(ctx, "tok", now, "new-hash"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.Nil(t, got.ResetToken)
	assert.Nil(t, got.ResetTokenExpiry)
}

func TestIntegration_ReplacePasswordClearsResetPair(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()
	u := &entity.User{Email: "alice@example.com", Name: "Alice", PasswordHash: "hash", IsActive: true}
	require.NoError(t, r.Create(ctx, u))
	require.NoError(t, r.SetResetToken(ctx, u.ID, "tok", time.Now().Add(time.Hour)))

	require.NoError(t, r.ReplacePassword(ctx, u.ID, "changed"))
	found, err := r.FindByResetToken(ctx, "tok", time.Now())
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestIntegration_RoleFilters(t *testing.T) {
	r := newIntegrationRepo(t)
	ctx := context.Background()
	a := &entity.User{Email: "a@example.com", Name: "Alice", PasswordHash: "hash", IsActive: true}
	b := &entity.User{Email: "b@example.com", Name: "Bobby", PasswordHash: "hash", IsActive: true, Roles: entity.RolesFor(true)}
	require.NoError(t, r.Create(ctx, a))
	require.NoError(t, r.Create(ctx, b))

	users, err := r.List(ctx, entity.UserFilter{Role: entity.RoleUser})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, a.ID, users[0].ID)

	n, err := r.Count(ctx, entity.UserFilter{Role: entity.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
