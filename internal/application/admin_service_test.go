package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozyapp/cozyapp-api/internal/application"
	"github.com/cozyapp/cozyapp-api/internal/domain"
	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
	"github.com/cozyapp/cozyapp-api/internal/infrastructure/memory"
	"github.com/cozyapp/cozyapp-api/pkg/helpers"
)

type stubIndex struct {
	ids     []string
	err     error
	indexed map[string]bool
	deleted []string
}

func (s *stubIndex) IndexUser(_ context.Context, u *entity.User) error {
	if s.indexed == nil {
		s.indexed = map[string]bool{}
	}
	s.indexed[u.ID] = true
	return nil
}

func (s *stubIndex) DeleteUser(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return errors.New("es down")
}

func (s *stubIndex) SearchUserIDs(context.Context, string, int) ([]string, error) {
	return s.ids, s.err
}

func TestCreateUser_Admin(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.CreateUser(context.Background(), application.CreateUserInput{Email: "root@example.com", Name: "Root", Password: "Passw0rd!", IsAdmin: true})
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.ElementsMatch(t, entity.Roles{entity.RoleAdmin, entity.RoleUser}, u.Roles)
}

func TestListUsers_Filters(t *testing.T) {
	f := newFixture(t)
	f.expectWelcome()
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", "Alice", "Passw0rd!").User
	f.register(t, "bob@example.com", "Bobby", "Passw0rd!")
	_, err := f.svc.CreateUser(ctx, application.CreateUserInput{Email: "root@example.com", Name: "Root", Password: "Passw0rd!", IsAdmin: true})
	require.NoError(t, err)
	_, err = f.svc.ToggleStatus(ctx, alice.ID)
	require.NoError(t, err)

	all, err := f.svc.ListUsers(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	inactive, err := f.svc.ListUsers(ctx, "false", "")
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, alice.ID, inactive[0].ID)

	admins, err := f.svc.ListUsers(ctx, "", "admin")
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "root@example.com", admins[0].Email)

	plain, err := f.svc.ListUsers(ctx, "true", "user")
	require.NoError(t, err)
	require.Len(t, plain, 1)
	assert.Equal(t, "bob@example.com", plain[0].Email)
}

func TestToggleStatusAndSetAdmin(t *testing.T) {
	f := newFixture(t)
	f.expectWelcome()
	ctx := context.Background()
	id := f.register(t, "alice@example.com", "Alice", "Passw0rd!").User.ID

	u, err := f.svc.ToggleStatus(ctx, id)
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	u, err = f.svc.ToggleStatus(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.IsActive)

	u, err = f.svc.SetAdmin(ctx, id, true)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	u, err = f.svc.SetAdmin(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, entity.Roles{entity.RoleUser}, u.Roles)

	_, err = f.svc.ToggleStatus(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.expectWelcome()
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", "Alice", "Passw0rd!").User
	f.register(t, "bob@example.com", "Bobby", "Passw0rd!")
	_, err := f.svc.CreateUser(ctx, application.CreateUserInput{Email: "root@example.com", Name: "Root", Password: "Passw0rd!", IsAdmin: true})
	require.NoError(t, err)
	_, err = f.svc.ToggleStatus(ctx, alice.ID)
	require.NoError(t, err)

	st, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.TotalUsers)
	assert.Equal(t, int64(2), st.ActiveUsers)
	assert.Equal(t, int64(1), st.InactiveUsers)
	assert.Equal(t, int64(1), st.AdminUsers)
	assert.Equal(t, int64(3), st.NewUsers)
	assert.Equal(t, int64(3), st.RecentActiveUsers)
}

func TestDeleteUser(t *testing.T) {
	idx := &stubIndex{}
	repo := memory.NewUserRepository()
	svc := application.NewService(repo, helpers.NewJWTManager(testSecret, 0), nil, idx, helpers.NewNopLogger(), "", 0)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, application.CreateUserInput{Email: "alice@example.com", Name: "Alice", Password: "Passw0rd!"})
	require.NoError(t, err)
	assert.True(t, idx.indexed[u.ID])

	// index failures are logged, not returned
	require.NoError(t, svc.DeleteUser(ctx, u.ID))
	assert.Equal(t, []string{u.ID}, idx.deleted)

	_, err = svc.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteUser(ctx, u.ID), domain.ErrNotFound)
}

func TestSearchUsers_SkipsStaleHits(t *testing.T) {
	idx := &stubIndex{}
	repo := memory.NewUserRepository()
	svc := application.NewService(repo, helpers.NewJWTManager(testSecret, 0), nil, idx, helpers.NewNopLogger(), "", 0)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, application.CreateUserInput{Email: "alice@example.com", Name: "Alice", Password: "Passw0rd!"})
	require.NoError(t, err)
	idx.ids = []string{"gone", u.ID}

	found, err := svc.SearchUsers(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, u.ID, found[0].ID)

	idx.err = errors.New("es down")
	_, err = svc.SearchUsers(ctx, "alice", 10)
	assert.Error(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.EnsureAdmin(ctx, "Root@Example.com", "Passw0rd!", "Administrator")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.EnsureAdmin(ctx, "root@example.com", "Different1!", "Administrator")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := f.repo.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.IsAdmin())
	assert.True(t, helpers.CompareHashAndPassword(u.PasswordHash, "Passw0rd!"))

	_, err = f.svc.EnsureAdmin(ctx, "other@example.com", "weak", "Administrator")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
