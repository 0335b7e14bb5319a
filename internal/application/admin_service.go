package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cozyapp/cozyapp-api/internal/domain"
	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
	"github.com/cozyapp/cozyapp-api/pkg/helpers"
)

type CreateUserInput struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,username"`
	Password string `json:"password" binding:"required,strongpwd"`
	IsAdmin  bool   `json:"isAdmin"`
}

// CreateUser is the administrative variant of Register: no token, optional admin role.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate(in); err != nil {
		return nil, err
	}
	return s.createUser(ctx, in.Email, in.Name, in.Password, entity.RolesFor(in.IsAdmin))
}

// ListUsers filters by activity ("true"/"false") and role ("admin", or "user" for non-admins).
func (s *Service) ListUsers(ctx context.Context, active, role string) ([]*entity.User, error) {
	f := entity.UserFilter{}
	switch active {
	case "true":
		f.Active = boolPtr(true)
	case "false":
		f.Active = boolPtr(false)
	}
	switch role {
	case entity.RoleAdmin, entity.RoleUser:
		f.Role = role
	}
	return s.Repo.List(ctx, f)
}

func boolPtr(b bool) *bool { return &b }

// ToggleStatus flips isActive.
func (s *Service) ToggleStatus(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u, err = s.Repo.SetActive(ctx, id, !u.IsActive)
	if err != nil {
		return nil, err
	}
	s.index(ctx, u)
	return u, nil
}

// SetAdmin grants {admin,user} or resets to {user}.
func (s *Service) SetAdmin(ctx context.Context, id string, isAdmin bool) (*entity.User, error) {
	u, err := s.Repo.SetRoles(ctx, id, entity.RolesFor(isAdmin))
	if err != nil {
		return nil, err
	}
	s.index(ctx, u)
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.Index.DeleteUser(ctx, id); err != nil {
		s.Logger.WithError(err).WithField("user_id", id).Warn("es delete failed")
	}
	return nil
}

type UserStats struct {
	TotalUsers        int64 `json:"totalUsers"`
	ActiveUsers       int64 `json:"activeUsers"`
	InactiveUsers     int64 `json:"inactiveUsers"`
	AdminUsers        int64 `json:"adminUsers"`
	NewUsers          int64 `json:"newUsers"`
	RecentActiveUsers int64 `json:"recentActiveUsers"`
}

// Stats counts users; "new" means created in the last 30 days and
// "recently active" means logged in during the last 7.
func (s *Service) Stats(ctx context.Context) (*UserStats, error) {
	now := s.now()
	monthAgo := now.Add(-30 * 24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	filters := []entity.UserFilter{
		{},
		{Active: boolPtr(true)},
		{Active: boolPtr(false)},
		{Role: entity.RoleAdmin},
		{CreatedSince: &monthAgo},
		{LastLoginSince: &weekAgo},
	}
	counts := make([]int64, len(filters))
	for i, f := range filters {
		n, err := s.Repo.Count(ctx, f)
		if err != nil {
			return nil, err
		}
		counts[i] = n
	}
	return &UserStats{
		TotalUsers:        counts[0],
		ActiveUsers:       counts[1],
		InactiveUsers:     counts[2],
		AdminUsers:        counts[3],
		NewUsers:          counts[4],
		RecentActiveUsers: counts[5],
	}, nil
}

// SearchUsers resolves search hits against the store, skipping users deleted since indexing.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]*entity.User, error) {
	ids, err := s.Index.SearchUserIDs(ctx, q, size)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.Repo.FindByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// EnsureAdmin creates an administrator unless the email is already registered.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	email = normalizeEmail(email)
	existing, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	_, err = s.CreateUser(ctx, CreateUserInput{Email: email, Name: name, Password: password, IsAdmin: true})
	if errors.Is(err, domain.ErrDuplicateCredential) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	helpers.LogInfo(s.Logger, "admin user created", logrus.Fields{"email": email})
	return true, nil
}
