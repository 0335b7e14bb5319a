package application

import (
	"context"
	"errors"

	"github.com/cozyapp/cozyapp-api/internal/domain"
	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
	"github.com/cozyapp/cozyapp-api/pkg/helpers"
)

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,username"`
	Password string `json:"password" binding:"required,strongpwd"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates an active user with the default role set and signs them in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate(in); err != nil {
		return nil, err
	}
	u, err := s.createUser(ctx, in.Email, in.Name, in.Password, entity.RolesFor(false))
	if err != nil {
		return nil, err
	}
	if err := s.Notifier.SendWelcomeEmail(ctx, u.Email, u.Name); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("welcome email not queued")
	}
	s.Logger.WithField("user_id", u.ID).Info("user registered")
	return s.issue(u)
}

func (s *Service) createUser(ctx context.Context, email, name, password string, roles entity.Roles) (*entity.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		IsActive:     true,
		Roles:        roles,
		LastLogin:    s.now(),
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateCredential) {
			return nil, err
		}
		return nil, &domain.Error{Kind: domain.KindInternal, Message: "create user", Err: err}
	}
	s.index(ctx, u)
	return u, nil
}

// Login verifies credentials. Unknown email and wrong password fail identically,
// including the cost of a bcrypt comparison.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	u, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindInternal, Message: "find user", Err: err}
	}
	if u == nil {
		helpers.BurnCompare(in.Password)
		return nil, domain.ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, in.Password) {
		return nil, domain.ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, domain.Unauthorized(domain.ReasonDeactivated, "account deactivated")
	}

	now := s.now()
	if err := s.Repo.TouchLastLogin(ctx, u.ID, now); err != nil {
		return nil, &domain.Error{Kind: domain.KindInternal, Message: "update last login", Err: err}
	}
	u.LastLogin = now
	return s.issue(u)
}

// RefreshToken issues a fresh token for an already authenticated user.
func (s *Service) RefreshToken(_ context.Context, u *entity.User) (*AuthResult, error) {
	return s.issue(u)
}

type Dashboard struct {
	User        *entity.User
	DashboardID string
}

func (s *Service) Dashboard(_ context.Context, u *entity.User) *Dashboard {
	return &Dashboard{User: u, DashboardID: "dashboard-" + u.ID}
}

type UpdateProfileInput struct {
	Name            string `json:"name" binding:"required,username"`
	CurrentPassword string `json:"currentPassword" binding:"required_with=NewPassword"`
	NewPassword     string `json:"newPassword" binding:"omitempty,strongpwd"`
}

// UpdateProfile writes the name, and the password too when a new one is supplied,
// in a single store update.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var hash string
	if in.NewPassword != "" {
		u, err := s.Repo.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !helpers.CompareHashAndPassword(u.PasswordHash, in.CurrentPassword) {
			return nil, domain.Unauthorized(domain.ReasonWrongCurrentPassword, "current password is incorrect")
		}
		if hash, err = hashPassword(in.NewPassword); err != nil {
			return nil, err
		}
	}
	u, err := s.Repo.UpdateProfile(ctx, userID, in.Name, hash)
	if err != nil {
		return nil, err
	}
	s.index(ctx, u)
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*entity.User, error) {
	return s.Repo.FindByID(ctx, id)
}
