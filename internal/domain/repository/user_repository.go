package repository

import (
	"context"
	"time"

	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
)

// UserRepository is the credential store. Every update keyed by id is a single
// atomic document write and fails with domain.ErrNotFound when no user matches.
type UserRepository interface {
	// Create assigns ID and timestamps; an email collision fails with a
	// domain duplicate error naming the "email" field.
	Create(ctx context.Context, u *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	// FindByEmail returns (nil, nil) when no user has the email.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// FindByResetToken returns (nil, nil) unless token matches and now < expiry.
	FindByResetToken(ctx context.Context, token string, now time.Time) (*entity.User, error)
	List(ctx context.Context, f entity.UserFilter) ([]*entity.User, error)
	Count(ctx context.Context, f entity.UserFilter) (int64, error)

	// UpdateProfile writes name, and passwordHash too when non-empty.
	UpdateProfile(ctx context.Context, id, name, passwordHash string) (*entity.User, error)
	SetActive(ctx context.Context, id string, active bool) (*entity.User, error)
	SetRoles(ctx context.Context, id string, roles entity.Roles) (*entity.User, error)
	SetPreferences(ctx context.Context, id string, prefs entity.Preferences) (*entity.User, error)
	// ReplacePassword stores passwordHash and clears any pending reset pair in the same write.
	ReplacePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	// SetResetToken writes the token/expiry pair together, replacing any pending pair.
	SetResetToken(ctx context.Context, id, token string, expiry time.Time) error
	// ConsumeResetToken matches an unexpired token, stores passwordHash and clears
	// the pair in one conditional write; a lost race fails with ErrInvalidOrExpiredToken.
	ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) (*entity.User, error)

	Delete(ctx context.Context, id string) error
}
