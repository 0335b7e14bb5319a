package application

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cozyapp/cozyapp-api/internal/domain"
	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
	repo "github.com/cozyapp/cozyapp-api/internal/domain/repository"
	"github.com/cozyapp/cozyapp-api/pkg/helpers"
	"github.com/cozyapp/cozyapp-api/pkg/validation"
)

// TokenService signs and verifies bearer tokens.
type TokenService interface {
	Issue(userID string) (string, time.Time, error)
	Verify(token string) (string, error)
}

// Notifier sends account emails. Implementations must not block on delivery.
type Notifier interface {
	SendWelcomeEmail(ctx context.Context, to, name string) error
	SendPasswordResetEmail(ctx context.Context, to, name, resetURL string) error
}

// UserIndex mirrors users into a search backend.
type UserIndex interface {
	IndexUser(ctx context.Context, u *entity.User) error
	DeleteUser(ctx context.Context, id string) error
	SearchUserIDs(ctx context.Context, q string, size int) ([]string, error)
}

type Service struct {
	Repo     repo.UserRepository
	Tokens   TokenService
	Notifier Notifier
	Index    UserIndex
	Logger   logrus.FieldLogger

	// ResetURL is the front-end page the reset token is appended to.
	ResetURL string
	ResetTTL time.Duration

	Now           func() time.Time
	NewResetToken func() (string, error)
}

func NewService(r repo.UserRepository, tokens TokenService, notifier Notifier, index UserIndex, logger logrus.FieldLogger, resetURL string, resetTTL time.Duration) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if index == nil {
		index = nopIndex{}
	}
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &Service{
		Repo:          r,
		Tokens:        tokens,
		Notifier:      notifier,
		Index:         index,
		Logger:        logger,
		ResetURL:      resetURL,
		ResetTTL:      resetTTL,
		Now:           time.Now,
		NewResetToken: helpers.GenerateResetToken,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// AuthResult is returned by every operation that hands out a session token.
type AuthResult struct {
	User      *entity.User
	Token     string
	ExpiresAt time.Time
}

func (s *Service) issue(u *entity.User) (*AuthResult, error) {
	tok, exp, err := s.Tokens.Issue(u.ID)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindInternal, Message: "issue token", Err: err}
	}
	return &AuthResult{User: u, Token: tok, ExpiresAt: exp}, nil
}

// index mirrors u into search; failures never fail the caller.
func (s *Service) index(ctx context.Context, u *entity.User) {
	if err := s.Index.IndexUser(ctx, u); err != nil {
		helpers.LogWarn(s.Logger, "es index failed", err, logrus.Fields{"user_id": u.ID})
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validate runs binding-tag validation on in and converts the first failure into a domain error.
func validate(in any) error {
	err := validation.Struct(in)
	if err == nil {
		return nil
	}
	fields := validation.Fields(err)
	if len(fields) == 0 {
		return &domain.Error{Kind: domain.KindValidation, Message: "invalid input", Err: err}
	}
	f := fields[0]
	de := domain.Validation(f.Field, f.Field+" "+f.Message)
	if f.Tag == "strongpwd" {
		de.Reason = domain.ReasonPasswordPolicy
		de.Message = validation.ErrPasswordPolicy.Error()
	}
	return de
}

func passwordPolicy(field, pw string) error {
	if err := validation.ValidatePassword(pw); err != nil {
		return &domain.Error{Kind: domain.KindValidation, Reason: domain.ReasonPasswordPolicy, Field: field, Message: err.Error()}
	}
	return nil
}

func hashPassword(pw string) (string, error) {
	h, err := helpers.HashPassword(pw)
	if err != nil {
		return "", &domain.Error{Kind: domain.KindInternal, Message: "hash password", Err: err}
	}
	return h, nil
}

type nopNotifier struct{}

func (nopNotifier) SendWelcomeEmail(context.Context, string, string) error { return nil }
func (nopNotifier) SendPasswordResetEmail(context.Context, string, string, string) error {
	return nil
}

type nopIndex struct{}

func (nopIndex) IndexUser(context.Context, *entity.User) error { return nil }
func (nopIndex) DeleteUser(context.Context, string) error      { return nil }
func (nopIndex) SearchUserIDs(context.Context, string, int) ([]string, error) {
	return []string{}, nil
}
