package application

import (
	"context"
	"net/url"

	"github.com/cozyapp/cozyapp-api/internal/domain"
	"github.com/cozyapp/cozyapp-api/pkg/helpers"
)

// ResetRequestedMessage is returned for every reset request, whether or not the email is registered.
const ResetRequestedMessage = "If this email is registered, a password reset link has been sent"

// RequestReset issues a fresh reset token for email, replacing any pending one,
// and queues the reset email. The caller-visible outcome never depends on
// whether the account exists, and failures after that point are only logged.
func (s *Service) RequestReset(ctx context.Context, email string) string {
	email = normalizeEmail(email)
	log := s.Logger.WithField("op", "request_reset")
	if email == "" {
		return ResetRequestedMessage
	}

	u, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		log.WithError(err).Error("lookup failed")
		return ResetRequestedMessage
	}
	if u == nil {
		log.Debug("reset requested for unknown email")
		return ResetRequestedMessage
	}

	token, err := s.NewResetToken()
	if err != nil {
		log.WithError(err).Error("generate reset token failed")
		return ResetRequestedMessage
	}
	if err := s.Repo.SetResetToken(ctx, u.ID, token, s.now().Add(s.ResetTTL)); err != nil {
		log.WithError(err).WithField("user_id", u.ID).Error("store reset token failed")
		return ResetRequestedMessage
	}
	if err := s.Notifier.SendPasswordResetEmail(ctx, u.Email, u.Name, s.resetLink(token)); err != nil {
		log.WithError(err).WithField("user_id", u.ID).Warn("reset email not queued")
	}
	return ResetRequestedMessage
}

func (s *Service) resetLink(token string) string {
	return s.ResetURL + "?token=" + url.QueryEscape(token)
}

type ResetPasswordInput struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ResetPassword consumes a pending reset token and sets a new password.
// The token is checked before the password policy so an unknown or expired
// token is reported as such regardless of the password supplied.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if in.Token == "" {
		return domain.ErrInvalidOrExpiredToken
	}
	now := s.now()
	u, err := s.Repo.FindByResetToken(ctx, in.Token, now)
	if err != nil {
		return &domain.Error{Kind: domain.KindInternal, Message: "find reset token", Err: err}
	}
	if u == nil {
		return domain.ErrInvalidOrExpiredToken
	}
	if err := passwordPolicy("password", in.Password); err != nil {
		return err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return err
	}
	// The conditional write re-checks token and expiry, so a concurrent consumer loses cleanly.
	if _, err := s.Repo.ConsumeResetToken(ctx, in.Token, now, hash); err != nil {
		return err
	}
	s.Logger.WithField("user_id", u.ID).Info("password reset completed")
	return nil
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,strongpwd"`
}

// ChangePassword replaces the password of an authenticated user after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if err := validate(in); err != nil {
		return err
	}
	u, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, in.CurrentPassword) {
		return domain.Unauthorized(domain.ReasonWrongCurrentPassword, "current password is incorrect")
	}
	hash, err := hashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	// A pending reset link dies with the old password.
	return s.Repo.ReplacePassword(ctx, userID, hash)
}
