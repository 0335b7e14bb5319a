package application_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cozyapp/cozyapp-api/internal/application"
	"github.com/cozyapp/cozyapp-api/internal/domain"
)

func TestRequestReset_SameMessageForUnknownEmail(t *testing.T) {
	f := newFixture(t)
	f.expectWelcome()
	resets := f.captureResets(t)
	f.register(t, "alice@example.com", "Alice", "Passw0rd!")

	known := f.svc.RequestReset(context.Background(), "alice@example.com")
	unknown := f.svc.RequestReset(context.Background(), "nobody@example.com")
	assert.Equal(t, known, unknown)
	assert.Equal(t, known, f.svc.RequestReset(context.Background(), "   "))
	assert.Len(t, resets(), 1, "only the registered address gets an email")
}

func TestRequestReset_NotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.expectWelcome()
	f.notifier.On("SendPasswordResetEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	id := f.register(t, "alice@example.com", "Alice", "Passw0rd!").User.ID

	assert.Equal(t, application.ResetRequestedMessage, f.svc.RequestReset(context.Background(), "alice@example.com"))

	u, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u.ResetToken)
	require.NotNil(t, u.ResetTokenExpiry)
	assert.Equal(t, f.clock.Now().Add(time.Hour), *u.ResetTokenExpiry)
}

func TestResetPassword_Expiry(t *testing.T) {
	for _, tc := range []struct {
		name   string
		offset time.Duration
		ok     bool
	}{
		{"one second before expiry", time.Hour - time.Second, true},
		{"one second after expiry", time.Hour + time.Second, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.expectWelcome()
			resets := f.captureResets(t)
			f.register(t, "alice@example.com", "Alice", "Passw0rd!")
			f.svc.RequestReset(context.Background(), "alice@example.com")

			f.clock.Advance(tc.offset)
			err := f.svc.ResetPassword(context.Background(), application.ResetPasswordInput{Token: resets()[0], Password: "NewPass1!"})
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
		})
	}
}

func TestResetPassword_SingleUse(t *testing.T) {
	f := newFixture(t)
	f.expectWelcome()
	resets := f.captureResets(t)
	ctx := context.Background()
	id := f.register(t, "alice@example.com", "Alice", "Passw0rd!").User.ID
	f.svc.RequestReset(ctx, "alice@example.com")
	tok := resets()[0]

	require.NoError(t, f.svc.ResetPassword(ctx, application.ResetPasswordInput{Token: tok, Password: "NewPass1!"}))
	err := f.svc.ResetPassword(ctx, application.ResetPasswordInput{Token: tok, Password: "Other1pw!"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)

	u, err := f.repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, u.ResetToken)
	assert.Nil(t, u.ResetTokenExpiry)
}

func TestResetPassword_ConcurrentConsumersOneWins(t *testing.T) {
	f := newFixture(t)
	f.expectWelcome()
	resets := f.captureResets(t)
	ctx := context.Background()
	f.register(t, "alice@example.com", "Alice", "Passw0rd!")
	f.svc.RequestReset(ctx, "alice@example.com")
	tok := resets()[0]

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.svc.ResetPassword(ctx, application.ResetPasswordInput{Token: tok, Password: "NewPass1!"}) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestRequestReset_LastRequestWins(t *testing.T) {
	f := newFixture(t)
	f.expectWelcome()
	resets := f.captureResets(t)
	ctx := context.Background()
	f.register(t, "alice@example.com", "Alice", "Passw0rd!")

	f.svc.RequestReset(ctx, "alice@example.com")
	f.svc.RequestReset(ctx, "alice@example.com")
	toks := resets()
	require.Len(t, toks, 2)
	require.NotEqual(t, toks[0], toks[1])

	err := f.svc.ResetPassword(ctx, application.ResetPasswordInput{Token: toks[0], Password: "NewPass1!"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	assert.NoError(t, f.svc.ResetPassword(ctx, application.ResetPasswordInput{Token: toks[1], Password: "NewPass1!"}))
}

func TestResetPassword_TokenCheckedBeforePolicy(t *testing.T) {
	f := newFixture(t)
	f.expectWelcome()
	resets := f.captureResets(t)
	ctx := context.Background()

	err := f.svc.ResetPassword(ctx, application.ResetPasswordInput{Token: "unknown", Password: "weak"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	err = f.svc.ResetPassword(ctx, application.ResetPasswordInput{Token: "", Password: "NewPass1!"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)

	f.register(t, "alice@example.com", "Alice", "Passw0rd!")
	f.svc.RequestReset(ctx, "alice@example.com")
	tok := resets()[0]

	err = f.svc.ResetPassword(ctx, application.ResetPasswordInput{Token: tok, Password: "weak"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, domain.ReasonPasswordPolicy, domain.ReasonOf(err))

	// a policy failure does not burn the token
	assert.NoError(t, f.svc.ResetPassword(ctx, application.ResetPasswordInput{Token: tok, Password: "NewPass1!"}))
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	f.expectWelcome()
	resets := f.captureResets(t)
	ctx := context.Background()
	id := f.register(t, "alice@example.com", "Alice", "Passw0rd!").User.ID

	err := f.svc.ChangePassword(ctx, id, application.ChangePasswordInput{CurrentPassword: "Wrong0rd!", NewPassword: "NewPass1!"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, domain.ReasonWrongCurrentPassword, domain.ReasonOf(err))

	err = f.svc.ChangePassword(ctx, id, application.ChangePasswordInput{CurrentPassword: "Passw0rd!", NewPassword: "short"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	f.svc.RequestReset(ctx, "alice@example.com")
	require.NoError(t, f.svc.ChangePassword(ctx, id, application.ChangePasswordInput{CurrentPassword: "Passw0rd!", NewPassword: "NewPass1!"}))

	_, err = f.svc.Login(ctx, application.LoginInput{Email: "alice@example.com", Password: "NewPass1!"})
	assert.NoError(t, err)

	err = f.svc.ResetPassword(ctx, application.ResetPasswordInput{Token: resets()[0], Password: "Other1pw!"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken, "pending reset token is cleared by a password change")
}
