package application_test

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cozyapp/cozyapp-api/internal/application"
	"github.com/cozyapp/cozyapp-api/internal/infrastructure/memory"
	"github.com/cozyapp/cozyapp-api/pkg/helpers"
)

const testSecret = "test-secret-key-for-unit-tests-0123456789"

// MockNotifier records queued emails.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendWelcomeEmail(ctx context.Context, to, name string) error {
	return m.Called(ctx, to, name).Error(0)
}

func (m *MockNotifier) SendPasswordResetEmail(ctx context.Context, to, name, resetURL string) error {
	return m.Called(ctx, to, name, resetURL).Error(0)
}

// clock is a settable time source shared by the service and the token manager.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc      *application.Service
	repo     *memory.UserRepository
	jwt      *helpers.JWTManager
	notifier *MockNotifier
	clock    *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{t: time.Now().UTC()}
	repo := memory.NewUserRepository()
	jwt := helpers.NewJWTManager(testSecret, 7*24*time.Hour)
	jwt.Now = clk.Now
	n := &MockNotifier{}
	svc := application.NewService(repo, jwt, n, nil, helpers.NewNopLogger(), "http://localhost:4200/auth/reset-password", time.Hour)
	svc.Now = clk.Now
	return &fixture{svc: svc, repo: repo, jwt: jwt, notifier: n, clock: clk}
}

// expectWelcome allows any number of welcome emails.
func (f *fixture) expectWelcome() {
	f.notifier.On("SendWelcomeEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

// captureResets records every reset token handed to the notifier.
func (f *fixture) captureResets(t *testing.T) func() []string {
	t.Helper()
	var mu sync.Mutex
	var tokens []string
	f.notifier.On("SendPasswordResetEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			u, err := url.Parse(args.String(3))
			require.NoError(t, err)
			mu.Lock()
			tokens = append(tokens, u.Query().Get("token"))
			mu.Unlock()
		}).
		Return(nil)
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), tokens...)
	}
}

func (f *fixture) register(t *testing.T, email, name, password string) *application.AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), application.RegisterInput{Email: email, Name: name, Password: password})
	require.NoError(t, err)
	return res
}
