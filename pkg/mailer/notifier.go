package mailer

import (
	"context"
	"time"

	tpl "github.com/cozyapp/cozyapp-api/pkg/mailer/templates"
)

// Notifier turns account events into queued email jobs.
type Notifier struct {
	Dispatcher *Dispatcher
	Brand      tpl.Brand
	ResetTTL   time.Duration
}

func NewNotifier(d *Dispatcher, brand tpl.Brand, resetTTL time.Duration) *Notifier {
	return &Notifier{Dispatcher: d, Brand: brand, ResetTTL: resetTTL}
}

func (n *Notifier) SendWelcomeEmail(_ context.Context, to, name string) error {
	return n.Dispatcher.Enqueue(EmailJob{
		To:       to,
		Template: tpl.Welcome,
		Data:     tpl.NewWelcomeData(n.Brand, name, to, tpl.WithTime(time.Now())),
	})
}

func (n *Notifier) SendPasswordResetEmail(_ context.Context, to, name, resetURL string) error {
	return n.Dispatcher.Enqueue(EmailJob{
		To:       to,
		Template: tpl.PasswordReset,
		Data: tpl.NewPasswordResetData(n.Brand, name, to, resetURL,
			tpl.WithTime(time.Now()),
			tpl.WithExpiresIn(n.ResetTTL),
		),
	})
}
