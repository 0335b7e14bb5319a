package templates

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// EmailData defines standard fields for email templates.
type EmailData struct {
	Name  string `json:"Name"`
	Email string `json:"Email"`
	Type  string `json:"Type"`

	AppName    string `json:"AppName"`
	SupportURL string `json:"SupportURL"`

	// Action URLs
	ResetURL string `json:"ResetURL"`

	ExpiresAt     time.Time `json:"ExpiresAt"`
	ExpiresAtText string    `json:"ExpiresAtText"`
	ExpiresInText string    `json:"ExpiresInText"`
	Time          string    `json:"Time"`
}

// Brand carries the sender-wide fields every email shares.
type Brand struct {
	AppName    string
	SupportURL string
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) { d.Time = t.UTC().Format("02 January 2006, 15:04") }
}

func WithResetURL(url string) Option { return func(d *EmailData) { d.ResetURL = url } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
	}
}

func WithExpiresIn(dur time.Duration) Option {
	return func(d *EmailData) {
		WithExpiresAt(time.Now().Add(dur))(d)
		d.ExpiresInText = humanDuration(dur)
	}
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if h := int(d / time.Hour); h != 1 {
			return itoa(h) + " hours"
		}
		return "1 hour"
	case d >= time.Minute:
		return itoa(int(d/time.Minute)) + " minutes"
	default:
		return strings.TrimSpace(d.String())
	}
}

func itoa(n int) string { return strconv.Itoa(n) }

func newBase(b Brand, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:       name,
		Email:      email,
		Type:       typ,
		AppName:    b.AppName,
		SupportURL: b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(b Brand, name, email string, opts ...Option) map[string]any {
	return ToMap(newBase(b, Welcome, name, email, opts...))
}

func NewPasswordResetData(b Brand, name, email, resetURL string, opts ...Option) map[string]any {
	opts = append([]Option{WithResetURL(resetURL)}, opts...)
	return ToMap(newBase(b, PasswordReset, name, email, opts...))
}
