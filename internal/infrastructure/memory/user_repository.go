// Package memory is a process-local Credential Store used by tests and by
// STORE_DRIVER=memory for local runs. A single mutex makes every write atomic.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cozyapp/cozyapp-api/internal/domain"
	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
	"github.com/cozyapp/cozyapp-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepository)(nil)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.User
	byEmail map[string]string
	now     func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*entity.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return domain.Duplicate("email")
	}
	now := r.now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Roles = u.Roles.Normalize()
	r.byID[u.ID] = clone(u)
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.NotFound("user not found")
	}
	return clone(u), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	return clone(r.byID[id]), nil
}

func (r *UserRepository) FindByResetToken(_ context.Context, token string, now time.Time) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u := r.matchReset(token, now); u != nil {
		return clone(u), nil
	}
	return nil, nil
}

func (r *UserRepository) matchReset(token string, now time.Time) *entity.User {
	if token == "" {
		return nil
	}
	for _, u := range r.byID {
		if u.ResetToken != nil && *u.ResetToken == token && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now) {
			return u
		}
	}
	return nil
}

func (r *UserRepository) List(_ context.Context, f entity.UserFilter) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		if matches(u, f) {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepository) Count(_ context.Context, f entity.UserFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, u := range r.byID {
		if matches(u, f) {
			n++
		}
	}
	return n, nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, id, name, passwordHash string) (*entity.User, error) {
	return r.update(id, func(u *entity.User) {
		u.Name = name
		if passwordHash != "" {
			u.PasswordHash = passwordHash
		}
	})
}

func (r *UserRepository) SetActive(_ context.Context, id string, active bool) (*entity.User, error) {
	return r.update(id, func(u *entity.User) { u.IsActive = active })
}

func (r *UserRepository) SetRoles(_ context.Context, id string, roles entity.Roles) (*entity.User, error) {
	return r.update(id, func(u *entity.User) { u.Roles = roles.Normalize() })
}

func (r *UserRepository) SetPreferences(_ context.Context, id string, prefs entity.Preferences) (*entity.User, error) {
	return r.update(id, func(u *entity.User) { u.Preferences = clonePrefs(prefs) })
}

func (r *UserRepository) ReplacePassword(_ context.Context, id, passwordHash string) error {
	_, err := r.update(id, func(u *entity.User) {
		u.PasswordHash = passwordHash
		u.ResetToken = nil
		u.ResetTokenExpiry = nil
	})
	return err
}

func (r *UserRepository) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	_, err := r.update(id, func(u *entity.User) { u.LastLogin = at })
	return err
}

func (r *UserRepository) SetResetToken(_ context.Context, id, token string, expiry time.Time) error {
	_, err := r.update(id, func(u *entity.User) {
		u.ResetToken = &token
		u.ResetTokenExpiry = &expiry
	})
	return err
}

func (r *UserRepository) ConsumeResetToken(_ context.Context, token string, now time.Time, passwordHash string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.matchReset(token, now)
	if u == nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	u.PasswordHash = passwordHash
	u.ResetToken = nil
	u.ResetTokenExpiry = nil
	u.UpdatedAt = r.now().UTC()
	return clone(u), nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.NotFound("user not found")
	}
	delete(r.byEmail, u.Email)
	delete(r.byID, id)
	return nil
}

func (r *UserRepository) update(id string, fn func(u *entity.User)) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.NotFound("user not found")
	}
	fn(u)
	u.UpdatedAt = r.now().UTC()
	return clone(u), nil
}

func matches(u *entity.User, f entity.UserFilter) bool {
	if f.Active != nil && u.IsActive != *f.Active {
		return false
	}
	switch f.Role {
	case entity.RoleAdmin:
		if !u.IsAdmin() {
			return false
		}
	case entity.RoleUser:
		if u.IsAdmin() {
			return false
		}
	}
	if f.CreatedSince != nil && u.CreatedAt.Before(*f.CreatedSince) {
		return false
	}
	if f.LastLoginSince != nil && u.LastLogin.Before(*f.LastLoginSince) {
		return false
	}
	return true
}

func clone(u *entity.User) *entity.User {
	c := *u
	c.Roles = append(entity.Roles(nil), u.Roles...)
	c.Preferences = clonePrefs(u.Preferences)
	if u.ResetToken != nil {
		t := *u.ResetToken
		c.ResetToken = &t
	}
	if u.ResetTokenExpiry != nil {
		e := *u.ResetTokenExpiry
		c.ResetTokenExpiry = &e
	}
	return &c
}

func clonePrefs(p entity.Preferences) entity.Preferences {
	c := entity.Preferences{
		Theme:              cp(p.Theme),
		EmailNotifications: cp(p.EmailNotifications),
		PushNotifications:  cp(p.PushNotifications),
		AvatarColor:        cp(p.AvatarColor),
		Bio:                cp(p.Bio),
		Location:           cp(p.Location),
		Website:            cp(p.Website),
	}
	if ps := p.PomodoroSettings; ps != nil {
		c.PomodoroSettings = &entity.PomodoroSettings{
			WorkDuration:           cp(ps.WorkDuration),
			ShortBreakDuration:     cp(ps.ShortBreakDuration),
			LongBreakDuration:      cp(ps.LongBreakDuration),
			SessionsUntilLongBreak: cp(ps.SessionsUntilLongBreak),
			AutoStartBreaks:        cp(ps.AutoStartBreaks),
			AutoStartPomodoros:     cp(ps.AutoStartPomodoros),
			SoundEnabled:           cp(ps.SoundEnabled),
			NotificationsEnabled:   cp(ps.NotificationsEnabled),
		}
	}
	if ts := p.TaskStats; ts != nil {
		c.TaskStats = &entity.TaskStats{
			Completed: cp(ts.Completed),
			Pending:   cp(ts.Pending),
			Lists:     cp(ts.Lists),
		}
	}
	return c
}

func cp[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
