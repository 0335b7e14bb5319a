package application

import (
	"context"

	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
)

// ApplyPreferencePatch merges patch into existing and returns a new value that
// shares no pointers with either input.
//
// Top-level fields present in patch overwrite, absent ones are kept. A nested
// object present in patch is merged per subfield as patch, then existing, then
// the documented default; an absent nested object is kept as it was.
func ApplyPreferencePatch(existing, patch entity.Preferences) entity.Preferences {
	out := entity.Preferences{
		Theme:              pick(patch.Theme, existing.Theme),
		EmailNotifications: pick(patch.EmailNotifications, existing.EmailNotifications),
		PushNotifications:  pick(patch.PushNotifications, existing.PushNotifications),
		AvatarColor:        pick(patch.AvatarColor, existing.AvatarColor),
		Bio:                pick(patch.Bio, existing.Bio),
		Location:           pick(patch.Location, existing.Location),
		Website:            pick(patch.Website, existing.Website),
		PomodoroSettings:   mergePomodoro(existing.PomodoroSettings, patch.PomodoroSettings),
		TaskStats:          mergeTaskStats(existing.TaskStats, patch.TaskStats),
	}
	return out
}

func mergePomodoro(existing, patch *entity.PomodoroSettings) *entity.PomodoroSettings {
	if existing == nil && patch == nil {
		return nil
	}
	if existing == nil {
		existing = &entity.PomodoroSettings{}
	}
	if patch == nil {
		return &entity.PomodoroSettings{
			WorkDuration:           pick(nil, existing.WorkDuration),
			ShortBreakDuration:     pick(nil, existing.ShortBreakDuration),
			LongBreakDuration:      pick(nil, existing.LongBreakDuration),
			SessionsUntilLongBreak: pick(nil, existing.SessionsUntilLongBreak),
			AutoStartBreaks:        pick(nil, existing.AutoStartBreaks),
			AutoStartPomodoros:     pick(nil, existing.AutoStartPomodoros),
			SoundEnabled:           pick(nil, existing.SoundEnabled),
			NotificationsEnabled:   pick(nil, existing.NotificationsEnabled),
		}
	}
	return &entity.PomodoroSettings{
		WorkDuration:           pickOr(patch.WorkDuration, existing.WorkDuration, entity.DefaultWorkDuration),
		ShortBreakDuration:     pickOr(patch.ShortBreakDuration, existing.ShortBreakDuration, entity.DefaultShortBreakDuration),
		LongBreakDuration:      pickOr(patch.LongBreakDuration, existing.LongBreakDuration, entity.DefaultLongBreakDuration),
		SessionsUntilLongBreak: pickOr(patch.SessionsUntilLongBreak, existing.SessionsUntilLongBreak, entity.DefaultSessionsUntilLongBreak),
		AutoStartBreaks:        pickOr(patch.AutoStartBreaks, existing.AutoStartBreaks, entity.DefaultAutoStartBreaks),
		AutoStartPomodoros:     pickOr(patch.AutoStartPomodoros, existing.AutoStartPomodoros, entity.DefaultAutoStartPomodoros),
		SoundEnabled:           pickOr(patch.SoundEnabled, existing.SoundEnabled, entity.DefaultSoundEnabled),
		NotificationsEnabled:   pickOr(patch.NotificationsEnabled, existing.NotificationsEnabled, entity.DefaultNotificationsEnabled),
	}
}

func mergeTaskStats(existing, patch *entity.TaskStats) *entity.TaskStats {
	if existing == nil && patch == nil {
		return nil
	}
	if existing == nil {
		existing = &entity.TaskStats{}
	}
	if patch == nil {
		return &entity.TaskStats{
			Completed: pick(nil, existing.Completed),
			Pending:   pick(nil, existing.Pending),
			Lists:     pick(nil, existing.Lists),
		}
	}
	return &entity.TaskStats{
		Completed: pickOr(patch.Completed, existing.Completed, 0),
		Pending:   pickOr(patch.Pending, existing.Pending, 0),
		Lists:     pickOr(patch.Lists, existing.Lists, 0),
	}
}

// pick returns a copy of the first non-nil value, or nil.
func pick[T any](patch, existing *T) *T {
	switch {
	case patch != nil:
		v := *patch
		return &v
	case existing != nil:
		v := *existing
		return &v
	}
	return nil
}

func pickOr[T any](patch, existing *T, def T) *T {
	if v := pick(patch, existing); v != nil {
		return v
	}
	return &def
}

// UpdatePreferences merges patch into the stored preferences and writes the
// whole preferences object back in one update.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, patch entity.Preferences) (*entity.User, error) {
	if err := validate(patch); err != nil {
		return nil, err
	}
	u, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	merged := ApplyPreferencePatch(u.Preferences, patch)
	return s.Repo.SetPreferences(ctx, userID, merged)
}

// UpdateTaskStats merges counters into preferences.taskStats.
func (s *Service) UpdateTaskStats(ctx context.Context, userID string, stats entity.TaskStats) (*entity.User, error) {
	return s.UpdatePreferences(ctx, userID, entity.Preferences{TaskStats: &stats})
}
