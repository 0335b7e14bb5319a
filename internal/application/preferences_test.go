package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozyapp/cozyapp-api/internal/application"
	"github.com/cozyapp/cozyapp-api/internal/domain"
	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
)

var ptr = entity.Ptr[int]

func TestApplyPreferencePatch_PomodoroDefaults(t *testing.T) {
	existing := entity.Preferences{}
	patch := entity.Preferences{PomodoroSettings: &entity.PomodoroSettings{WorkDuration: ptr(50)}}

	out := application.ApplyPreferencePatch(existing, patch)
	require.NotNil(t, out.PomodoroSettings)
	ps := out.PomodoroSettings
	assert.Equal(t, 50, *ps.WorkDuration)
	assert.Equal(t, 5, *ps.ShortBreakDuration)
	assert.Equal(t, 15, *ps.LongBreakDuration)
	assert.Equal(t, 4, *ps.SessionsUntilLongBreak)
	assert.False(t, *ps.AutoStartBreaks)
	assert.False(t, *ps.AutoStartPomodoros)
	assert.True(t, *ps.SoundEnabled)
	assert.True(t, *ps.NotificationsEnabled)
}

func TestApplyPreferencePatch_ExistingBeatsDefault(t *testing.T) {
	existing := entity.Preferences{PomodoroSettings: &entity.PomodoroSettings{ShortBreakDuration: ptr(10), SoundEnabled: entity.Ptr(false)}}
	patch := entity.Preferences{PomodoroSettings: &entity.PomodoroSettings{WorkDuration: ptr(30)}}

	ps := application.ApplyPreferencePatch(existing, patch).PomodoroSettings
	assert.Equal(t, 30, *ps.WorkDuration)
	assert.Equal(t, 10, *ps.ShortBreakDuration)
	assert.False(t, *ps.SoundEnabled)
}

func TestApplyPreferencePatch_TaskStatsAndTopLevel(t *testing.T) {
	existing := entity.Preferences{
		Theme:     entity.Ptr("dark"),
		Bio:       entity.Ptr("hello"),
		TaskStats: &entity.TaskStats{Completed: ptr(3), Pending: ptr(2), Lists: ptr(1)},
	}
	patch := entity.Preferences{
		Theme:     entity.Ptr("light"),
		TaskStats: &entity.TaskStats{Completed: ptr(7)},
	}

	out := application.ApplyPreferencePatch(existing, patch)
	assert.Equal(t, "light", *out.Theme)
	assert.Equal(t, "hello", *out.Bio)
	assert.Nil(t, out.Website)
	assert.Equal(t, 7, *out.TaskStats.Completed)
	assert.Equal(t, 2, *out.TaskStats.Pending)
	assert.Equal(t, 1, *out.TaskStats.Lists)
}

func TestApplyPreferencePatch_TaskStatsDefaultZero(t *testing.T) {
	out := application.ApplyPreferencePatch(entity.Preferences{}, entity.Preferences{TaskStats: &entity.TaskStats{Pending: ptr(4)}})
	assert.Equal(t, 0, *out.TaskStats.Completed)
	assert.Equal(t, 4, *out.TaskStats.Pending)
	assert.Equal(t, 0, *out.TaskStats.Lists)
}

func TestApplyPreferencePatch_AbsentNestedObjectUntouched(t *testing.T) {
	existing := entity.Preferences{PomodoroSettings: &entity.PomodoroSettings{WorkDuration: ptr(40)}}
	out := application.ApplyPreferencePatch(existing, entity.Preferences{Theme: entity.Ptr("dark")})

	require.NotNil(t, out.PomodoroSettings)
	assert.Equal(t, 40, *out.PomodoroSettings.WorkDuration)
	assert.Nil(t, out.PomodoroSettings.ShortBreakDuration)
	assert.Nil(t, out.TaskStats)
}

func TestApplyPreferencePatch_DoesNotAlias(t *testing.T) {
	existing := entity.Preferences{Theme: entity.Ptr("dark"), PomodoroSettings: &entity.PomodoroSettings{WorkDuration: ptr(40)}}
	patch := entity.Preferences{Bio: entity.Ptr("bio")}

	out := application.ApplyPreferencePatch(existing, patch)
	*out.Theme = "changed"
	*out.Bio = "changed"
	*out.PomodoroSettings.WorkDuration = 1

	assert.Equal(t, "dark", *existing.Theme)
	assert.Equal(t, "bio", *patch.Bio)
	assert.Equal(t, 40, *existing.PomodoroSettings.WorkDuration)
	assert.NotSame(t, existing.PomodoroSettings, out.PomodoroSettings)
}

func TestApplyPreferencePatch_EmptyIsIdentity(t *testing.T) {
	existing := entity.Preferences{
		Theme:            entity.Ptr("dark"),
		PomodoroSettings: &entity.PomodoroSettings{WorkDuration: ptr(40)},
		TaskStats:        &entity.TaskStats{Completed: ptr(1)},
	}
	assert.Equal(t, existing, application.ApplyPreferencePatch(existing, entity.Preferences{}))
}

func TestUpdatePreferences(t *testing.T) {
	f := newFixture(t)
	f.expectWelcome()
	ctx := context.Background()
	id := f.register(t, "alice@example.com", "Alice", "Passw0rd!").User.ID

	u, err := f.svc.UpdatePreferences(ctx, id, entity.Preferences{Theme: entity.Ptr("dark"), PomodoroSettings: &entity.PomodoroSettings{WorkDuration: ptr(50)}})
	require.NoError(t, err)
	assert.Equal(t, "dark", *u.Preferences.Theme)
	assert.Equal(t, 50, *u.Preferences.PomodoroSettings.WorkDuration)
	assert.Equal(t, 5, *u.Preferences.PomodoroSettings.ShortBreakDuration)

	u, err = f.svc.UpdateTaskStats(ctx, id, entity.TaskStats{Completed: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, "dark", *u.Preferences.Theme)
	assert.Equal(t, 50, *u.Preferences.PomodoroSettings.WorkDuration)
	assert.Equal(t, 3, *u.Preferences.TaskStats.Completed)

	stored, err := f.repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, u.Preferences, stored.Preferences)
}

func TestUpdatePreferences_Validation(t *testing.T) {
	f := newFixture(t)
	f.expectWelcome()
	ctx := context.Background()
	id := f.register(t, "alice@example.com", "Alice", "Passw0rd!").User.ID

	_, err := f.svc.UpdatePreferences(ctx, id, entity.Preferences{PomodoroSettings: &entity.PomodoroSettings{WorkDuration: ptr(61)}})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "pomodoroSettings.workDuration", err.(*domain.Error).Field)

	_, err = f.svc.UpdateTaskStats(ctx, id, entity.TaskStats{Pending: ptr(-1)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.UpdatePreferences(ctx, "missing", entity.Preferences{Theme: entity.Ptr("dark")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
