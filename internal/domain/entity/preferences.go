package entity

// Preferences is stored on the user document. Every field is optional; the
// same shape doubles as a partial patch where nil means "not supplied".
type Preferences struct {
	Theme              *string           `json:"theme,omitempty" bson:"theme,omitempty"`
	EmailNotifications *bool             `json:"emailNotifications,omitempty" bson:"emailNotifications,omitempty"`
	PushNotifications  *bool             `json:"pushNotifications,omitempty" bson:"pushNotifications,omitempty"`
	AvatarColor        *string           `json:"avatarColor,omitempty" bson:"avatarColor,omitempty"`
	Bio                *string           `json:"bio,omitempty" bson:"bio,omitempty" binding:"omitempty,max=500"`
	Location           *string           `json:"location,omitempty" bson:"location,omitempty"`
	Website            *string           `json:"website,omitempty" bson:"website,omitempty" binding:"omitempty,max=200"`
	PomodoroSettings   *PomodoroSettings `json:"pomodoroSettings,omitempty" bson:"pomodoroSettings,omitempty"`
	TaskStats          *TaskStats        `json:"taskStats,omitempty" bson:"taskStats,omitempty"`
}

// PomodoroSettings durations are in minutes. Binding ranges apply to incoming patches.
type PomodoroSettings struct {
	WorkDuration           *int  `json:"workDuration,omitempty" bson:"workDuration,omitempty" binding:"omitempty,min=1,max=60"`
	ShortBreakDuration     *int  `json:"shortBreakDuration,omitempty" bson:"shortBreakDuration,omitempty" binding:"omitempty,min=1,max=30"`
	LongBreakDuration      *int  `json:"longBreakDuration,omitempty" bson:"longBreakDuration,omitempty" binding:"omitempty,min=1,max=120"`
	SessionsUntilLongBreak *int  `json:"sessionsUntilLongBreak,omitempty" bson:"sessionsUntilLongBreak,omitempty" binding:"omitempty,min=1,max=10"`
	AutoStartBreaks        *bool `json:"autoStartBreaks,omitempty" bson:"autoStartBreaks,omitempty"`
	AutoStartPomodoros     *bool `json:"autoStartPomodoros,omitempty" bson:"autoStartPomodoros,omitempty"`
	SoundEnabled           *bool `json:"soundEnabled,omitempty" bson:"soundEnabled,omitempty"`
	NotificationsEnabled   *bool `json:"notificationsEnabled,omitempty" bson:"notificationsEnabled,omitempty"`
}

type TaskStats struct {
	Completed *int `json:"completed,omitempty" bson:"completed,omitempty" binding:"omitempty,min=0"`
	Pending   *int `json:"pending,omitempty" bson:"pending,omitempty" binding:"omitempty,min=0"`
	Lists     *int `json:"lists,omitempty" bson:"lists,omitempty" binding:"omitempty,min=0"`
}

// Documented defaults applied when neither the patch nor the stored value has a subfield.
const (
	DefaultWorkDuration           = 25
	DefaultShortBreakDuration     = 5
	DefaultLongBreakDuration      = 15
	DefaultSessionsUntilLongBreak = 4
	DefaultAutoStartBreaks        = false
	DefaultAutoStartPomodoros     = false
	DefaultSoundEnabled           = true
	DefaultNotificationsEnabled   = true
)

// Ptr returns a pointer to v; handy for building preference values.
func Ptr[T any](v T) *T { return &v }
