package constants

const (
	// Engine Settings
	SettingStreakFactor    = "streak_factor"
	SettingNoneWeightFloor = "none_weight_floor"
	SettingNoneDecay       = "none_decay"
	SettingMaxAttempts     = "max_attempts"
	SettingLockTimeoutMs   = "lock_timeout_ms"
	SettingTimezone        = "timezone"

	// Default Settings Values
	//
	// The effort score is habit.weight * (1 + streak * DefaultStreakFactor).
	// The NONE reward's draw weight is max(floor, weight - decay*effort).
	DefaultStreakFactor    = 0.1
	DefaultNoneWeightFloor = 1.0
	DefaultNoneDecay       = 1.0
	DefaultLockTimeoutMs   = 5000
	DefaultTimezone        = "Local" // Use system local timezone by default
)
