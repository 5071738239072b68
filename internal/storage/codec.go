package storage

import (
	"fmt"
	"strconv"
	"time"

	"github.com/julianstephens/habitreward/internal/constants"
	"github.com/julianstephens/habitreward/internal/models"
)

// FormatTime renders a timestamp for a TEXT column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(constants.TimestampFormat)
}

// ParseTime reads a timestamp written by FormatTime. Plain RFC3339 values
// are accepted as well.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(constants.TimestampFormat, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// EncodeSettings flattens settings into settings-table rows.
func EncodeSettings(s models.Settings) map[string]string {
	return map[string]string{
		constants.SettingStreakFactor:    strconv.FormatFloat(s.StreakFactor, 'g', -1, 64),
		constants.SettingNoneWeightFloor: strconv.FormatFloat(s.NoneWeightFloor, 'g', -1, 64),
		constants.SettingNoneDecay:       strconv.FormatFloat(s.NoneDecay, 'g', -1, 64),
		constants.SettingMaxAttempts:     strconv.Itoa(s.MaxAttempts),
		constants.SettingLockTimeoutMs:   strconv.Itoa(s.LockTimeoutMs),
		constants.SettingTimezone:        s.Timezone,
	}
}

// DecodeSettings applies settings-table rows over the defaults. Unknown
// keys are ignored.
func DecodeSettings(rows map[string]string) (models.Settings, error) {
	settings := models.DefaultSettings()
	for key, value := range rows {
		var err error
		switch key {
		case constants.SettingStreakFactor:
			settings.StreakFactor, err = strconv.ParseFloat(value, 64)
		case constants.SettingNoneWeightFloor:
			settings.NoneWeightFloor, err = strconv.ParseFloat(value, 64)
		case constants.SettingNoneDecay:
			settings.NoneDecay, err = strconv.ParseFloat(value, 64)
		case constants.SettingMaxAttempts:
			settings.MaxAttempts, err = strconv.Atoi(value)
		case constants.SettingLockTimeoutMs:
			settings.LockTimeoutMs, err = strconv.Atoi(value)
		case constants.SettingTimezone:
			settings.Timezone = value
		}
		if err != nil {
			return models.Settings{}, fmt.Errorf("parsing %s: %w", key, err)
		}
	}
	return settings, nil
}

// SetSetting updates one field of settings by its key, as used by
// `settings set`.
func SetSetting(settings *models.Settings, key, value string) error {
	rows := EncodeSettings(*settings)
	if _, ok := rows[key]; !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	rows[key] = value
	updated, err := DecodeSettings(rows)
	if err != nil {
		return err
	}
	*settings = updated
	return nil
}
