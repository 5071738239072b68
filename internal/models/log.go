package models

import "time"

// HabitLog is one completion. Rows are append-only except for StreakCount,
// which is rewritten when a backdated completion lands earlier in the chain.
type HabitLog struct {
	ID                 string    `json:"id"`
	Seq                int64     `json:"seq"` // assigned by the store on insert
	UserID             string    `json:"user_id"`
	HabitID            string    `json:"habit_id"`
	CompletionDate     string    `json:"completion_date"` // YYYY-MM-DD the habit is credited to
	LoggedOn           string    `json:"logged_on"`       // YYYY-MM-DD the completion was submitted
	LoggedAt           time.Time `json:"logged_at"`
	StreakCount        int       `json:"streak_count"`
	HabitWeight        float64   `json:"habit_weight"`
	TotalWeightApplied float64   `json:"total_weight_applied"`
	RewardID           string    `json:"reward_id,omitempty"`
	GotReward          bool      `json:"got_reward"`
}

// Before orders logs by completion date and then insertion sequence.
func (l *HabitLog) Before(other *HabitLog) bool {
	if l.CompletionDate != other.CompletionDate {
		return l.CompletionDate < other.CompletionDate
	}
	return l.Seq < other.Seq
}
