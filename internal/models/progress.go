package models

import "time"

// ProgressStatus is derived from a RewardProgress row and never stored.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "PENDING"
	ProgressAchieved ProgressStatus = "ACHIEVED"
	ProgressClaimed  ProgressStatus = "CLAIMED"
)

// RewardProgress tracks a user's pieces toward one reward. PiecesRequired
// follows the reward's target on every grant until the row is claimed, and
// never drops below PiecesEarned.
type RewardProgress struct {
	UserID         string     `json:"user_id"`
	RewardID       string     `json:"reward_id"`
	PiecesEarned   int        `json:"pieces_earned"`
	PiecesRequired int        `json:"pieces_required"`
	Claimed        bool       `json:"claimed"`
	ClaimedAt      *time.Time `json:"claimed_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (p RewardProgress) Status() ProgressStatus {
	switch {
	case p.Claimed:
		return ProgressClaimed
	case p.PiecesEarned >= p.PiecesRequired:
		return ProgressAchieved
	default:
		return ProgressPending
	}
}
