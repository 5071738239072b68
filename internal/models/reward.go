package models

import (
	"fmt"
	"strings"
	"time"
)

// RewardKind classifies what a grant hands out.
type RewardKind string

const (
	// RewardKindNone is the explicit "no reward this time" outcome.
	RewardKindNone    RewardKind = "none"
	RewardKindVirtual RewardKind = "virtual"
	RewardKindReal    RewardKind = "real"
)

// ParseRewardKind accepts the persisted lowercase form and the uppercase
// catalog spelling.
func ParseRewardKind(s string) (RewardKind, error) {
	switch RewardKind(strings.ToLower(strings.TrimSpace(s))) {
	case RewardKindNone:
		return RewardKindNone, nil
	case RewardKindVirtual:
		return RewardKindVirtual, nil
	case RewardKindReal:
		return RewardKindReal, nil
	}
	return "", fmt.Errorf("unknown reward kind %q (expected none, virtual or real)", s)
}

type Reward struct {
	ID             string     `json:"id" validate:"required"`
	Name           string     `json:"name" validate:"required"`
	Slug           string     `json:"slug" validate:"required"`
	Weight         float64    `json:"weight" validate:"gt=0"`
	Kind           RewardKind `json:"kind" validate:"oneof=none virtual real"`
	IsCumulative   bool       `json:"is_cumulative"`
	PiecesRequired int        `json:"pieces_required" validate:"min=1"`
	PieceValue     string     `json:"piece_value,omitempty"`
	SortOrder      int        `json:"sort_order"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (r *Reward) Validate() error {
	if err := Validate(r); err != nil {
		return fmt.Errorf("invalid reward %q: %w", r.Name, err)
	}
	if r.Kind == RewardKindNone && r.IsCumulative {
		return fmt.Errorf("invalid reward %q: a none reward cannot be cumulative", r.Name)
	}
	return nil
}

// IsNone reports whether the reward is the "no reward" outcome.
func (r *Reward) IsNone() bool {
	return r.Kind == RewardKindNone
}

// RequiredPieces is the number of grants needed before the reward can be
// claimed. Non-cumulative rewards complete on a single grant.
func (r *Reward) RequiredPieces() int {
	if !r.IsCumulative || r.PiecesRequired < 1 {
		return 1
	}
	return r.PiecesRequired
}

// Regrantable reports whether the reward may be drawn more than once per
// user per day.
func (r *Reward) Regrantable() bool {
	return r.IsNone() || r.IsCumulative
}
