package models

import (
	"fmt"
	"time"
)

// Habit is a trackable activity. Weight is the effort coefficient fed into
// the reward draw.
type Habit struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Slug      string    `json:"slug" validate:"required"`
	Weight    float64   `json:"weight" validate:"gt=0"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Habit) Validate() error {
	if err := Validate(h); err != nil {
		return fmt.Errorf("invalid habit %q: %w", h.Name, err)
	}
	return nil
}

// User is the engine's view of a directory entry. Only Active is consulted
// by the completion flow.
type User struct {
	ID         string    `json:"id" validate:"required"`
	ExternalID string    `json:"external_id" validate:"required"`
	Name       string    `json:"name"`
	Locale     string    `json:"locale"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) Validate() error {
	if err := Validate(u); err != nil {
		return fmt.Errorf("invalid user %q: %w", u.ExternalID, err)
	}
	return nil
}
