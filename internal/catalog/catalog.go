// Package catalog loads habits and rewards from YAML seed files and upserts
// them by slug.
//
//	habits:
//	  - name: Morning Run
//	    weight: 10
//	rewards:
//	  - name: Nothing this time
//	    kind: none
//	    weight: 60
//	  - name: Movie night
//	    kind: real
//	    weight: 5
//	    cumulative: true
//	    pieces_required: 10
//	    piece_value: one ticket stub
package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/models"
)

type File struct {
	Habits  []HabitEntry  `yaml:"habits"`
	Rewards []RewardEntry `yaml:"rewards"`
}

type HabitEntry struct {
	Name   string  `yaml:"name"`
	Slug   string  `yaml:"slug,omitempty"`
	Weight float64 `yaml:"weight"`
	Active *bool   `yaml:"active,omitempty"`
}

type RewardEntry struct {
	Name           string  `yaml:"name"`
	Slug           string  `yaml:"slug,omitempty"`
	Kind           string  `yaml:"kind"`
	Weight         float64 `yaml:"weight"`
	Cumulative     bool    `yaml:"cumulative,omitempty"`
	PiecesRequired int     `yaml:"pieces_required,omitempty"`
	PieceValue     string  `yaml:"piece_value,omitempty"`
	SortOrder      int     `yaml:"sort_order,omitempty"`
	Active         *bool   `yaml:"active,omitempty"`
}

// Store is the subset of storage.Provider the importer writes through.
type Store interface {
	GetAllHabits(ctx context.Context, includeInactive bool) ([]models.Habit, error)
	AddHabit(ctx context.Context, habit models.Habit) error
	UpdateHabit(ctx context.Context, habit models.Habit) error
	GetAllRewards(ctx context.Context, includeInactive bool) ([]models.Reward, error)
	AddReward(ctx context.Context, reward models.Reward) error
	UpdateReward(ctx context.Context, reward models.Reward) error
}

// Summary counts what Apply wrote.
type Summary struct {
	HabitsAdded    int
	HabitsUpdated  int
	RewardsAdded   int
	RewardsUpdated int
}

// Parse decodes a catalog document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &f, nil
		}
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &f, nil
}

func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer fh.Close()
	return Parse(fh)
}

// Marshal renders the catalog back to YAML.
func Marshal(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}

// Export builds a File from stored entities.
func Export(habits []models.Habit, rewards []models.Reward) *File {
	f := &File{}
	for _, h := range habits {
		f.Habits = append(f.Habits, HabitEntry{
			Name:   h.Name,
			Slug:   h.Slug,
			Weight: h.Weight,
			Active: boolPtr(h.Active),
		})
	}
	for _, r := range rewards {
		e := RewardEntry{
			Name:       r.Name,
			Slug:       r.Slug,
			Kind:       string(r.Kind),
			Weight:     r.Weight,
			Cumulative: r.IsCumulative,
			PieceValue: r.PieceValue,
			SortOrder:  r.SortOrder,
			Active:     boolPtr(r.Active),
		}
		if r.IsCumulative {
			e.PiecesRequired = r.PiecesRequired
		}
		f.Rewards = append(f.Rewards, e)
	}
	return f
}

func boolPtr(b bool) *bool { return &b }

func active(p *bool) bool {
	return p == nil || *p
}

func slugFor(explicit, name string) string {
	if explicit != "" {
		return slug.Make(explicit)
	}
	return slug.Make(name)
}

// plan is the merged result of the file over the stored catalog.
type plan struct {
	habits      []models.Habit
	habitIsNew  []bool
	rewards     []models.Reward
	rewardIsNew []bool
}

// Apply upserts the file's habits and rewards by slug. Nothing is written
// unless every entry validates and the resulting active catalog still holds
// a NONE reward.
func Apply(ctx context.Context, store Store, f *File, now time.Time) (Summary, error) {
	p, err := build(ctx, store, f, now)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for i, h := range p.habits {
		if p.habitIsNew[i] {
			if err := store.AddHabit(ctx, h); err != nil {
				return sum, fmt.Errorf("failed to add habit %q: %w", h.Name, err)
			}
			sum.HabitsAdded++
			continue
		}
		if err := store.UpdateHabit(ctx, h); err != nil {
			return sum, fmt.Errorf("failed to update habit %q: %w", h.Name, err)
		}
		sum.HabitsUpdated++
	}
	for i, r := range p.rewards {
		if p.rewardIsNew[i] {
			if err := store.AddReward(ctx, r); err != nil {
				return sum, fmt.Errorf("failed to add reward %q: %w", r.Name, err)
			}
			sum.RewardsAdded++
			continue
		}
		if err := store.UpdateReward(ctx, r); err != nil {
			return sum, fmt.Errorf("failed to update reward %q: %w", r.Name, err)
		}
		sum.RewardsUpdated++
	}
	return sum, nil
}

func build(ctx context.Context, store Store, f *File, now time.Time) (*plan, error) {
	existingHabits, err := store.GetAllHabits(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load habits: %w", err)
	}
	existingRewards, err := store.GetAllRewards(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load rewards: %w", err)
	}

	habitsBySlug := make(map[string]models.Habit, len(existingHabits))
	for _, h := range existingHabits {
		habitsBySlug[h.Slug] = h
	}
	rewardsBySlug := make(map[string]models.Reward, len(existingRewards))
	for _, r := range existingRewards {
		rewardsBySlug[r.Slug] = r
	}

	p := &plan{}
	seen := make(map[string]bool)
	for _, e := range f.Habits {
		s := slugFor(e.Slug, e.Name)
		if seen[s] {
			return nil, fmt.Errorf("duplicate habit slug %q in catalog", s)
		}
		seen[s] = true

		h, ok := habitsBySlug[s]
		if !ok {
			h = models.Habit{ID: uuid.NewString(), Slug: s, CreatedAt: now}
		}
		h.Name = e.Name
		h.Weight = e.Weight
		h.Active = active(e.Active)
		if err := h.Validate(); err != nil {
			return nil, err
		}
		p.habits = append(p.habits, h)
		p.habitIsNew = append(p.habitIsNew, !ok)
	}

	seen = make(map[string]bool)
	for _, e := range f.Rewards {
		s := slugFor(e.Slug, e.Name)
		if seen[s] {
			return nil, fmt.Errorf("duplicate reward slug %q in catalog", s)
		}
		seen[s] = true

		kind, err := models.ParseRewardKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("reward %q: %w", e.Name, err)
		}
		r, ok := rewardsBySlug[s]
		if !ok {
			r = models.Reward{ID: uuid.NewString(), Slug: s, CreatedAt: now}
		}
		r.Name = e.Name
		r.Kind = kind
		r.Weight = e.Weight
		r.IsCumulative = e.Cumulative
		r.PiecesRequired = 1
		if e.Cumulative {
			r.PiecesRequired = e.PiecesRequired
		}
		r.PieceValue = e.PieceValue
		r.SortOrder = e.SortOrder
		r.Active = active(e.Active)
		if err := r.Validate(); err != nil {
			return nil, err
		}
		rewardsBySlug[s] = r
		p.rewards = append(p.rewards, r)
		p.rewardIsNew = append(p.rewardIsNew, !ok)
	}

	for _, r := range rewardsBySlug {
		if r.Active && r.IsNone() {
			return p, nil
		}
	}
	return nil, &apperrors.ConfigurationError{Message: "catalog has no active none reward"}
}
