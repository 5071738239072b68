// Package progress advances per-(user, reward) piece counters.
//
// Every non-NONE reward runs the same PENDING -> ACHIEVED -> CLAIMED machine;
// a non-cumulative reward is a cumulative one that needs a single piece.
// Status is always derived from the stored counters, see
// models.RewardProgress.Status.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/habitreward/internal/clock"
	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/models"
)

// Store is the slice of the transactional store the updater needs.
type Store interface {
	GetProgress(ctx context.Context, userID, rewardID string) (models.RewardProgress, error)
	SaveProgress(ctx context.Context, p models.RewardProgress) error
}

// Advance applies one grant of reward. A nil existing row starts a new one.
// Unclaimed rows take the reward's current target, never lower than the
// pieces already earned. Claimed rows are frozen and returned unchanged; the
// second return value reports whether the row needs to be written.
func Advance(existing *models.RewardProgress, reward models.Reward, userID string, now time.Time) (models.RewardProgress, bool) {
	var p models.RewardProgress
	if existing != nil {
		p = *existing
	} else {
		p = models.RewardProgress{UserID: userID, RewardID: reward.ID}
	}

	if p.Claimed {
		return p, false
	}

	changed := existing == nil
	if required := max(reward.RequiredPieces(), p.PiecesEarned); required != p.PiecesRequired {
		p.PiecesRequired = required
		changed = true
	}
	// Achieved rows clamp at the target.
	if p.PiecesEarned < p.PiecesRequired {
		p.PiecesEarned++
		changed = true
	}
	if changed {
		p.UpdatedAt = now
	}
	return p, changed
}

// Transition claims an achieved row.
func Transition(existing *models.RewardProgress, reward models.Reward, now time.Time) (models.RewardProgress, error) {
	if existing == nil {
		return models.RewardProgress{}, &apperrors.NotAchievedError{
			RewardID:       reward.ID,
			PiecesRequired: reward.RequiredPieces(),
		}
	}
	p := *existing
	if p.Claimed {
		return p, &apperrors.AlreadyClaimedError{RewardID: reward.ID}
	}
	if p.PiecesEarned < p.PiecesRequired {
		return p, &apperrors.NotAchievedError{
			RewardID:       reward.ID,
			PiecesEarned:   p.PiecesEarned,
			PiecesRequired: p.PiecesRequired,
		}
	}
	p.Claimed = true
	p.ClaimedAt = &now
	p.UpdatedAt = now
	return p, nil
}

// Updater persists grants and claims through a Store.
type Updater struct {
	Clock clock.Clock
}

// Grant records one piece of reward for userID. NONE rewards never touch
// the store and return nil.
func (u *Updater) Grant(ctx context.Context, store Store, userID string, reward models.Reward) (*models.RewardProgress, error) {
	if reward.IsNone() {
		return nil, nil
	}

	existing, err := load(ctx, store, userID, reward.ID)
	if err != nil {
		return nil, err
	}

	p, changed := Advance(existing, reward, userID, u.Clock.Now())
	if changed {
		if err := store.SaveProgress(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to save progress for reward %s: %w", reward.ID, err)
		}
	}
	return &p, nil
}

// Claim moves an achieved reward to claimed.
func (u *Updater) Claim(ctx context.Context, store Store, userID string, reward models.Reward) (models.RewardProgress, error) {
	existing, err := load(ctx, store, userID, reward.ID)
	if err != nil {
		return models.RewardProgress{}, err
	}

	p, err := Transition(existing, reward, u.Clock.Now())
	if err != nil {
		return p, err
	}
	if err := store.SaveProgress(ctx, p); err != nil {
		return models.RewardProgress{}, fmt.Errorf("failed to save claim for reward %s: %w", reward.ID, err)
	}
	return p, nil
}

func load(ctx context.Context, store Store, userID, rewardID string) (*models.RewardProgress, error) {
	p, err := store.GetProgress(ctx, userID, rewardID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load progress for reward %s: %w", rewardID, err)
	}
	return &p, nil
}
