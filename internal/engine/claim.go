package engine

import (
	"context"
	"errors"

	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/logger"
	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/storage"
)

// ClaimReward marks an achieved reward as claimed. It fails with
// *errors.NotAchievedError while pieces are missing and with
// *errors.AlreadyClaimedError on a repeat claim.
func (e *Engine) ClaimReward(ctx context.Context, userID, rewardIdentifier string) (*ClaimResult, error) {
	user, err := e.ResolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, apperrors.NewInactiveEntity("user", user.ExternalID)
	}
	reward, err := e.ResolveReward(ctx, rewardIdentifier)
	if err != nil {
		return nil, err
	}

	key := "claim|" + user.ID + "|" + reward.ID
	release, err := e.locks.acquire(ctx, key, e.cfg.LockTimeout)
	if err != nil {
		if errors.Is(err, errLockTimeout) {
			return nil, &apperrors.ConcurrencyConflictError{Key: key, Err: err}
		}
		return nil, err
	}
	defer release()

	var claimed models.RewardProgress
	err = e.store.WithTx(ctx, func(tx storage.Tx) error {
		if err := tx.LockUser(ctx, user.ID); err != nil {
			return err
		}
		p, err := e.progress.Claim(ctx, tx, user.ID, reward)
		if err != nil {
			return err
		}
		claimed = p
		return nil
	})
	if err != nil {
		logger.Debug("claim rejected", "user", user.ID, "reward", reward.Name, "error", err)
		return nil, err
	}

	logger.Info("reward claimed", "user", user.ID, "reward", reward.Name)
	return &ClaimResult{Reward: reward, Progress: claimed}, nil
}
