// Package storagetest holds the behaviour every storage.Provider must share.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/storage"
)

// Factory returns an initialized, empty store. The suite closes it.
type Factory func(t *testing.T) storage.Provider

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Provider)
	}{
		{"Settings", testSettings},
		{"Users", testUsers},
		{"Habits", testHabits},
		{"Rewards", testRewards},
		{"LogChain", testLogChain},
		{"GrantedOn", testGrantedOn},
		{"Progress", testProgress},
		{"Rollback", testRollback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

// Seed inserts one active user and habit plus the given rewards.
func Seed(t *testing.T, s storage.Provider, rewards ...models.Reward) (models.User, models.Habit) {
	t.Helper()
	ctx := context.Background()
	user := models.User{ID: uuid.New().String(), ExternalID: "u-" + uuid.NewString()[:8], Name: "Ada", Active: true, CreatedAt: epoch}
	habit := models.Habit{ID: uuid.New().String(), Name: "Read", Slug: "read-" + uuid.NewString()[:8], Weight: 10, Active: true, CreatedAt: epoch}
	if err := s.AddUser(ctx, user); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}
	if err := s.AddHabit(ctx, habit); err != nil {
		t.Fatalf("AddHabit failed: %v", err)
	}
	for _, r := range rewards {
		if err := s.AddReward(ctx, r); err != nil {
			t.Fatalf("AddReward %s failed: %v", r.Name, err)
		}
	}
	return user, habit
}

// Reward builds an active reward with a fresh id.
func Reward(name string, kind models.RewardKind, weight float64, pieces int) models.Reward {
	return models.Reward{
		ID:             uuid.New().String(),
		Name:           name,
		Slug:           name,
		Weight:         weight,
		Kind:           kind,
		IsCumulative:   pieces > 1,
		PiecesRequired: max(pieces, 1),
		Active:         true,
		CreatedAt:      epoch,
	}
}

func testSettings(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	settings, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings != models.DefaultSettings() {
		t.Errorf("expected default settings, got %+v", settings)
	}

	settings.StreakFactor = 0.2
	settings.Timezone = "UTC"
	if err := s.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	updated, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if updated != settings {
		t.Errorf("got %+v, want %+v", updated, settings)
	}
}

func testUsers(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	user, _ := Seed(t, s)

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.ExternalID != user.ExternalID || !got.Active || !got.CreatedAt.Equal(epoch) {
		t.Errorf("unexpected user %+v", got)
	}

	byExt, err := s.GetUserByExternalID(ctx, user.ExternalID)
	if err != nil || byExt.ID != user.ID {
		t.Errorf("GetUserByExternalID = %+v, %v", byExt, err)
	}

	user.Active = false
	if err := s.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	got, _ = s.GetUser(ctx, user.ID)
	if got.Active {
		t.Error("user should be inactive after update")
	}

	all, err := s.GetAllUsers(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("GetAllUsers = %d users, %v", len(all), err)
	}

	if _, err := s.GetUser(ctx, "missing"); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func testHabits(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	_, habit := Seed(t, s)

	byName, err := s.GetHabitByName(ctx, "rEaD")
	if err != nil || byName.ID != habit.ID {
		t.Errorf("GetHabitByName case-insensitive = %+v, %v", byName, err)
	}
	bySlug, err := s.GetHabitBySlug(ctx, habit.Slug)
	if err != nil || bySlug.ID != habit.ID {
		t.Errorf("GetHabitBySlug = %+v, %v", bySlug, err)
	}
	if bySlug.Weight != 10 {
		t.Errorf("expected weight 10, got %v", bySlug.Weight)
	}

	habit.Active = false
	if err := s.UpdateHabit(ctx, habit); err != nil {
		t.Fatalf("UpdateHabit failed: %v", err)
	}
	active, err := s.GetAllHabits(ctx, false)
	if err != nil || len(active) != 0 {
		t.Errorf("expected no active habits, got %d (%v)", len(active), err)
	}
	all, err := s.GetAllHabits(ctx, true)
	if err != nil || len(all) != 1 {
		t.Errorf("expected 1 habit including inactive, got %d (%v)", len(all), err)
	}

	if _, err := s.GetHabitBySlug(ctx, "nope"); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func testRewards(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	none := Reward("none", models.RewardKindNone, 80, 1)
	none.SortOrder = 0
	coin := Reward("coin", models.RewardKindVirtual, 15, 10)
	coin.SortOrder = 1
	coin.PieceValue = "1 coin"
	movie := Reward("movie", models.RewardKindReal, 5, 1)
	movie.SortOrder = 1
	retired := Reward("retired", models.RewardKindReal, 5, 1)
	retired.Active = false
	Seed(t, s, movie, coin, none, retired)

	active, err := s.GetActiveRewards(ctx)
	if err != nil {
		t.Fatalf("GetActiveRewards failed: %v", err)
	}
	var names []string
	for _, r := range active {
		names = append(names, r.Name)
	}
	want := []string{"none", "coin", "movie"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}

	got, err := s.GetReward(ctx, coin.ID)
	if err != nil {
		t.Fatalf("GetReward failed: %v", err)
	}
	if got.Kind != models.RewardKindVirtual || !got.IsCumulative || got.PiecesRequired != 10 || got.PieceValue != "1 coin" {
		t.Errorf("unexpected reward %+v", got)
	}

	if r, err := s.GetRewardByName(ctx, "MOVIE"); err != nil || r.ID != movie.ID {
		t.Errorf("GetRewardByName = %+v, %v", r, err)
	}
	if r, err := s.GetRewardBySlug(ctx, "none"); err != nil || !r.IsNone() {
		t.Errorf("GetRewardBySlug = %+v, %v", r, err)
	}

	all, err := s.GetAllRewards(ctx, true)
	if err != nil || len(all) != 4 {
		t.Errorf("expected 4 rewards including inactive, got %d (%v)", len(all), err)
	}
}

func insert(t *testing.T, tx storage.Tx, user models.User, habit models.Habit, day string, streak int, reward *models.Reward) models.HabitLog {
	t.Helper()
	l := models.HabitLog{
		ID:                 uuid.New().String(),
		UserID:             user.ID,
		HabitID:            habit.ID,
		CompletionDate:     day,
		LoggedOn:           "2024-01-10",
		LoggedAt:           epoch,
		StreakCount:        streak,
		HabitWeight:        habit.Weight,
		TotalWeightApplied: habit.Weight,
	}
	if reward != nil {
		l.RewardID = reward.ID
		l.GotReward = !reward.IsNone()
	}
	saved, err := tx.InsertLog(context.Background(), l)
	if err != nil {
		t.Fatalf("InsertLog failed: %v", err)
	}
	if saved.Seq == 0 {
		t.Fatal("InsertLog should assign a sequence")
	}
	return saved
}

func testLogChain(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	user, habit := Seed(t, s)

	var second models.HabitLog
	err := s.WithTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.PriorLog(ctx, user.ID, habit.ID, "2024-01-05"); !apperrors.IsNotFound(err) {
			t.Errorf("expected not found for empty chain, got %v", err)
		}
		insert(t, tx, user, habit, "2024-01-01", 1, nil)
		insert(t, tx, user, habit, "2024-01-03", 1, nil)
		second = insert(t, tx, user, habit, "2024-01-03", 1, nil)
		insert(t, tx, user, habit, "2024-01-04", 2, nil)

		prior, err := tx.PriorLog(ctx, user.ID, habit.ID, "2024-01-03")
		if err != nil {
			return err
		}
		if prior.ID != second.ID {
			t.Errorf("PriorLog should pick the latest same-day log, got seq %d", prior.Seq)
		}

		after, err := tx.LogsAfter(ctx, user.ID, habit.ID, "2024-01-01")
		if err != nil {
			return err
		}
		if len(after) != 3 || after[0].CompletionDate != "2024-01-03" || after[2].CompletionDate != "2024-01-04" {
			t.Errorf("unexpected LogsAfter %+v", after)
		}
		if after[0].Seq > after[1].Seq {
			t.Error("same-day logs should be ordered by sequence")
		}

		return tx.UpdateLogStreak(ctx, second.ID, 7)
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	logs, err := s.GetHabitLogs(ctx, user.ID, habit.ID)
	if err != nil {
		t.Fatalf("GetHabitLogs failed: %v", err)
	}
	if len(logs) != 4 {
		t.Fatalf("expected 4 logs, got %d", len(logs))
	}
	if logs[2].ID != second.ID || logs[2].StreakCount != 7 {
		t.Errorf("streak update not persisted: %+v", logs[2])
	}
	if err := s.WithTx(ctx, func(tx storage.Tx) error {
		return tx.UpdateLogStreak(ctx, "missing", 1)
	}); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found updating a missing log, got %v", err)
	}
}

func testGrantedOn(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	none := Reward("none", models.RewardKindNone, 80, 1)
	movie := Reward("movie", models.RewardKindReal, 5, 1)
	user, habit := Seed(t, s, none, movie)

	err := s.WithTx(ctx, func(tx storage.Tx) error {
		insert(t, tx, user, habit, "2024-01-08", 1, &none)
		insert(t, tx, user, habit, "2024-01-09", 2, &movie)

		granted, err := tx.GrantedOn(ctx, user.ID, "2024-01-10")
		if err != nil {
			return err
		}
		if len(granted) != 1 || !granted[movie.ID] {
			t.Errorf("expected only movie granted, got %v", granted)
		}

		other, err := tx.GrantedOn(ctx, user.ID, "2024-01-11")
		if err != nil {
			return err
		}
		if len(other) != 0 {
			t.Errorf("expected nothing granted on another day, got %v", other)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}
}

func testProgress(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	coin := Reward("coin", models.RewardKindVirtual, 15, 10)
	user, habit := Seed(t, s, coin)

	claimedAt := epoch.Add(time.Hour)
	err := s.WithTx(ctx, func(tx storage.Tx) error {
		// Completions take both locks in this order.
		if err := tx.LockCompletion(ctx, user.ID, habit.ID); err != nil {
			return err
		}
		if err := tx.LockUser(ctx, user.ID); err != nil {
			return err
		}
		if _, err := tx.GetProgress(ctx, user.ID, coin.ID); !apperrors.IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
		p := models.RewardProgress{UserID: user.ID, RewardID: coin.ID, PiecesEarned: 1, PiecesRequired: 10, UpdatedAt: epoch}
		if err := tx.SaveProgress(ctx, p); err != nil {
			return err
		}
		got, err := tx.GetProgress(ctx, user.ID, coin.ID)
		if err != nil {
			return err
		}
		if got.PiecesEarned != 1 {
			t.Errorf("expected the uncommitted row inside the tx, got %+v", got)
		}
		p.PiecesEarned = 10
		p.Claimed = true
		p.ClaimedAt = &claimedAt
		return tx.SaveProgress(ctx, p)
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	all, err := s.GetAllProgress(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetAllProgress failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 progress row, got %d", len(all))
	}
	p := all[0]
	if p.Status() != models.ProgressClaimed || p.ClaimedAt == nil || !p.ClaimedAt.Equal(claimedAt) {
		t.Errorf("unexpected progress %+v", p)
	}
}

func testRollback(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	coin := Reward("coin", models.RewardKindVirtual, 15, 10)
	user, habit := Seed(t, s, coin)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx storage.Tx) error {
		insert(t, tx, user, habit, "2024-01-01", 1, &coin)
		if err := tx.SaveProgress(ctx, models.RewardProgress{UserID: user.ID, RewardID: coin.ID, PiecesEarned: 1, PiecesRequired: 10, UpdatedAt: epoch}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	logs, err := s.GetHabitLogs(ctx, user.ID, habit.ID)
	if err != nil {
		t.Fatalf("GetHabitLogs failed: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("expected no logs after rollback, got %d", len(logs))
	}
	progress, err := s.GetAllProgress(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetAllProgress failed: %v", err)
	}
	if len(progress) != 0 {
		t.Errorf("expected no progress after rollback, got %d", len(progress))
	}
}
