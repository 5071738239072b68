package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/habitreward/internal/clock"
	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/selector"
	"github.com/julianstephens/habitreward/internal/storage"
	"github.com/julianstephens/habitreward/internal/storage/memory"
	"github.com/julianstephens/habitreward/internal/storage/storagetest"
	"github.com/julianstephens/habitreward/internal/streak"
)

// firstPick makes every draw land on the first candidate in catalog order.
type firstPick struct{}

func (firstPick) Uint64() uint64 { return 0 }

type fixture struct {
	engine *Engine
	store  *memory.Store
	clock  *clock.Fixed
	user   models.User
	habit  models.Habit
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.LockTimeout = time.Second
	cfg.Location = time.UTC
	return cfg
}

func setup(t *testing.T, rewards ...models.Reward) *fixture {
	t.Helper()
	store := memory.New()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	user, habit := storagetest.Seed(t, store, rewards...)
	clk := clock.AtDay("2024-01-10")
	cfg := testConfig()
	sel := selector.New(rand.New(firstPick{}), cfg.SelectorConfig())
	return &fixture{
		engine: New(store, sel, clk, cfg),
		store:  store,
		clock:  clk,
		user:   user,
		habit:  habit,
	}
}

func noneReward() models.Reward {
	r := storagetest.Reward("none", models.RewardKindNone, 80, 1)
	r.SortOrder = -1
	return r
}

func (f *fixture) complete(t *testing.T, date string) *CompletionResult {
	t.Helper()
	res, err := f.engine.CompleteHabit(context.Background(), CompleteRequest{UserID: f.user.ID, Habit: f.habit.ID, TargetDate: date})
	if err != nil {
		t.Fatalf("CompleteHabit(%q) failed: %v", date, err)
	}
	return res
}

func (f *fixture) logs(t *testing.T) []models.HabitLog {
	t.Helper()
	logs, err := f.store.GetHabitLogs(context.Background(), f.user.ID, f.habit.ID)
	if err != nil {
		t.Fatalf("GetHabitLogs failed: %v", err)
	}
	return logs
}

func TestCompleteHabit_FirstCompletion(t *testing.T) {
	f := setup(t, noneReward())
	res := f.complete(t, "")

	if !res.Confirmed || res.HabitName != "Read" || res.CompletionDate != "2024-01-10" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Streak != 1 {
		t.Errorf("expected streak 1, got %d", res.Streak)
	}
	if res.EffortScore != 11.0 {
		t.Errorf("expected effort 11.0, got %v", res.EffortScore)
	}
	if res.GotReward || res.Reward != nil || res.Progress != nil {
		t.Errorf("NONE draw should report no reward: %+v", res)
	}

	logs := f.logs(t)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	l := logs[0]
	if l.StreakCount != 1 || l.HabitWeight != 10 || l.TotalWeightApplied != 11.0 || l.GotReward || l.LoggedOn != "2024-01-10" {
		t.Errorf("unexpected log %+v", l)
	}
	progress, _ := f.store.GetAllProgress(context.Background(), f.user.ID)
	if len(progress) != 0 {
		t.Errorf("NONE grant must not touch progress, got %d rows", len(progress))
	}
}

func TestCompleteHabit_StreakSequence(t *testing.T) {
	f := setup(t, noneReward())
	days := []struct {
		day  string
		want int
	}{
		{"2024-01-01", 1},
		{"2024-01-02", 2},
		{"2024-01-03", 3},
		{"2024-01-04", 4},
		{"2024-01-05", 5},
		// 6 and 7 skipped
		{"2024-01-08", 1},
		{"2024-01-09", 2},
	}
	for _, d := range days {
		f.clock.Set(clock.AtDay(d.day).Now())
		res := f.complete(t, "")
		if res.Streak != d.want {
			t.Errorf("day %s: expected streak %d, got %d", d.day, d.want, res.Streak)
		}
		if res.Backdated {
			t.Errorf("day %s should not be backdated", d.day)
		}
	}
	if u, err := streak.Check(f.logs(t)); err != nil || u != nil {
		t.Errorf("chain inconsistent: %+v, %v", u, err)
	}
}

func TestCompleteHabit_SameDayRelog(t *testing.T) {
	f := setup(t, noneReward())
	f.complete(t, "2024-01-09")
	first := f.complete(t, "")
	second := f.complete(t, "")

	if first.Streak != 2 || second.Streak != 2 {
		t.Errorf("same-day relog should keep streak 2, got %d then %d", first.Streak, second.Streak)
	}
	if got := len(f.logs(t)); got != 3 {
		t.Errorf("expected 3 logs, got %d", got)
	}
}

func TestCompleteHabit_BackdatePropagates(t *testing.T) {
	f := setup(t, noneReward())
	f.clock.Set(clock.AtDay("2024-01-12").Now())

	f.complete(t, "2024-01-09")
	f.complete(t, "2024-01-10")
	today := f.complete(t, "")
	if today.Streak != 1 {
		t.Fatalf("expected streak 1 after a gap, got %d", today.Streak)
	}

	// Filling the 11th joins the two runs: 9,10,11,12 -> 1,2,3,4.
	res := f.complete(t, "2024-01-11")
	if res.Streak != 3 || !res.Backdated {
		t.Errorf("expected backdated streak 3, got %+v", res)
	}
	if len(res.RecomputedLogs) != 1 {
		t.Fatalf("expected one recomputed log, got %+v", res.RecomputedLogs)
	}
	u := res.RecomputedLogs[0]
	if u.LogID != today.LogID || u.Old != 1 || u.New != 4 {
		t.Errorf("unexpected update %+v", u)
	}

	logs := f.logs(t)
	var streaks []int
	for _, l := range logs {
		streaks = append(streaks, l.StreakCount)
	}
	want := []int{1, 2, 3, 4}
	for i := range want {
		if streaks[i] != want[i] {
			t.Fatalf("streaks = %v, want %v", streaks, want)
		}
	}
	if u, err := streak.Check(logs); err != nil || u != nil {
		t.Errorf("chain inconsistent after backdate: %+v, %v", u, err)
	}
}

func TestCompleteHabit_BackdateBreaksNothingWhenChainHolds(t *testing.T) {
	f := setup(t, noneReward())
	f.complete(t, "2024-01-09")
	f.complete(t, "")

	// A second entry on the 9th changes no later streak.
	res := f.complete(t, "2024-01-09")
	if res.Streak != 1 || len(res.RecomputedLogs) != 0 {
		t.Errorf("expected no recomputation, got %+v", res)
	}
}

func TestCompleteHabit_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(t *testing.T, f *fixture) CompleteRequest
		reason apperrors.ValidationReason
	}{
		{
			name: "inactive user",
			modify: func(t *testing.T, f *fixture) CompleteRequest {
				f.user.Active = false
				if err := f.store.UpdateUser(context.Background(), f.user); err != nil {
					t.Fatal(err)
				}
				return CompleteRequest{UserID: f.user.ID, Habit: f.habit.ID}
			},
			reason: apperrors.ReasonInactiveUser,
		},
		{
			name: "inactive habit",
			modify: func(t *testing.T, f *fixture) CompleteRequest {
				f.habit.Active = false
				if err := f.store.UpdateHabit(context.Background(), f.habit); err != nil {
					t.Fatal(err)
				}
				return CompleteRequest{UserID: f.user.ID, Habit: f.habit.ID}
			},
			reason: apperrors.ReasonInactiveHabit,
		},
		{
			name: "unknown user",
			modify: func(t *testing.T, f *fixture) CompleteRequest {
				return CompleteRequest{UserID: "ghost", Habit: f.habit.ID}
			},
			reason: apperrors.ReasonUnknownUser,
		},
		{
			name: "unknown habit",
			modify: func(t *testing.T, f *fixture) CompleteRequest {
				return CompleteRequest{UserID: f.user.ID, Habit: "juggle"}
			},
			reason: apperrors.ReasonUnknownHabit,
		},
		{
			name: "fuzzy no match",
			modify: func(t *testing.T, f *fixture) CompleteRequest {
				return CompleteRequest{UserID: f.user.ID, Habit: "juggle", Fuzzy: true}
			},
			reason: apperrors.ReasonNoMatch,
		},
		{
			name: "future date",
			modify: func(t *testing.T, f *fixture) CompleteRequest {
				return CompleteRequest{UserID: f.user.ID, Habit: f.habit.ID, TargetDate: "2024-01-11"}
			},
			reason: apperrors.ReasonFutureDate,
		},
		{
			name: "malformed date",
			modify: func(t *testing.T, f *fixture) CompleteRequest {
				return CompleteRequest{UserID: f.user.ID, Habit: f.habit.ID, TargetDate: "10/01/2024"}
			},
			reason: apperrors.ReasonInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, noneReward())
			req := tt.modify(t, f)
			_, err := f.engine.CompleteHabit(context.Background(), req)
			var ve *apperrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Reason != tt.reason {
				t.Errorf("expected reason %s, got %s", tt.reason, ve.Reason)
			}
			if got := len(f.logs(t)); got != 0 {
				t.Errorf("rejected completion wrote %d logs", got)
			}
		})
	}
}

func TestCompleteHabit_ResolvesByNameSlugAndExternalID(t *testing.T) {
	f := setup(t, noneReward())
	ctx := context.Background()
	for _, req := range []CompleteRequest{
		{UserID: f.user.ExternalID, Habit: "read"},
		{UserID: f.user.ID, Habit: f.habit.Slug},
		{UserID: f.user.ID, Habit: "rd", Fuzzy: true},
	} {
		res, err := f.engine.CompleteHabit(ctx, req)
		if err != nil {
			t.Fatalf("CompleteHabit(%+v) failed: %v", req, err)
		}
		if res.HabitID != f.habit.ID {
			t.Errorf("resolved %q to %s", req.Habit, res.HabitID)
		}
	}
}

func TestCompleteHabit_ConfigurationErrors(t *testing.T) {
	t.Run("empty catalog", func(t *testing.T) {
		f := setup(t)
		_, err := f.engine.CompleteHabit(context.Background(), CompleteRequest{UserID: f.user.ID, Habit: f.habit.ID})
		if !apperrors.IsConfiguration(err) {
			t.Fatalf("expected ConfigurationError, got %v", err)
		}
	})

	t.Run("single-shot exhausted without NONE", func(t *testing.T) {
		f := setup(t, storagetest.Reward("movie", models.RewardKindReal, 5, 1))
		first := f.complete(t, "")
		if !first.GotReward || first.Reward.Name != "movie" {
			t.Fatalf("expected movie, got %+v", first)
		}
		_, err := f.engine.CompleteHabit(context.Background(), CompleteRequest{UserID: f.user.ID, Habit: f.habit.ID})
		if !apperrors.IsConfiguration(err) {
			t.Fatalf("expected ConfigurationError, got %v", err)
		}
		if got := len(f.logs(t)); got != 1 {
			t.Errorf("failed completion must not persist, got %d logs", got)
		}
	})
}

func TestCompleteHabit_SingleShotRewardOncePerDay(t *testing.T) {
	movie := storagetest.Reward("movie", models.RewardKindReal, 5, 1)
	movie.SortOrder = -2
	f := setup(t, movie, noneReward())

	first := f.complete(t, "")
	if !first.GotReward || first.Reward.ID != movie.ID {
		t.Fatalf("expected movie first, got %+v", first)
	}
	second := f.complete(t, "")
	if second.GotReward {
		t.Errorf("movie must not be granted twice on one day, got %+v", second.Reward)
	}

	// A new day makes it eligible again.
	f.clock.Advance(24 * time.Hour)
	third := f.complete(t, "")
	if !third.GotReward || third.Reward.ID != movie.ID {
		t.Errorf("expected movie on the next day, got %+v", third)
	}
}

func TestCompleteHabit_CumulativeToClaim(t *testing.T) {
	coin := storagetest.Reward("coin", models.RewardKindVirtual, 15, 10)
	coin.SortOrder = -2
	f := setup(t, coin, noneReward())
	ctx := context.Background()

	for i := 1; i <= 9; i++ {
		res := f.complete(t, "")
		if res.Progress == nil || res.Progress.PiecesEarned != i {
			t.Fatalf("grant %d: unexpected progress %+v", i, res.Progress)
		}
		if res.Progress.Status() != models.ProgressPending {
			t.Fatalf("grant %d: expected PENDING, got %s", i, res.Progress.Status())
		}
	}
	res := f.complete(t, "")
	if res.Progress.PiecesEarned != 10 {
		t.Fatalf("unexpected progress %+v", res.Progress)
	}
	if res.Progress.Status() != models.ProgressAchieved {
		t.Errorf("10th grant should achieve, got %s", res.Progress.Status())
	}

	claim, err := f.engine.ClaimReward(ctx, f.user.ID, "coin")
	if err != nil {
		t.Fatalf("ClaimReward failed: %v", err)
	}
	if claim.Progress.Status() != models.ProgressClaimed || claim.Progress.ClaimedAt == nil {
		t.Errorf("expected claimed progress, got %+v", claim.Progress)
	}

	if _, err := f.engine.ClaimReward(ctx, f.user.ID, coin.ID); !apperrors.IsAlreadyClaimed(err) {
		t.Errorf("expected AlreadyClaimedError, got %v", err)
	}

	// Grants after the claim leave the claimed row alone.
	after := f.complete(t, "")
	if after.Progress == nil || after.Progress.Status() != models.ProgressClaimed || after.Progress.PiecesEarned != 10 {
		t.Errorf("claimed progress should be frozen, got %+v", after.Progress)
	}
}

func TestClaimReward_Errors(t *testing.T) {
	coin := storagetest.Reward("coin", models.RewardKindVirtual, 15, 10)
	coin.SortOrder = -2
	f := setup(t, coin, noneReward())
	ctx := context.Background()

	if _, err := f.engine.ClaimReward(ctx, f.user.ID, "coin"); !apperrors.IsNotAchieved(err) {
		t.Errorf("expected NotAchievedError before any grant, got %v", err)
	}
	f.complete(t, "")
	var na *apperrors.NotAchievedError
	if _, err := f.engine.ClaimReward(ctx, f.user.ID, "coin"); !errors.As(err, &na) || na.PiecesEarned != 1 || na.PiecesRequired != 10 {
		t.Errorf("expected NotAchievedError 1/10, got %v", err)
	}
	if _, err := f.engine.ClaimReward(ctx, f.user.ID, "bicycle"); !apperrors.IsValidation(err) {
		t.Errorf("expected ValidationError for unknown reward, got %v", err)
	}
	if _, err := f.engine.ClaimReward(ctx, "ghost", "coin"); !apperrors.IsValidation(err) {
		t.Errorf("expected ValidationError for unknown user, got %v", err)
	}
}

func TestCompleteHabit_RollbackOnWriteFailure(t *testing.T) {
	coin := storagetest.Reward("coin", models.RewardKindVirtual, 15, 10)
	f := setup(t, coin)
	boom := errors.New("write failed")
	f.store.FailOn = func(op string) error {
		if op == "insert_log" {
			return boom
		}
		return nil
	}

	_, err := f.engine.CompleteHabit(context.Background(), CompleteRequest{UserID: f.user.ID, Habit: f.habit.ID})
	if !errors.Is(err, boom) {
		t.Fatalf("expected write failure, got %v", err)
	}
	progress, _ := f.store.GetAllProgress(context.Background(), f.user.ID)
	if len(progress) != 0 {
		t.Errorf("progress written before the failed log insert must roll back, got %+v", progress)
	}
	if got := len(f.logs(t)); got != 0 {
		t.Errorf("expected no logs, got %d", got)
	}
}

func TestCompleteHabit_RollbackOnPropagationFailure(t *testing.T) {
	f := setup(t, noneReward())
	f.complete(t, "2024-01-08")
	f.complete(t, "")
	f.store.FailOn = func(op string) error {
		if op == "update_log" {
			return errors.New("update failed")
		}
		return nil
	}

	if _, err := f.engine.CompleteHabit(context.Background(), CompleteRequest{UserID: f.user.ID, Habit: f.habit.ID, TargetDate: "2024-01-09"}); err == nil {
		t.Fatal("expected propagation failure")
	}
	if got := len(f.logs(t)); got != 2 {
		t.Errorf("backdated insert must roll back with its propagation, got %d logs", got)
	}
}

// conflictStore fails the first n transactions with a conflict.
type conflictStore struct {
	*memory.Store
	mu    sync.Mutex
	fails int
	calls int
}

func (c *conflictStore) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	c.mu.Lock()
	c.calls++
	fail := c.calls <= c.fails
	c.mu.Unlock()
	if fail {
		return &apperrors.ConcurrencyConflictError{Key: "test", Err: errors.New("busy")}
	}
	return c.Store.WithTx(ctx, fn)
}

func TestCompleteHabit_RetriesConflicts(t *testing.T) {
	tests := []struct {
		name      string
		fails     int
		wantErr   bool
		wantCalls int
	}{
		{name: "succeeds after retries", fails: 2, wantCalls: 3},
		{name: "gives up after max attempts", fails: 5, wantErr: true, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, noneReward())
			cs := &conflictStore{Store: f.store, fails: tt.fails}
			e := New(cs, f.engine.selector, f.clock, testConfig())

			_, err := e.CompleteHabit(context.Background(), CompleteRequest{UserID: f.user.ID, Habit: f.habit.ID})
			if tt.wantErr {
				var ce *apperrors.ConcurrencyConflictError
				if !errors.As(err, &ce) {
					t.Fatalf("expected ConcurrencyConflictError, got %v", err)
				}
				if ce.Attempts != 3 {
					t.Errorf("expected 3 attempts, got %d", ce.Attempts)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cs.calls != tt.wantCalls {
				t.Errorf("expected %d transactions, got %d", tt.wantCalls, cs.calls)
			}
		})
	}
}

func TestCompleteHabit_LockTimeout(t *testing.T) {
	f := setup(t, noneReward())
	cfg := testConfig()
	cfg.LockTimeout = 10 * time.Millisecond
	cfg.MaxAttempts = 2
	e := New(f.store, f.engine.selector, f.clock, cfg)

	release, err := e.locks.acquire(context.Background(), f.user.ID+"|"+f.habit.ID, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	_, err = e.CompleteHabit(context.Background(), CompleteRequest{UserID: f.user.ID, Habit: f.habit.ID})
	if !apperrors.IsConcurrencyConflict(err) {
		t.Fatalf("expected ConcurrencyConflictError, got %v", err)
	}
	if !errors.Is(err, errLockTimeout) {
		t.Errorf("expected lock timeout cause, got %v", err)
	}
}

func TestClaimReward_LockErrors(t *testing.T) {
	coffee := storagetest.Reward("coffee", models.RewardKindReal, 5, 1)
	f := setup(t, coffee, noneReward())
	cfg := testConfig()
	cfg.LockTimeout = 10 * time.Millisecond
	e := New(f.store, f.engine.selector, f.clock, cfg)

	release, err := e.locks.acquire(context.Background(), "claim|"+f.user.ID+"|"+coffee.ID, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	_, err = e.ClaimReward(context.Background(), f.user.ID, coffee.ID)
	if !apperrors.IsConcurrencyConflict(err) || !errors.Is(err, errLockTimeout) {
		t.Errorf("held lock: expected ConcurrencyConflictError from timeout, got %v", err)
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.ClaimReward(canceled, f.user.ID, coffee.ID)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("canceled context: expected context.Canceled, got %v", err)
	}
	if apperrors.IsConcurrencyConflict(err) {
		t.Errorf("canceled context must not surface as a conflict: %v", err)
	}
}

func TestConfigFromSettings(t *testing.T) {
	s := models.DefaultSettings()
	s.StreakFactor = 0.5
	s.LockTimeoutMs = 250
	s.Timezone = "UTC"

	cfg, err := ConfigFromSettings(s)
	if err != nil {
		t.Fatalf("ConfigFromSettings failed: %v", err)
	}
	if cfg.StreakFactor != 0.5 || cfg.LockTimeout != 250*time.Millisecond || cfg.Location != time.UTC {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.RetryDelay != DefaultConfig().RetryDelay {
		t.Errorf("retry delay should keep its default, got %v", cfg.RetryDelay)
	}

	s.Timezone = "Mars/Olympus"
	if _, err := ConfigFromSettings(s); err == nil {
		t.Error("expected error for an unknown timezone")
	}
}
