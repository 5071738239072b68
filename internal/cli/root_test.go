package cli

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitreward/internal/engine"
	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/storage/memory"
	"github.com/julianstephens/habitreward/internal/storage/sqlite"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name     string
		progress models.RewardProgress
		want     string
	}{
		{"empty", models.RewardProgress{PiecesEarned: 0, PiecesRequired: 4}, "[░░░░░░░░░░] 0/4 PENDING"},
		{"half", models.RewardProgress{PiecesEarned: 2, PiecesRequired: 4}, "[█████░░░░░] 2/4 PENDING"},
		{"achieved", models.RewardProgress{PiecesEarned: 4, PiecesRequired: 4}, "[██████████] 4/4 ACHIEVED"},
		{"claimed", models.RewardProgress{PiecesEarned: 4, PiecesRequired: 4, Claimed: true}, "[██████████] 4/4 CLAIMED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProgressBar(tt.progress); got != tt.want {
				t.Errorf("ProgressBar() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderCompletion(t *testing.T) {
	trip := models.Reward{Name: "Trip", IsCumulative: true, PiecesRequired: 3, PieceValue: "one postcard"}
	tests := []struct {
		name string
		res  engine.CompletionResult
		want []string
	}{
		{
			name: "none",
			res:  engine.CompletionResult{HabitName: "Read", CompletionDate: "2024-01-10", Streak: 3, EffortScore: 13},
			want: []string{"Read", "Streak: 3", "Effort: 13.0", "No reward this time"},
		},
		{
			name: "cumulative",
			res: engine.CompletionResult{
				HabitName: "Read", Streak: 1, GotReward: true, Reward: &trip,
				Progress: &models.RewardProgress{PiecesEarned: 1, PiecesRequired: 3},
			},
			want: []string{"Trip", "1/3 PENDING", "+1 one postcard"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderCompletion(&tt.res)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("expected %q in:\n%s", w, out)
				}
			}
		})
	}
}

func TestBackupManager(t *testing.T) {
	file := &Context{Store: sqlite.NewStore(filepath.Join(t.TempDir(), "h.db"))}
	if _, err := file.BackupManager(); err != nil {
		t.Errorf("file-backed sqlite should support backups: %v", err)
	}
	for _, c := range []*Context{
		{Store: sqlite.NewStore(sqlite.MemoryPath)},
		{Store: memory.New()},
	} {
		if _, err := c.BackupManager(); !errors.Is(err, ErrNotSQLite) {
			t.Errorf("expected ErrNotSQLite for %s, got %v", c.Store.GetConfigPath(), err)
		}
	}
}

func TestEngineIsCachedUntilReset(t *testing.T) {
	store := memory.New()
	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	c := &Context{Store: store}
	a, err := c.Engine()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := c.Engine()
	if a != b {
		t.Error("expected the engine to be cached")
	}
	c.ResetEngine()
	if again, _ := c.Engine(); again == a {
		t.Error("expected a new engine after reset")
	}
}

func TestPickHabit(t *testing.T) {
	c := &Context{Pick: func(_ string, options []huh.Option[string]) (string, error) {
		return options[len(options)-1].Value, nil
	}}
	if _, err := c.PickHabit(nil); err == nil {
		t.Error("expected error with no habits")
	}
	got, err := c.PickHabit([]models.Habit{{ID: "h1", Name: "Read"}, {ID: "h2", Name: "Run"}})
	if err != nil || got != "h2" {
		t.Errorf("PickHabit = %q, %v", got, err)
	}
}
