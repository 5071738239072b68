package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/storage/memory"
)

const seed = `
habits:
  - name: Morning Run
    weight: 10
  - name: Read
    slug: reading
    weight: 4
rewards:
  - name: Nothing this time
    kind: NONE
    weight: 60
    sort_order: -1
  - name: Coffee
    kind: real
    weight: 10
  - name: Movie night
    kind: real
    weight: 5
    cumulative: true
    pieces_required: 10
    piece_value: one ticket stub
`

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return s
}

func mustParse(t *testing.T, doc string) *File {
	t.Helper()
	f, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return f
}

func TestApply_Fresh(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	sum, err := Apply(ctx, store, mustParse(t, seed), epoch)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if sum.HabitsAdded != 2 || sum.RewardsAdded != 3 || sum.HabitsUpdated != 0 || sum.RewardsUpdated != 0 {
		t.Errorf("unexpected summary %+v", sum)
	}

	run, err := store.GetHabitBySlug(ctx, "morning-run")
	if err != nil {
		t.Fatalf("expected slug derived from name: %v", err)
	}
	if !run.Active || run.Weight != 10 || run.ID == "" {
		t.Errorf("unexpected habit %+v", run)
	}
	if _, err := store.GetHabitBySlug(ctx, "reading"); err != nil {
		t.Errorf("explicit slug not kept: %v", err)
	}

	movie, err := store.GetRewardBySlug(ctx, "movie-night")
	if err != nil {
		t.Fatal(err)
	}
	if !movie.IsCumulative || movie.PiecesRequired != 10 || movie.PieceValue != "one ticket stub" {
		t.Errorf("unexpected cumulative reward %+v", movie)
	}
	coffee, _ := store.GetRewardBySlug(ctx, "coffee")
	if coffee.PiecesRequired != 1 {
		t.Errorf("single-shot reward should require 1 piece, got %d", coffee.PiecesRequired)
	}

	catalog, _ := store.GetActiveRewards(ctx)
	if len(catalog) != 3 || !catalog[0].IsNone() {
		t.Errorf("expected none reward first in catalog order, got %+v", catalog)
	}
}

func TestApply_UpsertKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	if _, err := Apply(ctx, store, mustParse(t, seed), epoch); err != nil {
		t.Fatal(err)
	}
	before, _ := store.GetHabitBySlug(ctx, "morning-run")

	update := `
habits:
  - name: Morning Run
    weight: 12
    active: false
rewards:
  - name: Coffee
    kind: real
    weight: 20
`
	sum, err := Apply(ctx, store, mustParse(t, update), epoch.Add(time.Hour))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if sum.HabitsUpdated != 1 || sum.RewardsUpdated != 1 || sum.HabitsAdded != 0 {
		t.Errorf("unexpected summary %+v", sum)
	}

	after, _ := store.GetHabitBySlug(ctx, "morning-run")
	if after.ID != before.ID || !after.CreatedAt.Equal(before.CreatedAt) {
		t.Error("upsert must keep id and creation time")
	}
	if after.Active || after.Weight != 12 {
		t.Errorf("upsert did not apply fields: %+v", after)
	}

	all, _ := store.GetAllRewards(ctx, true)
	if len(all) != 3 {
		t.Errorf("rewards missing from the file must be left alone, got %d", len(all))
	}
}

func TestApply_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		config bool
	}{
		{
			name:   "no none reward",
			doc:    "rewards:\n  - name: Coffee\n    kind: real\n    weight: 10\n",
			config: true,
		},
		{
			name:   "inactive none reward",
			doc:    "rewards:\n  - name: Nothing\n    kind: none\n    weight: 10\n    active: false\n",
			config: true,
		},
		{
			name: "zero weight habit",
			doc:  "habits:\n  - name: Read\n    weight: 0\nrewards:\n  - name: Nothing\n    kind: none\n    weight: 1\n",
		},
		{
			name: "unknown kind",
			doc:  "rewards:\n  - name: Nothing\n    kind: maybe\n    weight: 1\n",
		},
		{
			name: "cumulative none",
			doc:  "rewards:\n  - name: Nothing\n    kind: none\n    weight: 1\n    cumulative: true\n    pieces_required: 3\n",
		},
		{
			name: "cumulative without pieces",
			doc:  "rewards:\n  - name: Nothing\n    kind: none\n    weight: 1\n  - name: Trip\n    kind: real\n    weight: 1\n    cumulative: true\n",
		},
		{
			name: "duplicate slug",
			doc:  "rewards:\n  - name: Nothing\n    kind: none\n    weight: 1\n  - name: nothing\n    kind: none\n    weight: 2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			_, err := Apply(ctx, store, mustParse(t, tt.doc), epoch)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := apperrors.IsConfiguration(err); got != tt.config {
				t.Errorf("IsConfiguration = %v, want %v (err: %v)", got, tt.config, err)
			}
			habits, _ := store.GetAllHabits(ctx, true)
			rewards, _ := store.GetAllRewards(ctx, true)
			if len(habits) != 0 || len(rewards) != 0 {
				t.Error("a rejected catalog must not write anything")
			}
		})
	}
}

func TestApply_ExistingNoneSatisfiesCheck(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	if _, err := Apply(ctx, store, mustParse(t, seed), epoch); err != nil {
		t.Fatal(err)
	}
	doc := "rewards:\n  - name: Sticker\n    kind: virtual\n    weight: 3\n"
	if _, err := Apply(ctx, store, mustParse(t, doc), epoch); err != nil {
		t.Errorf("stored none reward should satisfy the check: %v", err)
	}
}

func TestParse_UnknownField(t *testing.T) {
	if _, err := Parse(strings.NewReader("habits:\n  - name: Read\n    wieght: 3\n")); err == nil {
		t.Error("expected unknown field to be rejected")
	}
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty document should parse: %v", err)
	}
	if len(f.Habits) != 0 || len(f.Rewards) != 0 {
		t.Error("expected empty catalog")
	}
}

func TestLoadFileAndExport(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(seed), 0600); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	store := newStore(t)
	if _, err := Apply(ctx, store, f, epoch); err != nil {
		t.Fatal(err)
	}
	habits, _ := store.GetAllHabits(ctx, true)
	rewards, _ := store.GetAllRewards(ctx, true)

	out, err := Marshal(Export(habits, rewards))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	again, err := Parse(strings.NewReader(string(out)))
	if err != nil {
		t.Fatalf("exported catalog does not parse: %v", err)
	}

	other := newStore(t)
	sum, err := Apply(ctx, other, again, epoch)
	if err != nil {
		t.Fatalf("exported catalog does not apply: %v", err)
	}
	if sum.HabitsAdded != 2 || sum.RewardsAdded != 3 {
		t.Errorf("unexpected summary %+v", sum)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
