package system

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/habitreward/internal/cli"
	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/storage"
	"github.com/julianstephens/habitreward/internal/storage/memory"
	"github.com/julianstephens/habitreward/internal/storage/sqlite"
	"github.com/julianstephens/habitreward/internal/storage/storagetest"
)

func setupTestInitDB(t *testing.T) (*cli.Context, string, *bytes.Buffer) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := sqlite.NewStore(dbPath)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	out := &bytes.Buffer{}
	return &cli.Context{Store: store, Out: out}, dbPath, out
}

func setupMemory(t *testing.T) (*cli.Context, *memory.Store, *bytes.Buffer) {
	t.Helper()
	store := memory.New()
	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	return &cli.Context{Store: store, Out: out}, store, out
}

func TestInitCmd_Success(t *testing.T) {
	ctx, dbPath, _ := setupTestInitDB(t)

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init command failed: %v", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file was not created at %s", dbPath)
	}
	if _, err := ctx.Store.GetSettings(context.Background()); err != nil {
		t.Errorf("init should seed settings: %v", err)
	}
}

func TestInitCmd_Idempotent(t *testing.T) {
	ctx, _, _ := setupTestInitDB(t)
	cmd := &InitCmd{}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	if err := cmd.Run(ctx); err != nil {
		t.Errorf("second init failed (should be idempotent): %v", err)
	}
}

func TestInitCmd_ForceDeletesExisting(t *testing.T) {
	ctx, _, out := setupTestInitDB(t)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	user := models.User{ID: "u1", ExternalID: "ada", Active: true}
	if err := ctx.Store.AddUser(context.Background(), user); err != nil {
		t.Fatal(err)
	}

	if err := (&InitCmd{Force: true}).Run(ctx); err != nil {
		t.Fatalf("forced init failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted existing database") {
		t.Errorf("expected delete notice, got %q", out.String())
	}
	users, err := ctx.Store.GetAllUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 0 {
		t.Errorf("expected a fresh database, found %d users", len(users))
	}
}

func TestInitCmd_SeedsCatalog(t *testing.T) {
	ctx, _, _ := setupTestInitDB(t)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "habits:\n  - name: Read\n    weight: 3\nrewards:\n  - name: Nothing\n    kind: none\n    weight: 5\n"
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	if err := (&InitCmd{Catalog: path}).Run(ctx); err != nil {
		t.Fatalf("init with catalog failed: %v", err)
	}
	rewards, _ := ctx.Store.GetActiveRewards(context.Background())
	if len(rewards) != 1 || !rewards[0].IsNone() {
		t.Errorf("expected seeded none reward, got %+v", rewards)
	}
}

func TestMigrateCmd(t *testing.T) {
	ctx, _, out := setupTestInitDB(t)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	out.Reset()

	if err := (&MigrateCmd{}).Run(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out.String(), "up to date") {
		t.Errorf("expected up-to-date message, got %q", out.String())
	}

	out.Reset()
	if err := (&MigrateCmd{Status: true}).Run(ctx); err != nil {
		t.Fatalf("migrate --status failed: %v", err)
	}
	if !strings.Contains(out.String(), "0 pending") {
		t.Errorf("unexpected status output %q", out.String())
	}
}

func TestMigrateCmd_NoMigrations(t *testing.T) {
	ctx, _, _ := setupMemory(t)
	if err := (&MigrateCmd{}).Run(ctx); err == nil {
		t.Error("expected error for a store without migrations")
	}
}

func TestDoctorCmd(t *testing.T) {
	none := storagetest.Reward("nothing", models.RewardKindNone, 50, 1)
	coffee := storagetest.Reward("coffee", models.RewardKindReal, 10, 1)

	tests := []struct {
		name    string
		setup   func(t *testing.T, s *memory.Store)
		wantErr bool
		want    string
	}{
		{
			name:  "healthy",
			setup: func(t *testing.T, s *memory.Store) { storagetest.Seed(t, s, none, coffee) },
			want:  "All diagnostics passed!",
		},
		{
			name:    "missing none reward",
			setup:   func(t *testing.T, s *memory.Store) { storagetest.Seed(t, s, coffee) },
			wantErr: true,
			want:    "❌ Reward catalog: FAIL",
		},
		{
			name: "broken streak chain",
			setup: func(t *testing.T, s *memory.Store) {
				user, habit := storagetest.Seed(t, s, none)
				err := s.WithTx(context.Background(), func(tx storage.Tx) error {
					for _, l := range []models.HabitLog{
						{ID: "a", UserID: user.ID, HabitID: habit.ID, CompletionDate: "2024-01-01", StreakCount: 1},
						{ID: "b", UserID: user.ID, HabitID: habit.ID, CompletionDate: "2024-01-02", StreakCount: 1},
					} {
						if _, err := tx.InsertLog(context.Background(), l); err != nil {
							return err
						}
					}
					return nil
				})
				if err != nil {
					t.Fatal(err)
				}
			},
			wantErr: true,
			want:    "log b has streak 1, expected 2",
		},
		{
			name: "invalid settings",
			setup: func(t *testing.T, s *memory.Store) {
				storagetest.Seed(t, s, none)
				settings := models.DefaultSettings()
				settings.MaxAttempts = 0
				if err := s.SaveSettings(context.Background(), settings); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: true,
			want:    "❌ Engine settings: FAIL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, store, out := setupMemory(t)
			tt.setup(t, store)

			err := (&DoctorCmd{}).Run(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("doctor error = %v, wantErr %v\n%s", err, tt.wantErr, out.String())
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("expected output to contain %q, got:\n%s", tt.want, out.String())
			}
		})
	}
}

func TestDoctorCmd_Uninitialized(t *testing.T) {
	ctx, _, out := setupTestInitDB(t)
	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Fatal("expected doctor to fail on a missing database")
	}
	if !strings.Contains(out.String(), "SKIPPED") {
		t.Errorf("expected dependent checks to be skipped, got:\n%s", out.String())
	}
}
