package settings

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/habitreward/internal/cli"
	"github.com/julianstephens/habitreward/internal/constants"
	"github.com/julianstephens/habitreward/internal/storage/sqlite"
)

func setupTestDB(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	out := &bytes.Buffer{}
	return &cli.Context{Store: store, Out: out}, out
}

func TestSettingsShowCmd(t *testing.T) {
	ctx, out := setupTestDB(t)
	if err := (&SettingsShowCmd{}).Run(ctx); err != nil {
		t.Fatalf("settings show failed: %v", err)
	}
	for _, key := range []string{constants.SettingStreakFactor, constants.SettingNoneWeightFloor, constants.SettingTimezone} {
		if !strings.Contains(out.String(), key) {
			t.Errorf("expected %s in output:\n%s", key, out.String())
		}
	}
}

func TestSettingsSetCmd(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
	}{
		{name: "streak factor", key: constants.SettingStreakFactor, value: "0.25"},
		{name: "timezone", key: constants.SettingTimezone, value: "UTC"},
		{name: "unknown key", key: "colour", value: "blue", wantErr: true},
		{name: "unparsable", key: constants.SettingMaxAttempts, value: "lots", wantErr: true},
		{name: "out of range", key: constants.SettingMaxAttempts, value: "0", wantErr: true},
		{name: "bad timezone", key: constants.SettingTimezone, value: "Mars/Olympus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := setupTestDB(t)
			before, _ := ctx.Store.GetSettings(context.Background())

			err := (&SettingsSetCmd{Key: tt.key, Value: tt.value}).Run(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}

			after, _ := ctx.Store.GetSettings(context.Background())
			if tt.wantErr && after != before {
				t.Error("rejected value must not be saved")
			}
			if !tt.wantErr && after == before {
				t.Error("expected settings to change")
			}
		})
	}
}
