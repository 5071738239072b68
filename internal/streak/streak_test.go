package streak

import (
	"fmt"
	"testing"

	"github.com/julianstephens/habitreward/internal/models"
)

func logOn(day string, streak int) *models.HabitLog {
	return &models.HabitLog{ID: "log-" + day, CompletionDate: day, StreakCount: streak}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		prior *models.HabitLog
		day   string
		want  int
	}{
		{"first completion", nil, "2024-01-01", 1},
		{"next day increments", logOn("2024-01-01", 1), "2024-01-02", 2},
		{"next day after long streak", logOn("2024-01-09", 9), "2024-01-10", 10},
		{"same day is idempotent", logOn("2024-01-02", 2), "2024-01-02", 2},
		{"two day gap resets", logOn("2024-01-01", 4), "2024-01-03", 1},
		{"long gap resets", logOn("2024-01-01", 4), "2024-02-01", 1},
		{"month boundary increments", logOn("2024-01-31", 3), "2024-02-01", 4},
		{"prior after target resets", logOn("2024-01-05", 3), "2024-01-04", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.prior, tt.day)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Compute() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeInvalidDay(t *testing.T) {
	if _, err := Compute(logOn("2024-01-01", 1), "not-a-day"); err == nil {
		t.Error("expected error for malformed day")
	}
}

func TestFiveConsecutiveDaysThenGap(t *testing.T) {
	var prior *models.HabitLog
	var got []int
	for _, day := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08"} {
		s, err := Compute(prior, day)
		if err != nil {
			t.Fatalf("Compute(%s) error = %v", day, err)
		}
		got = append(got, s)
		prior = logOn(day, s)
	}

	want := []int{1, 2, 3, 4, 5, 1}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("streak sequence = %v, want %v", got, want)
	}
}

func TestRecomputeAfterBackdatedInsert(t *testing.T) {
	// Days 1, 2, 4, 5 were logged; day 3 is inserted late.
	anchor := *logOn("2024-01-03", 3)
	later := []models.HabitLog{
		*logOn("2024-01-04", 1),
		*logOn("2024-01-05", 2),
	}

	updates, err := Recompute(anchor, later)
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d: %+v", len(updates), updates)
	}
	if updates[0].LogID != "log-2024-01-04" || updates[0].New != 4 || updates[0].Old != 1 {
		t.Errorf("unexpected first update: %+v", updates[0])
	}
	if updates[1].LogID != "log-2024-01-05" || updates[1].New != 5 {
		t.Errorf("unexpected second update: %+v", updates[1])
	}
}

func TestRecomputeStopsAtGap(t *testing.T) {
	anchor := *logOn("2024-01-03", 3)
	later := []models.HabitLog{
		*logOn("2024-01-04", 1),
		*logOn("2024-01-10", 1), // after a gap, already correct
		*logOn("2024-01-11", 2),
	}

	updates, err := Recompute(anchor, later)
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
	if len(updates) != 1 || updates[0].New != 4 {
		t.Errorf("expected a single update to 4, got %+v", updates)
	}
}

func TestRecomputeSameDayLogsFollowAnchor(t *testing.T) {
	anchor := *logOn("2024-01-02", 2)
	later := []models.HabitLog{
		{ID: "a", CompletionDate: "2024-01-03", StreakCount: 1},
		{ID: "b", CompletionDate: "2024-01-03", StreakCount: 1},
	}

	updates, err := Recompute(anchor, later)
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
	if len(updates) != 2 || updates[0].New != 3 || updates[1].New != 3 {
		t.Errorf("expected both same-day logs to become 3, got %+v", updates)
	}
}

func TestRecomputeNoLaterLogs(t *testing.T) {
	updates, err := Recompute(*logOn("2024-01-03", 1), nil)
	if err != nil || len(updates) != 0 {
		t.Errorf("Recompute() = %+v, %v; want no updates", updates, err)
	}
}

func TestCheck(t *testing.T) {
	good := []models.HabitLog{*logOn("2024-01-01", 1), *logOn("2024-01-02", 2), *logOn("2024-01-02", 2), *logOn("2024-01-04", 1)}
	if bad, err := Check(good); err != nil || bad != nil {
		t.Errorf("Check(good) = %+v, %v", bad, err)
	}

	broken := []models.HabitLog{*logOn("2024-01-01", 1), *logOn("2024-01-02", 1)}
	bad, err := Check(broken)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if bad == nil || bad.LogID != "log-2024-01-02" || bad.New != 2 {
		t.Errorf("Check(broken) = %+v", bad)
	}
}
