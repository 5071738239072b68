package clock

import (
	"testing"
	"time"
)

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"same day", "2024-03-10", "2024-03-10", 0},
		{"next day", "2024-03-10", "2024-03-11", 1},
		{"backwards", "2024-03-11", "2024-03-10", -1},
		{"across month", "2024-02-28", "2024-03-01", 2}, // leap year
		{"across year", "2023-12-31", "2024-01-01", 1},
		{"week", "2024-01-01", "2024-01-08", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DaysBetween(tt.a, tt.b)
			if err != nil {
				t.Fatalf("DaysBetween() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DaysBetween(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDaysBetweenInvalid(t *testing.T) {
	if _, err := DaysBetween("2024/01/01", "2024-01-02"); err == nil {
		t.Error("expected error for malformed day")
	}
}

func TestParseDay(t *testing.T) {
	if _, err := ParseDay("2024-13-01"); err == nil {
		t.Error("expected error for month 13")
	}
	got, err := ParseDay("2024-01-05")
	if err != nil || got != "2024-01-05" {
		t.Errorf("ParseDay() = %q, %v", got, err)
	}
}

func TestAddDays(t *testing.T) {
	got, err := AddDays("2024-12-31", 1)
	if err != nil {
		t.Fatalf("AddDays() error = %v", err)
	}
	if got != "2025-01-01" {
		t.Errorf("AddDays() = %s, want 2025-01-01", got)
	}
}

func TestFixedClock(t *testing.T) {
	c := AtDay("2024-05-01")
	if Today(c) != "2024-05-01" {
		t.Errorf("Today() = %s", Today(c))
	}
	c.Advance(24 * time.Hour)
	if Today(c) != "2024-05-02" {
		t.Errorf("Today() after advance = %s", Today(c))
	}
	c.Set(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	if Today(c) != "2024-06-01" {
		t.Errorf("Today() after set = %s", Today(c))
	}
}

func TestSystemClockLocation(t *testing.T) {
	loc := time.FixedZone("test", 3*3600)
	if got := (System{Location: loc}).Now().Location(); got != loc {
		t.Errorf("System.Now() location = %v, want %v", got, loc)
	}
}
