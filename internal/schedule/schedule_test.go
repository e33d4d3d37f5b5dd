package schedule

import (
	"testing"
	"time"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"", false},
		{"   ", false},
		{"0 8 * * 1", true},
		{"0 8 * *", false},
		{"0  * * 1", false}, // doubled space yields an empty field
		{"0 8 * * 1 *", false},
		{"30 18 * * 5", true},
	}
	for _, tt := range tests {
		if got := IsValid(tt.expr); got != tt.want {
			t.Errorf("IsValid(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestDue(t *testing.T) {
	// 2024-01-01 is a Monday.
	monday := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	friday := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		expr string
		at   time.Time
		want bool
	}{
		{"0 8 * * 5", monday, false},
		{"0 8 * * 5", friday, true},
		{"0 8 * * 1", monday, true},
		{"0 8 * * 0", time.Date(2024, 1, 7, 8, 0, 0, 0, time.UTC), true}, // 0 = Sunday
		{"0 8 * * 6", time.Date(2024, 1, 6, 8, 0, 0, 0, time.UTC), true}, // 6 = Saturday
		{"0 8 * * 5", friday.Add(time.Minute), false},
		{"0 9 * * 5", friday, false},
		{"0 8 * * *", monday, true},
		{"15 8 * * 1", monday.Add(15 * time.Minute), true},
	}
	for _, tt := range tests {
		got, err := Due(tt.expr, tt.at)
		if err != nil {
			t.Fatalf("Due(%q, %v): %v", tt.expr, tt.at, err)
		}
		if got != tt.want {
			t.Errorf("Due(%q, %v) = %v, want %v", tt.expr, tt.at, got, tt.want)
		}
	}
}

func TestDueIgnoresSeconds(t *testing.T) {
	at := time.Date(2024, 1, 5, 8, 0, 42, 0, time.UTC)
	due, err := Due("0 8 * * 5", at)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if !due {
		t.Error("expected due regardless of seconds within the minute")
	}
}

func TestDueInvalidExpression(t *testing.T) {
	if _, err := Due("not a cron", time.Now()); err == nil {
		t.Error("expected error for malformed expression")
	}
}

func TestDayOfWeek(t *testing.T) {
	tests := []struct {
		expr string
		want time.Weekday
	}{
		{"0 8 * * 5", time.Friday},
		{"0 8 * * 0", time.Sunday},
		{"0 8 * * 6", time.Saturday},
		{"0 8 * *", time.Monday},  // too few fields
		{"0 8 * * *", time.Monday}, // non-numeric
		{"0 8 * * 9", time.Monday}, // out of range
	}
	for _, tt := range tests {
		if got := DayOfWeek(tt.expr); got != tt.want {
			t.Errorf("DayOfWeek(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestTimeBucket(t *testing.T) {
	tests := []struct {
		expr string
		want Bucket
	}{
		{"0 6 * * 1", Morning},
		{"0 11 * * 1", Morning},
		{"0 12 * * 1", Afternoon},
		{"0 17 * * 1", Afternoon},
		{"0 18 * * 1", Evening},
		{"0 3 * * 1", Evening},
		{"0", Morning},         // missing hour defaults to 8
		{"0 x * * 1", Morning}, // unparseable hour defaults to 8
	}
	for _, tt := range tests {
		if got := TimeBucket(tt.expr); got != tt.want {
			t.Errorf("TimeBucket(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		day    time.Weekday
		bucket Bucket
		want   string
	}{
		{time.Friday, Morning, "0 8 * * 5"},
		{time.Monday, Afternoon, "0 13 * * 1"},
		{time.Sunday, Evening, "0 18 * * 0"},
		{time.Saturday, Bucket("brunch"), "0 8 * * 6"},
	}
	for _, tt := range tests {
		if got := Build(tt.day, tt.bucket); got != tt.want {
			t.Errorf("Build(%v, %v) = %q, want %q", tt.day, tt.bucket, got, tt.want)
		}
	}
}

// The UI projection must survive a round trip even though the cron form is
// lossy (minute and wildcard fields are normalized away).
func TestProjectionRoundTrip(t *testing.T) {
	days := []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	}
	buckets := []Bucket{Morning, Afternoon, Evening}

	for _, d := range days {
		for _, b := range buckets {
			expr := Build(d, b)
			if !IsValid(expr) {
				t.Fatalf("Build(%v, %v) produced invalid expression %q", d, b, expr)
			}
			if got := DayOfWeek(expr); got != d {
				t.Errorf("DayOfWeek(Build(%v, %v)) = %v", d, b, got)
			}
			if got := TimeBucket(expr); got != b {
				t.Errorf("TimeBucket(Build(%v, %v)) = %v", d, b, got)
			}
		}
	}
}

func TestNameParsing(t *testing.T) {
	if d, ok := WeekdayFromName("Friday"); !ok || d != time.Friday {
		t.Errorf("WeekdayFromName(Friday) = %v, %v", d, ok)
	}
	if _, ok := WeekdayFromName("someday"); ok {
		t.Error("expected someday to be rejected")
	}
	if b, ok := BucketFromName(" MORNING "); !ok || b != Morning {
		t.Errorf("BucketFromName(MORNING) = %v, %v", b, ok)
	}
	if _, ok := BucketFromName("midnight"); ok {
		t.Error("expected midnight to be rejected")
	}
}
