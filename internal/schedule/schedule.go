// Package schedule evaluates the 5-field cron expressions that drive
// scheduled notifications, and converts between cron form and the reduced
// day-of-week + time-bucket form the settings UI exposes.
//
// The storage format is full cron syntax ("minute hour dom month dow",
// Sunday=0) so richer schedules can land later without a data migration,
// but the UI only ever writes "0 {hour} * * {day}".
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Bucket is a coarse time-of-day slot.
type Bucket string

const (
	Morning   Bucket = "morning"   // hours [6,12)
	Afternoon Bucket = "afternoon" // hours [12,18)
	Evening   Bucket = "evening"   // everything else
)

const (
	defaultHour    = 8
	defaultWeekday = time.Monday
)

var bucketHours = map[Bucket]int{
	Morning:   8,
	Afternoon: 13,
	Evening:   18,
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// IsValid reports whether expr is syntactically a 5-field cron expression:
// non-empty, exactly five whitespace-separated fields, no empty field.
// It does not validate field value ranges or step/list/range syntax.
func IsValid(expr string) bool {
	if strings.TrimSpace(expr) == "" {
		return false
	}
	fields := strings.Split(expr, " ")
	if len(fields) != 5 {
		return false
	}
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

// Due reports whether expr matches t at minute granularity. Day-of-week
// follows cron convention: 0=Sunday through 6=Saturday.
func Due(expr string, t time.Time) (bool, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return false, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	minute := t.Truncate(time.Minute)
	return sched.Next(minute.Add(-time.Second)).Equal(minute), nil
}

// DayOfWeek extracts the day-of-week field from expr. Missing or
// out-of-range values default to Monday.
func DayOfWeek(expr string) time.Weekday {
	fields := strings.Fields(expr)
	if len(fields) < 5 {
		return defaultWeekday
	}
	n, err := strconv.Atoi(fields[4])
	if err != nil || n < 0 || n > 6 {
		return defaultWeekday
	}
	return time.Weekday(n)
}

// TimeBucket extracts the hour field from expr and maps it to a coarse
// time-of-day bucket. A missing or unparseable hour defaults to 8.
func TimeBucket(expr string) Bucket {
	hour := defaultHour
	fields := strings.Fields(expr)
	if len(fields) >= 2 {
		if n, err := strconv.Atoi(fields[1]); err == nil {
			hour = n
		}
	}
	switch {
	case hour >= 6 && hour < 12:
		return Morning
	case hour >= 12 && hour < 18:
		return Afternoon
	default:
		return Evening
	}
}

// Build constructs the cron expression for a day-of-week and time bucket.
// The minute is fixed at 0; unrecognized buckets fall back to 8am and
// out-of-range days to Monday.
func Build(day time.Weekday, bucket Bucket) string {
	hour, ok := bucketHours[bucket]
	if !ok {
		hour = defaultHour
	}
	d := int(day)
	if d < 0 || d > 6 {
		d = int(defaultWeekday)
	}
	return fmt.Sprintf("0 %d * * %d", hour, d)
}

// WeekdayFromName parses a lowercase day name ("sunday".."saturday").
func WeekdayFromName(name string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// BucketFromName parses a bucket name ("morning", "afternoon", "evening").
func BucketFromName(name string) (Bucket, bool) {
	switch Bucket(strings.ToLower(strings.TrimSpace(name))) {
	case Morning:
		return Morning, true
	case Afternoon:
		return Afternoon, true
	case Evening:
		return Evening, true
	}
	return "", false
}
