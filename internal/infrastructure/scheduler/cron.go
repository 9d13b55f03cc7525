package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronSchedule is a standard 5-field cron expression:
// minute hour day-of-month month day-of-week.
// Each field accepts *, */n, n, n-m, n-m/s and comma lists of those.
//
//	"*/15 * * * *"  every 15 minutes
//	"30 3 * * *"    every day at 03:30
//	"0 0 * * 0"     every Sunday at midnight
type CronSchedule struct {
	raw      string
	minutes  uint64
	hours    uint64
	days     uint64
	months   uint64
	weekdays uint64
}

type cronField struct {
	name     string
	min, max int
}

var cronFields = [5]cronField{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day", 1, 31},
	{"month", 1, 12},
	{"weekday", 0, 6},
}

// ParseCron parses a cron expression.
func ParseCron(expr string) (*CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != len(cronFields) {
		return nil, fmt.Errorf("invalid cron expression %q: expected 5 fields, got %d", expr, len(fields))
	}

	var sets [5]uint64
	for i, f := range cronFields {
		set, err := parseCronField(fields[i], f.min, f.max)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression %q: %s field: %w", expr, f.name, err)
		}
		sets[i] = set
	}

	return &CronSchedule{
		raw:      expr,
		minutes:  sets[0],
		hours:    sets[1],
		days:     sets[2],
		months:   sets[3],
		weekdays: sets[4],
	}, nil
}

// parseCronField returns the allowed values of one field as a bit set.
func parseCronField(field string, min, max int) (uint64, error) {
	var set uint64
	for _, part := range strings.Split(field, ",") {
		rangePart, step := part, 1
		if i := strings.IndexByte(part, '/'); i >= 0 {
			n, err := strconv.Atoi(part[i+1:])
			if err != nil || n <= 0 {
				return 0, fmt.Errorf("invalid step %q", part[i+1:])
			}
			rangePart, step = part[:i], n
		}

		start, end := min, max
		switch {
		case rangePart == "*":
		case strings.Contains(rangePart, "-"):
			lo, hi, _ := strings.Cut(rangePart, "-")
			var err error
			if start, err = strconv.Atoi(lo); err != nil {
				return 0, fmt.Errorf("invalid range start %q", lo)
			}
			if end, err = strconv.Atoi(hi); err != nil {
				return 0, fmt.Errorf("invalid range end %q", hi)
			}
		default:
			v, err := strconv.Atoi(rangePart)
			if err != nil {
				return 0, fmt.Errorf("invalid value %q", rangePart)
			}
			start = v
			if step == 1 {
				end = v
			}
		}

		if start < min || end > max || start > end {
			return 0, fmt.Errorf("%q out of range [%d-%d]", part, min, max)
		}
		for v := start; v <= end; v += step {
			set |= 1 << uint(v)
		}
	}
	return set, nil
}

// String returns the original cron expression.
func (c *CronSchedule) String() string {
	return c.raw
}

// Next returns the first matching minute strictly after t, or the zero
// time when nothing matches within four years (e.g. "0 0 31 2 *").
// Day-of-month and day-of-week must both match.
func (c *CronSchedule) Next(t time.Time) time.Time {
	next := t.Truncate(time.Minute).Add(time.Minute)
	limit := next.AddDate(4, 0, 0)

	for next.Before(limit) {
		switch {
		case !has(c.months, int(next.Month())):
			next = time.Date(next.Year(), next.Month()+1, 1, 0, 0, 0, 0, next.Location())
		case !has(c.days, next.Day()) || !has(c.weekdays, int(next.Weekday())):
			next = time.Date(next.Year(), next.Month(), next.Day()+1, 0, 0, 0, 0, next.Location())
		case !has(c.hours, next.Hour()):
			next = time.Date(next.Year(), next.Month(), next.Day(), next.Hour()+1, 0, 0, 0, next.Location())
		case !has(c.minutes, next.Minute()):
			next = next.Add(time.Minute)
		default:
			return next
		}
	}
	return time.Time{}
}

func has(set uint64, v int) bool {
	return set&(1<<uint(v)) != 0
}
