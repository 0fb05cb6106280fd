package reports

import (
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
)

// Period is one bucket of a series, clipped to the requested range
type Period struct {
	Start domain.Date
	End   domain.Date
}

// Days counts the days in the period
func (p Period) Days() int {
	return p.Start.DaysUntil(p.End) + 1
}

// Periods splits [start, end] into calendar buckets of granularity g. Weeks
// start on Monday. The first and last buckets are clipped to the range.
func Periods(start, end domain.Date, g domain.Granularity) []Period {
	if end.Before(start) {
		return nil
	}

	var out []Period
	for cursor := start; !cursor.After(end); {
		next := nextBucket(bucketStart(cursor, g), g)
		last := next.AddDays(-1)
		if last.After(end) {
			last = end
		}
		out = append(out, Period{Start: cursor, End: last})
		cursor = next
	}
	return out
}

func bucketStart(d domain.Date, g domain.Granularity) domain.Date {
	y, m, day := d.Time.Date()
	switch g {
	case domain.GranularityWeek:
		offset := (int(d.Time.Weekday()) + 6) % 7
		return d.AddDays(-offset)
	case domain.GranularityMonth:
		return domain.NewDate(y, m, 1)
	case domain.GranularityYear:
		return domain.NewDate(y, time.January, 1)
	default:
		return domain.NewDate(y, m, day)
	}
}

func nextBucket(start domain.Date, g domain.Granularity) domain.Date {
	switch g {
	case domain.GranularityWeek:
		return start.AddDays(7)
	case domain.GranularityMonth:
		return domain.DateOf(start.Time.AddDate(0, 1, 0))
	case domain.GranularityYear:
		return domain.DateOf(start.Time.AddDate(1, 0, 0))
	default:
		return start.AddDays(1)
	}
}
