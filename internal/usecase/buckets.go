package usecase

import (
	"fmt"
	"sort"
	"time"
)

type bucket struct {
	Start time.Time
	End   time.Time
	Label string
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns the Monday 00:00 UTC of t's week.
func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// buildBuckets returns points consecutive buckets, oldest first, the last
// one containing now.
func buildBuckets(period Period, points int, now time.Time) []bucket {
	out := make([]bucket, 0, points)
	for i := points - 1; i >= 0; i-- {
		var b bucket
		switch period {
		case PeriodDaily:
			b.Start = startOfDay(now).AddDate(0, 0, -i)
			b.End = b.Start.AddDate(0, 0, 1)
			b.Label = b.Start.Format("2006-01-02")
		case PeriodWeekly:
			b.Start = startOfWeek(now).AddDate(0, 0, -7*i)
			b.End = b.Start.AddDate(0, 0, 7)
			year, week := b.Start.ISOWeek()
			b.Label = fmt.Sprintf("%d-W%02d", year, week)
		case PeriodMonthly:
			b.Start = startOfMonth(now).AddDate(0, -i, 0)
			b.End = b.Start.AddDate(0, 1, 0)
			b.Label = b.Start.Format("2006-01")
		}
		out = append(out, b)
	}
	return out
}

// bucketIndex returns the bucket containing t, or -1.
func bucketIndex(buckets []bucket, t time.Time) int {
	i := sort.Search(len(buckets), func(i int) bool { return buckets[i].End.After(t) })
	if i == len(buckets) || t.Before(buckets[i].Start) {
		return -1
	}
	return i
}

// percent returns part/whole*100 rounded to two decimals, 0 when whole is 0.
func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return round2(part / whole * 100)
}

// change is the relative change from prev to cur in percent. Growth from
// zero counts as 100%.
func change(prev, cur float64) float64 {
	if prev == 0 {
		if cur == 0 {
			return 0
		}
		return 100
	}
	return round2((cur - prev) / prev * 100)
}
