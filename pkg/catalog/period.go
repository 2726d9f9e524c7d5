package catalog

import "time"

// periodWindows holds [start, end) in minutes after midnight.
var periodWindows = []struct {
	period     MealPeriod
	start, end int
}{
	{Breakfast, 7 * 60, 11*60 + 30},
	{Lunch, 11*60 + 30, 17 * 60},
	{Dinner, 17 * 60, 20 * 60},
	{LateNight, 20 * 60, 23 * 60},
}

// PeriodAt returns the meal period in effect at t's wall-clock time.
// ok is false outside every window (closed).
func PeriodAt(t time.Time) (p MealPeriod, ok bool) {
	m := t.Hour()*60 + t.Minute()
	for _, w := range periodWindows {
		if m >= w.start && m < w.end {
			return w.period, true
		}
	}
	return "", false
}

// FilterByPeriod keeps items offered during p, plus items with no periods.
func FilterByPeriod(items []MenuItem, p MealPeriod) []MenuItem {
	out := make([]MenuItem, 0, len(items))
	for _, it := range items {
		if len(it.MealPeriods) == 0 {
			out = append(out, it)
			continue
		}
		for _, mp := range it.MealPeriods {
			if mp == p {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// ServedAt returns the items on offer at t. Nothing is served while closed.
func ServedAt(items []MenuItem, t time.Time) []MenuItem {
	p, ok := PeriodAt(t)
	if !ok {
		return []MenuItem{}
	}
	return FilterByPeriod(items, p)
}
