package availability

import (
	"sort"
	"time"
)

// Interval is a half-open [Start, End) range of UTC instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) IsEmpty() bool {
	return !iv.Start.Before(iv.End)
}

func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

func (iv Interval) Contains(o Interval) bool {
	return !o.Start.Before(iv.Start) && !o.End.After(iv.End)
}

// mergeIntervals sorts and coalesces touching or overlapping intervals.
func mergeIntervals(ivs []Interval) []Interval {
	filtered := ivs[:0]
	for _, iv := range ivs {
		if !iv.IsEmpty() {
			filtered = append(filtered, iv)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Start.Before(filtered[j].Start) })

	merged := []Interval{filtered[0]}
	for _, iv := range filtered[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// subtractInterval removes busy from each interval in free, splitting where
// busy lands in the middle.
func subtractInterval(free []Interval, busy Interval) []Interval {
	if busy.IsEmpty() {
		return free
	}
	var out []Interval
	for _, iv := range free {
		if !iv.Overlaps(busy) {
			out = append(out, iv)
			continue
		}
		if busy.Start.After(iv.Start) {
			out = append(out, Interval{Start: iv.Start, End: busy.Start})
		}
		if busy.End.Before(iv.End) {
			out = append(out, Interval{Start: busy.End, End: iv.End})
		}
	}
	return out
}

func subtractAll(free []Interval, busy []Interval) []Interval {
	for _, b := range busy {
		free = subtractInterval(free, b)
	}
	return free
}

// fits reports whether candidate lies entirely within one free interval.
func fits(free []Interval, candidate Interval) bool {
	for _, iv := range free {
		if iv.Contains(candidate) {
			return true
		}
	}
	return false
}
