package analytics

import (
	"sort"
	"time"

	"github.com/hylla/gauge/internal/domain"
)

// Workload is one person's peak concurrency inside the bounding period.
type Workload struct {
	PersonID int64       `json:"person_id"`
	Doing    int         `json:"doing"`
	Overlap  int         `json:"overlap"`
	Groups   []GroupSpan `json:"groups,omitempty"`
}

type sweepEvent struct {
	at    time.Time
	delta int
}

// MaxConcurrent returns the largest number of intervals active on any single day.
// Ends are inclusive: an interval contributes +1 on Start and -1 on End+1 day.
// Equal dates apply -1 before +1, so a handoff on the same day is not counted as overlap.
func MaxConcurrent(intervals []domain.Interval) int {
	if len(intervals) == 0 {
		return 0
	}
	events := make([]sweepEvent, 0, len(intervals)*2)
	for _, iv := range intervals {
		start := domain.DateOf(iv.Start)
		end := domain.DateOf(iv.End)
		events = append(events,
			sweepEvent{at: start, delta: 1},
			sweepEvent{at: end.AddDate(0, 0, 1), delta: -1},
		)
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].at.Equal(events[j].at) {
			return events[i].at.Before(events[j].at)
		}
		return events[i].delta < events[j].delta
	})

	cur, best := 0, 0
	for _, ev := range events {
		cur += ev.delta
		if cur > best {
			best = cur
		}
	}
	return best
}

// OverlapOf converts a concurrency peak into the overload signal max(0, doing-1).
func OverlapOf(doing int) int {
	if doing <= 1 {
		return 0
	}
	return doing - 1
}

// ComputeWorkloads runs the sweep for every person. Output is ordered by person id.
func ComputeWorkloads(spans map[int64][]GroupSpan) []Workload {
	out := make([]Workload, 0, len(spans))
	for person, groups := range spans {
		intervals := make([]domain.Interval, 0, len(groups))
		for _, g := range groups {
			intervals = append(intervals, g.Interval)
		}
		doing := MaxConcurrent(intervals)
		out = append(out, Workload{
			PersonID: person,
			Doing:    doing,
			Overlap:  OverlapOf(doing),
			Groups:   append([]GroupSpan(nil), groups...),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PersonID < out[j].PersonID
	})
	return out
}
