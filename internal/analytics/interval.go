package analytics

import (
	"sort"

	"github.com/hylla/gauge/internal/domain"
)

// GroupSpan is the merged and clipped window one person spends on one group.
type GroupSpan struct {
	GroupKey  int64           `json:"group_key"`
	GroupName string          `json:"group_name,omitempty"`
	Interval  domain.Interval `json:"interval"`
}

// MergeAndClip collapses raw intervals into their envelope (earliest start, latest end)
// and clips it to period. It reports false when nothing remains.
// Gaps inside the envelope are not preserved.
func MergeAndClip(raw []domain.Interval, period domain.Period) (domain.Interval, bool) {
	if len(raw) == 0 {
		return domain.Interval{}, false
	}
	start := domain.DateOf(raw[0].Start)
	end := domain.DateOf(raw[0].End)
	for _, iv := range raw[1:] {
		if s := domain.DateOf(iv.Start); s.Before(start) {
			start = s
		}
		if e := domain.DateOf(iv.End); e.After(end) {
			end = e
		}
	}
	if start.Before(period.Start) {
		start = period.Start
	}
	if end.After(period.End) {
		end = period.End
	}
	if start.After(end) {
		return domain.Interval{}, false
	}
	return domain.Interval{Start: start, End: end}, true
}

// MergeAssignments groups rows by (person, group) and merges each group with MergeAndClip.
// Spans per person are ordered by group key.
func MergeAssignments(rows []domain.Assignment, period domain.Period) map[int64][]GroupSpan {
	type key struct {
		person int64
		group  int64
	}
	raw := map[key][]domain.Interval{}
	names := map[key]string{}
	for _, row := range rows {
		k := key{person: row.PersonID, group: row.GroupKey}
		raw[k] = append(raw[k], domain.Interval{Start: row.Start, End: row.End})
		if _, ok := names[k]; !ok && row.GroupName != "" {
			names[k] = row.GroupName
		}
	}

	out := map[int64][]GroupSpan{}
	for k, intervals := range raw {
		merged, ok := MergeAndClip(intervals, period)
		if !ok {
			continue
		}
		out[k.person] = append(out[k.person], GroupSpan{
			GroupKey:  k.group,
			GroupName: names[k],
			Interval:  merged,
		})
	}
	for person := range out {
		spans := out[person]
		sort.Slice(spans, func(i, j int) bool {
			return spans[i].GroupKey < spans[j].GroupKey
		})
	}
	return out
}
