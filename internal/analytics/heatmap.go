package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/hylla/gauge/internal/domain"
)

const maxWeeksPerYear = 52

// Week is one seven-day bucket of a calendar year. Week 1 starts on Jan 1.
type Week struct {
	Number int       `json:"number"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// HeatmapCell reports how many distinct projects one person touches in one week.
type HeatmapCell struct {
	PersonID     int64     `json:"person_id"`
	PersonName   string    `json:"person_name"`
	Week         int       `json:"week"`
	WeekStart    time.Time `json:"week_start"`
	ProjectCount int       `json:"project_count"`
	ProjectNames string    `json:"project_names"`
}

// Heatmap is the weekly workload grid for one year.
type Heatmap struct {
	ComputationID string        `json:"computation_id,omitempty"`
	Year          int           `json:"year"`
	Weeks         []Week        `json:"weeks"`
	Cells         []HeatmapCell `json:"cells"`
}

// WeeksOf returns at most 52 consecutive seven-day weeks starting on Jan 1 of year.
// A week is emitted only while its start is on or before Dec 31.
func WeeksOf(year int) []Week {
	period := domain.CalendarYear(year)
	out := make([]Week, 0, maxWeeksPerYear)
	start := period.Start
	for n := 1; n <= maxWeeksPerYear && !start.After(period.End); n++ {
		out = append(out, Week{Number: n, Start: start, End: start.AddDate(0, 0, 6)})
		start = start.AddDate(0, 0, 7)
	}
	return out
}

// WeeklyHeatmap counts distinct project names per person and week. Rows use each assignment's own
// inclusive window. People without a recorded name are left out. Only weeks with at least one project
// produce a cell. Cells are ordered by person name, person id, then week.
func WeeklyHeatmap(year int, rows []domain.Assignment, dir Directory) Heatmap {
	weeks := WeeksOf(year)
	type cellKey struct {
		person int64
		week   int
	}
	projects := map[cellKey]map[string]struct{}{}
	people := map[int64]string{}
	for _, row := range rows {
		name := strings.TrimSpace(row.GroupName)
		if name == "" {
			continue
		}
		person, ok := dir.Lookup(row.PersonID)
		if !ok {
			continue
		}
		people[row.PersonID] = person
		span, err := domain.NewInterval(row.Start, row.End)
		if err != nil {
			continue
		}
		for _, w := range weeks {
			if !span.Overlaps(domain.Interval{Start: w.Start, End: w.End}) {
				continue
			}
			k := cellKey{person: row.PersonID, week: w.Number}
			if projects[k] == nil {
				projects[k] = map[string]struct{}{}
			}
			projects[k][name] = struct{}{}
		}
	}

	cells := make([]HeatmapCell, 0, len(projects))
	for k, set := range projects {
		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)
		w := weeks[k.week-1]
		cells = append(cells, HeatmapCell{
			PersonID:     k.person,
			PersonName:   people[k.person],
			Week:         w.Number,
			WeekStart:    w.Start,
			ProjectCount: len(names),
			ProjectNames: strings.Join(names, " | "),
		})
	}
	sort.Slice(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.PersonName != b.PersonName {
			return a.PersonName < b.PersonName
		}
		if a.PersonID != b.PersonID {
			return a.PersonID < b.PersonID
		}
		return a.Week < b.Week
	})
	return Heatmap{Year: year, Weeks: weeks, Cells: cells}
}
