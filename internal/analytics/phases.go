package analytics

import (
	"time"

	"github.com/hylla/gauge/internal/domain"
)

// PhaseSummary counts phases by plan position relative to one day.
type PhaseSummary struct {
	Total   int `json:"total"`
	Planned int `json:"planned"`
	Doing   int `json:"doing"`
	Done    int `json:"done"`
	Overdue int `json:"overdue"`
}

// PhaseComparison pairs the today and yesterday summaries.
type PhaseComparison struct {
	Today     PhaseSummary `json:"today"`
	Yesterday PhaseSummary `json:"yesterday"`
	Diff      PhaseSummary `json:"diff"`
	Labels    []string     `json:"labels"`
}

// SummarizePhases counts phases whose plan window intersects the window period.
// Done today counts any recorded actual end; done yesterday only counts ends on or before yesterday.
// A historical window bounds both days by their date, and overdue then means not yet done on that day.
func SummarizePhases(phases []domain.Phase, w Window) PhaseComparison {
	inYear := make([]domain.Phase, 0, len(phases))
	for _, p := range phases {
		if p.PlanIntersects(w.Period) {
			inYear = append(inYear, p)
		}
	}

	doneToday := func(p domain.Phase) bool { return p.ActualEnd != nil }
	doneYesterday := doneBy(w.Yesterday)
	openToday, openYesterday := unfinished, unfinished
	if w.Historical {
		doneToday = doneBy(w.Today)
		openToday = not(doneToday)
		openYesterday = not(doneYesterday)
	}
	today := summarizePhasesOn(inYear, w.Today, doneToday, openToday)
	yesterday := summarizePhasesOn(inYear, w.Yesterday, doneYesterday, openYesterday)
	return PhaseComparison{
		Today:     today,
		Yesterday: yesterday,
		Diff: PhaseSummary{
			Total:   today.Total - yesterday.Total,
			Planned: today.Planned - yesterday.Planned,
			Doing:   today.Doing - yesterday.Doing,
			Done:    today.Done - yesterday.Done,
			Overdue: today.Overdue - yesterday.Overdue,
		},
		Labels: []string{"Planned", "Doing", "Done", "Overdue"},
	}
}

func summarizePhasesOn(phases []domain.Phase, day time.Time, done, open func(domain.Phase) bool) PhaseSummary {
	out := PhaseSummary{Total: len(phases)}
	for _, p := range phases {
		plan := domain.Interval{Start: domain.DateOf(*p.PlanStart), End: domain.DateOf(*p.PlanEnd)}
		end := plan.End
		if plan.Start.After(day) {
			out.Planned++
		}
		if plan.Contains(day) {
			out.Doing++
		}
		if done(p) {
			out.Done++
		}
		if open(p) && end.Before(day) {
			out.Overdue++
		}
	}
	return out
}

func doneBy(day time.Time) func(domain.Phase) bool {
	return func(p domain.Phase) bool {
		return p.ActualEnd != nil && !domain.DateOf(*p.ActualEnd).After(day)
	}
}

func unfinished(p domain.Phase) bool { return p.ActualEnd == nil }

func not(f func(domain.Phase) bool) func(domain.Phase) bool {
	return func(p domain.Phase) bool { return !f(p) }
}
