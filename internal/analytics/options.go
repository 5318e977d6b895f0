package analytics

import (
	"math"
	"strings"
	"time"

	"github.com/hylla/gauge/internal/domain"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultUnknownLabel   = "Unknown"
	DefaultFallbackPrefix = "EMP#"
	NoOverlapLabel        = "No Overlap"
	NoOpenIssuesLabel     = "No Open Issues"
)

// Options configures one dashboard computation.
type Options struct {
	Location       *time.Location
	StatusLabels   []string
	PriorityLabels []string
	UnknownLabel   string
	FallbackPrefix string
}

// DefaultOptions returns the standard labels in UTC.
func DefaultOptions() Options {
	return Options{
		Location: time.UTC,
		StatusLabels: []string{
			domain.StatusOpen,
			domain.StatusWIP,
			domain.StatusFixed,
			domain.StatusReject,
			domain.StatusPass,
			domain.StatusFail,
		},
		PriorityLabels: []string{domain.PriorityUrgent, domain.PriorityNormal},
		UnknownLabel:   DefaultUnknownLabel,
		FallbackPrefix: DefaultFallbackPrefix,
	}
}

// normalized fills empty fields from DefaultOptions and canonicalizes labels.
func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Location == nil {
		o.Location = def.Location
	}
	o.StatusLabels = normalizeLabels(o.StatusLabels, def.StatusLabels)
	o.PriorityLabels = normalizeLabels(o.PriorityLabels, def.PriorityLabels)
	if strings.TrimSpace(o.UnknownLabel) == "" {
		o.UnknownLabel = def.UnknownLabel
	}
	if strings.TrimSpace(o.FallbackPrefix) == "" {
		o.FallbackPrefix = def.FallbackPrefix
	}
	return o
}

func normalizeLabels(in, fallback []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		label := domain.NormalizeStatus(raw)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

// Window holds the instants and civil dates derived from one as-of timestamp.
type Window struct {
	AsOf      time.Time     `json:"as_of"`
	Today     time.Time     `json:"today"`
	Yesterday time.Time     `json:"yesterday"`
	Cutoff    time.Time     `json:"cutoff"`
	Period    domain.Period `json:"period"`
	// Historical is set when AsOf lies before the moment the live issue fields were read.
	// Today's figures are then reconstructed at AsOf instead of read from live state.
	Historical bool `json:"historical,omitempty"`
}

// NewWindow resolves today, yesterday, the end-of-yesterday cutoff and the calendar-year period
// for asOf observed in loc.
func NewWindow(asOf time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	local := asOf.In(loc)
	y, m, d := local.Date()
	startOfToday := time.Date(y, m, d, 0, 0, 0, 0, loc)
	today := domain.DateOf(local)
	return Window{
		AsOf:      asOf,
		Today:     today,
		Yesterday: today.AddDate(0, 0, -1),
		Cutoff:    startOfToday.Add(-time.Nanosecond),
		Period:    domain.CalendarYear(y),
	}
}

// ObservedAt returns the window marked historical when AsOf is before now.
// A zero now keeps the window live.
func (w Window) ObservedAt(now time.Time) Window {
	w.Historical = !now.IsZero() && w.AsOf.Before(now)
	return w
}

// HistoryHorizon is the latest ChangedAt the window needs from the event log.
func (w Window) HistoryHorizon() time.Time {
	if w.Historical {
		return w.AsOf
	}
	return w.Cutoff
}

// ReopenRate returns reopened/population as a percentage rounded to one decimal,
// half away from zero. A zero population yields 0.
func ReopenRate(reopened, population int) float64 {
	if population <= 0 {
		return 0
	}
	return round1(float64(reopened) * 100 / float64(population))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
