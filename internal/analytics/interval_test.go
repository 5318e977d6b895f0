package analytics

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hylla/gauge/internal/domain"
)

func TestMergeAndClipEnvelope(t *testing.T) {
	period := domain.CalendarYear(2026)
	raw := []domain.Interval{
		{Start: day(time.March, 10), End: day(time.March, 20)},
		{Start: day(time.January, 5), End: day(time.January, 8)},
		{Start: day(time.February, 1), End: day(time.April, 2)},
	}
	got, ok := MergeAndClip(raw, period)
	if !ok {
		t.Fatal("expected merged interval")
	}
	want := domain.Interval{Start: day(time.January, 5), End: day(time.April, 2)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("MergeAndClip() mismatch (-want +got):\n%s", diff)
	}

	reversed := []domain.Interval{raw[2], raw[1], raw[0]}
	got2, _ := MergeAndClip(reversed, period)
	if !got2.Start.Equal(got.Start) || !got2.End.Equal(got.End) {
		t.Fatalf("merge depends on order: %v vs %v", got2, got)
	}

	again, _ := MergeAndClip([]domain.Interval{got}, period)
	if !again.Start.Equal(got.Start) || !again.End.Equal(got.End) {
		t.Fatalf("merge is not idempotent: %v vs %v", again, got)
	}
}

func TestMergeAndClipClipsToPeriod(t *testing.T) {
	period := domain.CalendarYear(2026)
	raw := []domain.Interval{{
		Start: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC),
	}}
	got, ok := MergeAndClip(raw, period)
	if !ok {
		t.Fatal("expected clipped interval")
	}
	if !got.Start.Equal(period.Start) || !got.End.Equal(period.End) {
		t.Fatalf("unexpected clip %v", got)
	}
	if got.Start.After(got.End) {
		t.Fatal("clipped interval is inverted")
	}
}

func TestMergeAndClipDropsOutsideOrInverted(t *testing.T) {
	period := domain.CalendarYear(2026)
	outside := []domain.Interval{{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}}
	if _, ok := MergeAndClip(outside, period); ok {
		t.Fatal("expected interval outside period to be dropped")
	}
	inverted := []domain.Interval{{Start: day(time.May, 5), End: day(time.May, 1)}}
	if _, ok := MergeAndClip(inverted, period); ok {
		t.Fatal("expected inverted interval to be dropped")
	}
	if _, ok := MergeAndClip(nil, period); ok {
		t.Fatal("expected empty input to be dropped")
	}
}

func TestMergeAssignmentsGroupsByPersonAndGroup(t *testing.T) {
	period := domain.CalendarYear(2026)
	rows := []domain.Assignment{
		{PersonID: 1, GroupKey: 20, GroupName: "Portal", Start: day(time.February, 1), End: day(time.February, 10)},
		{PersonID: 1, GroupKey: 10, GroupName: "Billing", Start: day(time.January, 1), End: day(time.January, 5)},
		{PersonID: 1, GroupKey: 20, Start: day(time.March, 1), End: day(time.March, 3)},
		{PersonID: 2, GroupKey: 10, Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	got := MergeAssignments(rows, period)
	want := map[int64][]GroupSpan{
		1: {
			{GroupKey: 10, GroupName: "Billing", Interval: domain.Interval{Start: day(time.January, 1), End: day(time.January, 5)}},
			{GroupKey: 20, GroupName: "Portal", Interval: domain.Interval{Start: day(time.February, 1), End: day(time.March, 3)}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("MergeAssignments() mismatch (-want +got):\n%s", diff)
	}
}
