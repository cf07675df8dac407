package timeline_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/timeline"
)

// ---- helpers ---------------------------------------------------------------

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// chapterFixture returns a persisted chapter with the given type and days.
func chapterFixture(typ domain.ChapterType, days int) timeline.Chapter {
	return timeline.Chapter{
		Ref:           timeline.Persisted{ID: uuid.New()},
		Title:         string(typ),
		Type:          typ,
		StartLocation: "Lisbon",
		EndLocation:   "Porto",
		Days:          days,
	}
}

// newTimeline builds a timeline of persisted chapters from alternating
// travel/stay chapters with the given day counts.
func newTimeline(t *testing.T, start time.Time, days ...int) timeline.Timeline {
	t.Helper()
	chapters := make([]timeline.Chapter, len(days))
	for i, d := range days {
		typ := domain.ChapterTravel
		if i%2 == 1 {
			typ = domain.ChapterStay
		}
		chapters[i] = chapterFixture(typ, d)
	}
	tl, err := timeline.New(start, chapters)
	require.NoError(t, err)
	return tl
}

func dayCounts(tl timeline.Timeline) []int {
	out := make([]int, 0, tl.Len())
	for _, c := range tl.Chapters() {
		out = append(out, c.Days)
	}
	return out
}

// requireConsistent checks the invariants every reachable timeline keeps:
// dense order, at least one day per chapter, and contiguous projected dates.
func requireConsistent(t *testing.T, tl timeline.Timeline) {
	t.Helper()
	require.Positive(t, tl.Len())
	proj := tl.Project()
	for i, s := range proj.Spans {
		require.Equal(t, i, s.Order, "order must equal index")
		require.GreaterOrEqual(t, s.Days, 1, "chapter %d below one day", i)
		require.True(t, s.End.Equal(s.Start.AddDate(0, 0, s.Days-1)), "chapter %d end", i)
		if i > 0 {
			require.True(t, s.Start.Equal(proj.Spans[i-1].End.AddDate(0, 0, 1)), "gap before chapter %d", i)
		}
	}
	require.True(t, proj.End.Equal(tl.End()))
}
