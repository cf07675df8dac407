package timeline

import (
	"time"

	"github.com/pkordes/tripline/internal/domain"
)

// Span is a chapter with its projected calendar dates. Start and End are
// inclusive.
type Span struct {
	Chapter
	Start time.Time
	End   time.Time
}

// Projection is the concrete calendar layout of a timeline.
type Projection struct {
	Start     time.Time
	End       time.Time
	TotalDays int
	Spans     []Span
}

// Project lays chapters end to end from start: chapter 0 begins on start,
// each chapter ends Days-1 days after it begins, and the next one begins the
// following day. It is pure and is meant to be re-run on every read rather
// than cached.
func Project(start time.Time, chapters []Chapter) Projection {
	start = domain.Date(start)
	p := Projection{Start: start, End: start, Spans: make([]Span, 0, len(chapters))}
	cursor := start
	for _, c := range chapters {
		end := cursor.AddDate(0, 0, c.Days-1)
		p.Spans = append(p.Spans, Span{Chapter: c, Start: cursor, End: end})
		p.TotalDays += c.Days
		p.End = end
		cursor = end.AddDate(0, 0, 1)
	}
	return p
}

// Project is shorthand for Project(t.Start(), t.Chapters()).
func (t Timeline) Project() Projection {
	return Project(t.start, t.chapters)
}
