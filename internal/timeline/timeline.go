// Package timeline is the in-memory model of a trip's chapters and the rules
// that keep it consistent while it is edited.
//
// A Timeline is a value: every operation returns a new Timeline and leaves
// the receiver untouched, so callers can keep earlier versions for undo or
// to restore state after a failed save. Dates are never stored per chapter;
// they are derived from the trip start date and the day counts by Project.
package timeline

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/tripline/internal/domain"
)

// Timeline is a trip start date plus its ordered chapters and the ids of
// persisted chapters removed since the snapshot was taken.
type Timeline struct {
	start     time.Time
	chapters  []Chapter
	deleted   []uuid.UUID
	nextLocal int
}

// New builds a Timeline starting on start. Order fields are reassigned from
// slice position. Returns ErrInvariant if chapters is empty or any chapter
// has fewer than one day.
func New(start time.Time, chapters []Chapter) (Timeline, error) {
	if len(chapters) == 0 {
		return Timeline{}, fmt.Errorf("%w: a timeline needs at least one chapter", ErrInvariant)
	}
	t := Timeline{start: domain.Date(start), chapters: slices.Clone(chapters)}
	for i, c := range t.chapters {
		if c.Days < 1 {
			return Timeline{}, fmt.Errorf("%w: chapter %d has %d days", ErrInvariant, i, c.Days)
		}
		if p, ok := c.Ref.(Pending); ok && p.LocalID > t.nextLocal {
			t.nextLocal = p.LocalID
		}
	}
	t.renumber()
	return t, nil
}

// Start returns the trip start date.
func (t Timeline) Start() time.Time { return t.start }

// Len returns the number of chapters.
func (t Timeline) Len() int { return len(t.chapters) }

// Chapters returns a copy of the ordered chapters.
func (t Timeline) Chapters() []Chapter { return slices.Clone(t.chapters) }

// Chapter returns the chapter at index i.
func (t Timeline) Chapter(i int) (Chapter, error) {
	if err := t.check(i); err != nil {
		return Chapter{}, err
	}
	return t.chapters[i], nil
}

// Deleted returns the ids of persisted chapters removed in this session.
func (t Timeline) Deleted() []uuid.UUID { return slices.Clone(t.deleted) }

// TotalDays returns the sum of all chapter day counts.
func (t Timeline) TotalDays() int {
	total := 0
	for _, c := range t.chapters {
		total += c.Days
	}
	return total
}

// End returns the last day of the trip.
func (t Timeline) End() time.Time {
	return t.start.AddDate(0, 0, t.TotalDays()-1)
}

// StartOf returns the first day of chapter i.
func (t Timeline) StartOf(i int) (time.Time, error) {
	if err := t.check(i); err != nil {
		return time.Time{}, err
	}
	offset := 0
	for _, c := range t.chapters[:i] {
		offset += c.Days
	}
	return t.start.AddDate(0, 0, offset), nil
}

// IndexOf returns the index of the chapter identified by ref.
func (t Timeline) IndexOf(ref ChapterRef) (int, error) {
	for i, c := range t.chapters {
		if c.Ref == ref {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrUnknownRef, ref)
}

// Move swaps chapter i with its neighbor in direction d.
// Moving the first chapter up or the last chapter down is a no-op (ErrInvariant).
func (t Timeline) Move(i int, d Direction) (Timeline, error) {
	if err := t.check(i); err != nil {
		return t, err
	}
	j := i + int(d)
	if j < 0 || j >= len(t.chapters) {
		return t, fmt.Errorf("%w: cannot move chapter %d %s", ErrInvariant, i, d)
	}
	next := t.clone()
	next.chapters[i], next.chapters[j] = next.chapters[j], next.chapters[i]
	next.renumber()
	return next, nil
}

// Insert places c immediately after index after (-1 inserts at the front)
// under a freshly assigned Pending ref, which is returned alongside.
// The day count of c is taken as is; see InsertChapter for the mode-aware form.
func (t Timeline) Insert(after int, c Chapter) (Timeline, ChapterRef, error) {
	if after < -1 || after >= len(t.chapters) {
		return t, nil, fmt.Errorf("%w: %d", ErrOutOfRange, after)
	}
	if c.Days < 1 {
		return t, nil, fmt.Errorf("%w: new chapter has %d days", ErrInvariant, c.Days)
	}
	next := t.clone()
	next.nextLocal++
	ref := Pending{LocalID: next.nextLocal}
	c.Ref = ref
	next.chapters = slices.Insert(next.chapters, after+1, c)
	next.renumber()
	return next, ref, nil
}

// Delete removes chapter i. The last remaining chapter cannot be deleted.
// A persisted chapter is recorded for deletion at commit time; a pending one
// simply disappears.
func (t Timeline) Delete(i int) (Timeline, error) {
	if err := t.check(i); err != nil {
		return t, err
	}
	if len(t.chapters) == 1 {
		return t, fmt.Errorf("%w: cannot delete the last chapter", ErrInvariant)
	}
	next := t.clone()
	if p, ok := next.chapters[i].Ref.(Persisted); ok {
		next.deleted = append(next.deleted, p.ID)
	}
	next.chapters = slices.Delete(next.chapters, i, i+1)
	next.renumber()
	return next, nil
}

// Rename sets the title of the chapter identified by ref.
// A blank title is ignored and the prior title kept (ErrNoChange).
func (t Timeline) Rename(ref ChapterRef, title string) (Timeline, error) {
	i, err := t.IndexOf(ref)
	if err != nil {
		return t, err
	}
	title = strings.TrimSpace(title)
	if title == "" || title == t.chapters[i].Title {
		return t, ErrNoChange
	}
	next := t.clone()
	next.chapters[i].Title = title
	return next, nil
}

func (t Timeline) check(i int) error {
	if i < 0 || i >= len(t.chapters) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	return nil
}

func (t Timeline) clone() Timeline {
	return Timeline{
		start:     t.start,
		chapters:  slices.Clone(t.chapters),
		deleted:   slices.Clone(t.deleted),
		nextLocal: t.nextLocal,
	}
}

func (t *Timeline) renumber() {
	for i := range t.chapters {
		t.chapters[i].Order = i
	}
}
