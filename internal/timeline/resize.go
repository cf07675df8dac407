package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkordes/tripline/internal/domain"
)

// MaxTripDays caps the length of a trip, and so of any one chapter.
// Every edit that would grow a timeline past it is rejected with ErrInvariant.
const MaxTripDays = 3660

// grow returns ErrInvariant when adding days to t would pass MaxTripDays.
// It compares without adding, so any int is safe.
func (t Timeline) grow(days int) error {
	if days > MaxTripDays-t.TotalDays() {
		return fmt.Errorf("%w: a trip cannot be longer than %d days", ErrInvariant, MaxTripDays)
	}
	return nil
}

// Resize changes chapter i's day count by delta under mode.
//
// Unlocked: the delta is applied to chapter i alone and the trip length
// changes by delta.
//
// Locked: the trip length is preserved. The next chapter absorbs -delta if it
// can stay at one day or more, otherwise the previous chapter does. When
// neither can, the resize is rejected with ErrInvariant and nothing changes.
func (t Timeline) Resize(i, delta int, mode Mode) (Timeline, error) {
	if err := t.check(i); err != nil {
		return t, err
	}
	if delta == 0 {
		return t, ErrNoChange
	}
	if delta < 1-t.chapters[i].Days {
		return t, fmt.Errorf("%w: chapter %d cannot shrink below one day", ErrInvariant, i)
	}
	if delta > MaxTripDays-t.chapters[i].Days {
		return t, fmt.Errorf("%w: chapter %d cannot grow past %d days", ErrInvariant, i, MaxTripDays)
	}
	if mode == ModeUnlocked {
		if err := t.grow(delta); err != nil {
			return t, err
		}
		next := t.clone()
		next.chapters[i].Days += delta
		return next, nil
	}
	next := t.clone()
	next.chapters[i].Days += delta
	donor := t.donor(i, delta)
	if donor < 0 {
		return t, fmt.Errorf("%w: no neighbor of chapter %d can absorb %+d days", ErrInvariant, i, delta)
	}
	next.chapters[donor].Days -= delta
	return next, nil
}

// donor returns the neighbor that can absorb -delta days for chapter i,
// preferring the next chapter, or -1 when neither neighbor can.
func (t Timeline) donor(i, delta int) int {
	if n := i + 1; n < len(t.chapters) && t.chapters[n].Days-delta >= 1 {
		return n
	}
	if p := i - 1; p >= 0 && t.chapters[p].Days-delta >= 1 {
		return p
	}
	return -1
}

// MaxDays returns the largest day count chapter i can reach in one resize
// under mode. Unlocked, that is whatever keeps the trip within MaxTripDays.
// The bool is false for an index out of range.
func (t Timeline) MaxDays(i int, mode Mode) (int, bool) {
	if i < 0 || i >= len(t.chapters) {
		return 0, false
	}
	if mode == ModeUnlocked {
		return max(t.chapters[i].Days, t.chapters[i].Days+MaxTripDays-t.TotalDays()), true
	}
	spare := 0
	if n := i + 1; n < len(t.chapters) {
		spare = t.chapters[n].Days - 1
	}
	if p := i - 1; p >= 0 && t.chapters[p].Days-1 > spare {
		spare = t.chapters[p].Days - 1
	}
	return t.chapters[i].Days + spare, true
}

// SetEnd moves chapter i's last day to end, keeping its first day fixed.
// It is Resize by the difference between the requested and current length.
func (t Timeline) SetEnd(i int, end time.Time, mode Mode) (Timeline, error) {
	start, err := t.StartOf(i)
	if err != nil {
		return t, err
	}
	days := domain.DaysBetween(start, end) + 1
	return t.Resize(i, days-t.chapters[i].Days, mode)
}

// SetStart moves chapter i's first day to start.
//
// For chapter 0 in locked mode the trip start moves and chapter 0 absorbs the
// shift in its own day count, so the trip end stays put; in unlocked mode the
// whole timeline shifts. For any later chapter this moves the boundary with
// the previous chapter, i.e. SetEnd on chapter i-1 to the day before start.
func (t Timeline) SetStart(i int, start time.Time, mode Mode) (Timeline, error) {
	if err := t.check(i); err != nil {
		return t, err
	}
	if i > 0 {
		return t.SetEnd(i-1, domain.Date(start).AddDate(0, 0, -1), mode)
	}
	if mode == ModeUnlocked {
		return t.ShiftStart(start)
	}
	shift := domain.DaysBetween(t.start, start)
	if shift == 0 {
		return t, ErrNoChange
	}
	if shift > t.chapters[0].Days-1 {
		return t, fmt.Errorf("%w: first chapter cannot shrink below one day", ErrInvariant)
	}
	if err := t.grow(-shift); err != nil {
		return t, err
	}
	next := t.clone()
	next.start = domain.Date(start)
	next.chapters[0].Days -= shift
	return next, nil
}

// ShiftStart moves the whole timeline so the trip begins on start.
// Day counts are unchanged.
func (t Timeline) ShiftStart(start time.Time) (Timeline, error) {
	start = domain.Date(start)
	if start.Equal(t.start) {
		return t, ErrNoChange
	}
	next := t.clone()
	next.start = start
	return next, nil
}

// InsertChapter inserts c after index after with one day or more.
// The title is trimmed and must not be blank (domain.ErrValidation).
// In locked mode the new chapter's days are taken from the neighbor that
// would donate to a resize of the chapter at after, so the trip length is
// preserved; if no neighbor can give them up the insert is rejected.
func (t Timeline) InsertChapter(after int, c Chapter, mode Mode) (Timeline, ChapterRef, error) {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return t, nil, fmt.Errorf("%w: a new chapter needs a title", domain.ErrValidation)
	}
	if c.Days < 1 {
		c.Days = 1
	}
	if c.Days > MaxTripDays {
		return t, nil, fmt.Errorf("%w: a chapter cannot be longer than %d days", ErrInvariant, MaxTripDays)
	}
	if mode == ModeUnlocked {
		if err := t.grow(c.Days); err != nil {
			return t, nil, err
		}
	}
	next, ref, err := t.Insert(after, c)
	if err != nil || mode == ModeUnlocked {
		return next, ref, err
	}
	// The inserted chapter sits at after+1; its neighbors are after and after+2.
	donor := next.donor(after+1, c.Days)
	if donor < 0 {
		return t, nil, fmt.Errorf("%w: no neighbor can give up %d days", ErrInvariant, c.Days)
	}
	next.chapters[donor].Days -= c.Days
	return next, ref, nil
}

// Remove deletes chapter i under mode. In locked mode its days are handed to
// the next chapter, or the previous one when i is last, so the trip length is
// preserved. In unlocked mode the trip shrinks by the chapter's length.
func (t Timeline) Remove(i int, mode Mode) (Timeline, error) {
	next, err := t.Delete(i)
	if err != nil || mode == ModeUnlocked {
		return next, err
	}
	heir := i
	if heir >= next.Len() {
		heir = next.Len() - 1
	}
	next.chapters[heir].Days += t.chapters[i].Days
	return next, nil
}
