package timeline

import "fmt"

// partTwoSuffix labels the second half of a split chapter.
const partTwoSuffix = " (Part 2)"

// Split divides chapter i into two adjacent chapters covering the same days.
// The first keeps floor(days/2), the second gets the remainder. The second
// half copies type and locations, is titled as a continuation and always has
// a Pending ref, so it is inserted at commit time.
// A one-day chapter cannot be split (ErrInvariant).
func (t Timeline) Split(i int) (Timeline, ChapterRef, error) {
	if err := t.check(i); err != nil {
		return t, nil, err
	}
	orig := t.chapters[i]
	if orig.Days <= 1 {
		return t, nil, fmt.Errorf("%w: chapter %d has a single day", ErrInvariant, i)
	}
	first := orig.Days / 2
	second := orig.detached()
	second.Title = orig.Title + partTwoSuffix
	second.Days = orig.Days - first

	next, ref, err := t.Insert(i, second)
	if err != nil {
		return t, nil, err
	}
	next.chapters[i].Days = first
	return next, ref, nil
}

// detached returns a copy of c without identity, suitable for Insert.
func (c Chapter) detached() Chapter {
	c.Ref = nil
	c.Order = 0
	return c
}
