package timeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/tripline/internal/domain"
)

// Snapshot is the stored state a session started from. Its Timeline is the
// diff base for the change set built at save time.
type Snapshot struct {
	TripID   uuid.UUID
	Timeline Timeline
}

// SnapshotFromChapters builds a Snapshot from stored chapters, which must be
// in position order. Each chapter's day count is derived from its inclusive
// stored date range; the timeline starts on the first chapter's start date.
func SnapshotFromChapters(tripID uuid.UUID, stored []domain.Chapter) (Snapshot, error) {
	if len(stored) == 0 {
		return Snapshot{}, fmt.Errorf("%w: trip has no chapters", domain.ErrValidation)
	}
	chapters := make([]Chapter, len(stored))
	for i, c := range stored {
		chapters[i] = Chapter{
			Ref:           Persisted{ID: c.ID},
			Title:         c.Title,
			Type:          c.Type,
			StartLocation: c.StartLocation,
			EndLocation:   c.EndLocation,
			Days:          c.Days(),
		}
	}
	tl, err := New(stored[0].StartDate, chapters)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{TripID: tripID, Timeline: tl}, nil
}

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ChapterWrite is one chapter row to be written at commit time.
// ID is zero and LocalID set for inserts; the reverse for updates.
type ChapterWrite struct {
	ID            uuid.UUID
	LocalID       int
	Title         string
	Type          domain.ChapterType
	StartLocation string
	EndLocation   string
	StartDate     time.Time
	EndDate       time.Time
	Position      int

	// Changed reports whether an update differs from the snapshot. Unchanged
	// updates are still written.
	Changed bool
}

// ChangeSet is the full set of writes that turns a snapshot into an edited
// timeline. It is applied all-or-nothing.
type ChangeSet struct {
	TripID  uuid.UUID
	Inserts []ChapterWrite
	Updates []ChapterWrite
	Deletes []uuid.UUID
	Range   DateRange
}

// Diff classifies every chapter of edited against snap: Pending chapters
// become inserts, Persisted chapters become updates, and every id the edited
// timeline recorded as deleted becomes a delete. Dates and positions are the
// final projected values; Range is recomputed from edited.
func Diff(snap Snapshot, edited Timeline) ChangeSet {
	before := make(map[uuid.UUID]Span, snap.Timeline.Len())
	for _, s := range snap.Timeline.Project().Spans {
		if p, ok := s.Ref.(Persisted); ok {
			before[p.ID] = s
		}
	}

	proj := edited.Project()
	cs := ChangeSet{
		TripID:  snap.TripID,
		Deletes: edited.Deleted(),
		Range:   DateRange{Start: proj.Start, End: proj.End},
	}
	for _, s := range proj.Spans {
		w := ChapterWrite{
			Title:         s.Title,
			Type:          s.Type,
			StartLocation: s.StartLocation,
			EndLocation:   s.EndLocation,
			StartDate:     s.Start,
			EndDate:       s.End,
			Position:      s.Order,
		}
		switch ref := s.Ref.(type) {
		case Pending:
			w.LocalID = ref.LocalID
			cs.Inserts = append(cs.Inserts, w)
		case Persisted:
			w.ID = ref.ID
			w.Changed = changed(before[ref.ID], s)
			cs.Updates = append(cs.Updates, w)
		}
	}
	return cs
}

func changed(a, b Span) bool {
	return a.Title != b.Title ||
		a.Order != b.Order ||
		!a.Start.Equal(b.Start) ||
		!a.End.Equal(b.End)
}

// Empty reports whether applying cs would leave storage as it was.
func (cs ChangeSet) Empty() bool {
	if len(cs.Inserts) > 0 || len(cs.Deletes) > 0 {
		return false
	}
	for _, u := range cs.Updates {
		if u.Changed {
			return false
		}
	}
	return true
}

// CommitResult reports the ids storage assigned to inserted chapters,
// keyed by their LocalID.
type CommitResult struct {
	Inserted map[int]uuid.UUID
}

// Rebase returns t with every Pending ref replaced by its assigned id and
// the deleted set cleared, i.e. the timeline as it now exists in storage.
func (t Timeline) Rebase(res CommitResult) (Timeline, error) {
	next := t.clone()
	next.deleted = nil
	next.nextLocal = 0
	for i, c := range next.chapters {
		p, ok := c.Ref.(Pending)
		if !ok {
			continue
		}
		id, ok := res.Inserted[p.LocalID]
		if !ok {
			return t, fmt.Errorf("timeline.Rebase: no id assigned to %s", p)
		}
		next.chapters[i].Ref = Persisted{ID: id}
	}
	return next, nil
}
