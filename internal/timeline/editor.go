package timeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/tripline/internal/domain"
)

// historyLimit bounds the number of undo steps an Editor keeps.
const historyLimit = 50

// Op names a user edit.
type Op string

const (
	OpResize         Op = "resize"
	OpSetStart       Op = "set_start"
	OpSetEnd         Op = "set_end"
	OpShiftTripStart Op = "shift_trip_start"
	OpMove           Op = "move"
	OpSplit          Op = "split"
	OpDelete         Op = "delete"
	OpRename         Op = "rename"
	OpInsert         Op = "insert"
)

// Edit is one user action against the timeline. Which fields matter depends
// on Op:
//
//	resize           Index, Delta
//	set_start        Index, Date
//	set_end          Index, Date
//	shift_trip_start Date
//	move             Index, Direction
//	split, delete    Index
//	rename           Ref, Title
//	insert           Index (insert after; -1 for the front), Title, Type,
//	                 StartLocation, EndLocation, Delta (days, default 1)
type Edit struct {
	Op            Op
	Index         int
	Delta         int
	Direction     Direction
	Date          time.Time
	Title         string
	Ref           ChapterRef
	Type          domain.ChapterType
	StartLocation string
	EndLocation   string
}

// Editor is one editing session over a trip's timeline. It is not safe for
// concurrent use; callers serialise access.
type Editor struct {
	snapshot Snapshot
	current  Timeline
	history  []Timeline
}

// NewEditor opens a session on snap.
func NewEditor(snap Snapshot) *Editor {
	return &Editor{snapshot: snap, current: snap.Timeline}
}

// Snapshot returns the baseline the session diffs against.
func (e *Editor) Snapshot() Snapshot { return e.snapshot }

// Timeline returns the current edited timeline.
func (e *Editor) Timeline() Timeline { return e.current }

// TripID returns the trip being edited.
func (e *Editor) TripID() uuid.UUID { return e.snapshot.TripID }

// CanUndo reports whether Undo would change anything.
func (e *Editor) CanUndo() bool { return len(e.history) > 0 }

// Apply runs edit under mode. An edit that would break a timeline invariant
// or change nothing is dropped and reported as applied=false with a nil
// error; malformed edits (bad index, unknown ref or op) return an error.
func (e *Editor) Apply(edit Edit, mode Mode) (bool, error) {
	next, err := e.apply(edit, mode)
	if errors.Is(err, ErrInvariant) || errors.Is(err, ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	e.history = append(e.history, e.current)
	if len(e.history) > historyLimit {
		e.history = e.history[len(e.history)-historyLimit:]
	}
	e.current = next
	return true, nil
}

func (e *Editor) apply(edit Edit, mode Mode) (Timeline, error) {
	t := e.current
	switch edit.Op {
	case OpResize:
		return t.Resize(edit.Index, edit.Delta, mode)
	case OpSetStart:
		return t.SetStart(edit.Index, edit.Date, mode)
	case OpSetEnd:
		return t.SetEnd(edit.Index, edit.Date, mode)
	case OpShiftTripStart:
		return t.ShiftStart(edit.Date)
	case OpMove:
		return t.Move(edit.Index, edit.Direction)
	case OpSplit:
		next, _, err := t.Split(edit.Index)
		return next, err
	case OpDelete:
		return t.Remove(edit.Index, mode)
	case OpRename:
		if edit.Ref == nil {
			return t, fmt.Errorf("%w: rename needs a chapter ref", domain.ErrValidation)
		}
		return t.Rename(edit.Ref, edit.Title)
	case OpInsert:
		typ := edit.Type
		if typ == "" {
			typ = domain.ChapterStay
		}
		next, _, err := t.InsertChapter(edit.Index, Chapter{
			Title:         edit.Title,
			Type:          typ,
			StartLocation: edit.StartLocation,
			EndLocation:   edit.EndLocation,
			Days:          edit.Delta,
		}, mode)
		return next, err
	}
	return t, fmt.Errorf("%w: unknown edit %q", domain.ErrValidation, edit.Op)
}

// Undo restores the timeline as it was before the last applied edit.
func (e *Editor) Undo() bool {
	if len(e.history) == 0 {
		return false
	}
	last := len(e.history) - 1
	e.current = e.history[last]
	e.history = e.history[:last]
	return true
}

// ChangeSet diffs the current timeline against the snapshot.
func (e *Editor) ChangeSet() ChangeSet {
	return Diff(e.snapshot, e.current)
}

// Adopt makes the committed timeline the new baseline: pending chapters take
// their assigned ids, the deleted set is cleared and undo history dropped.
func (e *Editor) Adopt(res CommitResult) error {
	next, err := e.current.Rebase(res)
	if err != nil {
		return err
	}
	e.snapshot = Snapshot{TripID: e.snapshot.TripID, Timeline: next}
	e.current = next
	e.history = nil
	return nil
}

// ChapterView is the display form of one chapter.
// MaxDays is the largest length one resize can reach under the mode.
type ChapterView struct {
	Ref           string
	Persisted     bool
	Title         string
	Type          domain.ChapterType
	StartLocation string
	EndLocation   string
	Order         int
	Days          int
	MaxDays       *int
	Start         time.Time
	End           time.Time
}

// View is what a client needs to render the editor.
type View struct {
	TripID    uuid.UUID
	Mode      Mode
	Start     time.Time
	End       time.Time
	TotalDays int
	Chapters  []ChapterView
	Deleted   []uuid.UUID
	Dirty     bool
	CanUndo   bool
}

// View projects the current timeline for display under mode.
func (e *Editor) View(mode Mode) View {
	v := Describe(e.snapshot.TripID, e.current, mode)
	v.Dirty = !e.ChangeSet().Empty()
	v.CanUndo = e.CanUndo()
	return v
}

// Describe projects t for display under mode.
func Describe(tripID uuid.UUID, t Timeline, mode Mode) View {
	proj := t.Project()
	v := View{
		TripID:    tripID,
		Mode:      mode,
		Start:     proj.Start,
		End:       proj.End,
		TotalDays: proj.TotalDays,
		Chapters:  make([]ChapterView, len(proj.Spans)),
		Deleted:   t.Deleted(),
	}
	for i, s := range proj.Spans {
		_, persisted := s.Ref.(Persisted)
		cv := ChapterView{
			Ref:           s.Ref.String(),
			Persisted:     persisted,
			Title:         s.Title,
			Type:          s.Type,
			StartLocation: s.StartLocation,
			EndLocation:   s.EndLocation,
			Order:         s.Order,
			Days:          s.Days,
			Start:         s.Start,
			End:           s.End,
		}
		if maxDays, bounded := t.MaxDays(i, mode); bounded {
			cv.MaxDays = &maxDays
		}
		v.Chapters[i] = cv
	}
	return v
}
