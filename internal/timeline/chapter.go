package timeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkordes/tripline/internal/domain"
)

// ErrInvariant is returned when an operation would leave a chapter with
// fewer than one day or the timeline with no chapters. Callers treat it as
// a silent no-op: the receiver Timeline is returned unchanged.
var ErrInvariant = errors.New("timeline invariant violation")

// ErrNoChange is returned when an operation would not alter the timeline.
var ErrNoChange = errors.New("no change")

// ErrOutOfRange is returned for a chapter index outside the timeline.
var ErrOutOfRange = fmt.Errorf("%w: chapter index out of range", domain.ErrValidation)

// ErrUnknownRef is returned for a chapter ref the timeline does not contain.
var ErrUnknownRef = fmt.Errorf("%w: unknown chapter", domain.ErrValidation)

// Chapter is one contiguous segment of a trip as the editor sees it.
// Days is always >= 1 and Order always equals the chapter's index.
type Chapter struct {
	Ref           ChapterRef
	Title         string
	Type          domain.ChapterType
	StartLocation string
	EndLocation   string
	Days          int
	Order         int
}

// Mode selects how a resize is absorbed.
type Mode string

const (
	// ModeLocked keeps the trip length fixed by trading days with a neighbor.
	ModeLocked Mode = "locked"
	// ModeUnlocked applies the delta to the chapter alone, changing the trip length.
	ModeUnlocked Mode = "unlocked"
)

// ParseMode returns the Mode named by s. An empty string selects ModeLocked.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLocked:
		return ModeLocked, nil
	case ModeUnlocked:
		return ModeUnlocked, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", domain.ErrValidation, s)
}

// Direction is the way Move shifts a chapter.
type Direction int

const (
	Up   Direction = -1
	Down Direction = 1
)

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return 0, fmt.Errorf("%w: unknown direction %q", domain.ErrValidation, s)
}

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}
