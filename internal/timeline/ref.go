package timeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ChapterRef identifies a chapter inside a Timeline.
// It is either Persisted (the chapter exists in storage) or Pending (the
// chapter was created during this editing session and has no stored id yet).
// The distinction decides whether a save becomes an UPDATE or an INSERT.
type ChapterRef interface {
	fmt.Stringer
	isChapterRef()
}

// Persisted refers to a chapter that already has a storage id.
type Persisted struct {
	ID uuid.UUID
}

// Pending refers to a chapter created locally and not yet committed.
type Pending struct {
	LocalID int
}

func (Persisted) isChapterRef() {}
func (Pending) isChapterRef()   {}

func (p Persisted) String() string { return p.ID.String() }
func (p Pending) String() string   { return "local-" + strconv.Itoa(p.LocalID) }

// ParseRef decodes the wire form produced by ChapterRef.String.
func ParseRef(s string) (ChapterRef, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "local-"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: malformed local chapter ref %q", ErrUnknownRef, s)
		}
		return Pending{LocalID: n}, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed chapter ref %q", ErrUnknownRef, s)
	}
	return Persisted{ID: id}, nil
}
