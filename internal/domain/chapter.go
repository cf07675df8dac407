package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChapterType is the closed set of chapter categories.
type ChapterType string

const (
	ChapterTravel   ChapterType = "travel"
	ChapterStay     ChapterType = "stay"
	ChapterTour     ChapterType = "tour"
	ChapterRetreat  ChapterType = "retreat"
	ChapterRoadTrip ChapterType = "road_trip"
)

// ChapterTypes lists every valid ChapterType in display order.
var ChapterTypes = []ChapterType{ChapterTravel, ChapterStay, ChapterTour, ChapterRetreat, ChapterRoadTrip}

// ParseChapterType normalises s and returns the matching ChapterType.
// Returns ErrValidation for anything outside the closed set.
func ParseChapterType(s string) (ChapterType, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, t := range ChapterTypes {
		if string(t) == norm {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown chapter type %q", ErrValidation, s)
}

// Point is a resolved geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Chapter is one persisted segment of a trip's timeline.
// StartDate and EndDate are inclusive calendar dates at UTC midnight.
// Position is the zero-based index of the chapter within its trip.
// StartPoint and EndPoint are nil until the locations have been geocoded.
type Chapter struct {
	ID            uuid.UUID
	TripID        uuid.UUID
	Title         string
	Type          ChapterType
	StartLocation string
	EndLocation   string
	StartDate     time.Time
	EndDate       time.Time
	Position      int
	StartPoint    *Point
	EndPoint      *Point
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Days returns the inclusive day count between StartDate and EndDate,
// never less than one.
func (c Chapter) Days() int {
	d := DaysBetween(c.StartDate, c.EndDate) + 1
	if d < 1 {
		return 1
	}
	return d
}

// Date truncates t to its calendar date at UTC midnight.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
// Negative when b is before a. It counts on Unix seconds rather than a
// time.Duration, which saturates after about 292 years.
func DaysBetween(a, b time.Time) int {
	return int((Date(b).Unix() - Date(a).Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60
