package domain

// ExportRow is a single row in the timeline export.
// It is a flat, denormalized view: one row per chapter, with trip fields
// repeated for every chapter. Dates are "2006-01-02" formatted.
type ExportRow struct {
	// Trip fields, repeated for every chapter of the trip.
	TripID        string
	TripName      string
	TripStartDate string
	TripEndDate   string

	// Chapter fields.
	Position      int
	ChapterTitle  string
	ChapterType   string
	StartLocation string
	EndLocation   string
	StartDate     string
	EndDate       string
	Days          int
}
