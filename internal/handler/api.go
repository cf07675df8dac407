package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/timeline"
)

// Wire types for the JSON API. Field names and shapes match spec/openapi.yaml.

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorResponse wraps an ErrorDetail.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// Trip is the JSON form of domain.Trip.
type Trip struct {
	Id        openapi_types.UUID  `json:"id"`
	Name      string              `json:"name"`
	StartDate openapi_types.Date  `json:"start_date"`
	EndDate   *openapi_types.Date `json:"end_date,omitempty"`
	Notes     *string             `json:"notes,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Pagination describes one page of a list.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// TripList is returned by GET /trips.
type TripList struct {
	Data       []Trip     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Chapter is one projected chapter of a timeline.
type Chapter struct {
	Ref           string             `json:"ref"`
	Persisted     bool               `json:"persisted"`
	Title         string             `json:"title"`
	Type          string             `json:"type"`
	StartLocation string             `json:"start_location,omitempty"`
	EndLocation   string             `json:"end_location,omitempty"`
	Order         int                `json:"order"`
	Days          int                `json:"days"`
	MaxDays       *int               `json:"max_days,omitempty"`
	StartDate     openapi_types.Date `json:"start_date"`
	EndDate       openapi_types.Date `json:"end_date"`
}

// Timeline is the projected view of a trip timeline.
type Timeline struct {
	TripId    openapi_types.UUID   `json:"trip_id"`
	Mode      string               `json:"mode"`
	StartDate openapi_types.Date   `json:"start_date"`
	EndDate   openapi_types.Date   `json:"end_date"`
	TotalDays int                  `json:"total_days"`
	Chapters  []Chapter            `json:"chapters"`
	Deleted   []openapi_types.UUID `json:"deleted"`
	Dirty     bool                 `json:"dirty"`
	CanUndo   bool                 `json:"can_undo"`
}

// Session is returned when a session is opened or read.
type Session struct {
	SessionId openapi_types.UUID `json:"session_id"`
	Timeline  Timeline           `json:"timeline"`
}

// EditRequest is the body of POST /sessions/{sessionID}/edits.
type EditRequest struct {
	Op            string              `json:"op"`
	Index         *int                `json:"index,omitempty"`
	Delta         *int                `json:"delta,omitempty"`
	Direction     *string             `json:"direction,omitempty"`
	Date          *openapi_types.Date `json:"date,omitempty"`
	Title         *string             `json:"title,omitempty"`
	Ref           *string             `json:"ref,omitempty"`
	Type          *string             `json:"type,omitempty"`
	StartLocation *string             `json:"start_location,omitempty"`
	EndLocation   *string             `json:"end_location,omitempty"`
	Days          *int                `json:"days,omitempty"`
}

// EditResult is returned after an edit or undo. Applied is false when the
// action was dropped and the timeline is unchanged.
type EditResult struct {
	Applied  bool     `json:"applied"`
	Timeline Timeline `json:"timeline"`
}

// ExportRow is the JSON form of domain.ExportRow.
type ExportRow struct {
	TripId        openapi_types.UUID `json:"trip_id"`
	TripName      string             `json:"trip_name"`
	TripStartDate string             `json:"trip_start_date"`
	TripEndDate   string             `json:"trip_end_date"`
	Position      int                `json:"position"`
	ChapterTitle  string             `json:"chapter_title"`
	ChapterType   string             `json:"chapter_type"`
	StartLocation string             `json:"start_location,omitempty"`
	EndLocation   string             `json:"end_location,omitempty"`
	StartDate     string             `json:"start_date"`
	EndDate       string             `json:"end_date"`
	Days          int                `json:"days"`
}

// --- mapping helpers --------------------------------------------------------

// tripToResponse converts a domain.Trip into its wire form.
func tripToResponse(t domain.Trip) Trip {
	resp := Trip{
		Id:        t.ID,
		Name:      t.Name,
		StartDate: openapi_types.Date{Time: t.StartDate},
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.Notes != "" {
		resp.Notes = &t.Notes
	}
	if t.EndDate != nil {
		ed := openapi_types.Date{Time: *t.EndDate}
		resp.EndDate = &ed
	}
	return resp
}

// viewToResponse converts an engine View into its wire form.
func viewToResponse(v timeline.View) Timeline {
	resp := Timeline{
		TripId:    v.TripID,
		Mode:      string(v.Mode),
		StartDate: openapi_types.Date{Time: v.Start},
		EndDate:   openapi_types.Date{Time: v.End},
		TotalDays: v.TotalDays,
		Chapters:  make([]Chapter, len(v.Chapters)),
		Deleted:   make([]openapi_types.UUID, len(v.Deleted)),
		Dirty:     v.Dirty,
		CanUndo:   v.CanUndo,
	}
	for i, c := range v.Chapters {
		resp.Chapters[i] = Chapter{
			Ref:           c.Ref,
			Persisted:     c.Persisted,
			Title:         c.Title,
			Type:          string(c.Type),
			StartLocation: c.StartLocation,
			EndLocation:   c.EndLocation,
			Order:         c.Order,
			Days:          c.Days,
			MaxDays:       c.MaxDays,
			StartDate:     openapi_types.Date{Time: c.Start},
			EndDate:       openapi_types.Date{Time: c.End},
		}
	}
	copy(resp.Deleted, v.Deleted)
	return resp
}

// requestToEdit converts an EditRequest into an engine Edit.
// Returns an error wrapping domain.ErrValidation for malformed requests.
func requestToEdit(body *EditRequest) (timeline.Edit, error) {
	if body == nil || body.Op == "" {
		return timeline.Edit{}, fmt.Errorf("%w: op is required", domain.ErrValidation)
	}
	e := timeline.Edit{Op: timeline.Op(body.Op)}
	if body.Index != nil {
		e.Index = *body.Index
	}
	if body.Delta != nil {
		e.Delta = *body.Delta
	}
	if body.Direction != nil {
		d, err := timeline.ParseDirection(*body.Direction)
		if err != nil {
			return timeline.Edit{}, err
		}
		e.Direction = d
	}
	if body.Date != nil {
		e.Date = body.Date.Time
	}
	if body.Title != nil {
		e.Title = *body.Title
	}
	if body.Ref != nil {
		ref, err := timeline.ParseRef(*body.Ref)
		if err != nil {
			return timeline.Edit{}, err
		}
		e.Ref = ref
	}
	if body.StartLocation != nil {
		e.StartLocation = *body.StartLocation
	}
	if body.EndLocation != nil {
		e.EndLocation = *body.EndLocation
	}
	if body.Type != nil {
		typ, err := domain.ParseChapterType(*body.Type)
		if err != nil {
			return timeline.Edit{}, err
		}
		e.Type = typ
	}

	switch e.Op {
	case timeline.OpResize:
		if body.Index == nil || body.Delta == nil {
			return timeline.Edit{}, fmt.Errorf("%w: resize needs index and delta", domain.ErrValidation)
		}
	case timeline.OpSetStart, timeline.OpSetEnd:
		if body.Index == nil || body.Date == nil {
			return timeline.Edit{}, fmt.Errorf("%w: %s needs index and date", domain.ErrValidation, e.Op)
		}
	case timeline.OpShiftTripStart:
		if body.Date == nil {
			return timeline.Edit{}, fmt.Errorf("%w: shift_trip_start needs date", domain.ErrValidation)
		}
	case timeline.OpMove:
		if body.Index == nil || body.Direction == nil {
			return timeline.Edit{}, fmt.Errorf("%w: move needs index and direction", domain.ErrValidation)
		}
	case timeline.OpSplit, timeline.OpDelete:
		if body.Index == nil {
			return timeline.Edit{}, fmt.Errorf("%w: %s needs index", domain.ErrValidation, e.Op)
		}
	case timeline.OpRename:
		if body.Ref == nil || body.Title == nil {
			return timeline.Edit{}, fmt.Errorf("%w: rename needs ref and title", domain.ErrValidation)
		}
	case timeline.OpInsert:
		if body.Index == nil || body.Title == nil || strings.TrimSpace(*body.Title) == "" {
			return timeline.Edit{}, fmt.Errorf("%w: insert needs index and title", domain.ErrValidation)
		}
		if body.Days != nil {
			e.Delta = *body.Days
		}
	default:
		return timeline.Edit{}, fmt.Errorf("%w: unknown op %q", domain.ErrValidation, body.Op)
	}
	return e, nil
}

// exportRowToResponse maps a domain.ExportRow to its wire form.
func exportRowToResponse(r domain.ExportRow) ExportRow {
	tripID, _ := uuid.Parse(r.TripID)
	return ExportRow{
		TripId:        tripID,
		TripName:      r.TripName,
		TripStartDate: r.TripStartDate,
		TripEndDate:   r.TripEndDate,
		Position:      r.Position,
		ChapterTitle:  r.ChapterTitle,
		ChapterType:   r.ChapterType,
		StartLocation: r.StartLocation,
		EndLocation:   r.EndLocation,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		Days:          r.Days,
	}
}
