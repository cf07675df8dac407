package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/tripline/internal/domain"
)

// ExportService flattens a trip's projected timeline into export rows.
type ExportService struct {
	timelines *TimelineService
}

// NewExportService constructs an ExportService on top of a TimelineService.
func NewExportService(timelines *TimelineService) *ExportService {
	return &ExportService{timelines: timelines}
}

const exportDateLayout = "2006-01-02"

// Export returns one ExportRow per chapter of the trip, in timeline order,
// with dates projected from the chapter day counts.
func (s *ExportService) Export(ctx context.Context, tripID uuid.UUID) ([]domain.ExportRow, error) {
	trip, snap, err := s.timelines.Load(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}

	proj := snap.Timeline.Project()
	rows := make([]domain.ExportRow, 0, len(proj.Spans))
	for _, sp := range proj.Spans {
		rows = append(rows, domain.ExportRow{
			TripID:        trip.ID.String(),
			TripName:      trip.Name,
			TripStartDate: proj.Start.Format(exportDateLayout),
			TripEndDate:   proj.End.Format(exportDateLayout),
			Position:      sp.Order,
			ChapterTitle:  sp.Title,
			ChapterType:   string(sp.Type),
			StartLocation: sp.StartLocation,
			EndLocation:   sp.EndLocation,
			StartDate:     sp.Start.Format(exportDateLayout),
			EndDate:       sp.End.Format(exportDateLayout),
			Days:          sp.Days,
		})
	}
	return rows, nil
}
