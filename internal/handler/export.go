package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pkordes/tripline/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trip_id", "trip_name", "trip_start_date", "trip_end_date",
	"position", "chapter_title", "chapter_type", "start_location",
	"end_location", "start_date", "end_date", "days",
}

// GetTimeline handles GET /trips/{tripID}/timeline.
// Default is the projected timeline view as JSON; ?mode= selects the resize
// mode used for max-day hints. ?format=csv returns the export table as CSV
// and ?format=json returns it as JSON rows.
func (s *Server) GetTimeline(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "tripID")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "":
		mode, err := queryMode(r)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
			return
		}
		v, err := s.timelines.View(r.Context(), tripID, mode)
		if err != nil {
			writeError(w, r, err, "trip not found")
			return
		}
		writeJSON(w, http.StatusOK, viewToResponse(v))
	case "csv", "json":
		rows, err := s.export.Export(r.Context(), tripID)
		if err != nil {
			writeError(w, r, err, "trip not found")
			return
		}
		if format == "csv" {
			writeCSV(w, tripID.String(), rows)
			return
		}
		out := make([]ExportRow, 0, len(rows))
		for _, row := range rows {
			out = append(out, exportRowToResponse(row))
		}
		writeJSON(w, http.StatusOK, out)
	default:
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(fmt.Sprintf("unknown format %q", format)))
	}
}

// writeCSV encodes rows as a CSV attachment.
func writeCSV(w http.ResponseWriter, name string, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write(domainRowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "timeline-"+name+".csv"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// domainRowToCSVRecord encodes a domain.ExportRow as a flat string slice.
func domainRowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.TripID,
		r.TripName,
		r.TripStartDate,
		r.TripEndDate,
		strconv.Itoa(r.Position),
		r.ChapterTitle,
		r.ChapterType,
		r.StartLocation,
		r.EndLocation,
		r.StartDate,
		r.EndDate,
		strconv.Itoa(r.Days),
	}
}
