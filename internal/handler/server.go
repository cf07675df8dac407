// Package handler implements the HTTP handlers for the trip timeline API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, session.go, etc.) but all share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/timeline"
	"github.com/pkordes/tripline/spec"
)

// TripServicer defines the trip reads the handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type TripServicer interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)
}

// TimelineServicer projects the stored timeline of a trip.
type TimelineServicer interface {
	View(ctx context.Context, tripID uuid.UUID, mode timeline.Mode) (timeline.View, error)
}

// ExportServicer flattens a trip timeline into export rows.
type ExportServicer interface {
	Export(ctx context.Context, tripID uuid.UUID) ([]domain.ExportRow, error)
}

// Sessions manages open editing sessions. *session.Registry satisfies it.
type Sessions interface {
	Open(ctx context.Context, tripID uuid.UUID, mode timeline.Mode) (uuid.UUID, timeline.View, error)
	View(id uuid.UUID, mode timeline.Mode) (timeline.View, error)
	Apply(id uuid.UUID, edit timeline.Edit, mode timeline.Mode) (bool, timeline.View, error)
	Undo(id uuid.UUID, mode timeline.Mode) (bool, timeline.View, error)
	Save(ctx context.Context, id uuid.UUID, mode timeline.Mode) (timeline.View, error)
	Close(id uuid.UUID) error
}

// Server implements every API endpoint.
// Wire it in main.go via handler.Handler(server, authMiddleware).
type Server struct {
	trips     TripServicer
	timelines TimelineServicer
	export    ExportServicer
	sessions  Sessions
}

// NewServer constructs the Server with all its dependencies.
func NewServer(trips TripServicer, timelines TimelineServicer, export ExportServicer, sessions Sessions) *Server {
	return &Server{trips: trips, timelines: timelines, export: export, sessions: sessions}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil)
}

// Handler returns a chi router serving every endpoint of s. The edit
// middlewares wrap only the routes that open, change or save sessions,
// typically the bearer-token check.
func Handler(s *Server, edit ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", serveOpenAPI)

	r.Get("/trips", s.ListTrips)
	r.Get("/trips/{tripID}", s.GetTrip)
	r.Get("/trips/{tripID}/timeline", s.GetTimeline)

	r.Group(func(r chi.Router) {
		r.Use(edit...)
		r.Post("/trips/{tripID}/sessions", s.OpenSession)
		r.Get("/sessions/{sessionID}", s.GetSession)
		r.Post("/sessions/{sessionID}/edits", s.ApplyEdit)
		r.Post("/sessions/{sessionID}/undo", s.UndoEdit)
		r.Post("/sessions/{sessionID}/save", s.SaveSession)
		r.Delete("/sessions/{sessionID}", s.CloseSession)
	})
	return r
}

func serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(spec.OpenAPI)
}
