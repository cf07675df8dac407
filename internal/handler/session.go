package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/pkordes/tripline/internal/timeline"
)

const sessionNotFound = "session not found"

// OpenSession handles POST /trips/{tripID}/sessions.
// It loads the stored timeline and starts an editing session on it.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "tripID")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		return
	}
	mode, err := queryMode(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		return
	}

	id, v, err := s.sessions.Open(r.Context(), tripID, mode)
	if err != nil {
		writeError(w, r, err, "trip not found")
		return
	}
	writeJSON(w, http.StatusCreated, Session{SessionId: id, Timeline: viewToResponse(v)})
}

// GetSession handles GET /sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id, mode, ok := sessionParams(w, r)
	if !ok {
		return
	}
	v, err := s.sessions.View(id, mode)
	if err != nil {
		writeError(w, r, err, sessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, Session{SessionId: id, Timeline: viewToResponse(v)})
}

// ApplyEdit handles POST /sessions/{sessionID}/edits.
// An edit the timeline cannot take is answered with 200 and applied=false.
func (s *Server) ApplyEdit(w http.ResponseWriter, r *http.Request) {
	id, mode, ok := sessionParams(w, r)
	if !ok {
		return
	}
	var body EditRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("request body must be a JSON edit"))
		return
	}
	edit, err := requestToEdit(&body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		return
	}

	applied, v, err := s.sessions.Apply(id, edit, mode)
	if err != nil {
		writeError(w, r, err, sessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, EditResult{Applied: applied, Timeline: viewToResponse(v)})
}

// UndoEdit handles POST /sessions/{sessionID}/undo.
func (s *Server) UndoEdit(w http.ResponseWriter, r *http.Request) {
	id, mode, ok := sessionParams(w, r)
	if !ok {
		return
	}
	undone, v, err := s.sessions.Undo(id, mode)
	if err != nil {
		writeError(w, r, err, sessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, EditResult{Applied: undone, Timeline: viewToResponse(v)})
}

// SaveSession handles POST /sessions/{sessionID}/save.
// Failures leave the session as it was so the client can retry.
func (s *Server) SaveSession(w http.ResponseWriter, r *http.Request) {
	id, mode, ok := sessionParams(w, r)
	if !ok {
		return
	}
	// A commit that has started runs to completion even if the client goes away.
	v, err := s.sessions.Save(context.WithoutCancel(r.Context()), id, mode)
	if err != nil {
		writeError(w, r, err, sessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, Session{SessionId: id, Timeline: viewToResponse(v)})
}

// CloseSession handles DELETE /sessions/{sessionID}. Unsaved edits are discarded.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "sessionID")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		return
	}
	if err := s.sessions.Close(id); err != nil {
		writeError(w, r, err, sessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionParams binds the session id and mode, writing a 422 on failure.
func sessionParams(w http.ResponseWriter, r *http.Request) (id uuid.UUID, mode timeline.Mode, ok bool) {
	id, err := pathUUID(r, "sessionID")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		return uuid.Nil, "", false
	}
	mode, err = queryMode(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		return uuid.Nil, "", false
	}
	return id, mode, true
}
