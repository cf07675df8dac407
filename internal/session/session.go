// Package session keeps the open timeline editing sessions of the API.
//
// The timeline engine is single-threaded; a Registry serialises every call
// on one session and refuses a second save while one is in flight.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/service"
	"github.com/pkordes/tripline/internal/timeline"
)

// Timelines opens editors and commits change sets.
// *service.TimelineService satisfies it.
type Timelines interface {
	Open(ctx context.Context, tripID uuid.UUID) (*timeline.Editor, error)
	Commit(ctx context.Context, cs timeline.ChangeSet) (timeline.CommitResult, error)
}

// entry is one open session.
type entry struct {
	mu       sync.Mutex
	editor   *timeline.Editor
	saving   bool
	lastUsed time.Time
}

// Registry holds open sessions in memory, keyed by session id.
type Registry struct {
	timelines Timelines
	ttl       time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
}

// NewRegistry constructs a Registry. Sessions idle for longer than ttl are
// dropped by Sweep; a ttl of zero keeps them until closed.
func NewRegistry(t Timelines, ttl time.Duration) *Registry {
	return &Registry{
		timelines: t,
		ttl:       ttl,
		now:       time.Now,
		sessions:  make(map[uuid.UUID]*entry),
	}
}

// WithClock replaces the registry's clock. Used by tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Open loads a trip's stored timeline and starts a session on it.
func (r *Registry) Open(ctx context.Context, tripID uuid.UUID, mode timeline.Mode) (uuid.UUID, timeline.View, error) {
	ed, err := r.timelines.Open(ctx, tripID)
	if err != nil {
		return uuid.Nil, timeline.View{}, fmt.Errorf("session.Registry.Open: %w", err)
	}
	id := uuid.New()
	r.mu.Lock()
	r.sessions[id] = &entry{editor: ed, lastUsed: r.now()}
	r.mu.Unlock()
	return id, ed.View(mode), nil
}

// View returns the current state of a session.
func (r *Registry) View(id uuid.UUID, mode timeline.Mode) (timeline.View, error) {
	var v timeline.View
	err := r.with(id, func(e *entry) error {
		v = e.editor.View(mode)
		return nil
	})
	return v, err
}

// Apply runs one edit. applied is false when the edit was dropped because it
// would break the timeline or change nothing.
// Returns domain.ErrConflict while a save of the session is in flight.
func (r *Registry) Apply(id uuid.UUID, edit timeline.Edit, mode timeline.Mode) (applied bool, v timeline.View, err error) {
	err = r.with(id, func(e *entry) error {
		if e.saving {
			return fmt.Errorf("%w: save in progress", domain.ErrConflict)
		}
		ok, err := e.editor.Apply(edit, mode)
		if err != nil {
			return err
		}
		applied = ok
		v = e.editor.View(mode)
		return nil
	})
	if err != nil {
		return false, timeline.View{}, fmt.Errorf("session.Registry.Apply: %w", err)
	}
	return applied, v, nil
}

// Undo reverts the last applied edit of a session.
func (r *Registry) Undo(id uuid.UUID, mode timeline.Mode) (undone bool, v timeline.View, err error) {
	err = r.with(id, func(e *entry) error {
		if e.saving {
			return fmt.Errorf("%w: save in progress", domain.ErrConflict)
		}
		undone = e.editor.Undo()
		v = e.editor.View(mode)
		return nil
	})
	if err != nil {
		return false, timeline.View{}, fmt.Errorf("session.Registry.Undo: %w", err)
	}
	return undone, v, nil
}

// Save commits a session. The session lock is released while the commit runs
// so the session can still be viewed; a second save, or an edit, started
// before the first save resolves fails with domain.ErrConflict.
// Commit failures are returned as *domain.CommitError and leave the session
// as it was.
func (r *Registry) Save(ctx context.Context, id uuid.UUID, mode timeline.Mode) (timeline.View, error) {
	var cs timeline.ChangeSet
	err := r.with(id, func(e *entry) error {
		if e.saving {
			return fmt.Errorf("%w: save in progress", domain.ErrConflict)
		}
		e.saving = true
		cs = e.editor.ChangeSet()
		return nil
	})
	if err != nil {
		return timeline.View{}, fmt.Errorf("session.Registry.Save: %w", err)
	}

	res, commitErr := r.timelines.Commit(ctx, cs)

	var (
		v            timeline.View
		found, stale bool
	)
	err = r.with(id, func(e *entry) error {
		found = true
		e.saving = false
		if commitErr != nil {
			return commitErr
		}
		if err := service.Adopt(e.editor, res); err != nil {
			stale = true
			return err
		}
		v = e.editor.View(mode)
		return nil
	})
	switch {
	case !found && commitErr != nil:
		return timeline.View{}, commitErr
	case !found:
		// Closed while saving: the changes landed but there is no session
		// left to show them in.
		return timeline.View{}, fmt.Errorf("session.Registry.Save: saved, but %w", err)
	case stale:
		// The editor no longer matches the store; saving it again would
		// repeat the inserts.
		r.drop(id)
		return timeline.View{}, err
	case err != nil:
		return timeline.View{}, err
	}
	return v, nil
}

func (r *Registry) drop(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Close discards a session and any unsaved edits.
func (r *Registry) Close(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("session.Registry.Close: %w", domain.ErrNotFound)
	}
	delete(r.sessions, id)
	return nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the ttl and returns how many it
// removed. Sessions with a save in flight are kept.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.sessions {
		e.mu.Lock()
		idle := !e.saving && e.lastUsed.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			r.Sweep()
		}
	}
}

// with runs fn on session id under the session lock.
// Returns domain.ErrNotFound if no such session is open.
func (r *Registry) with(id uuid.UUID, fn func(*entry) error) error {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = r.now()
	return fn(e)
}
