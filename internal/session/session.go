// Package session binds one viewer to one owner's live data and keeps the
// viewer's expansion state across snapshots.
package session

import (
	"context"
	"sync"

	"github.com/erazemk/omara/internal/collections"
	"github.com/erazemk/omara/internal/live"
)

// Session holds at most one outfits and one clothing subscription, both for
// the same owner, and the expansion state derived from them.
type Session struct {
	hub *live.Hub

	mu       sync.Mutex
	owner    string
	outfits  *live.Subscription
	clothing *live.Subscription
	view     collections.View
}

// New creates an unbound session.
func New(hub *live.Hub) *Session {
	return &Session{hub: hub}
}

// Bind points the session at owner. Existing subscriptions are released
// before new ones are opened. Binding to a different owner, or to "", clears
// the expansion state; rebinding the same owner keeps it.
func (s *Session) Bind(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseLocked()
	if owner != s.owner {
		s.owner = owner
		s.view = collections.View{}
	}
	if owner == "" {
		return nil
	}

	outfits, err := s.hub.Subscribe(ctx, owner, live.Outfits)
	if err != nil {
		return err
	}
	clothing, err := s.hub.Subscribe(ctx, owner, live.Clothing)
	if err != nil {
		outfits.Close()
		return err
	}
	s.outfits, s.clothing = outfits, clothing
	return nil
}

func (s *Session) releaseLocked() {
	if s.outfits != nil {
		s.outfits.Close()
		s.outfits = nil
	}
	if s.clothing != nil {
		s.clothing.Close()
		s.clothing = nil
	}
}

// Owner returns the bound owner, or "".
func (s *Session) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Outfits returns the outfit snapshot channel, or nil when unbound.
func (s *Session) Outfits() <-chan live.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outfits == nil {
		return nil
	}
	return s.outfits.C()
}

// Clothing returns the clothing snapshot channel, or nil when unbound.
func (s *Session) Clothing() <-chan live.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clothing == nil {
		return nil
	}
	return s.clothing.C()
}

// Apply reconciles a new outfit snapshot against the current expansion
// state. Snapshots for an owner other than the bound one are ignored.
func (s *Session) Apply(snap live.Snapshot) collections.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Kind != live.Outfits || snap.Owner != s.owner || s.owner == "" {
		return s.view
	}
	s.view = collections.Reconcile(snap.Outfits, s.view.State)
	return s.view
}

// View returns the last reconciled view.
func (s *Session) View() collections.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Expand opens the named group.
func (s *Session) Expand(name string) collections.View {
	return s.update(func(st collections.ExpansionState) collections.ExpansionState { return st.Expand(name) }, name)
}

// Collapse closes the named group.
func (s *Session) Collapse(name string) collections.View {
	return s.update(func(st collections.ExpansionState) collections.ExpansionState { return st.Collapse(name) }, name)
}

// Toggle flips the named group.
func (s *Session) Toggle(name string) collections.View {
	return s.update(func(st collections.ExpansionState) collections.ExpansionState { return st.Toggle(name) }, name)
}

// update applies fn for names that exist in the current view; unknown names
// leave the state untouched.
func (s *Session) update(fn func(collections.ExpansionState) collections.ExpansionState, name string) collections.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.view.Groups {
		if g.Name == name {
			s.view.State = fn(s.view.State)
			break
		}
	}
	return s.view
}

// Close releases the subscriptions and unbinds the session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	s.owner = ""
	s.view = collections.View{}
}
