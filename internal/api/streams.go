package api

import (
	"context"
	"errors"
	"sync"
)

// errSessionEnded cancels a stream whose token was revoked, expired or
// whose user was deleted.
var errSessionEnded = errors.New("session ended")

// streamRegistry tracks open streams by the token and user they were
// opened with, so sign-out and account removal can end them.
type streamRegistry struct {
	mu     sync.Mutex
	nextID uint64
	open   map[uint64]streamEntry
}

type streamEntry struct {
	tokenID string
	owner   string
	cancel  context.CancelCauseFunc
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{open: make(map[uint64]streamEntry)}
}

// track registers a stream. The returned func unregisters it.
func (s *streamRegistry) track(tokenID, owner string, cancel context.CancelCauseFunc) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.open[id] = streamEntry{tokenID: tokenID, owner: owner, cancel: cancel}
	return func() {
		s.mu.Lock()
		delete(s.open, id)
		s.mu.Unlock()
	}
}

// revokeToken ends every stream opened with tokenID.
func (s *streamRegistry) revokeToken(tokenID string) int {
	return s.end(func(e streamEntry) bool { return e.tokenID == tokenID })
}

// revokeOwner ends every stream of owner.
func (s *streamRegistry) revokeOwner(owner string) int {
	return s.end(func(e streamEntry) bool { return e.owner == owner })
}

func (s *streamRegistry) end(match func(streamEntry) bool) int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.open {
		if match(e) {
			e.cancel(errSessionEnded)
			delete(s.open, id)
			n++
		}
	}
	return n
}
