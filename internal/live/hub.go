// Package live fans out owner-scoped snapshots of outfits and clothing to
// open subscriptions whenever the store changes.
package live

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/metrics"
	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/store"
)

// Kind names a collection a subscription follows.
type Kind string

const (
	Outfits  Kind = "outfits"
	Clothing Kind = "clothing"
)

// Snapshot is the full ordered contents of one collection for one owner.
// Exactly one of Outfits or Clothing is set, according to Kind.
type Snapshot struct {
	Kind     Kind
	Owner    string
	Outfits  []model.Outfit
	Clothing []model.ClothingItem
}

type key struct {
	owner string
	kind  Kind
}

// Hub tracks subscriptions and reloads snapshots on Publish.
type Hub struct {
	db *sql.DB

	mu   sync.Mutex
	subs map[key]map[*Subscription]struct{}
	seq  uint64
}

// NewHub creates a hub that loads snapshots from db.
func NewHub(db *sql.DB) *Hub {
	return &Hub{db: db, subs: make(map[key]map[*Subscription]struct{})}
}

// Subscribe opens a subscription for owner's kind collection and queues the
// current snapshot on it.
func (h *Hub) Subscribe(ctx context.Context, owner string, kind Kind) (*Subscription, error) {
	if owner == "" {
		return nil, store.ErrNotAuthenticated
	}

	s := &Subscription{hub: h, key: key{owner, kind}, ch: make(chan Snapshot, 1)}

	h.mu.Lock()
	set, ok := h.subs[s.key]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[s.key] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	metrics.SubscriptionOpened()

	if err := h.Publish(ctx, owner, kind); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Publish reloads owner's kind collection once and hands it to every
// matching subscription. It never waits on a slow reader: a pending
// snapshot that was not yet received is replaced.
func (h *Hub) Publish(ctx context.Context, owner string, kind Kind) error {
	k := key{owner, kind}

	h.mu.Lock()
	if len(h.subs[k]) == 0 {
		h.mu.Unlock()
		return nil
	}
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	snap, err := h.load(ctx, owner, kind)
	if err != nil {
		zap.L().Error("loading live snapshot", zap.String("owner", owner), zap.String("kind", string(kind)), zap.Error(err))
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[k] {
		s.deliver(seq, snap)
	}
	return nil
}

func (h *Hub) load(ctx context.Context, owner string, kind Kind) (Snapshot, error) {
	snap := Snapshot{Kind: kind, Owner: owner}
	var err error
	switch kind {
	case Outfits:
		snap.Outfits, err = store.ListOutfits(ctx, h.db, owner)
		if snap.Outfits == nil {
			snap.Outfits = []model.Outfit{}
		}
	case Clothing:
		snap.Clothing, err = store.ListClothing(ctx, h.db, owner, model.ClothingFilter{})
		if snap.Clothing == nil {
			snap.Clothing = []model.ClothingItem{}
		}
	default:
		return snap, fmt.Errorf("unknown snapshot kind %q", kind)
	}
	return snap, err
}

// Count returns the number of open subscriptions for owner.
func (h *Hub) Count(owner string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key{owner, Outfits}]) + len(h.subs[key{owner, Clothing}])
}

// Subscription receives snapshots until Close is called.
type Subscription struct {
	hub *Hub
	key key
	ch  chan Snapshot

	// Guarded by hub.mu.
	seq    uint64
	closed bool
}

// C returns the channel snapshots arrive on. It is closed by Close.
func (s *Subscription) C() <-chan Snapshot {
	return s.ch
}

// Owner returns the owner the subscription is bound to.
func (s *Subscription) Owner() string {
	return s.key.owner
}

// deliver must be called with hub.mu held. Loads that started earlier than
// the last delivered one are dropped.
func (s *Subscription) deliver(seq uint64, snap Snapshot) {
	if s.closed || seq <= s.seq {
		return
	}
	s.seq = seq
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if set, ok := h.subs[s.key]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.key)
		}
	}
	close(s.ch)
	metrics.SubscriptionClosed()
}
