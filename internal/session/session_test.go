package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/erazemk/omara/internal/collections"
	"github.com/erazemk/omara/internal/db"
	"github.com/erazemk/omara/internal/live"
	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("database/sql.(*DB).connectionOpener"))
}

type fixture struct {
	db  *sql.DB
	hub *live.Hub
}

func newFixture(t *testing.T) *fixture {
	database := db.NewTestDB(t)
	return &fixture{db: database, hub: live.NewHub(database)}
}

func (f *fixture) owner(t *testing.T, email string) string {
	t.Helper()
	u, err := store.CreateUser(context.Background(), f.db, email, "", "hash", model.RoleUser)
	require.NoError(t, err)
	return u.ID
}

func (f *fixture) outfit(t *testing.T, owner string, in store.OutfitInput) {
	t.Helper()
	_, err := store.CreateOutfit(context.Background(), f.db, owner, in)
	require.NoError(t, err)
}

func next(t *testing.T, ch <-chan live.Snapshot) live.Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(time.Second):
		t.Fatal("no snapshot")
		return live.Snapshot{}
	}
}

func TestBindAndApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.owner(t, "a@example.com")
	f.outfit(t, owner, store.OutfitInput{Name: "a", IsFavorite: true})
	f.outfit(t, owner, store.OutfitInput{Name: "b", CollectionName: "Work"})

	s := New(f.hub)
	defer s.Close()
	require.NoError(t, s.Bind(ctx, owner))
	assert.Equal(t, owner, s.Owner())

	view := s.Apply(next(t, s.Outfits()))
	assert.Equal(t, []string{model.FavoritesCollection, model.DefaultCollection, "Work"}, collections.Names(view.Groups))
	assert.True(t, view.State.IsOpen(model.FavoritesCollection))
	assert.True(t, view.State.IsOpen(model.DefaultCollection))

	clothing := next(t, s.Clothing())
	assert.Equal(t, live.Clothing, clothing.Kind)
	assert.Empty(t, clothing.Clothing)
}

func TestExpansionSurvivesSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.owner(t, "a@example.com")
	f.outfit(t, owner, store.OutfitInput{Name: "a"})

	s := New(f.hub)
	defer s.Close()
	require.NoError(t, s.Bind(ctx, owner))
	s.Apply(next(t, s.Outfits()))

	view := s.Collapse(model.DefaultCollection)
	assert.False(t, view.State.IsOpen(model.DefaultCollection))

	f.outfit(t, owner, store.OutfitInput{Name: "b", CollectionName: "Trips"})
	require.NoError(t, f.hub.Publish(ctx, owner, live.Outfits))
	view = s.Apply(next(t, s.Outfits()))

	assert.False(t, view.State.IsOpen(model.DefaultCollection), "manual collapse is kept")
	assert.True(t, view.State.IsOpen("Trips"), "new group with outfits opens")

	again := s.Apply(live.Snapshot{Kind: live.Outfits, Owner: owner, Outfits: viewOutfits(view)})
	if diff := cmp.Diff(view.State.Open, again.State.Open); diff != "" {
		t.Errorf("reapplying the same data changed the open set (-want +got):\n%s", diff)
	}
}

func viewOutfits(v collections.View) []model.Outfit {
	var out []model.Outfit
	for _, g := range v.Groups {
		if g.Name != model.FavoritesCollection {
			out = append(out, g.Outfits...)
		}
	}
	return out
}

func TestUnknownGroupLeavesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.owner(t, "a@example.com")
	f.outfit(t, owner, store.OutfitInput{Name: "a"})

	s := New(f.hub)
	defer s.Close()
	require.NoError(t, s.Bind(ctx, owner))
	before := s.Apply(next(t, s.Outfits()))

	after := s.Toggle("Nope")
	assert.Equal(t, before.State.Open, after.State.Open)
}

func TestRebindToOtherOwnerResetsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.owner(t, "alice@example.com")
	bob := f.owner(t, "bob@example.com")
	f.outfit(t, alice, store.OutfitInput{Name: "a", CollectionName: "Work"})

	s := New(f.hub)
	defer s.Close()
	require.NoError(t, s.Bind(ctx, alice))
	aliceCh := s.Outfits()
	s.Apply(next(t, aliceCh))
	s.Collapse("Work")

	require.NoError(t, s.Bind(ctx, bob))
	assert.Equal(t, 2, f.hub.Count(bob))
	assert.Zero(t, f.hub.Count(alice))
	assert.Empty(t, s.View().Groups)
	assert.False(t, s.View().State.AutoOpened)

	_, ok := <-aliceCh
	assert.False(t, ok, "old channel closed")

	stale := s.Apply(live.Snapshot{Kind: live.Outfits, Owner: alice, Outfits: []model.Outfit{{ID: "x", Name: "x"}}})
	assert.Empty(t, stale.Groups, "snapshots for the previous owner are ignored")
}

func TestRebindSameOwnerKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.owner(t, "a@example.com")
	f.outfit(t, owner, store.OutfitInput{Name: "a", CollectionName: "Work"})

	s := New(f.hub)
	defer s.Close()
	require.NoError(t, s.Bind(ctx, owner))
	s.Apply(next(t, s.Outfits()))
	s.Collapse("Work")

	require.NoError(t, s.Bind(ctx, owner))
	view := s.Apply(next(t, s.Outfits()))
	assert.False(t, view.State.IsOpen("Work"))
	assert.Equal(t, 2, f.hub.Count(owner))
}

func TestBindEmptyOwnerAndClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.owner(t, "a@example.com")

	s := New(f.hub)
	require.NoError(t, s.Bind(ctx, owner))
	require.NoError(t, s.Bind(ctx, ""))
	assert.Zero(t, f.hub.Count(owner))
	assert.Nil(t, s.Outfits())
	assert.Nil(t, s.Clothing())

	require.NoError(t, s.Bind(ctx, owner))
	s.Close()
	s.Close()
	assert.Zero(t, f.hub.Count(owner))
	assert.Equal(t, "", s.Owner())
}
