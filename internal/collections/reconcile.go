package collections

import "github.com/erazemk/omara/internal/model"

// View is what a session renders for one outfit snapshot.
type View struct {
	Groups []Group        `json:"groups"`
	State  ExpansionState `json:"state"`
}

// Reconcile groups outfits and merges the resulting names into prev.
// Calling it again with the same outfits and the returned state yields the
// same view.
func Reconcile(outfits []model.Outfit, prev ExpansionState) View {
	groups := GroupOutfits(outfits)
	return View{
		Groups: groups,
		State:  Merge(groups, prev),
	}
}
