package collections

import "github.com/erazemk/omara/internal/model"

// Group is a derived, never-persisted set of outfits shown under one name.
type Group struct {
	Name    string         `json:"name"`
	Outfits []model.Outfit `json:"outfits"`
}

// GroupOutfits partitions outfits into one group per collection name, plus
// the synthetic favorites group whenever any outfit is favorited. A favorited
// outfit therefore appears twice: in favorites and in its real collection.
// Groups come back in canonical order; outfits keep their input order.
func GroupOutfits(outfits []model.Outfit) []Group {
	var favorites []model.Outfit
	favIndex := make(map[string]bool)
	buckets := make(map[string][]model.Outfit)
	var names []string

	for _, o := range outfits {
		if o.IsFavorite {
			favorites = append(favorites, o)
			favIndex[o.ID] = true
		}
		name := o.Collection()
		if _, ok := buckets[name]; !ok {
			names = append(names, name)
		}
		buckets[name] = append(buckets[name], o)
	}

	// A real bucket named like the favorites group can only come from data
	// written around the store's checks; fold it into the synthetic group.
	if stray, ok := buckets[model.FavoritesCollection]; ok {
		for _, o := range stray {
			if !favIndex[o.ID] {
				favorites = append(favorites, o)
				favIndex[o.ID] = true
			}
		}
		delete(buckets, model.FavoritesCollection)
	}

	groups := make([]Group, 0, len(buckets)+1)
	if len(favorites) > 0 {
		groups = append(groups, Group{Name: model.FavoritesCollection, Outfits: favorites})
	}
	for _, name := range SortNames(names) {
		bucket, ok := buckets[name]
		if !ok {
			continue
		}
		groups = append(groups, Group{Name: name, Outfits: bucket})
	}
	return groups
}

// Names returns the group names in the order given.
func Names(groups []Group) []string {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	return names
}

// CollectionNames returns the canonical list of real collection names in
// use, without the favorites pseudo-group.
func CollectionNames(outfits []model.Outfit) []string {
	names := make([]string, 0, len(outfits))
	for _, o := range outfits {
		if name := o.Collection(); name != model.FavoritesCollection {
			names = append(names, name)
		}
	}
	return SortNames(names)
}
