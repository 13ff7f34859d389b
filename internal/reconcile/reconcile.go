// Package reconcile computes, per facet, the one-directional operations
// needed to converge the Trakt and IMDB copies of a user's watch state.
// Matching is by IMDB id, the canonical cross-service join key; the filters
// package applies business rules on top of the raw diff.
package reconcile

import "github.com/RileyXX/imdb-trakt-syncer/internal/models"

// Reconcile computes the set difference between two collections keyed by
// IMDB id. toAddToA is every item of b missing from a; toAddToB is every
// item of a missing from b. The inputs are never mutated and the two outputs
// are disjoint: an item came from exactly one side, so it can only be
// missing from the other.
func Reconcile(a, b []models.MediaItem) (toAddToA, toAddToB []models.MediaItem) {
	idsA := models.IDSet(a)
	idsB := models.IDSet(b)

	for _, item := range b {
		if _, ok := idsA[item.IMDBID]; !ok {
			toAddToA = append(toAddToA, item)
		}
	}
	for _, item := range a {
		if _, ok := idsB[item.IMDBID]; !ok {
			toAddToB = append(toAddToB, item)
		}
	}
	return toAddToA, toAddToB
}
