package filters

import (
	"sort"

	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
	"github.com/RileyXX/imdb-trakt-syncer/internal/reconcile"
)

// pruneWatchedFromWatchlists removes already-watched content from the
// pending watchlist adds and schedules removal of watched items that still
// sit on either watchlist.
func (p *Pipeline) pruneWatchedFromWatchlists(plan *reconcile.Plan, snap *reconcile.Snapshot) {
	if !p.opts.RemoveWatchedFromWatchlists {
		return
	}

	watched := models.IDSet(snap.TraktHistory)
	for id := range models.IDSet(snap.IMDBHistory) {
		watched[id] = struct{}{}
	}

	plan.TraktWatchlistToAdd = dropIDs(plan.TraktWatchlistToAdd, watched)
	plan.IMDBWatchlistToAdd = dropIDs(plan.IMDBWatchlistToAdd, watched)

	plan.TraktWatchlistToRemove = appendMatching(plan.TraktWatchlistToRemove, snap.TraktWatchlist, watched)
	plan.IMDBWatchlistToRemove = appendMatching(plan.IMDBWatchlistToRemove, snap.IMDBWatchlist, watched)
}

// pruneAgedWatchlist schedules removal of watchlist items older than the
// configured threshold and keeps them out of any pending add.
func (p *Pipeline) pruneAgedWatchlist(plan *reconcile.Plan, snap *reconcile.Snapshot) {
	if p.opts.WatchlistMaxAge <= 0 {
		return
	}
	cutoff := p.opts.Now().Add(-p.opts.WatchlistMaxAge)

	aged := make(map[string]struct{})
	for _, item := range CollapseDuplicates(append(append([]models.MediaItem{}, snap.TraktWatchlist...), snap.IMDBWatchlist...)) {
		if item.DateAdded.Before(cutoff) {
			aged[item.IMDBID] = struct{}{}
		}
	}
	if len(aged) == 0 {
		return
	}

	plan.TraktWatchlistToAdd = dropIDs(plan.TraktWatchlistToAdd, aged)
	plan.IMDBWatchlistToAdd = dropIDs(plan.IMDBWatchlistToAdd, aged)

	plan.TraktWatchlistToRemove = appendMatching(plan.TraktWatchlistToRemove, snap.TraktWatchlist, aged)
	plan.IMDBWatchlistToRemove = appendMatching(plan.IMDBWatchlistToRemove, snap.IMDBWatchlist, aged)
}

// dropShowsFromTraktHistory keeps show-level records out of Trakt history
// adds: adding a show to Trakt history cascades to marking every episode
// watched, which is never what the user meant by watching most of a show.
func (p *Pipeline) dropShowsFromTraktHistory(plan *reconcile.Plan) {
	kept := plan.TraktHistoryToAdd[:0]
	for _, item := range plan.TraktHistoryToAdd {
		if item.MediaType != models.MediaTypeShow {
			kept = append(kept, item)
		}
	}
	plan.TraktHistoryToAdd = kept
}

// enforceQuota clears IMDB-bound operations for any facet whose IMDB list is
// at or over the hard size limit; adding or removing through the UI is
// unreliable past that size. Trakt-bound operations proceed normally.
func (p *Pipeline) enforceQuota(plan *reconcile.Plan, snap *reconcile.Snapshot) QuotaState {
	var state QuotaState
	if p.opts.WatchlistQuota <= 0 {
		return state
	}

	if len(snap.IMDBWatchlist) >= p.opts.WatchlistQuota {
		p.logger.WithField("size", len(snap.IMDBWatchlist)).Warn("IMDB watchlist is at quota, skipping IMDB watchlist operations")
		plan.IMDBWatchlistToAdd = nil
		plan.IMDBWatchlistToRemove = nil
		state.WatchlistQuotaReached = true
	}
	if len(snap.IMDBHistory) >= p.opts.WatchlistQuota {
		p.logger.WithField("size", len(snap.IMDBHistory)).Warn("IMDB watch history is at quota, skipping IMDB history operations")
		plan.IMDBHistoryToAdd = nil
		state.HistoryQuotaReached = true
	}
	return state
}

// sortPlan orders every final list ascending by DateAdded so the oldest user
// actions are replayed first. Order matters against the IMDB UI once limits
// or pagination come into play.
func sortPlan(plan *reconcile.Plan) {
	lists := []*[]models.MediaItem{
		&plan.TraktRatingsToSet, &plan.IMDBRatingsToSet,
		&plan.TraktReviewsToSet, &plan.IMDBReviewsToSet,
		&plan.TraktWatchlistToAdd, &plan.IMDBWatchlistToAdd,
		&plan.TraktWatchlistToRemove, &plan.IMDBWatchlistToRemove,
		&plan.TraktHistoryToAdd, &plan.IMDBHistoryToAdd,
	}
	for _, list := range lists {
		items := *list
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].DateAdded.Before(items[j].DateAdded)
		})
	}
}

func dropIDs(items []models.MediaItem, ids map[string]struct{}) []models.MediaItem {
	kept := items[:0]
	for _, item := range items {
		if _, ok := ids[item.IMDBID]; !ok {
			kept = append(kept, item)
		}
	}
	return kept
}

// appendMatching appends items from source whose id is in ids, skipping ids
// already scheduled for removal.
func appendMatching(dst, source []models.MediaItem, ids map[string]struct{}) []models.MediaItem {
	scheduled := models.IDSet(dst)
	for _, item := range source {
		if _, ok := ids[item.IMDBID]; !ok {
			continue
		}
		if _, ok := scheduled[item.IMDBID]; ok {
			continue
		}
		scheduled[item.IMDBID] = struct{}{}
		dst = append(dst, item)
	}
	return dst
}
