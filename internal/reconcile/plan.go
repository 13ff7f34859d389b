package reconcile

import "github.com/RileyXX/imdb-trakt-syncer/internal/models"

// Snapshot holds both services' copies of the four facets, fetched at the
// start of a run. Collections are expected to be pre-filtered (see
// models.FilterSyncable) and identity-resolved before planning.
type Snapshot struct {
	TraktRatings   []models.MediaItem
	IMDBRatings    []models.MediaItem
	TraktWatchlist []models.MediaItem
	IMDBWatchlist  []models.MediaItem
	TraktReviews   []models.MediaItem
	IMDBReviews    []models.MediaItem
	TraktHistory   []models.MediaItem
	IMDBHistory    []models.MediaItem

	// Scraping IMDB reviews is best-effort; when it failed partway the
	// review facet is skipped for the run rather than planned from an
	// incomplete collection.
	IMDBReviewErrors bool
}

// Plan carries the operation lists for one run. The reconciler populates the
// add/set lists; the removal lists are populated by the filter pipeline
// (watched-content and age-based watchlist pruning).
type Plan struct {
	TraktRatingsToSet []models.MediaItem
	IMDBRatingsToSet  []models.MediaItem

	TraktReviewsToSet []models.MediaItem
	IMDBReviewsToSet  []models.MediaItem

	TraktWatchlistToAdd    []models.MediaItem
	IMDBWatchlistToAdd     []models.MediaItem
	TraktWatchlistToRemove []models.MediaItem
	IMDBWatchlistToRemove  []models.MediaItem

	TraktHistoryToAdd []models.MediaItem
	IMDBHistoryToAdd  []models.MediaItem

	// ReviewsSuppressed is set by the resubmission cooldown gate; the
	// executor skips IMDB-bound review submission for the whole run.
	ReviewsSuppressed bool
}

// BuildPlan runs the per-facet set difference over a snapshot. Each facet is
// reconciled independently; the filter pipeline is applied afterwards.
func BuildPlan(snap *Snapshot) *Plan {
	plan := &Plan{}

	plan.TraktRatingsToSet, plan.IMDBRatingsToSet = Reconcile(snap.TraktRatings, snap.IMDBRatings)
	plan.TraktReviewsToSet, plan.IMDBReviewsToSet = Reconcile(snap.TraktReviews, snap.IMDBReviews)
	plan.TraktWatchlistToAdd, plan.IMDBWatchlistToAdd = Reconcile(snap.TraktWatchlist, snap.IMDBWatchlist)
	plan.TraktHistoryToAdd, plan.IMDBHistoryToAdd = Reconcile(snap.TraktHistory, snap.IMDBHistory)

	return plan
}
