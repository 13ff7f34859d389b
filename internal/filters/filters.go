// Package filters applies business rules on top of the raw per-facet diff:
// duplicate collapse, the review length gate and resubmission cooldown,
// rating conflict resolution, watch-history inference, watchlist pruning,
// quota enforcement and deterministic ordering. The steps run in a fixed
// order because later filters assume earlier ones already ran.
package filters

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
	"github.com/RileyXX/imdb-trakt-syncer/internal/reconcile"
)

// Options configures the filter pipeline for one run.
type Options struct {
	// MinReviewLength is the IMDB minimum review length in runes. Trakt
	// has no minimum.
	MinReviewLength int

	// ReviewCooldown suppresses IMDB-bound review submission for the whole
	// run unless this much time has passed since LastReviewBatch. The gate
	// is all-or-nothing per run, not per item.
	ReviewCooldown  time.Duration
	LastReviewBatch time.Time

	MarkRatedAsWatched          bool
	RemoveWatchedFromWatchlists bool

	// WatchlistMaxAge schedules removal of watchlist items older than this;
	// zero disables age-based pruning.
	WatchlistMaxAge time.Duration

	// WatchlistQuota is the IMDB hard item-count ceiling past which UI
	// mutation is unreliable; all IMDB-bound operations for a facet at or
	// over quota are cleared for the run.
	WatchlistQuota int

	Now func() time.Time
}

// QuotaState reports which IMDB facets hit the quota during Apply, so the
// caller can persist the flags.
type QuotaState struct {
	WatchlistQuotaReached bool
	HistoryQuotaReached   bool
}

// Pipeline applies the conflict and quota rules to a plan.
type Pipeline struct {
	opts   Options
	logger *logrus.Logger
}

// NewPipeline creates a filter pipeline
func NewPipeline(opts Options, logger *logrus.Logger) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{opts: opts, logger: logger}
}

// Apply runs every filter, in order, over the plan. The snapshot provides
// the existing collections needed by the pruning rules. Apply mutates the
// plan in place and returns the observed quota state.
func (p *Pipeline) Apply(plan *reconcile.Plan, snap *reconcile.Snapshot) QuotaState {
	p.collapseAll(plan)
	p.filterReviewLength(plan)
	p.applyReviewCooldown(plan)
	p.resolveRatingConflicts(plan, snap)
	p.markRatedAsWatched(plan, snap)
	p.pruneWatchedFromWatchlists(plan, snap)
	p.pruneAgedWatchlist(plan, snap)
	p.dropShowsFromTraktHistory(plan)
	quota := p.enforceQuota(plan, snap)
	sortPlan(plan)
	return quota
}

// CollapseDuplicates keeps, for each IMDB id, the record with the earliest
// DateAdded. Ties are broken by encounter order, so the result does not
// depend on which duplicate happens to come later in the input.
func CollapseDuplicates(items []models.MediaItem) []models.MediaItem {
	if len(items) < 2 {
		return items
	}

	index := make(map[string]int, len(items))
	result := make([]models.MediaItem, 0, len(items))
	for _, item := range items {
		at, seen := index[item.IMDBID]
		if !seen {
			index[item.IMDBID] = len(result)
			result = append(result, item)
			continue
		}
		if item.DateAdded.Before(result[at].DateAdded) {
			result[at] = item
		}
	}
	return result
}

func (p *Pipeline) collapseAll(plan *reconcile.Plan) {
	lists := []*[]models.MediaItem{
		&plan.TraktRatingsToSet, &plan.IMDBRatingsToSet,
		&plan.TraktReviewsToSet, &plan.IMDBReviewsToSet,
		&plan.TraktWatchlistToAdd, &plan.IMDBWatchlistToAdd,
		&plan.TraktHistoryToAdd, &plan.IMDBHistoryToAdd,
	}
	for _, list := range lists {
		*list = CollapseDuplicates(*list)
	}
}

// filterReviewLength suppresses IMDB-bound reviews shorter than the site
// minimum. Length is measured in runes, not bytes, so multibyte text is not
// penalized.
func (p *Pipeline) filterReviewLength(plan *reconcile.Plan) {
	kept := plan.IMDBReviewsToSet[:0]
	for _, review := range plan.IMDBReviewsToSet {
		if len([]rune(review.Comment)) >= p.opts.MinReviewLength {
			kept = append(kept, review)
		}
	}
	plan.IMDBReviewsToSet = kept
}

func (p *Pipeline) applyReviewCooldown(plan *reconcile.Plan) {
	if len(plan.IMDBReviewsToSet) == 0 || p.opts.ReviewCooldown <= 0 {
		return
	}
	if p.opts.Now().Sub(p.opts.LastReviewBatch) < p.opts.ReviewCooldown {
		p.logger.WithField("cooldown", p.opts.ReviewCooldown).Info("IMDB reviews were submitted recently, skipping review submission")
		plan.ReviewsSuppressed = true
	}
}
