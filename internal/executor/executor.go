// Package executor dispatches finalized operation lists to the external
// collaborators, one item at a time. Dispatch is strictly sequential: the
// IMDB driver owns a single exclusive browser session, and sequential Trakt
// calls keep output ordering deterministic and stay well under rate limits.
package executor

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
	"github.com/RileyXX/imdb-trakt-syncer/internal/reconcile"
)

// TraktActions are the Trakt-bound mutation calls, each invoked at most once
// per item per run.
type TraktActions interface {
	SetRating(ctx context.Context, item models.MediaItem) error
	AddToWatchlist(ctx context.Context, item models.MediaItem) error
	RemoveFromWatchlist(ctx context.Context, item models.MediaItem) error
	SubmitReview(ctx context.Context, item models.MediaItem) error
	AddToHistory(ctx context.Context, item models.MediaItem) error
}

// CatalogDriver are the IMDB-bound mutation calls, performed through the
// browser session.
type CatalogDriver interface {
	SetRating(ctx context.Context, item models.MediaItem) error
	AddToWatchlist(ctx context.Context, item models.MediaItem) error
	RemoveFromWatchlist(ctx context.Context, item models.MediaItem) error
	SubmitReview(ctx context.Context, item models.MediaItem) error
	AddToHistory(ctx context.Context, item models.MediaItem) error
}

// Toggles selects which facets a run executes.
type Toggles struct {
	Ratings   bool
	Watchlist bool
	Reviews   bool
	History   bool
}

// Executor runs the plan's operation lists against the two services. A
// failure on one item is logged and counted but never blocks the next item;
// failed items stay in the diff and are retried on the next run.
type Executor struct {
	trakt   TraktActions
	catalog CatalogDriver
	logger  *logrus.Logger
	out     io.Writer
}

// NewExecutor creates a new executor. Progress lines are written to out.
func NewExecutor(trakt TraktActions, catalog CatalogDriver, out io.Writer, logger *logrus.Logger) *Executor {
	return &Executor{trakt: trakt, catalog: catalog, logger: logger, out: out}
}

// Execute dispatches every enabled facet of the plan and returns the per-
// facet outcome counts.
func (e *Executor) Execute(ctx context.Context, plan *reconcile.Plan, toggles Toggles) *Summary {
	summary := NewSummary()

	if toggles.Watchlist {
		summary.add(models.FacetWatchlist,
			e.runList(ctx, plan.TraktWatchlistToAdd, "Adding", "Trakt Watchlist Items", e.trakt.AddToWatchlist),
			e.runList(ctx, plan.IMDBWatchlistToAdd, "Adding", "IMDB Watchlist Items", e.catalog.AddToWatchlist),
			e.runList(ctx, plan.TraktWatchlistToRemove, "Removing", "Watched Items From Trakt Watchlist", e.trakt.RemoveFromWatchlist),
			e.runList(ctx, plan.IMDBWatchlistToRemove, "Removing", "Watched Items From IMDB Watchlist", e.catalog.RemoveFromWatchlist),
		)
	}

	if toggles.Ratings {
		summary.add(models.FacetRatings,
			e.runList(ctx, plan.TraktRatingsToSet, "Rating", "Trakt Ratings", e.trakt.SetRating),
			e.runList(ctx, plan.IMDBRatingsToSet, "Rating", "IMDB Ratings", e.catalog.SetRating),
		)
	}

	if toggles.Reviews {
		summary.add(models.FacetReviews,
			e.runList(ctx, plan.TraktReviewsToSet, "Submitting", "Trakt Reviews", e.trakt.SubmitReview),
		)
		if plan.ReviewsSuppressed {
			fmt.Fprintln(e.out, "IMDB reviews were submitted recently. Skipping IMDB review submission.")
		} else {
			summary.add(models.FacetReviews,
				e.runList(ctx, plan.IMDBReviewsToSet, "Submitting", "IMDB Reviews", e.catalog.SubmitReview),
			)
		}
	}

	if toggles.History {
		summary.add(models.FacetHistory,
			e.runList(ctx, plan.TraktHistoryToAdd, "Adding", "Trakt Watch History Items", e.trakt.AddToHistory),
			e.runList(ctx, plan.IMDBHistoryToAdd, "Adding", "IMDB Watch History Items", e.catalog.AddToHistory),
		)
	}

	return summary
}

type listResult struct {
	attempted int
	succeeded int
	failed    int
}

// runList dispatches a single operation list, printing a per-item progress
// line and a completion trailer.
func (e *Executor) runList(ctx context.Context, items []models.MediaItem, verb, label string, op func(context.Context, models.MediaItem) error) listResult {
	var result listResult

	if len(items) == 0 {
		fmt.Fprintf(e.out, "No %s To Set\n", label)
		return result
	}

	fmt.Fprintf(e.out, "Setting %s\n", label)
	total := len(items)
	for i, item := range items {
		result.attempted++
		fmt.Fprintf(e.out, " - %s item (%d of %d): %s\n", verb, i+1, total, itemLine(verb, item))

		if err := op(ctx, item); err != nil {
			result.failed++
			fmt.Fprintf(e.out, "   - Failed %s item (%d of %d): %s (%s)\n", verb, i+1, total, itemLine(verb, item), item.IMDBID)
			e.logger.WithError(err).WithFields(logrus.Fields{
				"title":   item.Title,
				"imdb_id": item.IMDBID,
				"type":    item.MediaType,
			}).Errorf("Failed %s item", verb)
			continue
		}
		result.succeeded++
	}
	fmt.Fprintf(e.out, "Setting %s Complete\n", label)

	return result
}

func itemLine(verb string, item models.MediaItem) string {
	if verb == "Rating" {
		return fmt.Sprintf("%s: %d/10", item.Label(), item.Rating)
	}
	return item.Label()
}
