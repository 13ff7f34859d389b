// Package controllers wires the fetch, resolve, plan, filter and execute
// stages into a full synchronization run.
package controllers

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RileyXX/imdb-trakt-syncer/internal/config"
	"github.com/RileyXX/imdb-trakt-syncer/internal/executor"
	"github.com/RileyXX/imdb-trakt-syncer/internal/filters"
	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
	"github.com/RileyXX/imdb-trakt-syncer/internal/reconcile"
	"github.com/RileyXX/imdb-trakt-syncer/internal/resolver"
)

// TraktSource reads the Trakt side of the snapshot.
type TraktSource interface {
	GetUserSlug(ctx context.Context) (string, error)
	GetRatings(ctx context.Context, slug string) ([]models.MediaItem, error)
	GetWatchlist(ctx context.Context, slug string) ([]models.MediaItem, error)
	GetReviews(ctx context.Context, slug string) ([]models.MediaItem, error)
	GetWatchHistory(ctx context.Context, slug string) ([]models.MediaItem, error)
}

// CatalogSource reads the IMDB side of the snapshot. FetchReviews reports
// whether any review failed to scrape; a partial review list must not be
// treated as the full collection.
type CatalogSource interface {
	FetchRatings(ctx context.Context) ([]models.MediaItem, error)
	FetchWatchlist(ctx context.Context) ([]models.MediaItem, error)
	FetchReviews(ctx context.Context) ([]models.MediaItem, bool, error)
	FetchHistory(ctx context.Context) ([]models.MediaItem, error)
}

// SyncController runs one full synchronization: fetch both sides, resolve
// identities, reconcile, filter, execute, then persist run state.
type SyncController struct {
	config   *config.Config
	trakt    TraktSource
	catalog  CatalogSource
	resolver *resolver.Resolver
	executor *executor.Executor
	settings *config.Store
	database *models.Database
	logger   *logrus.Logger
	out      io.Writer
}

// NewSyncController creates a sync controller.
func NewSyncController(
	cfg *config.Config,
	trakt TraktSource,
	catalog CatalogSource,
	res *resolver.Resolver,
	exec *executor.Executor,
	settings *config.Store,
	database *models.Database,
	out io.Writer,
	logger *logrus.Logger,
) *SyncController {
	return &SyncController{
		config:   cfg,
		trakt:    trakt,
		catalog:  catalog,
		resolver: res,
		executor: exec,
		settings: settings,
		database: database,
		logger:   logger,
		out:      out,
	}
}

// Run performs a full synchronization run.
func (c *SyncController) Run(ctx context.Context) error {
	run := &models.SyncRun{StartedAt: time.Now().UTC()}

	err := c.run(ctx, run)
	if err != nil {
		run.Error = err.Error()
	}
	run.FinishedAt = time.Now().UTC()

	if c.database != nil {
		if dbErr := c.database.RecordRun(run); dbErr != nil {
			c.logger.WithError(dbErr).Warn("Failed to record sync run")
		}
	}
	return err
}

func (c *SyncController) run(ctx context.Context, run *models.SyncRun) error {
	settings, err := c.settings.Load()
	if err != nil {
		return err
	}

	toggles := executor.Toggles{
		Ratings:   settings.SyncRatings,
		Watchlist: settings.SyncWatchlist,
		Reviews:   settings.SyncReviews,
		History:   settings.SyncWatchHistory,
	}

	snap, err := c.fetchSnapshot(ctx, toggles)
	if err != nil {
		return err
	}

	c.resolveIdentities(ctx, snap)

	plan := reconcile.BuildPlan(snap)
	if snap.IMDBReviewErrors {
		c.logger.Warn("IMDB review scraping was incomplete, skipping review planning for this run")
		plan.TraktReviewsToSet = nil
		plan.IMDBReviewsToSet = nil
	}

	pipeline := filters.NewPipeline(filters.Options{
		MinReviewLength:             c.config.ReviewMinLength,
		ReviewCooldown:              c.config.ReviewCooldown,
		LastReviewBatch:             settings.LastReviewBatch(),
		MarkRatedAsWatched:          settings.MarkRatedAsWatched,
		RemoveWatchedFromWatchlists: settings.RemoveWatchedFromWatchlists,
		WatchlistMaxAge:             c.config.WatchlistMaxAge,
		WatchlistQuota:              c.config.WatchlistQuota,
	}, c.logger)
	quota := pipeline.Apply(plan, snap)

	// The cooldown timestamp is recorded when the gate opens, before
	// submission, so a crashed batch still counts against the next window.
	if toggles.Reviews && !plan.ReviewsSuppressed && len(plan.IMDBReviewsToSet) > 0 {
		settings.MarkReviewsSubmitted(time.Now())
	}
	settings.WatchlistQuotaReached = quota.WatchlistQuotaReached
	settings.HistoryQuotaReached = quota.HistoryQuotaReached
	if err := c.settings.Save(settings); err != nil {
		c.logger.WithError(err).Warn("Failed to persist settings")
	}

	summary := c.executor.Execute(ctx, plan, toggles)
	summary.Render(c.out)
	run.Results = summary.Results()

	if failed := summary.Failed(); failed > 0 {
		c.logger.WithField("failed", failed).Warn("Sync completed with item failures, they will be retried next run")
	}
	return nil
}

// fetchSnapshot pulls both sides' collections for every enabled facet and
// normalizes them. History is fetched whenever the watchlist facet is on too,
// because watched-content pruning needs it.
func (c *SyncController) fetchSnapshot(ctx context.Context, toggles executor.Toggles) (*reconcile.Snapshot, error) {
	slug, err := c.trakt.GetUserSlug(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to identify Trakt user: %w", err)
	}
	c.logger.WithField("user", slug).Info("Fetching collections")

	snap := &reconcile.Snapshot{}

	if toggles.Ratings {
		if snap.TraktRatings, err = c.trakt.GetRatings(ctx, slug); err != nil {
			return nil, err
		}
		if snap.IMDBRatings, err = c.catalog.FetchRatings(ctx); err != nil {
			return nil, err
		}
	}

	if toggles.Watchlist {
		if snap.TraktWatchlist, err = c.trakt.GetWatchlist(ctx, slug); err != nil {
			return nil, err
		}
		if snap.IMDBWatchlist, err = c.catalog.FetchWatchlist(ctx); err != nil {
			return nil, err
		}
	}

	if toggles.Reviews {
		if snap.TraktReviews, err = c.trakt.GetReviews(ctx, slug); err != nil {
			return nil, err
		}
		var hadErrors bool
		if snap.IMDBReviews, hadErrors, err = c.catalog.FetchReviews(ctx); err != nil {
			return nil, err
		}
		snap.IMDBReviewErrors = hadErrors
	}

	if toggles.History || toggles.Watchlist {
		if snap.TraktHistory, err = c.trakt.GetWatchHistory(ctx, slug); err != nil {
			return nil, err
		}
		if snap.IMDBHistory, err = c.catalog.FetchHistory(ctx); err != nil {
			return nil, err
		}
	}

	normalizeSnapshot(snap, c.logger)
	return snap, nil
}

func normalizeSnapshot(snap *reconcile.Snapshot, logger *logrus.Logger) {
	lists := []*[]models.MediaItem{
		&snap.TraktRatings, &snap.IMDBRatings,
		&snap.TraktWatchlist, &snap.IMDBWatchlist,
		&snap.TraktReviews, &snap.IMDBReviews,
		&snap.TraktHistory, &snap.IMDBHistory,
	}
	for _, list := range lists {
		before := len(*list)
		*list = models.FilterSyncable(*list)
		if dropped := before - len(*list); dropped > 0 {
			logger.WithField("dropped", dropped).Debug("Dropped records failing preconditions")
		}
	}
}

// resolveIdentities runs the redirect-based id resolution per facet. The
// IMDB side is ground truth; only the Trakt collections are rewritten.
func (c *SyncController) resolveIdentities(ctx context.Context, snap *reconcile.Snapshot) {
	snap.TraktRatings = c.resolver.Resolve(ctx, snap.TraktRatings, snap.IMDBRatings)
	snap.TraktWatchlist = c.resolver.Resolve(ctx, snap.TraktWatchlist, snap.IMDBWatchlist)
	snap.TraktReviews = c.resolver.Resolve(ctx, snap.TraktReviews, snap.IMDBReviews)
	snap.TraktHistory = c.resolver.Resolve(ctx, snap.TraktHistory, snap.IMDBHistory)
}
