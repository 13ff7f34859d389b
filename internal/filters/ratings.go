package filters

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
	"github.com/RileyXX/imdb-trakt-syncer/internal/reconcile"
)

// resolveRatingConflicts handles ids rated differently on both sides. The
// more recently rated side wins when the two ratings are at least a calendar
// day apart: the older side receives an update to the newer value. Same-day
// conflicts are ambiguous and deliberately left as-is.
func (p *Pipeline) resolveRatingConflicts(plan *reconcile.Plan, snap *reconcile.Snapshot) {
	imdbByID := make(map[string]models.MediaItem, len(snap.IMDBRatings))
	for _, item := range snap.IMDBRatings {
		imdbByID[item.IMDBID] = item
	}

	for _, traktItem := range snap.TraktRatings {
		imdbItem, ok := imdbByID[traktItem.IMDBID]
		if !ok || traktItem.Rating == imdbItem.Rating {
			continue
		}

		traktDay := traktItem.DateAdded.UTC().Truncate(24 * time.Hour)
		imdbDay := imdbItem.DateAdded.UTC().Truncate(24 * time.Hour)
		if traktDay.Equal(imdbDay) {
			// Rated on the same calendar day on both services; there is
			// no reliable winner, so no update is scheduled.
			p.logger.WithFields(logrus.Fields{
				"title":   traktItem.Title,
				"imdb_id": traktItem.IMDBID,
			}).Debug("Same-day rating conflict left unresolved")
			continue
		}

		if traktDay.After(imdbDay) {
			// Trakt rating is newer, overwrite the IMDB rating.
			plan.IMDBRatingsToSet = append(plan.IMDBRatingsToSet, traktItem)
		} else {
			plan.TraktRatingsToSet = append(plan.TraktRatingsToSet, imdbItem)
		}
	}
}

// markRatedAsWatched synthesizes watch-history adds for rated items missing
// from both histories: a rating implies the user watched the title. Shows
// are excluded because they cannot be marked watched directly.
func (p *Pipeline) markRatedAsWatched(plan *reconcile.Plan, snap *reconcile.Snapshot) {
	if !p.opts.MarkRatedAsWatched {
		return
	}

	watched := models.IDSet(snap.TraktHistory)
	for id := range models.IDSet(snap.IMDBHistory) {
		watched[id] = struct{}{}
	}
	planned := models.IDSet(plan.TraktHistoryToAdd)
	for id := range models.IDSet(plan.IMDBHistoryToAdd) {
		planned[id] = struct{}{}
	}

	add := func(item models.MediaItem) {
		if item.MediaType == models.MediaTypeShow {
			return
		}
		if _, ok := watched[item.IMDBID]; ok {
			return
		}
		if _, ok := planned[item.IMDBID]; ok {
			return
		}
		planned[item.IMDBID] = struct{}{}

		if item.WatchedAt == nil {
			watchedAt := item.DateAdded
			item.WatchedAt = &watchedAt
		}
		plan.TraktHistoryToAdd = append(plan.TraktHistoryToAdd, item)
		plan.IMDBHistoryToAdd = append(plan.IMDBHistoryToAdd, item)
	}

	for _, item := range snap.TraktRatings {
		add(item)
	}
	for _, item := range snap.IMDBRatings {
		add(item)
	}
}
