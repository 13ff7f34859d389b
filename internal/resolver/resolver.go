// Package resolver repairs stale IMDB ids on the Trakt side before diffing.
// IMDB occasionally merges or redirects titles; Trakt keeps the id it was
// given at rating time, so the same title can carry different ids on the two
// services and would otherwise produce spurious add operations.
package resolver

import (
	"context"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
	"github.com/RileyXX/imdb-trakt-syncer/internal/utils"
)

// RedirectLookup resolves an IMDB id to its current canonical id by loading
// the title page and reading back the id after redirects.
type RedirectLookup interface {
	ResolveID(ctx context.Context, imdbID string) (string, error)
}

// Resolver detects conflicting (title, type) groups between the two sides
// and rewrites stale Trakt-side ids via redirect lookup. The IMDB side is
// ground truth and is never rewritten.
type Resolver struct {
	lookup RedirectLookup
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewResolver creates a new identity resolver. Redirect lookups are memoized
// for the lifetime of the resolver, so repeated conflicts on the same id
// across facets cost a single page load.
func NewResolver(lookup RedirectLookup, logger *logrus.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		cache:  cache.New(30*time.Minute, time.Hour),
		logger: logger,
	}
}

// titleKey groups items whose ids should agree across services.
type titleKey struct {
	cleanTitle string
	mediaType  models.MediaType
}

// Resolve returns a copy of the Trakt-side collection with stale ids
// replaced. It never mutates its inputs: the id mapping is built first, then
// applied in a separate pass.
func (r *Resolver) Resolve(ctx context.Context, traktItems, imdbItems []models.MediaItem) []models.MediaItem {
	traktGroups := groupByTitle(traktItems)
	imdbGroups := groupByTitle(imdbItems)

	conflicts := r.findConflicts(traktGroups, imdbGroups)
	if len(conflicts) == 0 {
		return traktItems
	}

	mapping := r.resolveConflicts(ctx, conflicts, traktGroups)
	if len(mapping) == 0 {
		return traktItems
	}

	resolved := make([]models.MediaItem, len(traktItems))
	copy(resolved, traktItems)
	for i := range resolved {
		if newID, ok := mapping[resolved[i].IMDBID]; ok && newID != resolved[i].IMDBID {
			r.logger.WithFields(logrus.Fields{
				"title":  resolved[i].Title,
				"old_id": resolved[i].IMDBID,
				"new_id": newID,
			}).Info("Resolved stale IMDB id")
			resolved[i].IMDBID = newID
		}
	}

	// Conflicts whose id sets still differ after resolution stay
	// unresolved; the diff may schedule an extra operation, which is
	// accepted over guessing a match.
	r.reportUnresolved(groupByTitle(resolved), imdbGroups)

	return resolved
}

func groupByTitle(items []models.MediaItem) map[titleKey]map[string]struct{} {
	groups := make(map[titleKey]map[string]struct{})
	for _, item := range items {
		key := titleKey{cleanTitle: utils.CleanTitle(item.Title), mediaType: item.MediaType}
		if groups[key] == nil {
			groups[key] = make(map[string]struct{})
		}
		groups[key][item.IMDBID] = struct{}{}
	}
	return groups
}

// findConflicts returns the title keys whose id sets differ between the two
// sides. Keys present on only one side are paired fuzzily: a near-identical
// clean title of the same media type on the other side usually means the
// title was renamed along with the id merge.
func (r *Resolver) findConflicts(traktGroups, imdbGroups map[titleKey]map[string]struct{}) []titleKey {
	var conflicts []titleKey

	for key, traktIDs := range traktGroups {
		if imdbIDs, ok := imdbGroups[key]; ok {
			if !sameIDSet(traktIDs, imdbIDs) {
				conflicts = append(conflicts, key)
			}
			continue
		}
		if match, ok := fuzzyMatch(key, imdbGroups); ok && !sameIDSet(traktIDs, imdbGroups[match]) {
			r.logger.WithFields(logrus.Fields{
				"trakt_title": key.cleanTitle,
				"imdb_title":  match.cleanTitle,
			}).Debug("Fuzzy title match produced an id conflict")
			conflicts = append(conflicts, key)
		}
	}

	return conflicts
}

// fuzzyMatch finds the closest same-type clean title on the other side. The
// distance must be at most 2 edits and at most a quarter of the shorter
// title, which keeps short titles from matching each other freely.
func fuzzyMatch(key titleKey, groups map[titleKey]map[string]struct{}) (titleKey, bool) {
	best := titleKey{}
	bestDist := -1

	for candidate := range groups {
		if candidate.mediaType != key.mediaType || candidate == key {
			continue
		}
		dist := levenshtein.ComputeDistance(key.cleanTitle, candidate.cleanTitle)
		shorter := len(key.cleanTitle)
		if len(candidate.cleanTitle) < shorter {
			shorter = len(candidate.cleanTitle)
		}
		if dist > 2 || dist*4 > shorter {
			continue
		}
		if bestDist == -1 || dist < bestDist {
			best = candidate
			bestDist = dist
		}
	}

	return best, bestDist != -1
}

// resolveConflicts performs the redirect lookup for every Trakt-side id in a
// conflicting group and collects an old->new mapping. A failed lookup keeps
// the original id and does not stop resolution of the remaining conflicts.
func (r *Resolver) resolveConflicts(ctx context.Context, conflicts []titleKey, traktGroups map[titleKey]map[string]struct{}) map[string]string {
	mapping := make(map[string]string)

	for _, key := range conflicts {
		for id := range traktGroups[key] {
			resolved, err := r.resolveID(ctx, id)
			if err != nil {
				r.logger.WithError(err).WithFields(logrus.Fields{
					"imdb_id": id,
					"title":   key.cleanTitle,
				}).Warn("Redirect lookup failed, keeping original id")
				continue
			}
			if resolved != id {
				mapping[id] = resolved
			}
		}
	}

	return mapping
}

func (r *Resolver) resolveID(ctx context.Context, id string) (string, error) {
	if cached, ok := r.cache.Get(id); ok {
		return cached.(string), nil
	}

	resolved, err := r.lookup.ResolveID(ctx, id)
	if err != nil {
		return "", err
	}

	r.cache.Set(id, resolved, cache.DefaultExpiration)
	return resolved, nil
}

func (r *Resolver) reportUnresolved(traktGroups, imdbGroups map[titleKey]map[string]struct{}) {
	for key, traktIDs := range traktGroups {
		imdbIDs, ok := imdbGroups[key]
		if !ok {
			continue
		}
		if !sameIDSet(traktIDs, imdbIDs) {
			r.logger.WithField("title", key.cleanTitle).Debug("Id conflict remains after resolution")
		}
	}
}

func sameIDSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
