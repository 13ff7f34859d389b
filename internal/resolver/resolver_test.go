package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
	"github.com/RileyXX/imdb-trakt-syncer/internal/utils"
)

type fakeLookup struct {
	redirects map[string]string
	failing   map[string]bool
	calls     int
}

func (f *fakeLookup) ResolveID(ctx context.Context, imdbID string) (string, error) {
	f.calls++
	if f.failing[imdbID] {
		return "", errors.New("page load failed")
	}
	if to, ok := f.redirects[imdbID]; ok {
		return to, nil
	}
	return imdbID, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func movie(id, title string) models.MediaItem {
	return models.MediaItem{IMDBID: id, Title: title, MediaType: models.MediaTypeMovie}
}

func TestCleanTitle(t *testing.T) {
	cases := map[string]string{
		"The Godfather":        "thegodfather",
		"Amélie":               "amelie",
		"WALL·E":               "walle",
		"Birdman (or ...)":     "birdmanor",
		"M*A*S*H":              "mash",
		"8½":                   "8",
		"Léon: The Profession": "leontheprofession",
	}
	for input, want := range cases {
		if got := utils.CleanTitle(input); got != want {
			t.Errorf("CleanTitle(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestResolveRewritesStaleID(t *testing.T) {
	lookup := &fakeLookup{redirects: map[string]string{"tt0000001": "tt9999999"}}
	r := NewResolver(lookup, testLogger())

	trakt := []models.MediaItem{movie("tt0000001", "Old Movie")}
	imdb := []models.MediaItem{movie("tt9999999", "Old Movie")}

	resolved := r.Resolve(context.Background(), trakt, imdb)

	if resolved[0].IMDBID != "tt9999999" {
		t.Errorf("Expected stale id rewritten, got %s", resolved[0].IMDBID)
	}
	if trakt[0].IMDBID != "tt0000001" {
		t.Error("Input collection was mutated")
	}
}

func TestResolveNoConflictsSkipsLookups(t *testing.T) {
	lookup := &fakeLookup{}
	r := NewResolver(lookup, testLogger())

	trakt := []models.MediaItem{movie("tt1", "A"), movie("tt2", "B")}
	imdb := []models.MediaItem{movie("tt1", "A"), movie("tt2", "B")}

	r.Resolve(context.Background(), trakt, imdb)

	if lookup.calls != 0 {
		t.Errorf("Expected no lookups for agreeing collections, got %d", lookup.calls)
	}
}

func TestResolveKeepsIDOnLookupFailure(t *testing.T) {
	lookup := &fakeLookup{failing: map[string]bool{"tt0000001": true}}
	r := NewResolver(lookup, testLogger())

	trakt := []models.MediaItem{movie("tt0000001", "Some Movie")}
	imdb := []models.MediaItem{movie("tt9999999", "Some Movie")}

	resolved := r.Resolve(context.Background(), trakt, imdb)

	if resolved[0].IMDBID != "tt0000001" {
		t.Errorf("Failed lookup must keep the original id, got %s", resolved[0].IMDBID)
	}
}

func TestResolveMemoizesLookups(t *testing.T) {
	lookup := &fakeLookup{redirects: map[string]string{"tt0000001": "tt9999999"}}
	r := NewResolver(lookup, testLogger())

	// Same stale id appears under two conflicting titles against the same
	// ground-truth side.
	trakt := []models.MediaItem{movie("tt0000001", "Renamed Movie")}
	imdb := []models.MediaItem{movie("tt9999999", "Renamed Movie")}

	r.Resolve(context.Background(), trakt, imdb)
	r.Resolve(context.Background(), trakt, imdb)

	if lookup.calls != 1 {
		t.Errorf("Expected one lookup thanks to memoization, got %d", lookup.calls)
	}
}

func TestResolveFuzzyTitlePairing(t *testing.T) {
	// Title differs by one character across services; same media type. The
	// fuzzy pairing should still flag the id conflict and resolve it.
	lookup := &fakeLookup{redirects: map[string]string{"tt0000001": "tt9999999"}}
	r := NewResolver(lookup, testLogger())

	trakt := []models.MediaItem{movie("tt0000001", "The Shawshank Redemptio")}
	imdb := []models.MediaItem{movie("tt9999999", "The Shawshank Redemption")}

	resolved := r.Resolve(context.Background(), trakt, imdb)

	if resolved[0].IMDBID != "tt9999999" {
		t.Errorf("Expected fuzzy pairing to resolve the id, got %s", resolved[0].IMDBID)
	}
}

func TestResolveShortTitlesDoNotFuzzyMatch(t *testing.T) {
	lookup := &fakeLookup{}
	r := NewResolver(lookup, testLogger())

	// Distance 1 but the titles are far too short for a quarter-length match.
	trakt := []models.MediaItem{movie("tt1", "Up")}
	imdb := []models.MediaItem{movie("tt2", "It")}

	resolved := r.Resolve(context.Background(), trakt, imdb)

	if lookup.calls != 0 {
		t.Errorf("Short titles must not fuzzy match, got %d lookups", lookup.calls)
	}
	if resolved[0].IMDBID != "tt1" {
		t.Errorf("Unexpected rewrite: %s", resolved[0].IMDBID)
	}
}

func TestResolveLeavesUnresolvedConflicts(t *testing.T) {
	// Lookup resolves to a third id that still does not match the IMDB side.
	lookup := &fakeLookup{redirects: map[string]string{"tt0000001": "tt0000002"}}
	r := NewResolver(lookup, testLogger())

	trakt := []models.MediaItem{movie("tt0000001", "Some Movie")}
	imdb := []models.MediaItem{movie("tt9999999", "Some Movie")}

	resolved := r.Resolve(context.Background(), trakt, imdb)

	// The rewrite is applied even though the conflict remains; the diff may
	// schedule an extra operation, which is accepted over guessing.
	if resolved[0].IMDBID != "tt0000002" {
		t.Errorf("Expected redirect applied, got %s", resolved[0].IMDBID)
	}
}
