package controllers

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RileyXX/imdb-trakt-syncer/internal/config"
	"github.com/RileyXX/imdb-trakt-syncer/internal/executor"
	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
	"github.com/RileyXX/imdb-trakt-syncer/internal/resolver"
)

type fakeTraktSource struct {
	ratings   []models.MediaItem
	watchlist []models.MediaItem
	reviews   []models.MediaItem
	history   []models.MediaItem
}

func (f *fakeTraktSource) GetUserSlug(ctx context.Context) (string, error) { return "tester", nil }
func (f *fakeTraktSource) GetRatings(ctx context.Context, slug string) ([]models.MediaItem, error) {
	return f.ratings, nil
}
func (f *fakeTraktSource) GetWatchlist(ctx context.Context, slug string) ([]models.MediaItem, error) {
	return f.watchlist, nil
}
func (f *fakeTraktSource) GetReviews(ctx context.Context, slug string) ([]models.MediaItem, error) {
	return f.reviews, nil
}
func (f *fakeTraktSource) GetWatchHistory(ctx context.Context, slug string) ([]models.MediaItem, error) {
	return f.history, nil
}

type fakeCatalogSource struct {
	ratings      []models.MediaItem
	watchlist    []models.MediaItem
	reviews      []models.MediaItem
	history      []models.MediaItem
	reviewErrors bool
}

func (f *fakeCatalogSource) FetchRatings(ctx context.Context) ([]models.MediaItem, error) {
	return f.ratings, nil
}
func (f *fakeCatalogSource) FetchWatchlist(ctx context.Context) ([]models.MediaItem, error) {
	return f.watchlist, nil
}
func (f *fakeCatalogSource) FetchReviews(ctx context.Context) ([]models.MediaItem, bool, error) {
	return f.reviews, f.reviewErrors, nil
}
func (f *fakeCatalogSource) FetchHistory(ctx context.Context) ([]models.MediaItem, error) {
	return f.history, nil
}

type fakeSink struct {
	calls []string
}

func (f *fakeSink) record(op string, item models.MediaItem) error {
	f.calls = append(f.calls, op+":"+item.IMDBID)
	return nil
}

func (f *fakeSink) SetRating(ctx context.Context, item models.MediaItem) error {
	return f.record("rate", item)
}
func (f *fakeSink) AddToWatchlist(ctx context.Context, item models.MediaItem) error {
	return f.record("watchlist-add", item)
}
func (f *fakeSink) RemoveFromWatchlist(ctx context.Context, item models.MediaItem) error {
	return f.record("watchlist-remove", item)
}
func (f *fakeSink) SubmitReview(ctx context.Context, item models.MediaItem) error {
	return f.record("review", item)
}
func (f *fakeSink) AddToHistory(ctx context.Context, item models.MediaItem) error {
	return f.record("history-add", item)
}

type fakeLookup struct{}

func (fakeLookup) ResolveID(ctx context.Context, imdbID string) (string, error) {
	return imdbID, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func movie(id, title string, d time.Time) models.MediaItem {
	return models.MediaItem{IMDBID: id, Title: title, MediaType: models.MediaTypeMovie, DateAdded: d}
}

func newTestController(t *testing.T, trakt *fakeTraktSource, catalog *fakeCatalogSource, settings *config.Settings) (*SyncController, *fakeSink, *fakeSink, *config.Store) {
	t.Helper()

	cfg := &config.Config{
		ReviewMinLength: 600,
		ReviewCooldown:  240 * time.Hour,
		WatchlistQuota:  9999,
	}

	store := config.NewStore(filepath.Join(t.TempDir(), "settings.json"))
	if err := store.Save(settings); err != nil {
		t.Fatalf("Failed to seed settings: %v", err)
	}

	traktSink := &fakeSink{}
	catalogSink := &fakeSink{}
	logger := testLogger()
	exec := executor.NewExecutor(traktSink, catalogSink, &bytes.Buffer{}, logger)
	res := resolver.NewResolver(fakeLookup{}, logger)

	ctrl := NewSyncController(cfg, trakt, catalog, res, exec, store, nil, &bytes.Buffer{}, logger)
	return ctrl, traktSink, catalogSink, store
}

func TestRunSyncsMissingItems(t *testing.T) {
	added := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)

	trakt := &fakeTraktSource{
		watchlist: []models.MediaItem{movie("tt1", "Only On Trakt", added)},
	}
	catalog := &fakeCatalogSource{
		watchlist: []models.MediaItem{movie("tt2", "Only On IMDB", added)},
	}

	ctrl, traktSink, catalogSink, _ := newTestController(t, trakt, catalog, &config.Settings{
		SyncWatchlist: true,
	})

	if err := ctrl.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(traktSink.calls) != 1 || traktSink.calls[0] != "watchlist-add:tt2" {
		t.Errorf("Expected tt2 added to Trakt, got %v", traktSink.calls)
	}
	if len(catalogSink.calls) != 1 || catalogSink.calls[0] != "watchlist-add:tt1" {
		t.Errorf("Expected tt1 added to IMDB, got %v", catalogSink.calls)
	}
}

func TestRunRatingConflictNewerWins(t *testing.T) {
	trakt := &fakeTraktSource{
		ratings: []models.MediaItem{{
			IMDBID: "tt1", Title: "A", MediaType: models.MediaTypeMovie,
			Rating: 7, DateAdded: time.Date(2023, 4, 10, 0, 0, 0, 0, time.UTC),
		}},
	}
	catalog := &fakeCatalogSource{
		ratings: []models.MediaItem{{
			IMDBID: "tt1", Title: "A", MediaType: models.MediaTypeMovie,
			Rating: 9, DateAdded: time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC),
		}},
	}

	ctrl, traktSink, catalogSink, _ := newTestController(t, trakt, catalog, &config.Settings{
		SyncRatings: true,
	})

	if err := ctrl.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(catalogSink.calls) != 1 || catalogSink.calls[0] != "rate:tt1" {
		t.Errorf("Expected the newer Trakt rating pushed to IMDB, got %v", catalogSink.calls)
	}
	if len(traktSink.calls) != 0 {
		t.Errorf("Expected no Trakt-bound operations, got %v", traktSink.calls)
	}
}

func TestRunSkipsReviewsOnScrapeErrors(t *testing.T) {
	longReview := make([]rune, 600)
	for i := range longReview {
		longReview[i] = 'x'
	}

	trakt := &fakeTraktSource{
		reviews: []models.MediaItem{{
			IMDBID: "tt1", Title: "A", MediaType: models.MediaTypeMovie,
			Comment: string(longReview),
		}},
	}
	catalog := &fakeCatalogSource{reviewErrors: true}

	ctrl, traktSink, catalogSink, _ := newTestController(t, trakt, catalog, &config.Settings{
		SyncReviews: true,
	})

	if err := ctrl.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(traktSink.calls) != 0 || len(catalogSink.calls) != 0 {
		t.Errorf("Partial scrape must suppress review planning, got %v and %v",
			traktSink.calls, catalogSink.calls)
	}
}

func TestRunRecordsReviewBatchTimestamp(t *testing.T) {
	longReview := make([]rune, 600)
	for i := range longReview {
		longReview[i] = 'x'
	}

	trakt := &fakeTraktSource{
		reviews: []models.MediaItem{{
			IMDBID: "tt1", Title: "A", MediaType: models.MediaTypeMovie,
			Comment: string(longReview), DateAdded: time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC),
		}},
	}
	catalog := &fakeCatalogSource{}

	ctrl, _, catalogSink, store := newTestController(t, trakt, catalog, &config.Settings{
		SyncReviews: true,
	})

	if err := ctrl.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(catalogSink.calls) != 1 || catalogSink.calls[0] != "review:tt1" {
		t.Errorf("Expected the review submitted to IMDB, got %v", catalogSink.calls)
	}

	saved, err := store.Load()
	if err != nil {
		t.Fatalf("Failed to reload settings: %v", err)
	}
	if saved.LastReviewBatch().IsZero() {
		t.Error("Expected the review batch timestamp persisted")
	}
}
