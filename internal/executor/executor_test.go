package executor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
	"github.com/RileyXX/imdb-trakt-syncer/internal/reconcile"
)

type fakeActions struct {
	calls   []string
	failIDs map[string]bool
}

func (f *fakeActions) record(op string, item models.MediaItem) error {
	f.calls = append(f.calls, op+":"+item.IMDBID)
	if f.failIDs[item.IMDBID] {
		return errors.New("service rejected the item")
	}
	return nil
}

func (f *fakeActions) SetRating(ctx context.Context, item models.MediaItem) error {
	return f.record("rate", item)
}
func (f *fakeActions) AddToWatchlist(ctx context.Context, item models.MediaItem) error {
	return f.record("watchlist-add", item)
}
func (f *fakeActions) RemoveFromWatchlist(ctx context.Context, item models.MediaItem) error {
	return f.record("watchlist-remove", item)
}
func (f *fakeActions) SubmitReview(ctx context.Context, item models.MediaItem) error {
	return f.record("review", item)
}
func (f *fakeActions) AddToHistory(ctx context.Context, item models.MediaItem) error {
	return f.record("history-add", item)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func movie(id, title string, year int) models.MediaItem {
	return models.MediaItem{IMDBID: id, Title: title, Year: &year, MediaType: models.MediaTypeMovie}
}

func TestExecuteFailureIsolation(t *testing.T) {
	trakt := &fakeActions{failIDs: map[string]bool{"tt2": true}}
	catalog := &fakeActions{}
	var out bytes.Buffer

	plan := &reconcile.Plan{
		TraktWatchlistToAdd: []models.MediaItem{
			movie("tt1", "First", 2001),
			movie("tt2", "Second", 2002),
			movie("tt3", "Third", 2003),
		},
	}

	e := NewExecutor(trakt, catalog, &out, testLogger())
	summary := e.Execute(context.Background(), plan, Toggles{Watchlist: true})

	if len(trakt.calls) != 3 {
		t.Fatalf("Expected all 3 items attempted despite the failure, got %d", len(trakt.calls))
	}
	if trakt.calls[2] != "watchlist-add:tt3" {
		t.Errorf("Expected tt3 attempted after tt2 failed, got %v", trakt.calls)
	}

	results := summary.Results()
	if len(results) != 1 {
		t.Fatalf("Expected one facet result, got %d", len(results))
	}
	if results[0].Attempted != 3 || results[0].Succeeded != 2 || results[0].Failed != 1 {
		t.Errorf("Unexpected counts: %+v", results[0])
	}
	if summary.Failed() != 1 {
		t.Errorf("Summary.Failed() = %d", summary.Failed())
	}
}

func TestExecuteProgressLines(t *testing.T) {
	trakt := &fakeActions{}
	var out bytes.Buffer

	plan := &reconcile.Plan{
		TraktWatchlistToAdd: []models.MediaItem{
			movie("tt1", "The Matrix", 1999),
			movie("tt2", "Inception", 2010),
		},
	}

	e := NewExecutor(trakt, &fakeActions{}, &out, testLogger())
	e.Execute(context.Background(), plan, Toggles{Watchlist: true})

	output := out.String()
	for _, want := range []string{
		"Setting Trakt Watchlist Items\n",
		" - Adding item (1 of 2): The Matrix (1999)\n",
		" - Adding item (2 of 2): Inception (2010)\n",
		"Setting Trakt Watchlist Items Complete\n",
		"No IMDB Watchlist Items To Set\n",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q:\n%s", want, output)
		}
	}
}

func TestExecuteRatingLineIncludesValue(t *testing.T) {
	var out bytes.Buffer
	item := movie("tt1", "Heat", 1995)
	item.Rating = 9

	plan := &reconcile.Plan{TraktRatingsToSet: []models.MediaItem{item}}
	e := NewExecutor(&fakeActions{}, &fakeActions{}, &out, testLogger())
	e.Execute(context.Background(), plan, Toggles{Ratings: true})

	if !strings.Contains(out.String(), " - Rating item (1 of 1): Heat (1995): 9/10\n") {
		t.Errorf("Rating line missing value:\n%s", out.String())
	}
}

func TestExecuteSuppressedReviews(t *testing.T) {
	catalog := &fakeActions{}
	var out bytes.Buffer

	plan := &reconcile.Plan{
		IMDBReviewsToSet:  []models.MediaItem{movie("tt1", "A", 2000)},
		ReviewsSuppressed: true,
	}

	e := NewExecutor(&fakeActions{}, catalog, &out, testLogger())
	e.Execute(context.Background(), plan, Toggles{Reviews: true})

	for _, call := range catalog.calls {
		if strings.HasPrefix(call, "review:") {
			t.Errorf("Suppressed run must not submit IMDB reviews, got %v", catalog.calls)
		}
	}
	if !strings.Contains(out.String(), "Skipping IMDB review submission") {
		t.Errorf("Expected skip notice:\n%s", out.String())
	}
}

func TestExecuteDisabledFacets(t *testing.T) {
	trakt := &fakeActions{}
	plan := &reconcile.Plan{
		TraktRatingsToSet: []models.MediaItem{movie("tt1", "A", 2000)},
	}

	e := NewExecutor(trakt, &fakeActions{}, &bytes.Buffer{}, testLogger())
	e.Execute(context.Background(), plan, Toggles{Ratings: false})

	if len(trakt.calls) != 0 {
		t.Errorf("Disabled facet must not dispatch, got %v", trakt.calls)
	}
}

type tempErr struct{ retryable bool }

func (e *tempErr) Error() string   { return "temporary failure" }
func (e *tempErr) Retryable() bool { return e.retryable }

func TestRetryEventualSuccess(t *testing.T) {
	attempts := 0
	policy := RetryPolicy{Interval: time.Millisecond, Budget: time.Second}

	got, err := Retry(context.Background(), policy, func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, &tempErr{retryable: true}
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if got != 42 || attempts != 3 {
		t.Errorf("got %d after %d attempts", got, attempts)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	policy := RetryPolicy{Interval: time.Millisecond, Budget: time.Second}

	_, err := Retry(context.Background(), policy, func(ctx context.Context) (int, error) {
		attempts++
		return 0, &tempErr{retryable: false}
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Non-retryable error must stop after one attempt, got %d", attempts)
	}
}

func TestRetryBudgetExhaustion(t *testing.T) {
	policy := RetryPolicy{Interval: 5 * time.Millisecond, Budget: 20 * time.Millisecond}

	start := time.Now()
	_, err := Retry(context.Background(), policy, func(ctx context.Context) (int, error) {
		return 0, &tempErr{retryable: true}
	})
	if err == nil {
		t.Fatal("Expected error after budget exhaustion")
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Budget not honored, ran for %v", elapsed)
	}
}
