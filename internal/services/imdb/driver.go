package imdb

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/RileyXX/imdb-trakt-syncer/internal/config"
	"github.com/RileyXX/imdb-trakt-syncer/internal/executor"
	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
)

const (
	signinURL     = "https://www.imdb.com/ap/signin?openid.pape.max_auth_age=0&openid.return_to=https%3A%2F%2Fwww.imdb.com%2F&openid.identity=http%3A%2F%2Fspecs.openid.net%2Fauth%2F2.0%2Fidentifier_select&openid.assoc_handle=imdb_us&openid.mode=checkid_setup&openid.claimed_id=http%3A%2F%2Fspecs.openid.net%2Fauth%2F2.0%2Fidentifier_select&openid.ns=http%3A%2F%2Fspecs.openid.net%2Fauth%2F2.0"
	contributeURL = "https://contribute.imdb.com/review/%s/add?bus=imdb"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Driver owns the single authenticated browser session used for every
// IMDB-bound mutation. IMDB has no public write API, so ratings, watchlist
// edits, reviews and watched marks all go through the site itself.
type Driver struct {
	browser     context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
	policy      executor.RetryPolicy
	logger      *logrus.Logger
	userID      string
}

// NewDriver launches a headless browser session. Call Close when done.
func NewDriver(cfg *config.Config, logger *logrus.Logger) (*Driver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(browserUserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browser, cancelCtx := chromedp.NewContext(allocCtx)

	// Starts the browser process eagerly so a missing chrome binary fails
	// here instead of mid-run.
	if err := chromedp.Run(browser); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Driver{
		browser:     browser,
		cancelAlloc: cancelAlloc,
		cancelCtx:   cancelCtx,
		policy: executor.RetryPolicy{
			Interval: cfg.PageLoadInterval,
			Budget:   cfg.PageLoadBudget,
		},
		logger: logger,
	}, nil
}

// Close shuts the browser session down.
func (d *Driver) Close() {
	d.cancelCtx()
	d.cancelAlloc()
}

// SignIn authenticates the browser session against IMDB.
func (d *Driver) SignIn(ctx context.Context, email, password string) error {
	err := d.navigate(ctx, signinURL)
	if err != nil {
		return err
	}

	err = d.run(ctx,
		chromedp.WaitVisible(`#ap_email`, chromedp.ByID),
		chromedp.SendKeys(`#ap_email`, email, chromedp.ByID),
		chromedp.SendKeys(`#ap_password`, password, chromedp.ByID),
		chromedp.Click(`#signInSubmit`, chromedp.ByID),
		chromedp.WaitNotPresent(`#signInSubmit`, chromedp.ByID),
	)
	if err != nil {
		return fmt.Errorf("failed to sign in to IMDB: %w", err)
	}

	userID, err := d.currentUserID(ctx)
	if err != nil {
		return err
	}
	d.userID = userID
	d.logger.WithField("user_id", userID).Info("Signed in to IMDB")
	return nil
}

// currentUserID reads the ur-prefixed account id from the profile link on
// the home page.
func (d *Driver) currentUserID(ctx context.Context) (string, error) {
	if err := d.navigate(ctx, siteURL+"/"); err != nil {
		return "", err
	}

	var href string
	err := d.run(ctx,
		chromedp.AttributeValue(`a[href*="/user/ur"]`, "href", &href, nil, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to locate IMDB profile link: %w", err)
	}

	matches := userIDPattern.FindStringSubmatch(href)
	if matches == nil {
		return "", fmt.Errorf("failed to extract user id from %q", href)
	}
	return matches[1], nil
}

// SetRating opens the title's rating prompt and selects the star value.
func (d *Driver) SetRating(ctx context.Context, item models.MediaItem) error {
	if err := d.navigate(ctx, titleURL(item.IMDBID)); err != nil {
		return err
	}

	starButton := fmt.Sprintf(`button[aria-label="Rate %d"]`, item.Rating)
	err := d.run(ctx,
		chromedp.WaitVisible(`div[data-testid="hero-rating-bar__user-rating"] button`, chromedp.ByQuery),
		chromedp.Click(`div[data-testid="hero-rating-bar__user-rating"] button`, chromedp.ByQuery),
		chromedp.WaitVisible(starButton, chromedp.ByQuery),
		chromedp.Click(starButton, chromedp.ByQuery),
		chromedp.Click(`button.ipc-rating-prompt__rate-button`, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to rate %s: %w", item.IMDBID, err)
	}
	return nil
}

// AddToWatchlist puts the title on the account watchlist.
func (d *Driver) AddToWatchlist(ctx context.Context, item models.MediaItem) error {
	return d.setWatchlisted(ctx, item, true)
}

// RemoveFromWatchlist takes the title off the account watchlist.
func (d *Driver) RemoveFromWatchlist(ctx context.Context, item models.MediaItem) error {
	return d.setWatchlisted(ctx, item, false)
}

func (d *Driver) setWatchlisted(ctx context.Context, item models.MediaItem, want bool) error {
	if err := d.navigate(ctx, titleURL(item.IMDBID)); err != nil {
		return err
	}

	page := &watchlistButton{driver: d, want: want}
	state, err := toggleWatchlist(ctx, page, d.logger)
	if err != nil {
		return fmt.Errorf("failed to toggle watchlist for %s: %w", item.IMDBID, err)
	}
	if state != ToggleConfirmed {
		return fmt.Errorf("watchlist toggle for %s %s without confirmation", item.IMDBID, state)
	}
	return nil
}

// watchlistButton adapts the title page's watchlist control to the toggle
// loop.
type watchlistButton struct {
	driver *Driver
	want   bool
}

func (b *watchlistButton) InDesiredState(ctx context.Context) (bool, error) {
	var text string
	err := b.driver.run(ctx,
		chromedp.Text(`button[data-testid="tm-box-wl-button"]`, &text, chromedp.ByQuery),
	)
	if err != nil {
		return false, err
	}
	listed := strings.Contains(text, "In Watchlist")
	return listed == b.want, nil
}

func (b *watchlistButton) Click(ctx context.Context) error {
	return b.driver.run(ctx,
		chromedp.Click(`button[data-testid="tm-box-wl-button"]`, chromedp.ByQuery),
	)
}

// SubmitReview files the comment as an IMDB user review through the
// contribution form.
func (d *Driver) SubmitReview(ctx context.Context, item models.MediaItem) error {
	if err := d.navigate(ctx, fmt.Sprintf(contributeURL, item.IMDBID)); err != nil {
		return err
	}

	spoilerChoice := `#spoiler-no`
	if item.Spoiler {
		spoilerChoice = `#spoiler-yes`
	}

	err := d.run(ctx,
		chromedp.WaitVisible(`textarea.klondike-textarea`, chromedp.ByQuery),
		chromedp.SendKeys(`input.klondike-input`, reviewHeadline(item), chromedp.ByQuery),
		chromedp.SendKeys(`textarea.klondike-textarea`, item.Comment, chromedp.ByQuery),
		chromedp.Click(spoilerChoice, chromedp.ByID),
		chromedp.Click(`input.a-button-input`, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to submit review for %s: %w", item.IMDBID, err)
	}
	return nil
}

// reviewHeadline derives the required headline field from the first
// sentence of the review body.
func reviewHeadline(item models.MediaItem) string {
	text := strings.TrimSpace(item.Comment)
	if i := strings.IndexAny(text, ".!?\n"); i > 0 {
		text = text[:i]
	}
	const maxHeadline = 100
	runes := []rune(text)
	if len(runes) > maxHeadline {
		text = string(runes[:maxHeadline])
	}
	if text == "" {
		text = "My review of " + item.Title
	}
	return text
}

// AddToHistory presses the title page's watched check-in button.
func (d *Driver) AddToHistory(ctx context.Context, item models.MediaItem) error {
	if err := d.navigate(ctx, titleURL(item.IMDBID)); err != nil {
		return err
	}

	var text string
	err := d.run(ctx,
		chromedp.Text(`button[data-testid="tm-box-wtch-button"]`, &text, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to read watched state for %s: %w", item.IMDBID, err)
	}
	if strings.Contains(text, "Watched") && !strings.Contains(text, "Mark as watched") {
		return nil
	}

	err = d.run(ctx,
		chromedp.Click(`button[data-testid="tm-box-wtch-button"]`, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to mark %s as watched: %w", item.IMDBID, err)
	}
	return nil
}

// httpClient builds an HTTP client that shares the browser's session
// cookies, used for the CSV export endpoints.
func (d *Driver) httpClient(ctx context.Context) (*http.Client, error) {
	var cookies []*network.Cookie
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().WithUrls([]string{siteURL}).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}

	return newCookieClient(cookies)
}

// navigate loads url in the browser, retrying transient page-load failures
// on the same fixed-interval budget the redirect lookups use.
func (d *Driver) navigate(ctx context.Context, url string) error {
	_, err := executor.Retry(ctx, d.policy, func(ctx context.Context) (struct{}, error) {
		err := d.run(ctx, chromedp.Navigate(url))
		if err != nil {
			d.logger.WithError(err).WithField("url", url).Warn("Page load failed")
			return struct{}{}, &PageLoadError{URL: url, Err: err}
		}
		return struct{}{}, nil
	})
	return err
}

// run executes browser actions bounded by the caller's context.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	tab := d.browser
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tab, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func titleURL(imdbID string) string {
	return fmt.Sprintf("%s/title/%s/", siteURL, imdbID)
}

var _ executor.CatalogDriver = (*Driver)(nil)
