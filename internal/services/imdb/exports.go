package imdb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/RileyXX/imdb-trakt-syncer/internal/executor"
	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
)

var (
	userIDPattern = regexp.MustCompile(`/user/(ur\d+)`)
	listIDPattern = regexp.MustCompile(`ls\d+`)
)

// FetchRatings downloads and parses the account's ratings CSV export.
func (d *Driver) FetchRatings(ctx context.Context) ([]models.MediaItem, error) {
	exportURL := fmt.Sprintf("%s/user/%s/ratings/export", siteURL, d.userID)
	body, err := d.fetchExport(ctx, exportURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download ratings export: %w", err)
	}
	return ParseRatingsCSV(bytes.NewReader(body))
}

// FetchWatchlist downloads and parses the account's watchlist CSV export.
// The watchlist is a regular list under the hood, so its ls-prefixed id has
// to be read off the watchlist page first.
func (d *Driver) FetchWatchlist(ctx context.Context) ([]models.MediaItem, error) {
	listID, err := d.watchlistListID(ctx)
	if err != nil {
		return nil, err
	}

	exportURL := fmt.Sprintf("%s/list/%s/export", siteURL, listID)
	body, err := d.fetchExport(ctx, exportURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download watchlist export: %w", err)
	}
	return ParseWatchlistCSV(bytes.NewReader(body))
}

// FetchHistory downloads and parses the account's check-ins list, which is
// where the watched marks land.
func (d *Driver) FetchHistory(ctx context.Context) ([]models.MediaItem, error) {
	listID, err := d.pageListID(ctx, fmt.Sprintf("%s/user/%s/checkins", siteURL, d.userID))
	if err != nil {
		return nil, err
	}

	exportURL := fmt.Sprintf("%s/list/%s/export", siteURL, listID)
	body, err := d.fetchExport(ctx, exportURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download check-ins export: %w", err)
	}
	return ParseWatchlistCSV(bytes.NewReader(body))
}

func (d *Driver) watchlistListID(ctx context.Context) (string, error) {
	return d.pageListID(ctx, fmt.Sprintf("%s/user/%s/watchlist", siteURL, d.userID))
}

func (d *Driver) pageListID(ctx context.Context, pageURL string) (string, error) {
	if err := d.navigate(ctx, pageURL); err != nil {
		return "", err
	}

	var pageID string
	err := d.run(ctx,
		chromedp.AttributeValue(`meta[property="pageId"]`, "content", &pageID, nil, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to read list page id: %w", err)
	}

	listID := listIDPattern.FindString(pageID)
	if listID == "" {
		return "", fmt.Errorf("page id %q is not a list id", pageID)
	}
	return listID, nil
}

// fetchExport performs an authenticated GET of an export endpoint using the
// browser's session cookies, retrying transient failures.
func (d *Driver) fetchExport(ctx context.Context, exportURL string) ([]byte, error) {
	client, err := d.httpClient(ctx)
	if err != nil {
		return nil, err
	}

	return executor.Retry(ctx, d.policy, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", browserUserAgent)

		resp, err := client.Do(req)
		if err != nil {
			return nil, &PageLoadError{URL: exportURL, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, &PageLoadError{URL: exportURL, StatusCode: resp.StatusCode}
		}
		return io.ReadAll(resp.Body)
	})
}

// newCookieClient builds an HTTP client carrying the browser's cookies.
func newCookieClient(cookies []*network.Cookie) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	site, err := url.Parse(siteURL)
	if err != nil {
		return nil, err
	}

	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		httpCookies = append(httpCookies, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		})
	}
	jar.SetCookies(site, httpCookies)

	return &http.Client{Jar: jar}, nil
}
