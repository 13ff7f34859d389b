package imdb

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/RileyXX/imdb-trakt-syncer/internal/config"
	"github.com/RileyXX/imdb-trakt-syncer/internal/executor"
)

const siteURL = "https://www.imdb.com"

var titleIDPattern = regexp.MustCompile(`/title/(tt\d+)`)

// Lookup resolves IMDB ids through title-page redirects. When IMDB merges
// two titles, the old id's page redirects to the canonical one; loading the
// page and reading the final URL back yields the current id.
type Lookup struct {
	httpClient *http.Client
	policy     executor.RetryPolicy
	logger     *logrus.Logger
}

// NewLookup creates a redirect lookup client
func NewLookup(cfg *config.Config, logger *logrus.Logger) *Lookup {
	return &Lookup{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		policy: executor.RetryPolicy{
			Interval: cfg.PageLoadInterval,
			Budget:   cfg.PageLoadBudget,
		},
		logger: logger,
	}
}

// ResolveID loads the title page for an IMDB id and returns the id the site
// redirects to. An id that does not redirect resolves to itself.
func (l *Lookup) ResolveID(ctx context.Context, imdbID string) (string, error) {
	pageURL := fmt.Sprintf("%s/title/%s/", siteURL, imdbID)

	return executor.Retry(ctx, l.policy, func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept-Language", "en-US")

		resp, err := l.httpClient.Do(req)
		if err != nil {
			return "", &PageLoadError{URL: pageURL, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", &PageLoadError{URL: pageURL, StatusCode: resp.StatusCode}
		}

		// The client followed any redirect chain; the final URL carries
		// the canonical id.
		match := titleIDPattern.FindStringSubmatch(resp.Request.URL.Path)
		if match == nil {
			return "", fmt.Errorf("no title id in resolved URL %s", resp.Request.URL)
		}
		return match[1], nil
	})
}
