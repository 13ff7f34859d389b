package trakt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/RileyXX/imdb-trakt-syncer/internal/config"
)

const (
	defaultBaseURL = "https://api.trakt.tv"
	apiVersion     = "2"
)

// Client handles communication with the Trakt API
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	tokenStore   TokenStore
	httpClient   *http.Client
	maxAttempts  int
	logger       *logrus.Logger
}

// NewClient creates a new Trakt API client. Tokens are persisted in the
// settings store alongside the other credentials.
func NewClient(cfg *config.Config, settings *config.Store, logger *logrus.Logger) (*Client, error) {
	loaded, err := settings.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if loaded.TraktClientID == "" || loaded.TraktClientSecret == "" {
		return nil, fmt.Errorf("trakt client id and secret are required")
	}

	return &Client{
		baseURL:      defaultBaseURL,
		clientID:     loaded.TraktClientID,
		clientSecret: loaded.TraktClientSecret,
		tokenStore:   &settingsTokenStore{store: settings},
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		maxAttempts:  cfg.MaxRequestRetries,
		logger:       logger,
	}, nil
}

// doRequest performs an authenticated HTTP request to the Trakt API with
// retries. Transient failures (429, 5xx including Cloudflare's 520-522) are
// retried with exponential backoff starting at one second, up to the
// configured attempt limit, honoring a server-supplied Retry-After. Any
// other failure is terminal for this single request.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) (http.Header, error) {
	if err := c.ensureValidToken(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure valid token: %w", err)
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		headers, retryAfter, err := c.attempt(ctx, method, path, payload, result)
		if err == nil {
			return headers, nil
		}
		lastErr = err

		var permanent *backoff.PermanentError
		if ok := asPermanent(err, &permanent); ok {
			return nil, permanent.Unwrap()
		}
		if attempt == c.maxAttempts {
			break
		}

		delay := bo.NextBackOff()
		if retryAfter > 0 {
			delay = retryAfter
		}
		c.logger.WithFields(logrus.Fields{
			"path":    path,
			"attempt": attempt,
			"delay":   delay,
		}).Debug("Retrying Trakt request")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("trakt request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

// attempt performs one HTTP round trip. retryAfter is nonzero when the
// server asked for a specific delay.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, result interface{}) (http.Header, time.Duration, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", c.clientID)
	if token, err := c.tokenStore.GetToken(); err == nil && token != nil {
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failures are treated as transient.
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return nil, 0, backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
		}
		return resp.Header, 0, nil
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	statusErr := fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	if !IsRetryableStatus(resp.StatusCode) {
		return nil, 0, backoff.Permanent(statusErr)
	}
	return nil, parseRetryAfter(resp.Header), statusErr
}

// IsRetryableStatus reports whether a Trakt response status is worth
// retrying: rate limiting and server-side errors, including the Cloudflare
// 520-522 range Trakt fronts with.
func IsRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

func parseRetryAfter(headers http.Header) time.Duration {
	value := headers.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func asPermanent(err error, target **backoff.PermanentError) bool {
	p, ok := err.(*backoff.PermanentError)
	if ok {
		*target = p
	}
	return ok
}

// ensureValidToken checks if the current token is valid and refreshes if needed
func (c *Client) ensureValidToken(ctx context.Context) error {
	token, err := c.tokenStore.GetToken()
	if err != nil || token == nil {
		c.logger.Debug("No valid token found, authentication required")
		return nil
	}

	// Refresh ahead of expiry so a long run never crosses it
	if time.Until(token.ExpiresAt) < 24*time.Hour {
		c.logger.Info("Token expires soon, refreshing...")
		return c.RefreshToken(ctx)
	}

	return nil
}
