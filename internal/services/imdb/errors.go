package imdb

import "fmt"

// PageLoadError reports a failed IMDB page load. Server-side and rate-limit
// statuses are retryable under the page-load retry budget; anything else
// (404 for a dead id, auth walls) is terminal.
type PageLoadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *PageLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to load %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("failed to load %s: status %d", e.URL, e.StatusCode)
}

func (e *PageLoadError) Unwrap() error { return e.Err }

// Retryable implements the executor retry contract.
func (e *PageLoadError) Retryable() bool {
	if e.Err != nil {
		return true // network-level failure
	}
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode <= 599)
}
