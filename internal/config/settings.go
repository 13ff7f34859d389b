package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// settingsTimeLayout is the timestamp format used inside the settings
// document, kept stable so existing installs keep parsing.
const settingsTimeLayout = "2006-01-02 15:04:05"

// Settings is the persisted per-user document: credentials, facet toggles
// and the small amount of state carried across runs. Everything else is
// rebuilt fresh each run.
type Settings struct {
	TraktClientID     string `json:"trakt_client_id"`
	TraktClientSecret string `json:"trakt_client_secret"`
	TraktAccessToken  string `json:"trakt_access_token,omitempty"`
	TraktRefreshToken string `json:"trakt_refresh_token,omitempty"`
	TraktTokenExpiry  string `json:"trakt_token_expires_at,omitempty"`
	IMDBUsername      string `json:"imdb_username"`
	IMDBPassword      string `json:"imdb_password"`

	SyncRatings                 bool `json:"sync_ratings"`
	SyncWatchlist               bool `json:"sync_watchlist"`
	SyncReviews                 bool `json:"sync_reviews"`
	SyncWatchHistory            bool `json:"sync_watch_history"`
	MarkRatedAsWatched          bool `json:"mark_rated_as_watched"`
	RemoveWatchedFromWatchlists bool `json:"remove_watched_from_watchlists"`

	IMDBReviewsLastSubmitted string `json:"imdb_reviews_last_submitted_date,omitempty"`
	WatchlistQuotaReached    bool   `json:"watchlist_quota_reached"`
	HistoryQuotaReached      bool   `json:"history_quota_reached"`
}

// Store reads and writes the settings document. The document is read fully
// at startup and rewritten whole at checkpoints; writes go through a temp
// file and rename so a crash cannot leave a half-written file behind.
type Store struct {
	path string
}

// NewStore creates a settings store backed by the given file
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the settings document. A missing file yields zero-value
// settings rather than an error so first runs can prompt for values.
func (s *Store) Load() (*Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return &settings, nil
}

// Save rewrites the whole settings document atomically.
func (s *Store) Save(settings *Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close settings file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod settings file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

// LastReviewBatch returns when IMDB reviews were last submitted, or the zero
// time when they never were (or the stored value is unparseable).
func (settings *Settings) LastReviewBatch() time.Time {
	if settings.IMDBReviewsLastSubmitted == "" {
		return time.Time{}
	}
	t, err := time.Parse(settingsTimeLayout, settings.IMDBReviewsLastSubmitted)
	if err != nil {
		return time.Time{}
	}
	return t
}

// MarkReviewsSubmitted records the time of a review submission batch.
func (settings *Settings) MarkReviewsSubmitted(now time.Time) {
	settings.IMDBReviewsLastSubmitted = now.Format(settingsTimeLayout)
}

// HasCredentials reports whether all required credentials are present.
func (settings *Settings) HasCredentials() bool {
	return settings.TraktClientID != "" &&
		settings.TraktClientSecret != "" &&
		settings.IMDBUsername != "" &&
		settings.IMDBPassword != ""
}
