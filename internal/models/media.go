package models

import (
	"fmt"
	"time"
)

// MediaItem is the canonical record for a tracked title. Items are built
// fresh on every sync run from the Trakt API and the IMDB exports; the only
// field mutated afterwards is IMDBID, during identity resolution.
type MediaItem struct {
	Title     string
	Year      *int // nil for some episodes
	MediaType MediaType

	IMDBID  string // primary cross-service join key
	TraktID int64  // Trakt internal id, required for removal calls

	DateAdded time.Time // when the user's action occurred on that service
	Rating    int       // 1-10, 0 when unrated
	Comment   string
	Spoiler   bool
	WatchedAt *time.Time

	// Episode disambiguation
	SeasonNumber  *int
	EpisodeNumber *int
	TraktShowID   int64 // parent show, set on episode history records

	// Only populated on show-level watch history records, used for
	// show-completion inference
	ShowStatus    string
	AiredEpisodes int
}

// Label returns the human-readable "Title (Year)" form used in progress
// lines. Episodes from Trakt sometimes have no year, so the suffix is
// omitted rather than printing a zero.
func (m MediaItem) Label() string {
	if m.Year == nil {
		return m.Title
	}
	return fmt.Sprintf("%s (%d)", m.Title, *m.Year)
}

// IDSet collects the distinct IMDB ids of a collection.
func IDSet(items []MediaItem) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.IMDBID != "" {
			set[item.IMDBID] = struct{}{}
		}
	}
	return set
}
