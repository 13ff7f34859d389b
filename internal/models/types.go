package models

import "strings"

// MediaType represents the type of a media item (movie, show or episode)
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeShow    MediaType = "show"
	MediaTypeEpisode MediaType = "episode"
	MediaTypeUnknown MediaType = "unknown"
)

// Facet represents one of the four synchronized collections
type Facet string

const (
	FacetRatings   Facet = "ratings"
	FacetWatchlist Facet = "watchlist"
	FacetReviews   Facet = "reviews"
	FacetHistory   Facet = "history"
)

// ParseMediaType maps a source-specific type label to a MediaType.
// It accepts both Trakt API labels ("movie", "show", "episode") and the
// title-type strings found in IMDB CSV exports ("TV Series", "tvMiniSeries",
// "TV Special", ...). Unrecognized labels map to MediaTypeUnknown and the
// record is dropped before reconciliation.
func ParseMediaType(label string) MediaType {
	normalized := strings.ToLower(strings.ReplaceAll(label, " ", ""))

	switch normalized {
	case "show", "tvseries", "tvminiseries":
		return MediaTypeShow
	case "episode", "tvepisode":
		return MediaTypeEpisode
	case "movie", "tvmovie", "tvspecial", "tvshort", "video":
		return MediaTypeMovie
	default:
		return MediaTypeUnknown
	}
}

// IsTerminalShowStatus reports whether a show status means no further
// episodes will air. Trakt has used both spellings of "cancelled".
func IsTerminalShowStatus(status string) bool {
	switch strings.ToLower(status) {
	case "ended", "cancelled", "canceled":
		return true
	default:
		return false
	}
}
