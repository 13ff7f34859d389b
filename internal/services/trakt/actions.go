package trakt

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
)

// syncEntity is one entry in a /sync payload. Adds are keyed by IMDB id;
// removals use the Trakt internal id, which Trakt requires for that call.
type syncEntity struct {
	IDs       map[string]interface{} `json:"ids"`
	Rating    int                    `json:"rating,omitempty"`
	WatchedAt string                 `json:"watched_at,omitempty"`
}

// syncPayload groups entities into the movies/shows/episodes arrays the
// /sync endpoints expect.
type syncPayload struct {
	Movies   []syncEntity `json:"movies,omitempty"`
	Shows    []syncEntity `json:"shows,omitempty"`
	Episodes []syncEntity `json:"episodes,omitempty"`
}

func (p *syncPayload) add(item models.MediaItem, entity syncEntity) error {
	switch item.MediaType {
	case models.MediaTypeMovie:
		p.Movies = append(p.Movies, entity)
	case models.MediaTypeShow:
		p.Shows = append(p.Shows, entity)
	case models.MediaTypeEpisode:
		p.Episodes = append(p.Episodes, entity)
	default:
		return fmt.Errorf("unsupported media type %q", item.MediaType)
	}
	return nil
}

func imdbKeyed(item models.MediaItem) map[string]interface{} {
	return map[string]interface{}{"imdb": item.IMDBID}
}

// SetRating rates a single item on Trakt
func (c *Client) SetRating(ctx context.Context, item models.MediaItem) error {
	payload := &syncPayload{}
	if err := payload.add(item, syncEntity{IDs: imdbKeyed(item), Rating: item.Rating}); err != nil {
		return err
	}
	if _, err := c.doRequest(ctx, http.MethodPost, "/sync/ratings", payload, nil); err != nil {
		return fmt.Errorf("failed to set rating: %w", err)
	}
	return nil
}

// AddToWatchlist adds a single item to the Trakt watchlist
func (c *Client) AddToWatchlist(ctx context.Context, item models.MediaItem) error {
	payload := &syncPayload{}
	if err := payload.add(item, syncEntity{IDs: imdbKeyed(item)}); err != nil {
		return err
	}
	if _, err := c.doRequest(ctx, http.MethodPost, "/sync/watchlist", payload, nil); err != nil {
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}
	return nil
}

// RemoveFromWatchlist removes a single item from the Trakt watchlist. The
// removal endpoint is keyed by the Trakt internal id.
func (c *Client) RemoveFromWatchlist(ctx context.Context, item models.MediaItem) error {
	if item.TraktID == 0 {
		return fmt.Errorf("missing trakt id for %s", item.IMDBID)
	}
	payload := &syncPayload{}
	if err := payload.add(item, syncEntity{IDs: map[string]interface{}{"trakt": item.TraktID}}); err != nil {
		return err
	}
	if _, err := c.doRequest(ctx, http.MethodPost, "/sync/watchlist/remove", payload, nil); err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}
	return nil
}

// SubmitReview posts a comment for a single item on Trakt
func (c *Client) SubmitReview(ctx context.Context, item models.MediaItem) error {
	payload := map[string]interface{}{
		"comment": item.Comment,
		"spoiler": item.Spoiler,
	}
	entity := map[string]interface{}{"ids": imdbKeyed(item)}
	switch item.MediaType {
	case models.MediaTypeMovie:
		payload["movie"] = entity
	case models.MediaTypeShow:
		payload["show"] = entity
	case models.MediaTypeEpisode:
		payload["episode"] = entity
	default:
		return fmt.Errorf("unsupported media type %q", item.MediaType)
	}

	if _, err := c.doRequest(ctx, http.MethodPost, "/comments", payload, nil); err != nil {
		return fmt.Errorf("failed to submit review: %w", err)
	}
	return nil
}

// AddToHistory records a single item as watched on Trakt. Shows are never
// sent here; adding one would cascade to every episode.
func (c *Client) AddToHistory(ctx context.Context, item models.MediaItem) error {
	if item.MediaType == models.MediaTypeShow {
		return fmt.Errorf("shows cannot be added to trakt watch history directly")
	}

	watchedAt := item.DateAdded
	if item.WatchedAt != nil {
		watchedAt = *item.WatchedAt
	}
	payload := &syncPayload{}
	entity := syncEntity{IDs: imdbKeyed(item), WatchedAt: watchedAt.UTC().Format(time.RFC3339)}
	if err := payload.add(item, entity); err != nil {
		return err
	}
	if _, err := c.doRequest(ctx, http.MethodPost, "/sync/history", payload, nil); err != nil {
		return fmt.Errorf("failed to add to history: %w", err)
	}
	return nil
}
