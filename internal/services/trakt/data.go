package trakt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
)

// ids is the id block Trakt attaches to every entity
type ids struct {
	Trakt int64  `json:"trakt"`
	IMDB  string `json:"imdb"`
	Slug  string `json:"slug"`
}

type movieInfo struct {
	Title string `json:"title"`
	Year  *int   `json:"year"`
	IDs   ids    `json:"ids"`
}

type showInfo struct {
	Title         string `json:"title"`
	Year          *int   `json:"year"`
	Status        string `json:"status"`
	AiredEpisodes int    `json:"aired_episodes"`
	IDs           ids    `json:"ids"`
}

type episodeInfo struct {
	Title      string `json:"title"`
	Season     int    `json:"season"`
	Number     int    `json:"number"`
	FirstAired string `json:"first_aired"`
	IDs        ids    `json:"ids"`
}

// GetUserSlug returns the authenticated user's URL-safe username slug.
func (c *Client) GetUserSlug(ctx context.Context) (string, error) {
	var user struct {
		IDs ids `json:"ids"`
	}
	if _, err := c.doRequest(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return "", fmt.Errorf("failed to get user profile: %w", err)
	}
	return url.PathEscape(user.IDs.Slug), nil
}

// GetRatings retrieves the user's ratings as canonical media items.
func (c *Client) GetRatings(ctx context.Context, slug string) ([]models.MediaItem, error) {
	var entries []struct {
		RatedAt string       `json:"rated_at"`
		Rating  int          `json:"rating"`
		Type    string       `json:"type"`
		Movie   *movieInfo   `json:"movie"`
		Show    *showInfo    `json:"show"`
		Episode *episodeInfo `json:"episode"`
	}
	path := fmt.Sprintf("/users/%s/ratings?sort=newest", slug)
	if _, err := c.doRequest(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, fmt.Errorf("failed to get ratings: %w", err)
	}

	var items []models.MediaItem
	for _, entry := range entries {
		item, ok := buildItem(entry.Type, entry.Movie, entry.Show, entry.Episode)
		if !ok {
			continue
		}
		item.Rating = entry.Rating
		if t, err := models.ParseDate(entry.RatedAt); err == nil {
			item.DateAdded = t
			watchedAt := t
			item.WatchedAt = &watchedAt
		}
		items = append(items, item)
	}
	return items, nil
}

// GetWatchlist retrieves the user's watchlist, oldest additions first.
func (c *Client) GetWatchlist(ctx context.Context, slug string) ([]models.MediaItem, error) {
	var entries []struct {
		ListedAt string       `json:"listed_at"`
		Type     string       `json:"type"`
		Movie    *movieInfo   `json:"movie"`
		Show     *showInfo    `json:"show"`
		Episode  *episodeInfo `json:"episode"`
	}
	path := fmt.Sprintf("/users/%s/watchlist?sort=added,asc", slug)
	if _, err := c.doRequest(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, fmt.Errorf("failed to get watchlist: %w", err)
	}

	var items []models.MediaItem
	for _, entry := range entries {
		item, ok := buildItem(entry.Type, entry.Movie, entry.Show, entry.Episode)
		if !ok {
			continue
		}
		if t, err := models.ParseDate(entry.ListedAt); err == nil {
			item.DateAdded = t
		}
		items = append(items, item)
	}
	return items, nil
}

// GetReviews retrieves the user's comments across all pages. Trakt reports
// the page count in the X-Pagination-Page-Count header. Only the first
// comment per title is kept.
func (c *Client) GetReviews(ctx context.Context, slug string) ([]models.MediaItem, error) {
	var items []models.MediaItem
	seen := make(map[string]struct{})

	page := 1
	for {
		var entries []struct {
			Type    string       `json:"type"`
			Movie   *movieInfo   `json:"movie"`
			Show    *showInfo    `json:"show"`
			Episode *episodeInfo `json:"episode"`
			Comment struct {
				ID        int64  `json:"id"`
				Comment   string `json:"comment"`
				Spoiler   bool   `json:"spoiler"`
				CreatedAt string `json:"created_at"`
			} `json:"comment"`
		}
		path := fmt.Sprintf("/users/%s/comments?page=%d&limit=100", slug, page)
		headers, err := c.doRequest(ctx, http.MethodGet, path, nil, &entries)
		if err != nil {
			return nil, fmt.Errorf("failed to get comments page %d: %w", page, err)
		}

		for _, entry := range entries {
			item, ok := buildItem(entry.Type, entry.Movie, entry.Show, entry.Episode)
			if !ok {
				continue
			}
			if _, dup := seen[item.IMDBID]; dup {
				continue
			}
			seen[item.IMDBID] = struct{}{}

			item.Comment = entry.Comment.Comment
			item.Spoiler = entry.Comment.Spoiler
			item.TraktID = entry.Comment.ID
			if t, err := models.ParseDate(entry.Comment.CreatedAt); err == nil {
				item.DateAdded = t
			}
			items = append(items, item)
		}

		if page >= pageCount(headers) {
			break
		}
		page++
	}
	return items, nil
}

// GetWatchHistory retrieves the user's watch history. Episode plays are
// recorded individually; a show-level record is materialized only when at
// least 80% of the show's aired episodes have been watched and the show has
// reached a terminal status.
func (c *Client) GetWatchHistory(ctx context.Context, slug string) ([]models.MediaItem, error) {
	var movies, shows, episodes []models.MediaItem
	// Trakt ids are only unique per entity type, so the dedup key carries
	// the type too.
	seen := make(map[string]struct{})

	page := 1
	for {
		var entries []struct {
			WatchedAt string       `json:"watched_at"`
			Type      string       `json:"type"`
			Movie     *movieInfo   `json:"movie"`
			Show      *showInfo    `json:"show"`
			Episode   *episodeInfo `json:"episode"`
		}
		path := fmt.Sprintf("/users/%s/history?extended=full&page=%d&limit=100", slug, page)
		headers, err := c.doRequest(ctx, http.MethodGet, path, nil, &entries)
		if err != nil {
			return nil, fmt.Errorf("failed to get history page %d: %w", page, err)
		}

		for _, entry := range entries {
			watchedAt, _ := models.ParseDate(entry.WatchedAt)

			switch {
			case entry.Type == "movie" && entry.Movie != nil:
				key := historyKey("movie", entry.Movie.IDs.Trakt)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				movies = append(movies, historyItem(models.MediaTypeMovie, entry.Movie.Title, entry.Movie.Year, entry.Movie.IDs, watchedAt))

			case entry.Type == "episode" && entry.Episode != nil && entry.Show != nil:
				if _, dup := seen[historyKey("show", entry.Show.IDs.Trakt)]; !dup {
					seen[historyKey("show", entry.Show.IDs.Trakt)] = struct{}{}
					show := historyItem(models.MediaTypeShow, entry.Show.Title, entry.Show.Year, entry.Show.IDs, watchedAt)
					show.ShowStatus = entry.Show.Status
					show.AiredEpisodes = entry.Show.AiredEpisodes
					shows = append(shows, show)
				}

				key := historyKey("episode", entry.Episode.IDs.Trakt)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				episodes = append(episodes, buildEpisodeHistory(entry.Show, entry.Episode, watchedAt))
			}
		}

		if page >= pageCount(headers) {
			break
		}
		page++
	}

	shows = FilterCompletedShows(shows, episodes)
	history := append(movies, shows...)
	return append(history, episodes...), nil
}

func historyKey(entityType string, traktID int64) string {
	return fmt.Sprintf("%s/%d", entityType, traktID)
}

// FilterCompletedShows keeps only show records where at least 80% of aired
// episodes have a watched episode record and the show will not air more.
func FilterCompletedShows(shows, episodes []models.MediaItem) []models.MediaItem {
	watchedPerShow := make(map[int64]int)
	for _, ep := range episodes {
		if ep.TraktShowID != 0 {
			watchedPerShow[ep.TraktShowID]++
		}
	}

	var completed []models.MediaItem
	for _, show := range shows {
		if !models.IsTerminalShowStatus(show.ShowStatus) {
			continue
		}
		if show.AiredEpisodes <= 0 {
			continue
		}
		watched := watchedPerShow[show.TraktID]
		if float64(watched) >= 0.8*float64(show.AiredEpisodes) {
			completed = append(completed, show)
		}
	}
	return completed
}

func buildItem(entryType string, movie *movieInfo, show *showInfo, episode *episodeInfo) (models.MediaItem, bool) {
	switch entryType {
	case "movie":
		if movie == nil {
			return models.MediaItem{}, false
		}
		return models.MediaItem{
			Title:     movie.Title,
			Year:      movie.Year,
			MediaType: models.MediaTypeMovie,
			IMDBID:    movie.IDs.IMDB,
			TraktID:   movie.IDs.Trakt,
		}, true
	case "show":
		if show == nil {
			return models.MediaItem{}, false
		}
		return models.MediaItem{
			Title:     show.Title,
			Year:      show.Year,
			MediaType: models.MediaTypeShow,
			IMDBID:    show.IDs.IMDB,
			TraktID:   show.IDs.Trakt,
		}, true
	case "episode":
		if episode == nil || show == nil {
			return models.MediaItem{}, false
		}
		season := episode.Season
		number := episode.Number
		return models.MediaItem{
			Title:         fmt.Sprintf("%s: %s", show.Title, episode.Title),
			Year:          episodeYear(episode),
			MediaType:     models.MediaTypeEpisode,
			IMDBID:        episode.IDs.IMDB,
			TraktID:       episode.IDs.Trakt,
			TraktShowID:   show.IDs.Trakt,
			SeasonNumber:  &season,
			EpisodeNumber: &number,
		}, true
	default:
		return models.MediaItem{}, false
	}
}

func historyItem(mediaType models.MediaType, title string, year *int, entityIDs ids, watchedAt time.Time) models.MediaItem {
	watched := watchedAt
	return models.MediaItem{
		Title:     title,
		Year:      year,
		MediaType: mediaType,
		IMDBID:    entityIDs.IMDB,
		TraktID:   entityIDs.Trakt,
		DateAdded: watchedAt,
		WatchedAt: &watched,
	}
}

func buildEpisodeHistory(show *showInfo, episode *episodeInfo, watchedAt time.Time) models.MediaItem {
	item := historyItem(models.MediaTypeEpisode, "", nil, episode.IDs, watchedAt)
	season := episode.Season
	number := episode.Number
	item.Title = fmt.Sprintf("%s: [S%02dE%02d] %s", show.Title, season, number, episode.Title)
	item.Year = episodeYear(episode)
	item.SeasonNumber = &season
	item.EpisodeNumber = &number
	item.TraktShowID = show.IDs.Trakt
	return item
}

func episodeYear(episode *episodeInfo) *int {
	if episode.FirstAired == "" {
		return nil
	}
	t, err := models.ParseDate(episode.FirstAired)
	if err != nil {
		return nil
	}
	year := t.Year()
	return &year
}

func pageCount(headers http.Header) int {
	if headers == nil {
		return 1
	}
	count, err := strconv.Atoi(headers.Get("X-Pagination-Page-Count"))
	if err != nil || count < 1 {
		return 1
	}
	return count
}
