package imdb

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
)

// ParseRatingsCSV converts an IMDB ratings export into canonical media
// items. Columns are located by header name; IMDB has reordered export
// columns before.
func ParseRatingsCSV(r io.Reader) ([]models.MediaItem, error) {
	rows, header, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read ratings export: %w", err)
	}

	var items []models.MediaItem
	for _, row := range rows {
		item := models.MediaItem{
			IMDBID:    header.get(row, "Const"),
			Title:     header.get(row, "Title"),
			Year:      parseYear(header.get(row, "Year")),
			MediaType: models.ParseMediaType(header.get(row, "Title Type")),
		}
		if rating, err := strconv.Atoi(header.get(row, "Your Rating")); err == nil {
			item.Rating = rating
		}
		if t, err := models.ParseDate(header.get(row, "Date Rated")); err == nil {
			item.DateAdded = t
			watchedAt := t
			item.WatchedAt = &watchedAt
		}
		items = append(items, item)
	}
	return items, nil
}

// ParseWatchlistCSV converts an IMDB watchlist export into canonical media
// items.
func ParseWatchlistCSV(r io.Reader) ([]models.MediaItem, error) {
	rows, header, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlist export: %w", err)
	}

	var items []models.MediaItem
	for _, row := range rows {
		item := models.MediaItem{
			IMDBID:    header.get(row, "Const"),
			Title:     header.get(row, "Title"),
			Year:      parseYear(header.get(row, "Year")),
			MediaType: models.ParseMediaType(header.get(row, "Title Type")),
		}
		if t, err := models.ParseDate(header.get(row, "Created")); err == nil {
			item.DateAdded = t
		}
		items = append(items, item)
	}
	return items, nil
}

// headerIndex maps column names to positions
type headerIndex map[string]int

func (h headerIndex) get(row []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func readCSV(r io.Reader) ([][]string, headerIndex, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // exports have varied over time

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, headerIndex{}, nil
	}

	header := make(headerIndex, len(records[0]))
	for i, name := range records[0] {
		header[strings.TrimSpace(name)] = i
	}
	return records[1:], header, nil
}

func parseYear(value string) *int {
	// Series render the year as a range like "2019–2023"; the start year
	// is what both services key on.
	for _, sep := range []string{"–", "-"} {
		if i := strings.Index(value, sep); i >= 0 {
			value = value[:i]
			break
		}
	}
	year, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || year == 0 {
		return nil
	}
	return &year
}
