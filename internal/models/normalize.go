package models

import (
	"fmt"
	"time"
)

// dateLayouts covers the timestamp formats seen across both sources: Trakt
// returns RFC3339 (with or without fractional seconds), the IMDB CSV exports
// use plain dates, review pages spell the date out, and the settings file
// stores a space-separated form.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2 January 2006",
}

// ParseDate parses a source timestamp into UTC.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", value)
}

// FilterSyncable drops records that cannot take part in reconciliation:
// missing IMDB id, unknown media type, or an out-of-range rating. This is a
// precondition of the reconciler, applied once per collection right after
// fetching. Dropped records are not an error.
func FilterSyncable(items []MediaItem) []MediaItem {
	result := make([]MediaItem, 0, len(items))
	for _, item := range items {
		if item.IMDBID == "" {
			continue
		}
		if item.MediaType == MediaTypeUnknown || item.MediaType == "" {
			continue
		}
		if item.Rating != 0 && (item.Rating < 1 || item.Rating > 10) {
			continue
		}
		result = append(result, item)
	}
	return result
}
