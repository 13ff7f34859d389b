package models

import (
	"testing"
	"time"
)

func TestParseMediaType(t *testing.T) {
	cases := map[string]MediaType{
		"Movie":          MediaTypeMovie,
		"movie":          MediaTypeMovie,
		"TV Movie":       MediaTypeMovie,
		"tvMovie":        MediaTypeMovie,
		"TV Special":     MediaTypeMovie,
		"TV Short":       MediaTypeMovie,
		"Video":          MediaTypeMovie,
		"TV Series":      MediaTypeShow,
		"tvSeries":       MediaTypeShow,
		"TV Mini Series": MediaTypeShow,
		"tvMiniSeries":   MediaTypeShow,
		"TV Episode":     MediaTypeEpisode,
		"tvEpisode":      MediaTypeEpisode,
		"Podcast":        MediaTypeUnknown,
		"":               MediaTypeUnknown,
	}
	for label, want := range cases {
		if got := ParseMediaType(label); got != want {
			t.Errorf("ParseMediaType(%q) = %v, want %v", label, got, want)
		}
	}
}

func TestIsTerminalShowStatus(t *testing.T) {
	for _, status := range []string{"ended", "Ended", "cancelled", "canceled"} {
		if !IsTerminalShowStatus(status) {
			t.Errorf("Expected %q to be terminal", status)
		}
	}
	for _, status := range []string{"returning series", "in production", ""} {
		if IsTerminalShowStatus(status) {
			t.Errorf("Expected %q to not be terminal", status)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2023-07-15")
	if err != nil {
		t.Fatalf("Failed to parse CSV date: %v", err)
	}
	if got.Year() != 2023 || got.Month() != time.July || got.Day() != 15 {
		t.Errorf("Unexpected date: %v", got)
	}
	if got.Location() != time.UTC {
		t.Errorf("Expected UTC, got %v", got.Location())
	}

	got, err = ParseDate("2023-07-15T10:30:00.000Z")
	if err != nil {
		t.Fatalf("Failed to parse RFC3339 date: %v", err)
	}
	if got.Hour() != 10 || got.Minute() != 30 {
		t.Errorf("Unexpected time: %v", got)
	}

	got, err = ParseDate("15 January 2024")
	if err != nil {
		t.Fatalf("Failed to parse spelled-out review date: %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.January || got.Day() != 15 {
		t.Errorf("Unexpected date: %v", got)
	}

	if _, err := ParseDate("not a date"); err == nil {
		t.Error("Expected error for unparseable date")
	}
}

func TestLabel(t *testing.T) {
	year := 2008
	item := MediaItem{Title: "The Dark Knight", Year: &year}
	if got := item.Label(); got != "The Dark Knight (2008)" {
		t.Errorf("Label() = %q", got)
	}

	item = MediaItem{Title: "Pilot"}
	if got := item.Label(); got != "Pilot" {
		t.Errorf("Label() without year = %q", got)
	}
}

func TestFilterSyncable(t *testing.T) {
	items := []MediaItem{
		{IMDBID: "tt0111161", MediaType: MediaTypeMovie, Rating: 9},
		{IMDBID: "", MediaType: MediaTypeMovie, Rating: 8},
		{IMDBID: "tt0903747", MediaType: MediaTypeUnknown},
		{IMDBID: "tt0068646", MediaType: MediaTypeMovie, Rating: 11},
		{IMDBID: "tt0468569", MediaType: MediaTypeMovie, Rating: 0},
	}

	kept := FilterSyncable(items)
	if len(kept) != 2 {
		t.Fatalf("Expected 2 syncable items, got %d", len(kept))
	}
	if kept[0].IMDBID != "tt0111161" || kept[1].IMDBID != "tt0468569" {
		t.Errorf("Unexpected survivors: %v %v", kept[0].IMDBID, kept[1].IMDBID)
	}
}
