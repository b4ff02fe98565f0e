package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"movie-roulette/internal/models"
)

func libraryItem(title, release string, vote float64, runtime int) models.MovieItem {
	return models.MovieItem{
		ID:       title,
		Title:    title,
		Included: true,
		TMDBData: &models.TMDBData{ID: runtime, ReleaseDate: release, VoteAverage: vote, Runtime: runtime},
	}
}

func TestSortLibraryItems(t *testing.T) {
	base := []models.MovieItem{
		libraryItem("zodiac", "2007-03-02", 7.7, 157),
		libraryItem("Alien", "1979-05-25", 8.5, 117),
		libraryItem("Dune", "2021-09-15", 7.8, 155),
	}

	cases := []struct {
		mode string
		want []string
	}{
		{SortAdded, []string{"zodiac", "Alien", "Dune"}},
		{"", []string{"zodiac", "Alien", "Dune"}},
		{SortAlphabetical, []string{"Alien", "Dune", "zodiac"}},
		{SortReleaseNew, []string{"Dune", "zodiac", "Alien"}},
		{SortReleaseOld, []string{"Alien", "zodiac", "Dune"}},
		{SortRating, []string{"Alien", "Dune", "zodiac"}},
		{SortRuntime, []string{"Alien", "Dune", "zodiac"}},
	}
	for _, tc := range cases {
		items := append([]models.MovieItem(nil), base...)
		SortLibraryItems(items, tc.mode)
		assert.Equal(t, tc.want, titlesOf(items), "mode %q", tc.mode)
	}
}

func TestSortLibraryItemsMissingMetadataSortsLow(t *testing.T) {
	items := []models.MovieItem{
		libraryItem("Rated", "2020-01-01", 8, 120),
		{ID: "bare", Title: "Bare", Included: true},
	}

	SortLibraryItems(items, SortRating)
	assert.Equal(t, []string{"Rated", "Bare"}, titlesOf(items))
}

func TestSortWatchedDefaultIsMostRecentFirst(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 8, d, 12, 0, 0, 0, time.UTC) }
	items := []models.WatchedItem{
		{ID: "old", Title: "Old", WatchedDate: day(1)},
		{ID: "new", Title: "New", WatchedDate: day(20)},
		{ID: "mid", Title: "Mid", WatchedDate: day(10)},
	}

	SortWatchedItems(items, "")
	got := []string{items[0].Title, items[1].Title, items[2].Title}
	assert.Equal(t, []string{"New", "Mid", "Old"}, got)
}

func TestSortWatchedAlphabetical(t *testing.T) {
	items := []models.WatchedItem{
		{ID: "b", Title: "beta"},
		{ID: "a", Title: "Alpha"},
	}

	SortWatchedItems(items, SortAlphabetical)
	assert.Equal(t, "Alpha", items[0].Title)
}
