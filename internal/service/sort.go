package service

import (
	"sort"
	"strings"

	"movie-roulette/internal/models"
)

// Sort modes for list endpoints.
const (
	SortAdded        = "added"
	SortAlphabetical = "alphabetical"
	SortReleaseNew   = "release_new"
	SortReleaseOld   = "release_old"
	SortRating       = "rating"
	SortRuntime      = "runtime"
)

// SortLibraryItems orders a copy-safe active or backlog list. "added"
// keeps insertion order.
func SortLibraryItems(items []models.MovieItem, mode string) {
	switch mode {
	case SortAlphabetical:
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Title) < strings.ToLower(items[j].Title)
		})
	case SortReleaseNew:
		sort.SliceStable(items, func(i, j int) bool {
			return releaseDate(items[i].TMDBData) > releaseDate(items[j].TMDBData)
		})
	case SortReleaseOld:
		sort.SliceStable(items, func(i, j int) bool {
			return releaseDate(items[i].TMDBData) < releaseDate(items[j].TMDBData)
		})
	case SortRating:
		sort.SliceStable(items, func(i, j int) bool {
			return voteAverage(items[i].TMDBData) > voteAverage(items[j].TMDBData)
		})
	case SortRuntime:
		sort.SliceStable(items, func(i, j int) bool {
			return runtimeOf(items[i].TMDBData) < runtimeOf(items[j].TMDBData)
		})
	}
}

// SortWatchedItems orders a watch history copy. "added" means most
// recently watched first.
func SortWatchedItems(items []models.WatchedItem, mode string) {
	switch mode {
	case SortAlphabetical:
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Title) < strings.ToLower(items[j].Title)
		})
	case SortReleaseNew:
		sort.SliceStable(items, func(i, j int) bool {
			return releaseDate(items[i].TMDBData) > releaseDate(items[j].TMDBData)
		})
	case SortReleaseOld:
		sort.SliceStable(items, func(i, j int) bool {
			return releaseDate(items[i].TMDBData) < releaseDate(items[j].TMDBData)
		})
	case SortRating:
		sort.SliceStable(items, func(i, j int) bool {
			return voteAverage(items[i].TMDBData) > voteAverage(items[j].TMDBData)
		})
	case SortRuntime:
		sort.SliceStable(items, func(i, j int) bool {
			return runtimeOf(items[i].TMDBData) < runtimeOf(items[j].TMDBData)
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].WatchedDate.After(items[j].WatchedDate)
		})
	}
}

// releaseDate works for both movie and series snapshots; the YYYY-MM-DD
// format sorts lexicographically.
func releaseDate(d *models.TMDBData) string {
	if d == nil {
		return ""
	}
	if d.ReleaseDate != "" {
		return d.ReleaseDate
	}
	return d.FirstAirDate
}

func voteAverage(d *models.TMDBData) float64 {
	if d == nil {
		return 0
	}
	return d.VoteAverage
}

func runtimeOf(d *models.TMDBData) int {
	if d == nil {
		return 0
	}
	return d.Runtime
}
