package service

import (
	"movie-roulette/internal/models"
)

// FilterCandidates returns the subset of items eligible for a spin, in
// insertion order. Items excluded from the roulette are dropped first;
// genre and time criteria only apply to items carrying metadata, and
// missing data never excludes an item.
func FilterCandidates(items []models.MovieItem, filters models.Filters) []models.MovieItem {
	eligible := make([]models.MovieItem, 0, len(items))

	for _, item := range items {
		if !item.Included {
			continue
		}
		if filters.IsEmpty() || item.TMDBData == nil {
			eligible = append(eligible, item)
			continue
		}

		if len(filters.Genres) > 0 && len(item.TMDBData.GenreIDs) > 0 {
			if !genresIntersect(item.TMDBData.GenreIDs, filters.Genres) {
				continue
			}
		}

		if filters.Time != models.TimeAny {
			if runtime, ok := item.TMDBData.EffectiveRuntime(); ok && !inTimeBucket(runtime, filters.Time) {
				continue
			}
		}

		eligible = append(eligible, item)
	}

	return eligible
}

func genresIntersect(itemGenres, wanted []int) bool {
	for _, want := range wanted {
		for _, have := range itemGenres {
			if have == want {
				return true
			}
		}
	}
	return false
}

// inTimeBucket reports whether a runtime falls into the selected bucket.
// Boundaries are strict: short <= 90, medium 91-120, long > 120.
func inTimeBucket(runtime int, bucket models.TimeFilter) bool {
	switch bucket {
	case models.TimeShort:
		return runtime <= 90
	case models.TimeMedium:
		return runtime > 90 && runtime <= 120
	case models.TimeLong:
		return runtime > 120
	default:
		return true
	}
}
