package service

import (
	"sort"

	"movie-roulette/internal/models"
)

// GenreCount is one entry in the top-genres ranking.
type GenreCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ActorCount is one entry in the top-actors ranking.
type ActorCount struct {
	Name        string `json:"name"`
	Count       int    `json:"count"`
	ProfilePath string `json:"profile_path,omitempty"`
}

// WatchStats summarizes the watch history.
type WatchStats struct {
	Total         int          `json:"total"`
	RatedCount    int          `json:"rated_count"`
	AverageRating float64      `json:"average_rating"` // 0 when nothing is rated
	TopGenres     []GenreCount `json:"top_genres"`     // up to 3
	TopActors     []ActorCount `json:"top_actors"`     // up to 4
	TopDirectors  []GenreCount `json:"top_directors"`  // up to 3
}

// ComputeWatchStats derives profile statistics from the watch history.
func ComputeWatchStats(watched []models.WatchedItem) WatchStats {
	genreCounts := map[string]int{}
	directorCounts := map[string]int{}
	actorCounts := map[string]*ActorCount{}
	var actorOrder []string

	ratingSum, ratedCount := 0, 0

	for _, item := range watched {
		if item.TMDBData != nil {
			for _, id := range item.TMDBData.GenreIDs {
				if name, ok := models.Genres[id]; ok {
					genreCounts[name]++
				}
			}
		}
		if item.Credits != nil {
			for _, member := range item.Credits.Cast {
				if _, ok := actorCounts[member.Name]; !ok {
					actorCounts[member.Name] = &ActorCount{Name: member.Name, ProfilePath: member.ProfilePath}
					actorOrder = append(actorOrder, member.Name)
				}
				actorCounts[member.Name].Count++
			}
			if item.Credits.Director != nil {
				directorCounts[item.Credits.Director.Name]++
			}
		}
		if item.Rating != nil {
			ratingSum += *item.Rating
			ratedCount++
		}
	}

	stats := WatchStats{
		Total:        len(watched),
		RatedCount:   ratedCount,
		TopGenres:    topCounts(genreCounts, 3),
		TopDirectors: topCounts(directorCounts, 3),
	}
	if ratedCount > 0 {
		stats.AverageRating = float64(ratingSum) / float64(ratedCount)
	}

	actors := make([]ActorCount, 0, len(actorOrder))
	for _, name := range actorOrder {
		actors = append(actors, *actorCounts[name])
	}
	sort.SliceStable(actors, func(i, j int) bool {
		return actors[i].Count > actors[j].Count
	})
	if len(actors) > 4 {
		actors = actors[:4]
	}
	stats.TopActors = actors

	return stats
}

func topCounts(counts map[string]int, limit int) []GenreCount {
	out := make([]GenreCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, GenreCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
