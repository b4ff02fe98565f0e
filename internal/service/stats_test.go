package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-roulette/internal/models"
)

func ratedItem(title string, rating int, genres []int, credits *models.Credits) models.WatchedItem {
	return models.WatchedItem{
		ID:       title,
		Title:    title,
		Type:     models.MediaMovie,
		TMDBData: &models.TMDBData{ID: len(title), GenreIDs: genres},
		Rating:   &rating,
		Credits:  credits,
	}
}

func TestComputeWatchStatsEmptyHistory(t *testing.T) {
	stats := ComputeWatchStats(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0, stats.RatedCount)
	assert.Zero(t, stats.AverageRating)
	assert.Empty(t, stats.TopGenres)
	assert.Empty(t, stats.TopActors)
}

func TestComputeWatchStatsAverageIgnoresUnrated(t *testing.T) {
	watched := []models.WatchedItem{
		ratedItem("A", 5, nil, nil),
		ratedItem("B", 3, nil, nil),
		{ID: "C", Title: "C", Type: models.MediaMovie}, // skipped rating
	}

	stats := ComputeWatchStats(watched)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.RatedCount)
	assert.InDelta(t, 4.0, stats.AverageRating, 0.001)
}

func TestComputeWatchStatsTopGenres(t *testing.T) {
	watched := []models.WatchedItem{
		ratedItem("A", 5, []int{878, 18}, nil),
		ratedItem("B", 4, []int{878}, nil),
		ratedItem("C", 4, []int{878, 35}, nil),
		ratedItem("D", 4, []int{18}, nil),
		ratedItem("E", 2, []int{27}, nil),
	}

	stats := ComputeWatchStats(watched)
	require.Len(t, stats.TopGenres, 3)
	assert.Equal(t, GenreCount{Name: "Science Fiction", Count: 3}, stats.TopGenres[0])
	assert.Equal(t, GenreCount{Name: "Drama", Count: 2}, stats.TopGenres[1])
	// Comedy and Horror tie at 1; names break the tie alphabetically.
	assert.Equal(t, GenreCount{Name: "Comedy", Count: 1}, stats.TopGenres[2])
}

func TestComputeWatchStatsTopActorsAndDirectors(t *testing.T) {
	mann := &models.CrewMember{Name: "Michael Mann"}
	villeneuve := &models.CrewMember{Name: "Denis Villeneuve"}

	watched := []models.WatchedItem{
		ratedItem("A", 5, nil, &models.Credits{
			Cast:     []models.CastMember{{Name: "Al Pacino"}, {Name: "Robert De Niro"}},
			Director: mann,
		}),
		ratedItem("B", 4, nil, &models.Credits{
			Cast:     []models.CastMember{{Name: "Al Pacino"}},
			Director: mann,
		}),
		ratedItem("C", 4, nil, &models.Credits{
			Cast:     []models.CastMember{{Name: "Timothée Chalamet"}},
			Director: villeneuve,
		}),
	}

	stats := ComputeWatchStats(watched)
	require.NotEmpty(t, stats.TopActors)
	assert.Equal(t, "Al Pacino", stats.TopActors[0].Name)
	assert.Equal(t, 2, stats.TopActors[0].Count)

	require.Len(t, stats.TopDirectors, 2)
	assert.Equal(t, "Michael Mann", stats.TopDirectors[0].Name)
	assert.Equal(t, 2, stats.TopDirectors[0].Count)
}

func TestComputeWatchStatsActorLimit(t *testing.T) {
	var cast []models.CastMember
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		cast = append(cast, models.CastMember{Name: name})
	}
	watched := []models.WatchedItem{
		ratedItem("X", 5, nil, &models.Credits{Cast: cast}),
	}

	stats := ComputeWatchStats(watched)
	assert.Len(t, stats.TopActors, 4)
}
