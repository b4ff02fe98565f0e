package tmdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-roulette/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("test-key", "en-US")
	client.SetBaseURL(server.URL)
	return client
}

func TestSearchSendsKeyLanguageAndQuery(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"api_key":  r.URL.Query().Get("api_key"),
			"language": r.URL.Query().Get("language"),
			"query":    r.URL.Query().Get("query"),
		}
		json.NewEncoder(w).Encode(map[string]any{"results": []models.TMDBData{{ID: 438631, Title: "Dune"}}})
	})

	results, err := client.Search(context.Background(), "dune", models.MediaMovie)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Dune", results[0].Title)
	assert.Equal(t, "/search/movie", gotPath)
	assert.Equal(t, "test-key", gotQuery["api_key"])
	assert.Equal(t, "en-US", gotQuery["language"])
	assert.Equal(t, "dune", gotQuery["query"])
}

func TestSearchTVUsesTVPath(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"results": []models.TMDBData{}})
	})

	_, err := client.Search(context.Background(), "severance", models.MediaTV)
	require.NoError(t, err)
	assert.Equal(t, "/search/tv", gotPath)
}

func TestEmptyQueryShortCircuits(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty query")
	})

	results, err := client.Search(context.Background(), "", models.MediaMovie)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMissingAPIKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without an API key")
	})
	client.SetAPIKey("")

	assert.False(t, client.HasKey())
	_, err := client.Search(context.Background(), "dune", models.MediaMovie)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestAPIErrorIsSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"status_code": 7, "status_message": "Invalid API key"})
	})

	_, err := client.Search(context.Background(), "dune", models.MediaMovie)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 7, apiErr.StatusCode)
	assert.Contains(t, apiErr.StatusMessage, "Invalid API key")
}

func TestGetCreditsTopCastAndDirector(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/949/credits", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"cast": []map[string]any{
				{"id": 1, "name": "Al Pacino", "character": "Vincent Hanna"},
				{"id": 2, "name": "Robert De Niro", "character": "Neil McCauley"},
				{"id": 3, "name": "Val Kilmer"},
				{"id": 4, "name": "Jon Voight"},
				{"id": 5, "name": "Tom Sizemore"},
			},
			"crew": []map[string]any{
				{"id": 10, "name": "Dante Spinotti", "job": "Director of Photography"},
				{"id": 11, "name": "Michael Mann", "job": "Director"},
			},
		})
	})

	credits, err := client.GetCredits(context.Background(), 949, models.MediaMovie)
	require.NoError(t, err)
	assert.Len(t, credits.Cast, 4, "cast is capped at the top four")
	assert.Equal(t, "Al Pacino", credits.Cast[0].Name)
	require.NotNil(t, credits.Director)
	assert.Equal(t, "Michael Mann", credits.Director.Name, "job must be exactly Director")
}

func TestNowPlayingMapsTVToAiringToday(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"results": []models.TMDBData{}})
	})

	_, err := client.NowPlaying(context.Background(), models.MediaMovie, 1)
	require.NoError(t, err)
	_, err = client.NowPlaying(context.Background(), models.MediaTV, 1)
	require.NoError(t, err)
	_, err = client.Upcoming(context.Background(), models.MediaTV, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"/movie/now_playing", "/tv/airing_today", "/tv/on_the_air"}, paths)
}

func TestDiscoverByGenreParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discover/movie", r.URL.Path)
		assert.Equal(t, "878", r.URL.Query().Get("with_genres"))
		assert.Equal(t, "popularity.desc", r.URL.Query().Get("sort_by"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		json.NewEncoder(w).Encode(map[string]any{"results": []models.TMDBData{}})
	})

	_, err := client.DiscoverByGenre(context.Background(), models.MediaMovie, 878, 2)
	require.NoError(t, err)
}

func TestInvalidIDRejectedLocally(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an invalid id")
	})

	_, err := client.GetDetails(context.Background(), 0, models.MediaMovie)
	assert.Error(t, err)
	_, err = client.GetRecommendations(context.Background(), -1, models.MediaMovie)
	assert.Error(t, err)
}
