package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-roulette/internal/models"
	"movie-roulette/internal/store"
	"movie-roulette/internal/tmdb"
)

func creditsServer(t *testing.T, paths map[string]bool) *tmdb.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !paths[r.URL.Path] {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"status_code": 34, "status_message": "not found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"cast": []map[string]any{{"id": 1, "name": "Al Pacino"}},
			"crew": []map[string]any{{"id": 2, "name": "Michael Mann", "job": "Director"}},
		})
	}))
	t.Cleanup(server.Close)

	client := tmdb.NewClient("test-key", "en-US")
	client.SetBaseURL(server.URL)
	return client
}

func TestMarkWatchedEnrichesWithCredits(t *testing.T) {
	st := store.NewInMemory()
	svc := NewLibraryService(st, creditsServer(t, map[string]bool{"/movie/949/credits": true}))

	rating := 5
	record, created, err := svc.MarkWatched(context.Background(), store.MarkWatchedRequest{
		Title:    "Heat",
		TMDBData: &models.TMDBData{ID: 949, Title: "Heat"},
		Type:     models.MediaMovie,
		Rating:   &rating,
		Seen:     true,
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, record.Credits)
	assert.Equal(t, "Al Pacino", record.Credits.Cast[0].Name)
	assert.Equal(t, "Michael Mann", record.Credits.Director.Name)

	require.Len(t, st.Watched(), 1)
	assert.NotNil(t, st.Watched()[0].Credits)
}

func TestMarkWatchedSurvivesCreditsFailure(t *testing.T) {
	st := store.NewInMemory()
	svc := NewLibraryService(st, creditsServer(t, nil))

	record, created, err := svc.MarkWatched(context.Background(), store.MarkWatchedRequest{
		Title:    "Heat",
		TMDBData: &models.TMDBData{ID: 949, Title: "Heat"},
		Type:     models.MediaMovie,
		Seen:     true,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, record.Credits)
	assert.Len(t, st.Watched(), 1)
}

func TestMarkWatchedWithoutAPIKeyStaysLocal(t *testing.T) {
	st := store.NewInMemory()
	client := tmdb.NewClient("", "en-US")
	svc := NewLibraryService(st, client)

	record, created, err := svc.MarkWatched(context.Background(), store.MarkWatchedRequest{
		Title:    "Heat",
		TMDBData: &models.TMDBData{ID: 949, Title: "Heat"},
		Type:     models.MediaMovie,
		Seen:     true,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, record.Credits)
}

func TestSyncCreditsBackfillsMissingOnly(t *testing.T) {
	st := store.NewInMemory()
	_, _, err := st.MarkWatched(store.MarkWatchedRequest{
		Title: "Heat", TMDBData: &models.TMDBData{ID: 949, Title: "Heat"}, Type: models.MediaMovie, Seen: true,
	})
	require.NoError(t, err)
	enriched, _, err := st.MarkWatched(store.MarkWatchedRequest{
		Title: "Dune", TMDBData: &models.TMDBData{ID: 438631, Title: "Dune"}, Type: models.MediaMovie, Seen: true,
	})
	require.NoError(t, err)
	require.NoError(t, st.AttachCredits(enriched.ID, &models.Credits{Director: &models.CrewMember{Name: "Denis Villeneuve"}}))
	_, _, err = st.MarkWatched(store.MarkWatchedRequest{
		Title: "No metadata", Type: models.MediaMovie, Seen: true,
	})
	require.NoError(t, err)

	svc := NewLibraryService(st, creditsServer(t, map[string]bool{"/movie/949/credits": true}))
	updated, err := svc.SyncCredits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, updated, "only the record missing credits and carrying metadata is fetched")

	for _, item := range st.Watched() {
		if item.Title == "Dune" {
			assert.Equal(t, "Denis Villeneuve", item.Credits.Director.Name, "existing credits untouched")
		}
	}
}

func TestSyncCreditsNeedsAPIKey(t *testing.T) {
	st := store.NewInMemory()
	svc := NewLibraryService(st, tmdb.NewClient("", "en-US"))

	_, err := svc.SyncCredits(context.Background())
	assert.ErrorIs(t, err, tmdb.ErrMissingAPIKey)
}
