package service

import (
	"context"
	"errors"
	"log"

	"movie-roulette/internal/models"
	"movie-roulette/internal/store"
	"movie-roulette/internal/tmdb"
)

// LibraryService orchestrates transitions that need TMDB enrichment on
// top of the collection store.
type LibraryService struct {
	store      *store.Store
	tmdbClient *tmdb.Client
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(st *store.Store, tmdbClient *tmdb.Client) *LibraryService {
	return &LibraryService{
		store:      st,
		tmdbClient: tmdbClient,
	}
}

// MarkWatched records a title as watched and enriches a newly created
// record with credits. The credits fetch is best-effort: a failure or a
// missing API key leaves the record without credits and is not an error.
func (s *LibraryService) MarkWatched(ctx context.Context, req store.MarkWatchedRequest) (models.WatchedItem, bool, error) {
	record, created, err := s.store.MarkWatched(req)
	if err != nil || !created || record.TMDBData == nil {
		return record, created, err
	}

	credits, err := s.tmdbClient.GetCredits(ctx, record.TMDBData.ID, record.Type)
	if err != nil {
		if !errors.Is(err, tmdb.ErrMissingAPIKey) {
			log.Printf("Warning: failed to fetch credits for %q: %v", record.Title, err)
		}
		return record, created, nil
	}

	// The record may have been deleted while the fetch was in flight;
	// AttachCredits merges into the current history, not our snapshot.
	if err := s.store.AttachCredits(record.ID, credits); err == nil {
		record.Credits = credits
	}
	return record, created, nil
}

// SyncCredits backfills credits for watched records that lack them.
// Returns how many records were updated. Individual fetch failures skip
// the record; a missing API key fails the sync as a whole.
func (s *LibraryService) SyncCredits(ctx context.Context) (int, error) {
	if !s.tmdbClient.HasKey() {
		return 0, tmdb.ErrMissingAPIKey
	}

	updated := 0
	for _, item := range s.store.Watched() {
		if item.TMDBData == nil || item.Credits != nil {
			continue
		}

		credits, err := s.tmdbClient.GetCredits(ctx, item.TMDBData.ID, models.NormalizeMediaType(string(item.Type)))
		if err != nil {
			log.Printf("Warning: failed to sync credits for %q: %v", item.Title, err)
			continue
		}
		if err := s.store.AttachCredits(item.ID, credits); err == nil {
			updated++
		}
	}
	return updated, nil
}
