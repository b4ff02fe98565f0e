package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"movie-roulette/internal/models"
	"movie-roulette/internal/timeutil"
)

// Export returns the full import/export payload for the current state.
func (s *Store) Export() models.ExportData {
	snapshot := s.Snapshot()
	watched := snapshot.Watched
	blacklist := snapshot.Blacklist
	return models.ExportData{
		Version:      models.ExportVersion,
		ExportDate:   timeutil.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Movies:       orEmptyMovies(snapshot.Movies),
		TVShows:      orEmptyMovies(snapshot.TVShows),
		Backlog:      orEmptyBacklog(snapshot.Backlog),
		Watched:      &watched,
		Blacklist:    &blacklist,
		APIKey:       snapshot.APIKey,
		Language:     snapshot.Language,
		SoundEnabled: &snapshot.SoundEnabled,
		WinCount:     &snapshot.WinCount,
	}
}

// ImportSummary reports what a bulk import applied.
type ImportSummary struct {
	MoviesAdded  int `json:"movies_added"`
	TVShowsAdded int `json:"tv_shows_added"`
	BacklogAdded int `json:"backlog_added"`
	Skipped      int `json:"skipped"`
}

// Import applies a bulk payload. The whole document is parsed before any
// state is touched, so a malformed payload rejects atomically. Movies, TV
// shows and backlog are additive with silent skip on case-insensitive
// title collision; watched, blacklist, settings and the win counter are
// replaced wholesale when present.
func (s *Store) Import(payload []byte) (ImportSummary, error) {
	var data models.ExportData
	if err := json.Unmarshal(payload, &data); err != nil {
		return ImportSummary{}, fmt.Errorf("invalid import payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var summary ImportSummary

	existingMovies := titleSetMovies(s.state.Movies)
	for _, item := range data.Movies {
		if existingMovies[strings.ToLower(item.Title)] {
			summary.Skipped++
			continue
		}
		existingMovies[strings.ToLower(item.Title)] = true
		s.state.Movies = append(s.state.Movies, item)
		summary.MoviesAdded++
	}

	existingTV := titleSetMovies(s.state.TVShows)
	for _, item := range data.TVShows {
		if existingTV[strings.ToLower(item.Title)] {
			summary.Skipped++
			continue
		}
		existingTV[strings.ToLower(item.Title)] = true
		s.state.TVShows = append(s.state.TVShows, item)
		summary.TVShowsAdded++
	}

	existingBacklog := make(map[string]bool, len(s.state.Backlog))
	for _, item := range s.state.Backlog {
		existingBacklog[strings.ToLower(item.Title)] = true
	}
	for _, item := range data.Backlog {
		if existingBacklog[strings.ToLower(item.Title)] {
			summary.Skipped++
			continue
		}
		existingBacklog[strings.ToLower(item.Title)] = true
		s.state.Backlog = append(s.state.Backlog, item)
		summary.BacklogAdded++
	}

	if data.Watched != nil {
		s.state.Watched = *data.Watched
	}
	if data.Blacklist != nil {
		s.state.Blacklist = *data.Blacklist
	}
	if data.APIKey != "" {
		s.state.APIKey = data.APIKey
	}
	if data.Language != "" {
		s.state.Language = data.Language
	}
	if data.SoundEnabled != nil {
		s.state.SoundEnabled = *data.SoundEnabled
	}
	if data.WinCount != nil {
		s.state.WinCount = *data.WinCount
	}

	s.scheduleFlush()
	return summary, nil
}

func titleSetMovies(items []models.MovieItem) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item.Title)] = true
	}
	return set
}
