package store

import (
	"strings"
	"time"

	"movie-roulette/internal/models"
	"movie-roulette/internal/timeutil"
)

// DeleteScope names the collection an item is removed from.
type DeleteScope string

const (
	ScopeMovies  DeleteScope = "movies"
	ScopeTVShows DeleteScope = "tv_shows"
	ScopeBacklog DeleteScope = "backlog"
	ScopeWatched DeleteScope = "watched"
)

// AddToActive appends a new item to the active collection for its kind.
// Returns ErrDuplicate when the target collection already holds the same
// TMDB id or the same title (case-insensitive), ErrEmptyTitle for a blank
// title.
func (s *Store) AddToActive(title string, data *models.TMDBData, mediaType models.MediaType) (models.MovieItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addToActiveLocked(title, data, mediaType)
}

func (s *Store) addToActiveLocked(title string, data *models.TMDBData, mediaType models.MediaType) (models.MovieItem, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.MovieItem{}, ErrEmptyTitle
	}

	if data != nil && data.MediaType != "" {
		mediaType = models.NormalizeMediaType(string(data.MediaType))
	} else {
		mediaType = models.NormalizeMediaType(string(mediaType))
	}

	target := &s.state.Movies
	if mediaType == models.MediaTV {
		target = &s.state.TVShows
	}

	for _, existing := range *target {
		if data != nil && existing.TMDBData != nil && existing.TMDBData.ID == data.ID {
			return models.MovieItem{}, ErrDuplicate
		}
		if strings.EqualFold(existing.Title, title) {
			return models.MovieItem{}, ErrDuplicate
		}
	}

	if data != nil && data.DisplayTitle() != "" {
		title = data.DisplayTitle()
	}

	item := models.MovieItem{
		ID:       models.NewID(),
		Title:    title,
		Included: true,
		TMDBData: data,
		Type:     mediaType,
	}
	*target = append(*target, item)
	s.scheduleFlush()
	return item, nil
}

// AddToBacklog appends a new backlog entry. Returns ErrDuplicate when the
// backlog already holds the same TMDB id.
func (s *Store) AddToBacklog(data *models.TMDBData) (models.BacklogItem, error) {
	if data == nil {
		return models.BacklogItem{}, ErrEmptyTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.state.Backlog {
		if existing.TMDBData != nil && existing.TMDBData.ID == data.ID {
			return models.BacklogItem{}, ErrDuplicate
		}
	}

	mediaType := models.MediaMovie
	if data.IsTV() {
		mediaType = models.MediaTV
	}

	item := models.BacklogItem{
		ID:       models.NewID(),
		Title:    data.DisplayTitle(),
		Included: true,
		TMDBData: data,
		Type:     mediaType,
	}
	s.state.Backlog = append(s.state.Backlog, item)
	s.scheduleFlush()
	return item, nil
}

// PromoteFromBacklog removes an entry from the backlog and adds it to the
// active collection for its kind. The backlog removal happens even when
// the active add is rejected as a duplicate, keeping a title out of two
// collections at once.
func (s *Store) PromoteFromBacklog(id string) (models.MovieItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, item := range s.state.Backlog {
		if item.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.MovieItem{}, ErrNotFound
	}

	entry := s.state.Backlog[idx]
	s.state.Backlog = append(s.state.Backlog[:idx], s.state.Backlog[idx+1:]...)
	s.scheduleFlush()

	return s.addToActiveLocked(entry.Title, entry.TMDBData, entry.Type)
}

// ToggleIncluded flips the roulette-eligibility flag on one active item.
func (s *Store) ToggleIncluded(id string, mediaType models.MediaType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.state.Movies
	if models.NormalizeMediaType(string(mediaType)) == models.MediaTV {
		target = s.state.TVShows
	}
	for i := range target {
		if target[i].ID == id {
			target[i].Included = !target[i].Included
			s.scheduleFlush()
			return nil
		}
	}
	return ErrNotFound
}

// Delete removes one item from the named scope only.
func (s *Store) Delete(id string, scope DeleteScope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch scope {
	case ScopeMovies:
		for i, item := range s.state.Movies {
			if item.ID == id {
				s.state.Movies = append(s.state.Movies[:i], s.state.Movies[i+1:]...)
				s.scheduleFlush()
				return nil
			}
		}
	case ScopeTVShows:
		for i, item := range s.state.TVShows {
			if item.ID == id {
				s.state.TVShows = append(s.state.TVShows[:i], s.state.TVShows[i+1:]...)
				s.scheduleFlush()
				return nil
			}
		}
	case ScopeBacklog:
		for i, item := range s.state.Backlog {
			if item.ID == id {
				s.state.Backlog = append(s.state.Backlog[:i], s.state.Backlog[i+1:]...)
				s.scheduleFlush()
				return nil
			}
		}
	case ScopeWatched:
		for i, item := range s.state.Watched {
			if item.ID == id {
				s.state.Watched = append(s.state.Watched[:i], s.state.Watched[i+1:]...)
				s.scheduleFlush()
				return nil
			}
		}
	}
	return ErrNotFound
}

// ClearActive empties one active collection.
func (s *Store) ClearActive(mediaType models.MediaType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if models.NormalizeMediaType(string(mediaType)) == models.MediaTV {
		s.state.TVShows = nil
	} else {
		s.state.Movies = nil
	}
	s.scheduleFlush()
}

// MarkWatchedRequest carries the inputs for a mark-watched transition.
type MarkWatchedRequest struct {
	ItemID   string
	Title    string
	TMDBData *models.TMDBData
	Type     models.MediaType
	Rating   *int // nil means the user skipped rating
	Seen     bool // true for "already seen", false for a roulette win
}

// MarkWatched records a title as watched. If a watched record already
// exists for the same internal id, or failing that for the same TMDB id,
// only that record's rating is updated and no new record is created.
// Otherwise a new record is appended and, unless this is a "seen" action,
// the title graduates out of the movie, TV and backlog collections.
// created reports whether a new record was inserted.
func (s *Store) MarkWatched(req MarkWatchedRequest) (item models.WatchedItem, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Watched {
		if s.state.Watched[i].ID == req.ItemID && req.ItemID != "" {
			s.state.Watched[i].Rating = req.Rating
			s.scheduleFlush()
			return s.state.Watched[i], false, nil
		}
	}
	if req.TMDBData != nil {
		for i := range s.state.Watched {
			if s.state.Watched[i].TMDBData != nil && s.state.Watched[i].TMDBData.ID == req.TMDBData.ID {
				s.state.Watched[i].Rating = req.Rating
				s.scheduleFlush()
				return s.state.Watched[i], false, nil
			}
		}
	}

	origin := models.OriginRoulette
	if req.Seen {
		origin = models.OriginSeen
	}

	record := models.WatchedItem{
		ID:          models.NewID(),
		Title:       req.Title,
		Type:        models.NormalizeMediaType(string(req.Type)),
		WatchedDate: timeutil.Now(),
		TMDBData:    req.TMDBData,
		Rating:      req.Rating,
		Origin:      origin,
	}
	s.state.Watched = append(s.state.Watched, record)

	if !req.Seen && req.TMDBData != nil {
		s.removeTMDBIDLocked(req.TMDBData.ID)
	}

	s.scheduleFlush()
	return record, true, nil
}

// removeTMDBIDLocked drops every item with the given TMDB id from the
// movie, TV and backlog collections.
func (s *Store) removeTMDBIDLocked(tmdbID int) {
	filterMovies := func(items []models.MovieItem) []models.MovieItem {
		kept := items[:0]
		for _, item := range items {
			if item.TMDBData == nil || item.TMDBData.ID != tmdbID {
				kept = append(kept, item)
			}
		}
		return kept
	}
	s.state.Movies = filterMovies(s.state.Movies)
	s.state.TVShows = filterMovies(s.state.TVShows)

	keptBacklog := s.state.Backlog[:0]
	for _, item := range s.state.Backlog {
		if item.TMDBData == nil || item.TMDBData.ID != tmdbID {
			keptBacklog = append(keptBacklog, item)
		}
	}
	s.state.Backlog = keptBacklog
}

// AttachCredits merges a credits-fetch result into the current watch
// history. A record deleted while the fetch was in flight is simply not
// updated.
func (s *Store) AttachCredits(watchedID string, credits *models.Credits) error {
	if credits == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Watched {
		if s.state.Watched[i].ID == watchedID {
			s.state.Watched[i].Credits = credits
			s.scheduleFlush()
			return nil
		}
	}
	return ErrNotFound
}

// UpdateRating revises the rating on an existing watched record.
func (s *Store) UpdateRating(id string, rating *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Watched {
		if s.state.Watched[i].ID == id {
			s.state.Watched[i].Rating = rating
			s.scheduleFlush()
			return nil
		}
	}
	return ErrNotFound
}

// UpdateWatchedDate replaces a record's watch timestamp with the given
// calendar date at noon local time, sidestepping timezone boundary
// ambiguity.
func (s *Store) UpdateWatchedDate(id string, date string) error {
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return err
	}
	noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, time.Local)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Watched {
		if s.state.Watched[i].ID == id {
			s.state.Watched[i].WatchedDate = noon
			s.scheduleFlush()
			return nil
		}
	}
	return ErrNotFound
}

// AddToBlacklist records a rejected TMDB id. Set semantics: a second add
// of the same id is a no-op. Returns whether the id was newly added.
func (s *Store) AddToBlacklist(tmdbID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.state.Blacklist {
		if id == tmdbID {
			return false
		}
	}
	s.state.Blacklist = append(s.state.Blacklist, tmdbID)
	s.scheduleFlush()
	return true
}
