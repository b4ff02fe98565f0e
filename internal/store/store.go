package store

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"movie-roulette/internal/models"
	"movie-roulette/internal/repository"
)

// Validation rejections. These are signals for the caller to surface a
// notice, not failures; nothing is logged for them.
var (
	ErrDuplicate  = errors.New("store: item already exists")
	ErrNotFound   = errors.New("store: item not found")
	ErrEmptyTitle = errors.New("store: empty title")
)

// DefaultFlushDelay is how long writes are coalesced before the persisted
// copy catches up with the in-memory state.
const DefaultFlushDelay = 800 * time.Millisecond

const defaultLanguage = "en-US"

// Store owns the five collections plus settings. The in-memory state is
// authoritative for the session; persistence is a debounced write-behind.
// All mutations go through the transition methods, serialized by the mutex.
type Store struct {
	mu    sync.Mutex
	state models.AppState

	repo       *repository.StateRepository
	flushDelay time.Duration
	flushTimer *time.Timer
}

// New creates a Store backed by repo, loading whatever records exist.
// Unreadable records fall back to their defaults rather than failing
// startup.
func New(repo *repository.StateRepository) *Store {
	s := &Store{
		repo:       repo,
		flushDelay: DefaultFlushDelay,
		state: models.AppState{
			Language:     defaultLanguage,
			SoundEnabled: true,
		},
	}
	s.load()
	return s
}

// NewInMemory creates a Store with no persistence, for tests and
// local-only use.
func NewInMemory() *Store {
	return &Store{
		state: models.AppState{
			Language:     defaultLanguage,
			SoundEnabled: true,
		},
	}
}

func (s *Store) load() {
	loadJSON(s.repo, repository.KeyMovies, &s.state.Movies)
	loadJSON(s.repo, repository.KeyTVShows, &s.state.TVShows)
	loadJSON(s.repo, repository.KeyBacklog, &s.state.Backlog)
	loadJSON(s.repo, repository.KeyWatched, &s.state.Watched)
	loadJSON(s.repo, repository.KeyBlacklist, &s.state.Blacklist)

	if v, ok := loadString(s.repo, repository.KeyAPIKey); ok {
		s.state.APIKey = v
	}
	if v, ok := loadString(s.repo, repository.KeyLanguage); ok && v != "" {
		s.state.Language = v
	}
	loadJSON(s.repo, repository.KeySoundEnabled, &s.state.SoundEnabled)
	if v, ok := loadString(s.repo, repository.KeyWinCount); ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.state.WinCount = n
		}
	}
}

// loadJSON decodes one record into out, leaving out untouched when the
// record is absent or unreadable.
func loadJSON(repo *repository.StateRepository, key string, out any) {
	value, ok, err := repo.Get(key)
	if err != nil || !ok {
		if err != nil {
			log.Printf("Warning: failed to read state record %q: %v", key, err)
		}
		return
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		log.Printf("Warning: failed to parse state record %q: %v", key, err)
	}
}

func loadString(repo *repository.StateRepository, key string) (string, bool) {
	value, ok, err := repo.Get(key)
	if err != nil {
		log.Printf("Warning: failed to read state record %q: %v", key, err)
		return "", false
	}
	return value, ok
}

// scheduleFlush arms the debounced write-behind. Must be called with the
// mutex held.
func (s *Store) scheduleFlush() {
	if s.repo == nil {
		return
	}
	if s.flushTimer != nil {
		s.flushTimer.Stop()
	}
	s.flushTimer = time.AfterFunc(s.flushDelay, func() {
		if err := s.Flush(); err != nil {
			// Durability is lost but the session state stays correct.
			log.Printf("Warning: failed to persist state: %v", err)
		}
	})
}

// Flush writes every record immediately in one transaction.
func (s *Store) Flush() error {
	if s.repo == nil {
		return nil
	}

	s.mu.Lock()
	records, err := encodeRecords(&s.state)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.repo.PutAll(records)
}

// Close cancels any pending flush and writes the final state.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
	s.mu.Unlock()
	return s.Flush()
}

func encodeRecords(state *models.AppState) (map[string]string, error) {
	records := map[string]string{
		repository.KeyAPIKey:   state.APIKey,
		repository.KeyLanguage: state.Language,
		repository.KeyWinCount: strconv.Itoa(state.WinCount),
	}
	for key, value := range map[string]any{
		repository.KeyMovies:       orEmptyMovies(state.Movies),
		repository.KeyTVShows:      orEmptyMovies(state.TVShows),
		repository.KeyBacklog:      orEmptyBacklog(state.Backlog),
		repository.KeyWatched:      orEmptyWatched(state.Watched),
		repository.KeyBlacklist:    orEmptyInts(state.Blacklist),
		repository.KeySoundEnabled: state.SoundEnabled,
	} {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		records[key] = string(encoded)
	}
	return records, nil
}

func orEmptyMovies(items []models.MovieItem) []models.MovieItem {
	if items == nil {
		return []models.MovieItem{}
	}
	return items
}

func orEmptyBacklog(items []models.BacklogItem) []models.BacklogItem {
	if items == nil {
		return []models.BacklogItem{}
	}
	return items
}

func orEmptyWatched(items []models.WatchedItem) []models.WatchedItem {
	if items == nil {
		return []models.WatchedItem{}
	}
	return items
}

func orEmptyInts(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}

// Snapshot returns a copy of the full state. Metadata snapshots are shared
// but treated as immutable everywhere.
func (s *Store) Snapshot() models.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.AppState{
		Movies:       append([]models.MovieItem(nil), s.state.Movies...),
		TVShows:      append([]models.MovieItem(nil), s.state.TVShows...),
		Backlog:      append([]models.BacklogItem(nil), s.state.Backlog...),
		Watched:      append([]models.WatchedItem(nil), s.state.Watched...),
		Blacklist:    append([]int(nil), s.state.Blacklist...),
		APIKey:       s.state.APIKey,
		Language:     s.state.Language,
		SoundEnabled: s.state.SoundEnabled,
		WinCount:     s.state.WinCount,
	}
}

// ActiveList returns a copy of the active collection for the given kind,
// in insertion order.
func (s *Store) ActiveList(mediaType models.MediaType) []models.MovieItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mediaType == models.MediaTV {
		return append([]models.MovieItem(nil), s.state.TVShows...)
	}
	return append([]models.MovieItem(nil), s.state.Movies...)
}

// Backlog returns a copy of the backlog.
func (s *Store) Backlog() []models.BacklogItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.BacklogItem(nil), s.state.Backlog...)
}

// Watched returns a copy of the watch history.
func (s *Store) Watched() []models.WatchedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.WatchedItem(nil), s.state.Watched...)
}

// Blacklist returns a copy of the rejected TMDB ids.
func (s *Store) Blacklist() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.state.Blacklist...)
}

// Settings returns the current settings values.
func (s *Store) Settings() (apiKey, language string, soundEnabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.APIKey, s.state.Language, s.state.SoundEnabled
}

// SetAPIKey updates the TMDB API key.
func (s *Store) SetAPIKey(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.APIKey = apiKey
	s.scheduleFlush()
}

// SetLanguage updates the metadata locale.
func (s *Store) SetLanguage(language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if language == "" {
		language = defaultLanguage
	}
	s.state.Language = language
	s.scheduleFlush()
}

// SetSoundEnabled updates the sound flag.
func (s *Store) SetSoundEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SoundEnabled = enabled
	s.scheduleFlush()
}

// WinCount returns the roulette win counter.
func (s *Store) WinCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.WinCount
}

// IncrementWinCount bumps the win counter and returns the new value.
func (s *Store) IncrementWinCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.WinCount++
	s.scheduleFlush()
	return s.state.WinCount
}
