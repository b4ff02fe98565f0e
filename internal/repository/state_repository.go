package repository

import (
	"database/sql"

	"movie-roulette/internal/timeutil"
)

// Record keys for the persisted collections and settings. Each key holds
// one serialized record: JSON arrays for the list collections, plain
// strings for the API key, language and win counter.
const (
	KeyMovies       = "movies"
	KeyTVShows      = "tv_shows"
	KeyBacklog      = "backlog"
	KeyWatched      = "watched"
	KeyBlacklist    = "blacklist"
	KeyAPIKey       = "api_key"
	KeyLanguage     = "language"
	KeySoundEnabled = "sound_enabled"
	KeyWinCount     = "win_count"
)

// StateRepository stores the keyed state records in the app_state table.
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new StateRepository.
func NewStateRepository(sqliteDB *SQLiteDB) *StateRepository {
	return &StateRepository{db: sqliteDB.db}
}

// Get returns the record stored under key.
func (r *StateRepository) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`
		SELECT value FROM app_state WHERE key = ?
	`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Put writes one record.
func (r *StateRepository) Put(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO app_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, timeutil.Now())
	return err
}

// PutAll writes every given record in a single transaction, so a flush of
// the in-memory state either lands completely or not at all.
func (r *StateRepository) PutAll(records map[string]string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := timeutil.Now()
	for key, value := range records {
		_, err := tx.Exec(`
			INSERT INTO app_state (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, key, value, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
