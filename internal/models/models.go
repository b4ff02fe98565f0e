package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaType distinguishes movies from TV shows
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// Origin marks how a watched record was created
type Origin string

const (
	OriginRoulette Origin = "roulette"
	OriginSeen     Origin = "seen"
)

// TimeFilter selects a runtime bucket for the roulette
type TimeFilter string

const (
	TimeAny    TimeFilter = ""
	TimeShort  TimeFilter = "short"  // <= 90 min
	TimeMedium TimeFilter = "medium" // 91-120 min
	TimeLong   TimeFilter = "long"   // > 120 min
)

// TMDBData is an immutable metadata snapshot for one title, as returned by
// the TMDB API. It is replaced wholesale on refresh, never patched.
type TMDBData struct {
	ID             int       `json:"id"`
	Title          string    `json:"title,omitempty"`
	Name           string    `json:"name,omitempty"`
	PosterPath     string    `json:"poster_path,omitempty"`
	BackdropPath   string    `json:"backdrop_path,omitempty"`
	Overview       string    `json:"overview,omitempty"`
	ReleaseDate    string    `json:"release_date,omitempty"`
	FirstAirDate   string    `json:"first_air_date,omitempty"`
	VoteAverage    float64   `json:"vote_average"`
	Runtime        int       `json:"runtime,omitempty"`
	EpisodeRunTime []int     `json:"episode_run_time,omitempty"`
	GenreIDs       []int     `json:"genre_ids,omitempty"`
	Status         string    `json:"status,omitempty"`
	Popularity     float64   `json:"popularity,omitempty"`
	MediaType      MediaType `json:"media_type,omitempty"`
}

// DisplayTitle returns the movie title or, for series, the name.
func (d *TMDBData) DisplayTitle() string {
	if d == nil {
		return ""
	}
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// IsTV reports whether the snapshot looks like a series payload.
func (d *TMDBData) IsTV() bool {
	return d != nil && d.Name != "" && d.Title == ""
}

// EffectiveRuntime returns the runtime used for time-bucket filtering:
// the movie runtime when present, otherwise the mean per-episode runtime.
// ok is false when neither is known.
func (d *TMDBData) EffectiveRuntime() (minutes int, ok bool) {
	if d == nil {
		return 0, false
	}
	if d.Runtime > 0 {
		return d.Runtime, true
	}
	if len(d.EpisodeRunTime) > 0 {
		sum := 0
		for _, rt := range d.EpisodeRunTime {
			sum += rt
		}
		return sum / len(d.EpisodeRunTime), true
	}
	return 0, false
}

// CastMember is one top-billed cast entry from a credits response.
type CastMember struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name"`
	ProfilePath string `json:"profile_path,omitempty"`
	Character   string `json:"character,omitempty"`
}

// CrewMember identifies a crew person, used for the director.
type CrewMember struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name"`
	ProfilePath string `json:"profile_path,omitempty"`
}

// Credits holds the top cast and the director for a watched title.
type Credits struct {
	Cast     []CastMember `json:"cast"`
	Director *CrewMember  `json:"director"`
}

// MovieItem is a user-tracked title in one of the active lists
// (movies or TV shows). JSON field names stay aligned with the
// export payload schema.
type MovieItem struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Included bool      `json:"included"`
	TMDBData *TMDBData `json:"tmdbData"`
	Type     MediaType `json:"type"`
}

// BacklogItem is a "watch later" entry, outside the roulette-eligible lists.
type BacklogItem struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Included bool      `json:"included"`
	TMDBData *TMDBData `json:"tmdbData"`
	Type     MediaType `json:"type"`
}

// WatchedItem is a historical record of a finished title.
type WatchedItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        MediaType `json:"type"`
	WatchedDate time.Time `json:"watchedDate"`
	TMDBData    *TMDBData `json:"tmdbData"`
	Rating      *int      `json:"rating"` // 1-5, nil when the user skipped rating
	Origin      Origin    `json:"origin"`
	Credits     *Credits  `json:"credits"`
}

// Filters are the transient roulette selection criteria.
type Filters struct {
	Genres []int      `json:"genres"`
	Time   TimeFilter `json:"time"`
}

// IsEmpty reports whether no criteria are set.
func (f Filters) IsEmpty() bool {
	return len(f.Genres) == 0 && f.Time == TimeAny
}

// AppState is the full collection store content plus settings.
type AppState struct {
	Movies       []MovieItem   `json:"movies"`
	TVShows      []MovieItem   `json:"tvShows"`
	Backlog      []BacklogItem `json:"backlog"`
	Watched      []WatchedItem `json:"watched"`
	Blacklist    []int         `json:"blacklist"`
	APIKey       string        `json:"apiKey"`
	Language     string        `json:"language"`
	SoundEnabled bool          `json:"soundEnabled"`
	WinCount     int           `json:"winCount"`
}

// ExportVersion is the schema version of the export payload.
const ExportVersion = 46

// ExportData is the import/export document bundling all records.
// Pointer fields distinguish "absent from payload" from "present but empty"
// for the sections that are replaced wholesale on import.
type ExportData struct {
	Version      int            `json:"version"`
	ExportDate   string         `json:"exportDate"`
	Movies       []MovieItem    `json:"movies"`
	TVShows      []MovieItem    `json:"tvShows"`
	Backlog      []BacklogItem  `json:"backlog"`
	Watched      *[]WatchedItem `json:"watched,omitempty"`
	Blacklist    *[]int         `json:"blacklist,omitempty"`
	APIKey       string         `json:"apiKey,omitempty"`
	Language     string         `json:"language,omitempty"`
	SoundEnabled *bool          `json:"soundEnabled,omitempty"`
	WinCount     *int           `json:"winCount,omitempty"`
}

// NewID generates a unique local item id.
func NewID() string {
	return uuid.NewString()
}

// NormalizeMediaType maps legacy type spellings onto movie/tv.
func NormalizeMediaType(t string) MediaType {
	switch strings.ToLower(t) {
	case "tv", "tvshow", "tvshows":
		return MediaTV
	default:
		return MediaMovie
	}
}

// Genres maps TMDB genre ids to display names.
var Genres = map[int]string{
	28:    "Action",
	12:    "Adventure",
	16:    "Animation",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	36:    "History",
	27:    "Horror",
	10402: "Music",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Science Fiction",
	10770: "TV Movie",
	53:    "Thriller",
	10752: "War",
	37:    "Western",
}
