package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"movie-roulette/internal/models"
	"movie-roulette/internal/store"
	"movie-roulette/internal/timeutil"
	"movie-roulette/internal/tmdb"
)

// DiscoverMode selects the discovery source.
type DiscoverMode string

const (
	DiscoverTop   DiscoverMode = "top"   // seed-based recommendations
	DiscoverNew   DiscoverMode = "new"   // now playing / airing today
	DiscoverSoon  DiscoverMode = "soon"  // upcoming / on the air
	DiscoverGenre DiscoverMode = "genre" // one genre, most popular first
)

// ErrNotEnoughHistory is returned when seed-based discovery is requested
// before enough titles have been rated 4+.
var ErrNotEnoughHistory = errors.New("discover: need at least 3 titles rated 4+")

const minSeedRatings = 3

// RankedCandidate is one surfaced recommendation with its heuristic match
// score (0-99, presented as a percentage) and optional provenance.
type RankedCandidate struct {
	Item       models.TMDBData `json:"item"`
	MatchScore int             `json:"match_score"`
	Source     string          `json:"source,omitempty"` // "similar" or "cast"
	SeedTitle  string          `json:"seed_title,omitempty"`
	ActorName  string          `json:"actor_name,omitempty"`
}

// CuratorPick is the daily deterministic recommendation derived from one
// highly rated watched title.
type CuratorPick struct {
	Item    models.TMDBData `json:"item"`
	Because string          `json:"because"`
}

// ComputeMatchScore preserves the original ranking heuristic:
// min(99, round(vote_average*10 + popularity/10)), clamped to [0,99].
// Popularity is unbounded and API-version dependent, so this is a
// heuristic ordering, not a normalized probability.
func ComputeMatchScore(d *models.TMDBData) int {
	if d == nil {
		return 0
	}
	score := int(math.Round(d.VoteAverage*10 + d.Popularity/10))
	if score > 99 {
		score = 99
	}
	if score < 0 {
		score = 0
	}
	return score
}

// ScoreAndFilter deduplicates raw candidates by TMDB id (first occurrence
// wins), drops every title already present in any collection, scores the
// rest and orders them by match score descending. Ties keep input order.
// The state is never mutated.
func ScoreAndFilter(raw []RankedCandidate, state models.AppState) []RankedCandidate {
	known := knownIDs(state)

	seen := make(map[int]bool, len(raw))
	out := make([]RankedCandidate, 0, len(raw))
	for _, candidate := range raw {
		if seen[candidate.Item.ID] || known[candidate.Item.ID] {
			continue
		}
		seen[candidate.Item.ID] = true
		candidate.MatchScore = ComputeMatchScore(&candidate.Item)
		out = append(out, candidate)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MatchScore > out[j].MatchScore
	})
	return out
}

// knownIDs collects every TMDB id present in the movie, TV, backlog and
// watched collections.
func knownIDs(state models.AppState) map[int]bool {
	known := make(map[int]bool)
	for _, item := range state.Movies {
		if item.TMDBData != nil {
			known[item.TMDBData.ID] = true
		}
	}
	for _, item := range state.TVShows {
		if item.TMDBData != nil {
			known[item.TMDBData.ID] = true
		}
	}
	for _, item := range state.Backlog {
		if item.TMDBData != nil {
			known[item.TMDBData.ID] = true
		}
	}
	for _, item := range state.Watched {
		if item.TMDBData != nil {
			known[item.TMDBData.ID] = true
		}
	}
	return known
}

// DiscoverService builds recommendation and swipe queues from TMDB,
// filtered against the collection store.
type DiscoverService struct {
	tmdbClient *tmdb.Client
	store      *store.Store

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewDiscoverService creates a new DiscoverService.
func NewDiscoverService(tmdbClient *tmdb.Client, st *store.Store) *DiscoverService {
	return &DiscoverService{
		tmdbClient: tmdbClient,
		store:      st,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Discover returns ranked recommendations for the given mode. antiRut
// replaces seed-based discovery with a random genre to break viewing
// habits.
func (s *DiscoverService) Discover(ctx context.Context, mode DiscoverMode, mediaType models.MediaType, genreID, page int, antiRut bool) ([]RankedCandidate, error) {
	if page < 1 {
		page = 1
	}

	var raw []RankedCandidate
	var err error

	switch {
	case mode == DiscoverTop && antiRut:
		raw, err = s.randomGenre(ctx, mediaType, page)
	case mode == DiscoverTop:
		raw, err = s.seedBased(ctx, mediaType)
	case mode == DiscoverNew:
		raw, err = plain(s.tmdbClient.NowPlaying(ctx, mediaType, page))
	case mode == DiscoverSoon:
		raw, err = plain(s.tmdbClient.Upcoming(ctx, mediaType, page))
	case mode == DiscoverGenre:
		raw, err = plain(s.tmdbClient.DiscoverByGenre(ctx, mediaType, genreID, page))
	default:
		return nil, fmt.Errorf("unknown discover mode: %q", mode)
	}
	if err != nil {
		return nil, err
	}

	return ScoreAndFilter(raw, s.store.Snapshot()), nil
}

func plain(results []models.TMDBData, err error) ([]RankedCandidate, error) {
	if err != nil {
		return nil, err
	}
	raw := make([]RankedCandidate, 0, len(results))
	for _, r := range results {
		raw = append(raw, RankedCandidate{Item: r})
	}
	return raw, nil
}

func (s *DiscoverService) randomGenre(ctx context.Context, mediaType models.MediaType, page int) ([]RankedCandidate, error) {
	ids := make([]int, 0, len(models.Genres))
	for id := range models.Genres {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	s.mu.Lock()
	genreID := ids[s.rng.Intn(len(ids))]
	s.mu.Unlock()
	return plain(s.tmdbClient.DiscoverByGenre(ctx, mediaType, genreID, page))
}

// seedBased collects recommendations around up to 5 randomly chosen
// highly rated watched titles, plus cast-based picks from each seed's
// top-billed actors.
func (s *DiscoverService) seedBased(ctx context.Context, mediaType models.MediaType) ([]RankedCandidate, error) {
	highRated := s.highRated()
	if len(highRated) < minSeedRatings {
		return nil, ErrNotEnoughHistory
	}

	seeds := make([]models.WatchedItem, 0, len(highRated))
	for _, item := range highRated {
		if models.NormalizeMediaType(string(item.Type)) == mediaType {
			seeds = append(seeds, item)
		}
	}
	s.mu.Lock()
	s.rng.Shuffle(len(seeds), func(i, j int) {
		seeds[i], seeds[j] = seeds[j], seeds[i]
	})
	s.mu.Unlock()
	if len(seeds) > 5 {
		seeds = seeds[:5]
	}

	var raw []RankedCandidate
	for _, seed := range seeds {
		recs, err := s.tmdbClient.GetRecommendations(ctx, seed.TMDBData.ID, mediaType)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			raw = append(raw, RankedCandidate{
				Item:      rec,
				Source:    "similar",
				SeedTitle: seed.Title,
			})
		}

		raw = append(raw, s.castPicks(ctx, seed, mediaType)...)
	}
	return raw, nil
}

// castPicks surfaces up to 2 standout titles per top-billed actor of a
// seed: rated above 7.0, non-documentary, most popular first. Lookup
// failures degrade to no picks for that actor.
func (s *DiscoverService) castPicks(ctx context.Context, seed models.WatchedItem, mediaType models.MediaType) []RankedCandidate {
	if seed.Credits == nil {
		return nil
	}

	var raw []RankedCandidate
	cast := seed.Credits.Cast
	if len(cast) > 2 {
		cast = cast[:2]
	}
	for _, actor := range cast {
		if actor.ID == 0 {
			continue
		}
		credits, err := s.tmdbClient.GetPersonCredits(ctx, actor.ID, mediaType)
		if err != nil {
			continue
		}

		top := make([]models.TMDBData, 0, len(credits))
		for _, c := range credits {
			if c.VoteAverage > 7.0 && !hasGenre(c.GenreIDs, 99) {
				top = append(top, c)
			}
		}
		sort.SliceStable(top, func(i, j int) bool {
			return top[i].Popularity > top[j].Popularity
		})
		if len(top) > 2 {
			top = top[:2]
		}
		for _, pick := range top {
			raw = append(raw, RankedCandidate{
				Item:      pick,
				Source:    "cast",
				SeedTitle: seed.Title,
				ActorName: actor.Name,
			})
		}
	}
	return raw
}

func hasGenre(genres []int, id int) bool {
	for _, g := range genres {
		if g == id {
			return true
		}
	}
	return false
}

// SwipeQueue returns a page of popular or top-rated titles with every
// already-known or blacklisted title removed. Pages alternate between the
// popular and top-rated charts.
func (s *DiscoverService) SwipeQueue(ctx context.Context, mediaType models.MediaType, page int) ([]models.TMDBData, error) {
	if page < 1 {
		page = 1
	}

	var results []models.TMDBData
	var err error
	if page%2 == 0 {
		results, err = s.tmdbClient.TopRated(ctx, mediaType, page)
	} else {
		results, err = s.tmdbClient.Popular(ctx, mediaType, page)
	}
	if err != nil {
		return nil, err
	}

	state := s.store.Snapshot()
	known := knownIDs(state)
	blacklisted := make(map[int]bool, len(state.Blacklist))
	for _, id := range state.Blacklist {
		blacklisted[id] = true
	}

	queue := make([]models.TMDBData, 0, len(results))
	queued := make(map[int]bool, len(results))
	for _, item := range results {
		if known[item.ID] || blacklisted[item.ID] || queued[item.ID] {
			continue
		}
		queued[item.ID] = true
		queue = append(queue, item)
	}
	return queue, nil
}

// CuratorPick returns the recommendation of the day: a deterministic
// daily seed among highly rated watched titles, expanded through TMDB
// recommendations. Returns nil without error when the feature is not yet
// unlocked or nothing surfaced.
func (s *DiscoverService) CuratorPick(ctx context.Context) (*CuratorPick, error) {
	watched := s.store.Watched()
	if len(watched) < 5 {
		return nil, nil
	}

	highRated := s.highRated()
	if len(highRated) == 0 {
		return nil, nil
	}

	seed := highRated[timeutil.Now().Day()%len(highRated)]
	recs, err := s.tmdbClient.GetRecommendations(ctx, seed.TMDBData.ID, models.NormalizeMediaType(string(seed.Type)))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}

	return &CuratorPick{Item: recs[0], Because: seed.Title}, nil
}

// highRated returns watched titles rated 4+ that carry metadata.
func (s *DiscoverService) highRated() []models.WatchedItem {
	var out []models.WatchedItem
	for _, item := range s.store.Watched() {
		if item.Rating != nil && *item.Rating >= 4 && item.TMDBData != nil {
			out = append(out, item)
		}
	}
	return out
}
