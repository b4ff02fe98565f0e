package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"movie-roulette/internal/models"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org/3"
	defaultTimeout  = 10 * time.Second
	requestInterval = 100 * time.Millisecond // 请求间隔，避免触发限流
)

// ErrMissingAPIKey is returned when a request is attempted without a
// configured API key. Callers treat it as "degrade to local-only", not
// as a failure.
var ErrMissingAPIKey = errors.New("tmdb: API key not configured")

// Client handles all interactions with the TMDB API
type Client struct {
	mu          sync.Mutex
	apiKey      string
	language    string
	baseURL     string
	httpClient  *http.Client
	lastRequest time.Time
}

// Video is one trailer/teaser entry from the videos endpoint.
type Video struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// Provider is a single streaming/purchase provider entry.
type Provider struct {
	ProviderID   int    `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	LogoPath     string `json:"logo_path"`
}

// RegionProviders groups providers for one region.
type RegionProviders struct {
	Flatrate []Provider `json:"flatrate"`
	Buy      []Provider `json:"buy"`
}

// listResponse wraps the TMDB paged list/search responses
type listResponse struct {
	Results []models.TMDBData `json:"results"`
}

// creditsResponse wraps the raw TMDB credits payload
type creditsResponse struct {
	Cast []struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		ProfilePath string `json:"profile_path"`
		Character   string `json:"character"`
		Order       int    `json:"order"`
	} `json:"cast"`
	Crew []struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		ProfilePath string `json:"profile_path"`
		Job         string `json:"job"`
		Department  string `json:"department"`
	} `json:"crew"`
}

// personCreditsResponse wraps a person's combined cast credits
type personCreditsResponse struct {
	Cast []models.TMDBData `json:"cast"`
}

// providersResponse wraps the watch-providers payload
type providersResponse struct {
	Results map[string]RegionProviders `json:"results"`
}

// videosResponse wraps the videos payload
type videosResponse struct {
	Results []Video `json:"results"`
}

// APIError represents an error returned by the TMDB API
type APIError struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("TMDB API error (code %d): %s", e.StatusCode, e.StatusMessage)
}

// NewClient creates a new TMDB API client
func NewClient(apiKey, language string) *Client {
	return &Client{
		apiKey:   apiKey,
		language: language,
		baseURL:  defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewClientWithHTTP creates a new TMDB API client with a custom HTTP client
func NewClientWithHTTP(apiKey, language string, httpClient *http.Client) *Client {
	return &Client{
		apiKey:     apiKey,
		language:   language,
		baseURL:    defaultBaseURL,
		httpClient: httpClient,
	}
}

// SetBaseURL allows overriding the base URL (useful for testing)
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SetAPIKey updates the key used for subsequent requests.
func (c *Client) SetAPIKey(apiKey string) {
	c.mu.Lock()
	c.apiKey = apiKey
	c.mu.Unlock()
}

// SetLanguage updates the locale sent with subsequent requests.
func (c *Client) SetLanguage(language string) {
	c.mu.Lock()
	c.language = language
	c.mu.Unlock()
}

// HasKey reports whether an API key is configured.
func (c *Client) HasKey() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apiKey != ""
}

// mediaPath maps a media type onto the TMDB path segment.
func mediaPath(mediaType models.MediaType) string {
	if mediaType == models.MediaTV {
		return "tv"
	}
	return "movie"
}

// Search searches for movies or TV shows by query string
func (c *Client) Search(ctx context.Context, query string, mediaType models.MediaType) ([]models.TMDBData, error) {
	if query == "" {
		return []models.TMDBData{}, nil
	}

	var result listResponse
	params := url.Values{"query": {query}, "include_adult": {"false"}}
	if err := c.get(ctx, "/search/"+mediaPath(mediaType), params, &result); err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", mediaPath(mediaType), err)
	}
	return result.Results, nil
}

// GetDetails fetches detailed information for one title
func (c *Client) GetDetails(ctx context.Context, id int, mediaType models.MediaType) (*models.TMDBData, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid TMDB ID: %d", id)
	}

	var details models.TMDBData
	endpoint := fmt.Sprintf("/%s/%d", mediaPath(mediaType), id)
	if err := c.get(ctx, endpoint, nil, &details); err != nil {
		return nil, fmt.Errorf("failed to get details: %w", err)
	}
	return &details, nil
}

// GetCredits fetches the top cast and the director for one title
func (c *Client) GetCredits(ctx context.Context, id int, mediaType models.MediaType) (*models.Credits, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid TMDB ID: %d", id)
	}

	var raw creditsResponse
	endpoint := fmt.Sprintf("/%s/%d/credits", mediaPath(mediaType), id)
	if err := c.get(ctx, endpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to get credits: %w", err)
	}

	credits := &models.Credits{Cast: []models.CastMember{}}
	for i, member := range raw.Cast {
		if i >= 4 {
			break
		}
		credits.Cast = append(credits.Cast, models.CastMember{
			ID:          member.ID,
			Name:        member.Name,
			ProfilePath: member.ProfilePath,
			Character:   member.Character,
		})
	}
	for _, member := range raw.Crew {
		if member.Job == "Director" {
			credits.Director = &models.CrewMember{
				ID:          member.ID,
				Name:        member.Name,
				ProfilePath: member.ProfilePath,
			}
			break
		}
	}
	return credits, nil
}

// GetRecommendations fetches titles similar to the given one
func (c *Client) GetRecommendations(ctx context.Context, id int, mediaType models.MediaType) ([]models.TMDBData, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid TMDB ID: %d", id)
	}

	var result listResponse
	endpoint := fmt.Sprintf("/%s/%d/recommendations", mediaPath(mediaType), id)
	if err := c.get(ctx, endpoint, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}
	return result.Results, nil
}

// GetPersonCredits fetches a person's cast credits in the given media type
func (c *Client) GetPersonCredits(ctx context.Context, personID int, mediaType models.MediaType) ([]models.TMDBData, error) {
	if personID <= 0 {
		return nil, fmt.Errorf("invalid person ID: %d", personID)
	}

	kind := "movie_credits"
	if mediaType == models.MediaTV {
		kind = "tv_credits"
	}
	var result personCreditsResponse
	endpoint := fmt.Sprintf("/person/%d/%s", personID, kind)
	if err := c.get(ctx, endpoint, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to get person credits: %w", err)
	}
	return result.Cast, nil
}

// GetWatchProviders fetches streaming/purchase providers keyed by region
func (c *Client) GetWatchProviders(ctx context.Context, id int, mediaType models.MediaType) (map[string]RegionProviders, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid TMDB ID: %d", id)
	}

	var result providersResponse
	endpoint := fmt.Sprintf("/%s/%d/watch/providers", mediaPath(mediaType), id)
	if err := c.get(ctx, endpoint, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to get watch providers: %w", err)
	}
	return result.Results, nil
}

// GetVideos fetches trailers and teasers for one title
func (c *Client) GetVideos(ctx context.Context, id int, mediaType models.MediaType) ([]Video, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid TMDB ID: %d", id)
	}

	var result videosResponse
	endpoint := fmt.Sprintf("/%s/%d/videos", mediaPath(mediaType), id)
	if err := c.get(ctx, endpoint, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to get videos: %w", err)
	}
	return result.Results, nil
}

// Popular fetches a page of popular titles
func (c *Client) Popular(ctx context.Context, mediaType models.MediaType, page int) ([]models.TMDBData, error) {
	return c.pagedList(ctx, "/"+mediaPath(mediaType)+"/popular", page)
}

// TopRated fetches a page of top-rated titles
func (c *Client) TopRated(ctx context.Context, mediaType models.MediaType, page int) ([]models.TMDBData, error) {
	return c.pagedList(ctx, "/"+mediaPath(mediaType)+"/top_rated", page)
}

// NowPlaying fetches titles currently in theaters or airing today
func (c *Client) NowPlaying(ctx context.Context, mediaType models.MediaType, page int) ([]models.TMDBData, error) {
	endpoint := "/movie/now_playing"
	if mediaType == models.MediaTV {
		endpoint = "/tv/airing_today"
	}
	return c.pagedList(ctx, endpoint, page)
}

// Upcoming fetches upcoming movies or currently-on-the-air shows
func (c *Client) Upcoming(ctx context.Context, mediaType models.MediaType, page int) ([]models.TMDBData, error) {
	endpoint := "/movie/upcoming"
	if mediaType == models.MediaTV {
		endpoint = "/tv/on_the_air"
	}
	return c.pagedList(ctx, endpoint, page)
}

// DiscoverByGenre fetches a page of titles in one genre, most popular first
func (c *Client) DiscoverByGenre(ctx context.Context, mediaType models.MediaType, genreID, page int) ([]models.TMDBData, error) {
	params := url.Values{
		"with_genres": {strconv.Itoa(genreID)},
		"sort_by":     {"popularity.desc"},
		"page":        {strconv.Itoa(page)},
	}
	var result listResponse
	if err := c.get(ctx, "/discover/"+mediaPath(mediaType), params, &result); err != nil {
		return nil, fmt.Errorf("failed to discover by genre: %w", err)
	}
	return result.Results, nil
}

func (c *Client) pagedList(ctx context.Context, endpoint string, page int) ([]models.TMDBData, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{"page": {strconv.Itoa(page)}}
	var result listResponse
	if err := c.get(ctx, endpoint, params, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	return result.Results, nil
}

// get performs an authenticated GET and decodes the JSON response into out
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	c.mu.Lock()
	apiKey := c.apiKey
	language := c.language
	c.mu.Unlock()

	if apiKey == "" {
		return ErrMissingAPIKey
	}

	c.rateLimit() // 限流

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", apiKey)
	if language != "" {
		params.Set("language", language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// checkResponse checks the HTTP response for errors
func (c *Client) checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			StatusCode:    resp.StatusCode,
			StatusMessage: fmt.Sprintf("HTTP %d: failed to read error response", resp.StatusCode),
		}
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return &APIError{
			StatusCode:    resp.StatusCode,
			StatusMessage: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	if apiErr.StatusCode == 0 {
		apiErr.StatusCode = resp.StatusCode
	}
	if apiErr.StatusMessage == "" {
		apiErr.StatusMessage = fmt.Sprintf("HTTP %d error", resp.StatusCode)
	}

	return &apiErr
}

// rateLimit ensures requests are spaced out to avoid hitting API limits
func (c *Client) rateLimit() {
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < requestInterval {
		c.mu.Unlock()
		time.Sleep(requestInterval - elapsed)
		c.mu.Lock()
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()
}
