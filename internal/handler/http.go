package handler

import (
	"crypto/subtle"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"movie-roulette/internal/models"
	"movie-roulette/internal/service"
	"movie-roulette/internal/store"
	"movie-roulette/internal/tmdb"
	"movie-roulette/web"
)

// WinAnnouncer pushes the roulette winner to an external channel.
type WinAnnouncer interface {
	AnnounceWin(item models.MovieItem) error
}

// HTTPHandler handles HTTP requests for the web interface
type HTTPHandler struct {
	tmdbClient *tmdb.Client
	store      *store.Store
	library    *service.LibraryService
	discover   *service.DiscoverService
	engine     *service.RouletteEngine
	backupSvc  *service.BackupService
	requests   *service.RequestGroup
	announcer  WinAnnouncer
	apiToken   string
}

// NewHTTPHandler creates a new HTTPHandler. announcer may be nil when no
// notifier is configured.
func NewHTTPHandler(
	tmdbClient *tmdb.Client,
	st *store.Store,
	library *service.LibraryService,
	discover *service.DiscoverService,
	engine *service.RouletteEngine,
	backupSvc *service.BackupService,
	requests *service.RequestGroup,
	announcer WinAnnouncer,
	apiToken string,
) *HTTPHandler {
	return &HTTPHandler{
		tmdbClient: tmdbClient,
		store:      st,
		library:    library,
		discover:   discover,
		engine:     engine,
		backupSvc:  backupSvc,
		requests:   requests,
		announcer:  announcer,
		apiToken:   strings.TrimSpace(apiToken),
	}
}

// RegisterRoutes registers all HTTP routes
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	// Serve simple web UI
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", web.Index)
	})

	api := r.Group("/api")
	api.Use(h.authMiddleware)

	// Health check must allow unauthenticated ping for probes
	r.GET("/api/health", h.Health)

	// Search and title extras
	api.GET("/search", h.Search)
	api.GET("/title/:id", h.GetTitleDetails)
	api.GET("/title/:id/extras", h.GetTitleExtras)

	// Active lists
	api.GET("/library", h.GetLibrary)
	api.POST("/library", h.AddToLibrary)
	api.POST("/library/:id/toggle", h.ToggleIncluded)
	api.DELETE("/library/:id", h.DeleteFromLibrary)
	api.DELETE("/library", h.ClearLibrary)

	// Backlog
	api.GET("/backlog", h.GetBacklog)
	api.POST("/backlog", h.AddToBacklog)
	api.POST("/backlog/:id/promote", h.PromoteFromBacklog)
	api.DELETE("/backlog/:id", h.DeleteFromBacklog)

	// Watched history
	api.GET("/watched", h.GetWatched)
	api.POST("/watched", h.MarkWatched)
	api.PUT("/watched/:id/rating", h.UpdateRating)
	api.PUT("/watched/:id/date", h.UpdateWatchedDate)
	api.DELETE("/watched/:id", h.DeleteFromWatched)

	// Blacklist
	api.GET("/blacklist", h.GetBlacklist)
	api.POST("/blacklist", h.AddToBlacklist)

	// Roulette
	api.GET("/candidates", h.GetCandidates)
	api.POST("/spin", h.Spin)
	api.POST("/spin/stop", h.StopSpin)
	api.GET("/spin/state", h.GetSpinState)

	// Discovery
	api.GET("/discover", h.Discover)
	api.GET("/swipe/queue", h.GetSwipeQueue)
	api.GET("/curator", h.GetCuratorPick)

	// Stats and maintenance
	api.GET("/stats", h.GetStats)
	api.POST("/sync", h.SyncCredits)
	api.GET("/export", h.Export)
	api.POST("/import", h.Import)

	// Settings
	api.GET("/settings", h.GetSettings)
	api.PUT("/settings", h.UpdateSettings)

	// Backups
	api.POST("/backup", func(c *gin.Context) {
		backupPath, err := h.backupSvc.Backup()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"backup_path": backupPath})
	})
}

// Search searches TMDB for movies or TV shows
func (h *HTTPHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter is required"})
		return
	}

	ctx := h.requests.Acquire(c.Request.Context(), "search")
	results, err := h.tmdbClient.Search(ctx, query, h.mediaTypeQuery(c))
	if err != nil {
		h.tmdbError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GetTitleDetails returns full TMDB details for one title
func (h *HTTPHandler) GetTitleDetails(c *gin.Context) {
	id := h.getIntParam(c, "id")
	if id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return
	}

	details, err := h.tmdbClient.GetDetails(c.Request.Context(), id, h.mediaTypeQuery(c))
	if err != nil {
		h.tmdbError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"details": details})
}

// GetTitleExtras returns watch providers and trailers for one title
func (h *HTTPHandler) GetTitleExtras(c *gin.Context) {
	id := h.getIntParam(c, "id")
	if id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title id"})
		return
	}

	mediaType := h.mediaTypeQuery(c)
	ctx := c.Request.Context()

	providers, err := h.tmdbClient.GetWatchProviders(ctx, id, mediaType)
	if err != nil {
		h.tmdbError(c, err)
		return
	}

	videos, err := h.tmdbClient.GetVideos(ctx, id, mediaType)
	if err != nil {
		h.tmdbError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"providers": providers, "videos": videos})
}

// GetLibrary returns the active list for one media type
func (h *HTTPHandler) GetLibrary(c *gin.Context) {
	items := h.store.ActiveList(h.mediaTypeQuery(c))
	service.SortLibraryItems(items, c.Query("sort"))
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddToLibrary adds a title to the active list
func (h *HTTPHandler) AddToLibrary(c *gin.Context) {
	var req struct {
		Title    string           `json:"title"`
		Type     string           `json:"type"`
		TMDBData *models.TMDBData `json:"tmdbData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.store.AddToActive(req.Title, req.TMDBData, models.NormalizeMediaType(req.Type))
	if err != nil {
		h.storeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// ToggleIncluded flips an item's roulette participation flag
func (h *HTTPHandler) ToggleIncluded(c *gin.Context) {
	if err := h.store.ToggleIncluded(c.Param("id"), h.mediaTypeQuery(c)); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "toggled"})
}

// DeleteFromLibrary removes an item from the active list
func (h *HTTPHandler) DeleteFromLibrary(c *gin.Context) {
	scope := store.ScopeMovies
	if h.mediaTypeQuery(c) == models.MediaTV {
		scope = store.ScopeTVShows
	}
	if err := h.store.Delete(c.Param("id"), scope); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// ClearLibrary empties the active list for one media type
func (h *HTTPHandler) ClearLibrary(c *gin.Context) {
	h.store.ClearActive(h.mediaTypeQuery(c))
	c.JSON(http.StatusOK, gin.H{"message": "cleared"})
}

// GetBacklog returns the backlog
func (h *HTTPHandler) GetBacklog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.store.Backlog()})
}

// AddToBacklog saves a title for later
func (h *HTTPHandler) AddToBacklog(c *gin.Context) {
	var req struct {
		TMDBData *models.TMDBData `json:"tmdbData" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.store.AddToBacklog(req.TMDBData)
	if err != nil {
		h.storeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// PromoteFromBacklog moves a backlog entry into its active list. The
// entry leaves the backlog even when the active list already holds the
// title.
func (h *HTTPHandler) PromoteFromBacklog(c *gin.Context) {
	item, err := h.store.PromoteFromBacklog(c.Param("id"))
	if err != nil {
		if err == store.ErrDuplicate {
			c.JSON(http.StatusConflict, gin.H{"error": "already on the active list; removed from backlog"})
			return
		}
		h.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// DeleteFromBacklog removes a backlog entry
func (h *HTTPHandler) DeleteFromBacklog(c *gin.Context) {
	if err := h.store.Delete(c.Param("id"), store.ScopeBacklog); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// GetWatched returns the watched history
func (h *HTTPHandler) GetWatched(c *gin.Context) {
	items := h.store.Watched()
	service.SortWatchedItems(items, c.Query("sort"))
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// MarkWatched records a title as watched, or updates the rating when the
// title is already in the history
func (h *HTTPHandler) MarkWatched(c *gin.Context) {
	var req struct {
		ItemID   string           `json:"itemId"`
		Title    string           `json:"title"`
		Type     string           `json:"type"`
		TMDBData *models.TMDBData `json:"tmdbData"`
		Rating   *int             `json:"rating"`
		Seen     bool             `json:"seen"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		return
	}

	item, created, err := h.library.MarkWatched(c.Request.Context(), store.MarkWatchedRequest{
		ItemID:   req.ItemID,
		Title:    req.Title,
		TMDBData: req.TMDBData,
		Type:     models.NormalizeMediaType(req.Type),
		Rating:   req.Rating,
		Seen:     req.Seen,
	})
	if err != nil {
		h.storeError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"item": item, "created": created})
}

// UpdateRating changes or clears the rating on a watched record
func (h *HTTPHandler) UpdateRating(c *gin.Context) {
	var req struct {
		Rating *int `json:"rating"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		return
	}

	if err := h.store.UpdateRating(c.Param("id"), req.Rating); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rating updated"})
}

// UpdateWatchedDate changes the watch date on a watched record
func (h *HTTPHandler) UpdateWatchedDate(c *gin.Context) {
	var req struct {
		Date string `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.UpdateWatchedDate(c.Param("id"), req.Date); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "date updated"})
}

// DeleteFromWatched removes a watched record
func (h *HTTPHandler) DeleteFromWatched(c *gin.Context) {
	if err := h.store.Delete(c.Param("id"), store.ScopeWatched); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// GetBlacklist returns the blacklisted TMDB ids
func (h *HTTPHandler) GetBlacklist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ids": h.store.Blacklist()})
}

// AddToBlacklist hides a TMDB id from discovery and the swipe queue
func (h *HTTPHandler) AddToBlacklist(c *gin.Context) {
	var req struct {
		TMDBID int `json:"tmdbId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added := h.store.AddToBlacklist(req.TMDBID)
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// GetCandidates previews the filtered roulette candidate set
func (h *HTTPHandler) GetCandidates(c *gin.Context) {
	mediaType := h.mediaTypeQuery(c)
	filters := models.Filters{
		Genres: parseGenres(c.Query("genres")),
		Time:   models.TimeFilter(c.Query("time")),
	}

	candidates := service.FilterCandidates(h.store.ActiveList(mediaType), filters)
	c.JSON(http.StatusOK, gin.H{"candidates": candidates, "count": len(candidates)})
}

// Spin runs the roulette and responds with the winner once the spin
// completes. A second spin while one is running gets 409.
func (h *HTTPHandler) Spin(c *gin.Context) {
	var req struct {
		Type   string `json:"type"`
		Genres []int  `json:"genres"`
		Time   string `json:"time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mediaType := models.NormalizeMediaType(req.Type)
	filters := models.Filters{Genres: req.Genres, Time: models.TimeFilter(req.Time)}
	candidates := service.FilterCandidates(h.store.ActiveList(mediaType), filters)
	if len(candidates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no candidates match the current filters"})
		return
	}

	winnerCh := make(chan models.MovieItem, 1)
	if !h.engine.Spin(candidates, func(winner models.MovieItem) {
		winnerCh <- winner
	}) {
		c.JSON(http.StatusConflict, gin.H{"error": "a spin is already in progress"})
		return
	}

	select {
	case winner := <-winnerCh:
		winCount := h.store.IncrementWinCount()
		_, _, soundEnabled := h.store.Settings()
		if h.announcer != nil {
			go func() {
				if err := h.announcer.AnnounceWin(winner); err != nil {
					log.Printf("Failed to announce winner: %v", err)
				}
			}()
		}
		c.JSON(http.StatusOK, gin.H{
			"winner":    winner,
			"win_count": winCount,
			"sound":     soundEnabled,
		})
	case <-c.Request.Context().Done():
		h.engine.Stop()
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "spin cancelled"})
	}
}

// StopSpin cancels a running spin without selecting a winner
func (h *HTTPHandler) StopSpin(c *gin.Context) {
	h.engine.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "stopped"})
}

// GetSpinState returns whether a spin is running and the title currently
// displayed by the reel
func (h *HTTPHandler) GetSpinState(c *gin.Context) {
	spinning, displayed := h.engine.State()
	c.JSON(http.StatusOK, gin.H{"spinning": spinning, "displayed": displayed})
}

// Discover returns ranked suggestions for the requested mode
func (h *HTTPHandler) Discover(c *gin.Context) {
	mode := service.DiscoverMode(c.DefaultQuery("mode", string(service.DiscoverTop)))
	genreID, _ := strconv.Atoi(c.Query("genre"))
	page := h.pageQuery(c)
	antiRut, _ := strconv.ParseBool(c.Query("antirut"))

	ctx := h.requests.Acquire(c.Request.Context(), "discover")
	results, err := h.discover.Discover(ctx, mode, h.mediaTypeQuery(c), genreID, page, antiRut)
	if err != nil {
		if err == service.ErrNotEnoughHistory {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.tmdbError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GetSwipeQueue returns the next batch of unseen titles to swipe through
func (h *HTTPHandler) GetSwipeQueue(c *gin.Context) {
	ctx := h.requests.Acquire(c.Request.Context(), "swipe")
	queue, err := h.discover.SwipeQueue(ctx, h.mediaTypeQuery(c), h.pageQuery(c))
	if err != nil {
		h.tmdbError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"queue": queue})
}

// GetCuratorPick returns today's deterministic recommendation
func (h *HTTPHandler) GetCuratorPick(c *gin.Context) {
	pick, err := h.discover.CuratorPick(c.Request.Context())
	if err != nil {
		h.tmdbError(c, err)
		return
	}
	if pick == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not enough rated history for a pick yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pick": pick})
}

// GetStats returns aggregate watch statistics
func (h *HTTPHandler) GetStats(c *gin.Context) {
	stats := service.ComputeWatchStats(h.store.Watched())
	c.JSON(http.StatusOK, gin.H{"stats": stats, "win_count": h.store.WinCount()})
}

// SyncCredits backfills cast and director data on watched records
func (h *HTTPHandler) SyncCredits(c *gin.Context) {
	updated, err := h.library.SyncCredits(c.Request.Context())
	if err != nil {
		h.tmdbError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// Export returns the full application state as a portable document
func (h *HTTPHandler) Export(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Export())
}

// Import merges a previously exported document into the current state
func (h *HTTPHandler) Import(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	summary, err := h.store.Import(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetSettings returns the current settings
func (h *HTTPHandler) GetSettings(c *gin.Context) {
	apiKey, language, soundEnabled := h.store.Settings()
	c.JSON(http.StatusOK, gin.H{
		"apiKey":       apiKey,
		"language":     language,
		"soundEnabled": soundEnabled,
		"winCount":     h.store.WinCount(),
	})
}

// UpdateSettings applies partial settings changes. API key and language
// changes propagate to the TMDB client immediately.
func (h *HTTPHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		APIKey       *string `json:"apiKey"`
		Language     *string `json:"language"`
		SoundEnabled *bool   `json:"soundEnabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.APIKey != nil {
		h.store.SetAPIKey(*req.APIKey)
		h.tmdbClient.SetAPIKey(*req.APIKey)
	}
	if req.Language != nil {
		h.store.SetLanguage(*req.Language)
		h.tmdbClient.SetLanguage(*req.Language)
	}
	if req.SoundEnabled != nil {
		h.store.SetSoundEnabled(*req.SoundEnabled)
	}

	apiKey, language, soundEnabled := h.store.Settings()
	c.JSON(http.StatusOK, gin.H{
		"apiKey":       apiKey,
		"language":     language,
		"soundEnabled": soundEnabled,
	})
}

// Health returns health status
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// authMiddleware enforces Bearer token authentication against the configured API token.
func (h *HTTPHandler) authMiddleware(c *gin.Context) {
	expected := h.apiToken
	if expected == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "WEB_API_TOKEN not set"})
		c.Abort()
		return
	}

	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
		c.Abort()
		return
	}

	if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(expected)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		c.Abort()
		return
	}

	c.Next()
}

// Helper functions

func (h *HTTPHandler) mediaTypeQuery(c *gin.Context) models.MediaType {
	return models.NormalizeMediaType(c.Query("type"))
}

func (h *HTTPHandler) pageQuery(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (h *HTTPHandler) getIntParam(c *gin.Context, key string) int {
	value := c.Param(key)
	if value == "" {
		value = c.Query(key)
	}
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return id
}

func (h *HTTPHandler) storeError(c *gin.Context, err error) {
	switch err {
	case store.ErrDuplicate:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case store.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case store.ErrEmptyTitle:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *HTTPHandler) tmdbError(c *gin.Context, err error) {
	if errors.Is(err, tmdb.ErrMissingAPIKey) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func parseGenres(csv string) []int {
	if csv == "" {
		return nil
	}
	var genres []int
	for _, part := range strings.Split(csv, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		genres = append(genres, id)
	}
	return genres
}
