package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"movie-roulette/internal/handler"
	"movie-roulette/internal/notify"
	"movie-roulette/internal/repository"
	"movie-roulette/internal/service"
	"movie-roulette/internal/store"
	"movie-roulette/internal/tmdb"
)

// Config holds the application configuration
type Config struct {
	DBPath           string
	BackupDir        string
	Port             string
	WebAPIToken      string
	PickTime         string // Format: "HH:MM"
	TMDBAPIKey       string
	TelegramBotToken string
	TelegramChatID   int64
}

func main() {
	// Load configuration
	config := loadConfig()

	// Initialize database
	db, err := repository.NewSQLiteDB(config.DBPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize database schema
	if err := db.InitSchema(); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	// Initialize state store
	stateRepo := repository.NewStateRepository(db)
	st := store.New(stateRepo)

	// The stored API key wins; the environment only seeds a fresh database.
	apiKey, language, _ := st.Settings()
	if apiKey == "" && config.TMDBAPIKey != "" {
		st.SetAPIKey(config.TMDBAPIKey)
		apiKey = config.TMDBAPIKey
	}

	// Initialize TMDB client
	tmdbClient := tmdb.NewClient(apiKey, language)

	// Initialize services
	librarySvc := service.NewLibraryService(st, tmdbClient)
	discoverSvc := service.NewDiscoverService(tmdbClient, st)
	engine := service.NewRouletteEngine()
	backupSvc := service.NewBackupService(config.DBPath, config.BackupDir)
	requests := service.NewRequestGroup()

	// Initialize Telegram announcer (optional)
	var announcer *notify.Announcer
	if config.TelegramBotToken != "" && config.TelegramChatID != 0 {
		announcer, err = notify.NewAnnouncer(config.TelegramBotToken, config.TelegramChatID, discoverSvc)
		if err != nil {
			log.Fatalf("Failed to create Telegram announcer: %v", err)
		}
		go announcer.Start()
		log.Printf("Telegram announcer started. Chat ID: %d", config.TelegramChatID)
	} else {
		log.Println("Telegram announcer not configured, running without notifications")
	}

	// Initialize scheduler
	var pickAnnouncer service.PickAnnouncer
	var winAnnouncer handler.WinAnnouncer
	if announcer != nil {
		pickAnnouncer = announcer
		winAnnouncer = announcer
	}
	scheduler := service.NewScheduler(pickAnnouncer, backupSvc, config.PickTime)
	scheduler.Start()

	// Initialize HTTP server
	h := handler.NewHTTPHandler(tmdbClient, st, librarySvc, discoverSvc, engine, backupSvc, requests, winAnnouncer, config.WebAPIToken)
	r := gin.Default()
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + config.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Movie roulette server listening on :%s", config.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	scheduler.Stop()
	engine.Stop()
	requests.CancelAll()
	if announcer != nil {
		announcer.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Flush pending state changes before the database closes
	if err := st.Close(); err != nil {
		log.Printf("Failed to flush state: %v", err)
	}
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	// Missing .env is fine, the environment may carry everything
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	chatID, _ := strconv.ParseInt(getEnv("TELEGRAM_CHAT_ID", "0"), 10, 64)

	config := &Config{
		DBPath:           getEnv("DB_PATH", "movie_roulette.db"),
		BackupDir:        getEnv("BACKUP_DIR", "backups"),
		Port:             getEnv("PORT", "8080"),
		WebAPIToken:      getEnv("WEB_API_TOKEN", ""),
		PickTime:         getEnv("PICK_TIME", "08:00"),
		TMDBAPIKey:       getEnv("TMDB_API_KEY", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   chatID,
	}

	if config.WebAPIToken == "" {
		log.Println("Warning: WEB_API_TOKEN not set. API requests will be rejected.")
	}

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
