package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidforge-backend/internal/ai"
	"vidforge-backend/internal/config"
	"vidforge-backend/internal/database"
	"vidforge-backend/internal/handlers"
	"vidforge-backend/internal/pipeline"
	"vidforge-backend/internal/queue"
	"vidforge-backend/internal/repository"
	"vidforge-backend/internal/router"
	"vidforge-backend/internal/scheduler"
	"vidforge-backend/internal/services"
	"vidforge-backend/internal/websocket"
	"vidforge-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting VidForge Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	channelRepo := repository.NewChannelRepo(pool)
	videoRepo := repository.NewVideoRepo(pool)
	analyticsRepo := repository.NewAnalyticsRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize AI Provider ────
	registry := ai.NewRegistry()
	provider, err := registry.New(cfg.AIProvider, ai.Settings{
		APIKey:  providerAPIKey(cfg),
		Model:   cfg.AIModel,
		BaseURL: cfg.OllamaBaseURL,
	})
	if err != nil {
		log.Fatalf("✗ AI provider initialization failed: %v", err)
	}
	retryer := ai.NewRetryer(cfg.AIMaxRetries)
	log.Printf("✓ AI provider initialized (%s)", provider.Name())

	// ──── Initialize Services ────
	contentService := services.NewContentService(provider, retryer, cfg.AIMaxTokens)
	renderer := services.NewLocalRenderer(cfg.StoragePath)

	var publisher services.Publisher
	yt, err := services.NewYouTubePublisher(context.Background(),
		cfg.YouTubeClientID, cfg.YouTubeClientSecret, cfg.YouTubeRefreshToken, cfg.YouTubeCategory)
	if err != nil {
		log.Fatalf("✗ YouTube publisher initialization failed: %v", err)
	}
	publisher = yt
	log.Println("✓ YouTube publisher initialized")

	// ──── Initialize Pipeline ────
	jobQueue := queue.NewQueue(redisClients.Queue)
	events := websocket.NewEventPublisher(redisClients.PubSub)
	orchestrator := pipeline.NewOrchestrator(
		videoRepo,
		analyticsRepo,
		contentService,
		renderer,
		publisher,
		jobRepo,
		jobQueue,
		events,
	)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, orchestrator, jobRepo, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 7: Start Scheduler ────
	sched := scheduler.NewScheduler(
		channelRepo,
		videoRepo,
		contentService,
		jobRepo,
		jobQueue,
		redisClients.Queue,
		cfg.AutoGenerateEnabled,
		cfg.AutoUploadEnabled,
		cfg.DefaultDuration,
		cfg.YouTubePrivacy,
	)
	sched.Start()
	log.Println("✓ Scheduler started")

	// ──── Step 8: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub)
	log.Println("✓ WebSocket hub started")

	// ──── Step 9: Start HTTP Server ────
	channelHandler := handlers.NewChannelHandler(channelRepo, videoRepo)
	videoHandler := handlers.NewVideoHandler(videoRepo, channelRepo, analyticsRepo, orchestrator)

	r := router.New(channelHandler, videoHandler, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		sched.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ VidForge Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws/videos/{id}", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

func providerAPIKey(cfg *config.Config) string {
	switch cfg.AIProvider {
	case "gemini":
		return cfg.GeminiAPIKey
	default:
		return cfg.OpenAIAPIKey
	}
}
