package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"vidforge-backend/internal/handlers"
	"vidforge-backend/internal/middleware"
	"vidforge-backend/internal/websocket"
)

func New(
	channelHandler *handlers.ChannelHandler,
	videoHandler *handlers.VideoHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Pipeline-trigger rate limiter (30 req/min per IP)
	triggerLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Channel Routes ────
		r.Route("/channels", func(r chi.Router) {
			r.Post("/", channelHandler.Create)
			r.Get("/", channelHandler.List)
			r.Get("/{id}", channelHandler.Get)
			r.Put("/{id}/status", channelHandler.UpdateStatus)
			r.Delete("/{id}", channelHandler.Delete)
			r.Get("/{id}/videos", channelHandler.ListVideos)
		})

		// ──── Video Routes ────
		r.Route("/videos", func(r chi.Router) {
			r.Post("/", videoHandler.Create)
			r.Get("/{id}", videoHandler.Get)
			r.Delete("/{id}", videoHandler.Delete)
			r.Get("/{id}/progress", videoHandler.Progress)
			r.Get("/{id}/analytics", videoHandler.Analytics)

			r.Group(func(r chi.Router) {
				r.Use(triggerLimiter.Middleware)
				r.Post("/{id}/generate", videoHandler.Generate)
				r.Post("/{id}/upload", videoHandler.Upload)
			})
		})

		// ──── WebSocket ────
		r.Get("/ws/videos/{id}", wsHub.HandleWebSocket)
	})

	return r
}
