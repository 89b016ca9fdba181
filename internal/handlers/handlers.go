package handlers

import (
	"KnowBase/internal/config"
	"KnowBase/internal/livesync"
	"KnowBase/internal/middleware"
	"KnowBase/internal/service"
	"KnowBase/internal/session"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
	live   *LiveHandler
}

// CloseStreams завершает открытые WebSocket- и SSE-соединения.
// Предназначен для http.Server.RegisterOnShutdown: Shutdown не ждёт долгих соединений.
func (h *Handler) CloseStreams() {
	h.live.Close()
}

// Services — зависимости HTTP-слоя.
type Services struct {
	Users       *service.UserService
	Cards       *service.CardService
	Attachments *service.AttachmentService
	Assistant   *service.AssistantService
	Sessions    *session.Manager
	Roles       service.RoleResolver
	Broker      livesync.Broker
	Blobs       BlobReader
}

// NewHandler разводящий для хендлеров
func NewHandler(svc Services, logger *zap.SugaredLogger, cfg *config.Config) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithMetrics)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithGzip)
	r.Use(middleware.WithAuth(svc.Sessions))

	// Handlers
	userHandler := NewUserHandler(svc.Users, svc.Sessions, svc.Roles, logger, cfg)
	cardHandler := NewCardHandler(svc.Cards, logger)
	fileHandler := NewFileHandler(svc.Attachments, svc.Blobs, logger, cfg)
	liveHandler := NewLiveHandler(svc.Broker, logger)
	assistantHandler := NewAssistantHandler(svc.Assistant, logger)

	r.Get("/health", Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// User routes
	r.Post("/api/user/register", userHandler.Register)
	r.Post("/api/user/login", userHandler.Login)
	r.Post("/api/user/logout", userHandler.Logout)
	r.Post("/api/user/refresh", userHandler.Refresh)
	r.Get("/api/user/me", userHandler.Me)
	r.Put("/api/user/profile", userHandler.UpdateProfile)
	r.Put("/api/user/password", userHandler.ChangePassword)
	r.Put("/api/admin/roles", userHandler.SetRole)

	// Cards
	r.Get("/api/cards", cardHandler.List)
	r.Post("/api/cards", cardHandler.Create)
	r.Get("/api/cards/ws", liveHandler.WebSocket)
	r.Get("/api/cards/events", liveHandler.Events)
	r.Get("/api/cards/{id}", cardHandler.Get)
	r.Patch("/api/cards/{id}", cardHandler.Update)
	r.Delete("/api/cards/{id}", cardHandler.Delete)

	// Files and videos
	r.Post("/api/files/upload", fileHandler.Upload)
	r.Delete("/api/files", fileHandler.Remove)
	r.Post("/api/videos/embed", fileHandler.Embed)
	r.Get("/files/*", fileHandler.Serve)

	// Assistant
	r.With(middleware.WithCORS).Post("/api/assistant", assistantHandler.Ask)
	r.With(middleware.WithCORS).Options("/api/assistant", func(http.ResponseWriter, *http.Request) {})

	return &Handler{Router: r, live: liveHandler}
}

// Health — проверка живости процесса.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
