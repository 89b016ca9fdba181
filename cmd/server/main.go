package main

import (
	"KnowBase/internal/access"
	"KnowBase/internal/blobstore"
	"KnowBase/internal/config"
	"KnowBase/internal/handlers"
	"KnowBase/internal/livesync"
	"KnowBase/internal/llm"
	"KnowBase/internal/middleware"
	"KnowBase/internal/repo"
	"KnowBase/internal/service"
	"KnowBase/internal/session"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	defaultRole, ok := access.ParseRole(cfg.DefaultRole)
	if !ok {
		sugar.Fatalw("invalid default role", "role", cfg.DefaultRole)
	}

	broker, err := newBroker(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalw("failed to initialize live sync", "error", err)
	}
	defer func() { _ = broker.Close() }()

	sessions := session.NewManager(cfg.AuthSecret, cfg.SessionTTL)
	// отзыв токенов и смена ролей расходятся по всем экземплярам через тот же брокер
	detachSessions, err := sessions.AttachBroker(ctx, broker, sugar)
	if err != nil {
		sugar.Fatalw("failed to attach sessions to live sync", "error", err)
	}
	defer detachSessions()
	roleRepo := repo.NewRoleRepository(gormDB)
	gate := access.NewGate(roleRepo, sessions, cfg.RoleCacheTTL, sugar)
	defer gate.Close()

	blobs := blobstore.NewDBStore(repo.NewBlobRepository(gormDB), cfg.PublicURL)

	userService := service.NewUserService(repo.NewUserRepository(gormDB), roleRepo, sessions, sugar, service.UserServiceOptions{
		DefaultRole:    defaultRole,
		BootstrapAdmin: cfg.BootstrapAdmin,
	})
	cardService := service.NewCardService(repo.NewCardRepository(gormDB), gate, broker, userService, sugar)
	attachmentService := service.NewAttachmentService(blobs, gate, cfg.BlobMaxBytes(), sugar)
	assistantService := service.NewAssistantService(cardService, llm.NewClient(llm.Config{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
	}), sugar)

	h := handlers.NewHandler(handlers.Services{
		Users:       userService,
		Cards:       cardService,
		Attachments: attachmentService,
		Assistant:   assistantService,
		Sessions:    sessions,
		Roles:       gate,
		Broker:      broker,
		Blobs:       blobs,
	}, sugar, cfg)

	addr := cfg.BaseURL

	sugar.Infow(
		"Starting server",
		"addr", addr,
	)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"PublicURL", cfg.PublicURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"DatabaseDSN", cfg.DatabaseDSN,
		"Redis", cfg.RedisURL != "",
		"AssistantConfigured", cfg.LLMAPIKey != "",
	)

	srv := &http.Server{Addr: addr, Handler: h.Router}
	// Shutdown не ждёт SSE и WebSocket (hijacked) соединений, закрываем их сами
	srv.RegisterOnShutdown(h.CloseStreams)
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("Server shutdown failed", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalw("Server failed", "error", err)
	}
	// ListenAndServe возвращается сразу после начала Shutdown; ждём, пока запросы доработают
	<-shutdownDone
}

// newBroker выбирает транспорт уведомлений: Redis при заданном REDIS_URL, иначе in-process.
func newBroker(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (livesync.Broker, error) {
	if cfg.RedisURL == "" {
		return livesync.NewMemoryBroker(), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	broker, err := livesync.NewRedisBroker(client, "kb:", logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return broker, nil
}
