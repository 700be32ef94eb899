package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/facechat/matching-server-go/internal/config"
	"github.com/facechat/matching-server-go/internal/database"
	"github.com/facechat/matching-server-go/internal/handler"
	"github.com/facechat/matching-server-go/internal/jobs"
	"github.com/facechat/matching-server-go/internal/matching"
	"github.com/facechat/matching-server-go/internal/middleware"
	"github.com/facechat/matching-server-go/internal/redis"
	"github.com/facechat/matching-server-go/internal/repository"
	"github.com/facechat/matching-server-go/internal/ws"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	imagesRepo := repository.NewImagesRepository(db.DB)
	blockLogRepo := repository.NewBlockLogRepository(db.DB)
	matchLogRepo := repository.NewMatchLogRepository(db.DB)

	hub := ws.NewHub()
	defer hub.Close()

	engine := matching.NewEngine(userRepo, blockLogRepo, imagesRepo, matchLogRepo, hub, clock.New())

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)
	rateLimiter := middleware.NewRedisRateLimiter(redisClient.Client)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(rateLimiter, cfg.WSRateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	wsHandler := handler.NewWSHandler(
		hub, engine, userRepo, blockLogRepo,
		rateLimiter, cfg.WSRateLimitPerMin, cfg.AllowedOrigin,
	)
	usersHandler := handler.NewUsersHandler(userRepo, imagesRepo, blockLogRepo, matchLogRepo)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"clients":   hub.TotalClients(),
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.With(authMiddleware.Handler).Get("/ws", wsHandler.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", usersHandler.GetMe)
			r.Post("/", usersHandler.CreateMe)
			r.Put("/", usersHandler.UpdateMe)
			r.Put("/images", usersHandler.UpdateImages)
			r.Post("/blocks", usersHandler.BlockUser)
			r.Get("/matches", usersHandler.GetMatchHistory)
		})
	})

	cleanupJob := jobs.NewCleanupJob(matchLogRepo, cfg.MatchLogRetentionDays, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
