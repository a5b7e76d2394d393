//	@title			Upload Intake API
//	@version		1.0
//	@description	Accepts single-file uploads and serves them back by stored name.
//
//	@host		localhost:5000
//	@BasePath	/

package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/SAIASHISH-sys/shaastrahack/docs/swagger"
	"github.com/SAIASHISH-sys/shaastrahack/internal/config"
	"github.com/SAIASHISH-sys/shaastrahack/internal/intake"
	appMiddleware "github.com/SAIASHISH-sys/shaastrahack/internal/middleware"
	"github.com/SAIASHISH-sys/shaastrahack/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := newLogger(cfg)
	log.Logger = logger

	store, err := newStorage(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("storage init failed")
	}

	// Wire dependencies: storage → service → handler
	intakeSvc := intake.NewService(store,
		intake.WithMaxFileSize(cfg.MaxFileSizeBytes),
		intake.WithAllowedContentTypes(cfg.AllowedContentTypes),
		intake.WithLogger(logger.With().Str("component", "intake").Logger()),
	)
	intakeHandler := intake.NewHandler(intakeSvc, cfg.PublicBaseURL, logger)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", intakeHandler.Health)

	// Swagger UI — available at <PUBLIC_BASE_URL>/swagger/
	if u, err := url.Parse(cfg.PublicBaseURL); err == nil {
		swagger.SwaggerInfo.Host = u.Host
	}
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	intakeHandler.Routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("env", cfg.AppEnv).
			Str("backend", cfg.StorageBackend).
			Str("public_base", cfg.PublicBaseURL).
			Int64("max_file_size", cfg.MaxFileSizeBytes).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	logger.Info().Msg("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var l zerolog.Logger
	if cfg.IsProduction() {
		l = zerolog.New(os.Stdout)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return l.Level(level).With().Timestamp().Logger()
}

func newStorage(cfg *config.Config, logger zerolog.Logger) (storage.Storage, error) {
	storeLog := logger.With().Str("component", "storage").Logger()

	if cfg.StorageBackend == config.BackendMinio {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return storage.NewMinioStorage(ctx,
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StorageUseSSL,
			storeLog,
		)
	}

	store, err := storage.NewLocalStorage(cfg.UploadDir, storage.WithLogger(storeLog))
	if err != nil {
		return nil, err
	}
	storeLog.Info().Str("dir", store.Dir()).Msg("serving uploads from local directory")
	return store, nil
}
