package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"healthcare-portal/internal/apiclient"
	"healthcare-portal/internal/appointments"
	"healthcare-portal/internal/config"
	"healthcare-portal/internal/middleware"
	"healthcare-portal/internal/models"
	"healthcare-portal/internal/routes"
	"healthcare-portal/internal/session"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal",
		Short: "Healthcare portal gateway",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the portal gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gateway version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func newSessionStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case "mysql":
		db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Info().Str("host", cfg.Database.Host).Msg("using mysql session store")
		return session.NewGormStore(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	case "redis":
		client, err := session.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis session store")
		return session.NewRedisStore(client), func() { _ = client.Close() }, nil
	default:
		logger.Info().Msg("using in-memory session store")
		return session.NewMemoryStore(), func() {}, nil
	}
}

func runServer(envFile string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	store, closeStore, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open session store")
		return err
	}
	defer closeStore()

	sessions := session.NewManager(store, cfg.Session.TTL, logger)
	sessions.Subscribe(func(_ context.Context, _ string, reason error) {
		if reason != nil {
			logger.Info().AnErr("reason", reason).Msg("user will be sent to login on next navigation")
		}
	})

	apiOpts := []apiclient.Option{apiclient.WithStatusCase(cfg.StatusCase)}
	if cfg.LogoutOnUnauthorized {
		apiOpts = append(apiOpts, apiclient.WithUnauthorizedHook(routes.ClearSessionOnUnauthorized(sessions, logger)))
	}
	api := apiclient.New(cfg.API, logger, apiOpts...)

	ctrl := appointments.NewController(api, logger,
		appointments.WithLocation(cfg.Location),
		appointments.WithCacheTTL(cfg.CacheTTL),
	)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(logger), middleware.Recovery(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Location", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Deps{
		Config:       cfg,
		Sessions:     sessions,
		API:          api,
		Appointments: ctrl,
		Log:          logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("backend", cfg.API.BaseURL).Msg("starting portal gateway")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
