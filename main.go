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

	"github.com/isdelr/athlete-performance-be/internal/api"
	"github.com/isdelr/athlete-performance-be/internal/auth"
	"github.com/isdelr/athlete-performance-be/internal/config"
	"github.com/isdelr/athlete-performance-be/internal/database"
	"github.com/isdelr/athlete-performance-be/internal/logger"
	"github.com/isdelr/athlete-performance-be/internal/monitoring"
	"github.com/isdelr/athlete-performance-be/internal/services"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logger.Init(logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		Production: cfg.IsProduction(),
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up services
	tokens := auth.NewTokenManager(cfg.SecretKey, cfg.TokenTTL)
	userService := services.NewUserService(db, tokens)
	detailsService := services.NewDetailsService(db)
	performanceService := services.NewPerformanceService(db)
	reportService := services.NewReportService(db)

	// Set up and run the background token sweeper
	scheduler, err := monitoring.NewScheduler(userService, cfg.TokenSweepSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token sweeper")
	}
	scheduler.Run()

	// Set up router
	router := api.NewRouter(api.Dependencies{
		DB:                 db,
		Tokens:             tokens,
		UserService:        userService,
		DetailsService:     detailsService,
		PerformanceService: performanceService,
		ReportService:      reportService,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
