package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/society-elections/server/internal/config"
	"github.com/society-elections/server/internal/db"
	routes "github.com/society-elections/server/internal/http"
	"github.com/society-elections/server/internal/mail"
	"github.com/society-elections/server/internal/models"
	"github.com/society-elections/server/internal/voting"
)

func main() {
	// A .env file is optional; in production the variables are set
	// directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	database, err := db.Init(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatalw("failed to initialize database", "error", err)
	}

	logger.Info("running database migrations")
	if err := database.AutoMigrate(models.All()...); err != nil {
		logger.Fatalw("failed to run migrations", "error", err)
	}
	logger.Info("migrations complete")

	router := gin.New()
	env := &routes.Env{
		DB:     database,
		Logger: logger,
		Cfg:    cfg,
		Mailer: mail.New(cfg.SMTP, logger),
		Engine: voting.NewEngine(database, logger),
	}
	routes.SetupRoutes(router, env)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infow("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("listen failed", "error", err)
		}
	}()

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalw("server forced to shutdown", "error", err)
	}

	logger.Info("server exiting")
}
