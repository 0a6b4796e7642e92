package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"installerhub/internal/adapter/api"
	"installerhub/internal/adapter/api/handler"
	apimiddleware "installerhub/internal/adapter/api/middleware"
	"installerhub/internal/adapter/api/router"
	"installerhub/internal/adapter/repository"
	"installerhub/internal/infrastructure/eventhub"
	"installerhub/internal/infrastructure/firebase"
	"installerhub/internal/infrastructure/ratelimit"
	"installerhub/internal/infrastructure/storage"
	"installerhub/internal/infrastructure/websocket"
	"installerhub/internal/usecase"
	"installerhub/pkg/config"
	"installerhub/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	logger.Init(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, closeState, err := repository.NewStateStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize state store: %v", err)
		os.Exit(1)
	}
	defer closeState()

	hub := eventhub.New()
	chatUseCase := usecase.NewChatUseCase(state, hub, usecase.ChatConfig{
		AdminPoolName:   cfg.AdminPoolName,
		DeliveryLatency: cfg.DeliveryLatency,
	})

	wsManager := websocket.NewManager(chatUseCase)
	wsManager.Attach(hub)
	wsManager.Start(ctx)
	defer wsManager.Detach()

	var archiver handler.ExportArchiver
	if cfg.ExportBucket != "" {
		storageClient, err := storage.NewCloudStorageClient(ctx, cfg.ExportBucket, cfg.FirebaseServiceAccount)
		if err != nil {
			logger.Error("Failed to initialize Cloud Storage: %v", err)
			os.Exit(1)
		}
		defer storageClient.Close()
		archiver = storage.NewExportArchiver(storageClient)
	} else {
		logger.Warn("EXPORT_BUCKET not set; export archiving disabled")
	}

	limiter := ratelimit.NewRateLimiter()
	limiter.StartCleanupRoutine(ctx.Done())

	var verifier apimiddleware.TokenVerifier
	var jwtAuth *apimiddleware.JWTAuthenticator
	if cfg.AuthProvider == "firebase" {
		firebaseAuth, err := firebase.Dial(ctx, cfg.FirebaseProject, cfg.FirebaseServiceAccount)
		if err != nil {
			logger.Error("Failed to initialize Firebase Auth: %v", err)
			os.Exit(1)
		}
		verifier = firebaseAuth
	} else {
		jwtAuth = apimiddleware.NewJWTAuthenticator(cfg.JWTSecret)
		verifier = jwtAuth
	}

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)
	adminMiddleware := apimiddleware.NewAdminMiddleware()
	rateLimitMiddleware := apimiddleware.NewRateLimitMiddleware(limiter)

	handler.Setup(chatUseCase, archiver, wsManager, jwtAuth, cfg.StateBackend)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	router.Setup(e, authMiddleware, adminMiddleware, rateLimitMiddleware, cfg.Environment)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			logger.Error("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down cleanly: %v", err)
	}
	logger.Info("Server stopped")
}
