package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/learoder-max/Wishlist/internal/api"
	"github.com/learoder-max/Wishlist/internal/config"
	"github.com/learoder-max/Wishlist/internal/draft"
	"github.com/learoder-max/Wishlist/internal/handlers"
	"github.com/learoder-max/Wishlist/internal/inference"
	"github.com/learoder-max/Wishlist/internal/media"
	"github.com/learoder-max/Wishlist/internal/metrics"
	"github.com/learoder-max/Wishlist/internal/repository/memory"
	"github.com/learoder-max/Wishlist/internal/seed"
	"github.com/learoder-max/Wishlist/internal/service"
	"github.com/learoder-max/Wishlist/internal/telegram"
	"github.com/learoder-max/Wishlist/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting Wishlist...")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	// Storage
	db := memory.NewDB()
	userRepo := memory.NewUserRepository(db)
	itemRepo := memory.NewItemRepository(db)

	data := seed.Default()
	if cfg.SeedFile != "" {
		if data, err = seed.Load(cfg.SeedFile); err != nil {
			l.Fatalf("Failed to load seed: %v", err)
		}
	}
	if err := data.Apply(ctx, userRepo, itemRepo, time.Now()); err != nil {
		l.Fatalf("Failed to apply seed: %v", err)
	}
	l.WithFields(logrus.Fields{
		"users": len(data.Users),
		"items": len(data.Items),
	}).Info("Seed applied")

	if u, err := userRepo.GetByID(ctx, cfg.ViewerID); err != nil || u == nil {
		l.Fatalf("Viewer %s is not a seeded user", cfg.ViewerID)
	}

	// Uploads and drafts
	store := media.NewStore(cfg.MediaMaxBytes)
	store.OnChange(m.MediaHandles)
	drafts := draft.NewManager(store, cfg.DraftTTL, l)
	drafts.OnChange(m.OpenDrafts)

	// Product inference
	var analyzer inference.Analyzer = inference.Disabled{}
	if cfg.InferenceEnabled() {
		gemini, err := inference.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.InferenceTimeout, l, m)
		if err != nil {
			l.Fatalf("Failed to create Gemini client: %v", err)
		}
		l.Infof("Auto-fill enabled with model %s", gemini.Model())
		analyzer = gemini
	} else {
		l.Warn("GEMINI_API_KEY not set, auto-fill is disabled")
	}

	// Service layer
	svc := service.New(l, userRepo, itemRepo, analyzer, store, drafts, m)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Discard abandoned drafts
	if cfg.DraftTTL > 0 {
		go drafts.StartSweeper(ctx, cfg.DraftTTL/2)
	}

	// Telegram bot
	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg.TelegramToken, cfg.TelegramOwnerID, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram bot: %v", err)
		}

		bot.RegisterCommand("start", handlers.NewStartHandler(l))
		bot.RegisterCommand("help", handlers.NewHelpHandler(l))
		bot.RegisterCommand("feed", handlers.NewFeedHandler(svc, cfg.ViewerID, l))
		bot.RegisterCommand("friends", handlers.NewFriendsHandler(svc, cfg.ViewerID, l))
		bot.RegisterCommand("profile", handlers.NewProfileHandler(svc, cfg.ViewerID, l))
		bot.RegisterCommand("wish", handlers.NewWishAddHandler(svc, cfg.ViewerID, l))
		bot.RegisterCommand("private", handlers.NewVisibilityHandler(svc, cfg.ViewerID, true, l))
		bot.RegisterCommand("public", handlers.NewVisibilityHandler(svc, cfg.ViewerID, false, l))

		del := handlers.NewDeleteHandler(svc, cfg.ViewerID, l)
		bot.RegisterCommand("delete", del)
		bot.RegisterCallback(del.CallbackPrefix(), del)

		go func() {
			if err := bot.Start(ctx); err != nil {
				l.Errorf("Bot error: %v", err)
			}
		}()
	}

	// Metrics
	metricsServer := &http.Server{
		Addr:    ":" + cfg.PrometheusPort,
		Handler: m.Handler(),
	}
	go func() {
		l.Infof("Metrics listening on :%s", cfg.PrometheusPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("Metrics server error: %v", err)
		}
	}()

	// HTTP API
	apiServer := api.NewServer(svc, l, api.Options{
		DefaultViewer:  cfg.ViewerID,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MediaMaxBytes,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("Wishlist started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP servers...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Errorf("HTTP server shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		l.Errorf("Metrics server shutdown: %v", err)
	}

	l.Info("Wishlist stopped")
}
