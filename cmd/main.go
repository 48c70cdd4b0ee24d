package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"demystifier-backend/internal/config"
	"demystifier-backend/internal/document"
	"demystifier-backend/internal/handler"
	"demystifier-backend/internal/llm"
	"demystifier-backend/internal/service"
	"demystifier-backend/pkg/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Refuse to start without an upstream credential.
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx := context.Background()

	chatModel, err := llm.NewChatModel(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create chat model: %v", err)
	}

	prompts := service.NewPrompts(cfg.Prompts)
	policy := document.NewPolicy(cfg.Upload.MaxFileBytes, cfg.Upload.AllowedMimeTypes)

	analysisService := service.NewAnalysisService(chatModel, prompts, policy)
	chatService, err := service.NewChatService(ctx, chatModel, prompts, cfg.Chat)
	if err != nil {
		logger.Fatalf("Failed to init chat service: %v", err)
	}

	geminiHandler := handler.NewGeminiHandler(analysisService, chatService, analysisService.Policy(), cfg.Chat.StreamTimeout)
	router := handler.SetupRouter(cfg, geminiHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("Server listening on port %d (provider %s)", cfg.Server.Port, cfg.Model.Provider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
		_ = server.Close()
	}
	logger.Info("Server stopped")
}
