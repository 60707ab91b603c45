package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/antoniostano/clyde/internal/chat"
	"github.com/antoniostano/clyde/internal/config"
	"github.com/antoniostano/clyde/internal/discord"
	"github.com/antoniostano/clyde/internal/gate"
	"github.com/antoniostano/clyde/internal/history"
	"github.com/antoniostano/clyde/internal/httpapi"
	"github.com/antoniostano/clyde/internal/observability"
	"github.com/antoniostano/clyde/internal/ollama"
	"github.com/antoniostano/clyde/internal/prefs"
	"github.com/antoniostano/clyde/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	contextStore, err := store.New(ctx, cfg.DatabaseURL, cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("context store init failed", zap.Error(err))
	}
	defer contextStore.Close()

	var oracle ollama.Oracle
	switch cfg.OracleMode {
	case "mock":
		oracle = ollama.NewMock()
		logger.Info("oracle: mock")
	default:
		oracle = ollama.NewClient(cfg.OllamaURL)
		logger.Info("oracle: ollama", zap.String("url", cfg.OllamaURL))
	}

	resolver, err := prefs.NewResolver(cfg.DataDir, cfg.DefaultModel, logger)
	if err != nil {
		logger.Fatal("preference resolver init failed", zap.Error(err))
	}

	cache := history.NewCache(cfg.HistoryCapacity)
	pipeline := chat.New(
		cache,
		contextStore,
		resolver,
		gate.New(oracle, logger),
		oracle,
		metrics,
		logger,
		chat.Options{
			AutoReply:     cfg.AutoReply,
			SystemPrompt:  cfg.SystemPrompt,
			RetryAttempts: cfg.PrefsRetryAttempts,
			RetryDelay:    cfg.PrefsRetryDelay,
			OracleTimeout: cfg.OracleTimeout,
			GateTimeout:   cfg.GateTimeout,
		},
	)

	var bot *discord.Bot
	if cfg.DiscordToken != "" {
		bot, err = discord.New(cfg.DiscordToken, pipeline, logger)
		if err != nil {
			logger.Fatal("discord bot init failed", zap.Error(err))
		}
		if err := bot.Start(); err != nil {
			logger.Fatal("discord bot start failed", zap.Error(err))
		}
	} else {
		logger.Info("no discord token configured, serving local chat only")
	}

	api := httpapi.New(cfg, pipeline, logger)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		_ = httpServer.Close()
	}
	if bot != nil {
		if err := bot.Stop(); err != nil {
			logger.Warn("discord shutdown failed", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
}
