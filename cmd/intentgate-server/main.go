package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intentgate/internal/capability"
	"intentgate/internal/config"
	"intentgate/internal/db"
	"intentgate/internal/httpapi"
	"intentgate/internal/intent"
	"intentgate/internal/llm"
	"intentgate/internal/mqtt"
	"intentgate/internal/orchestrator"
	"intentgate/internal/router"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	llmProvider, err := llm.NewProvider(llm.Config{
		Provider:         cfg.LLMProvider,
		GeminiBaseURL:    cfg.GeminiBaseURL,
		GeminiAPIKey:     cfg.GeminiAPIKey,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		AnthropicBaseURL: cfg.AnthropicBaseURL,
		AnthropicAPIKey:  cfg.AnthropicAPIKey,
	})
	if err != nil {
		logger.Error("init llm provider failed", "error", err)
		os.Exit(1)
	}

	var recorders []orchestrator.OutcomeRecorder
	if cfg.DBDSN != "" {
		store, err := db.New(ctx, cfg.DBDSN)
		if err != nil {
			logger.Error("connect db failed", "error", err)
			os.Exit(1)
		}
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			logger.Error("migrate db failed", "error", err)
			os.Exit(1)
		}
		recorders = append(recorders, store)
		logger.Info("outcome journal enabled")
	}

	if cfg.MQTTBrokerURL != "" {
		publisher := mqtt.NewPublisher(mqtt.PublisherConfig{
			BrokerURL:   cfg.MQTTBrokerURL,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
		}, logger)
		if err := publisher.Start(ctx); err != nil {
			logger.Error("start mqtt publisher failed", "error", err)
			os.Exit(1)
		}
		recorders = append(recorders, publisher)
	}

	registry := capability.NewRegistry(cfg.Backends, cfg.ProbeTimeout, logger)
	requester := intent.NewRequester(intent.RequesterConfig{
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.ModelTimeout,
	}, llmProvider)
	rt := router.New(router.Config{
		Backends:        cfg.Backends,
		CloneDefaultDir: cfg.CloneDefaultDir,
		DispatchTimeout: cfg.DispatchTimeout,
	}, logger)

	orch := orchestrator.New(registry, requester, rt, logger, recorders...)
	go orch.RunCapabilityPublisher(ctx, cfg.CapabilityPublishInterval)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(httpapi.Config{AllowedOrigin: cfg.CORSAllowedOrigin}, orch, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("intentgate server started",
			"addr", cfg.HTTPAddr,
			"llm_provider", cfg.LLMProvider,
			"llm_model", cfg.LLMModel,
			"backends", len(cfg.Backends),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
}
