package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"readyscriptpro/internal/adapter/gateway"
	"readyscriptpro/internal/adapter/llm"
	"readyscriptpro/internal/adapter/quota"
	"readyscriptpro/internal/domain"
	"readyscriptpro/internal/infra/config"
	"readyscriptpro/internal/infra/logger"
	"readyscriptpro/internal/infra/tracer"
	"readyscriptpro/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Config
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	// 3. Upstream provider chain: openai -> retry -> circuit breaker
	registry := llm.NewRegistry()
	openai := llm.NewOpenAIProvider(cfg.Provider, log)
	if err := registry.Register(openai); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	log.Debug("completion providers registered", "providers", registry.Names())
	base, err := registry.Get(cfg.Provider.Name)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	var provider domain.LLMProvider = llm.NewCircuitBreakerProvider(
		llm.NewRetryProvider(base, cfg.Retry.MaxAttempts, log),
		cfg.Breaker,
		log,
	)

	// 4. Quota store
	var store domain.QuotaStore
	switch cfg.Quota.Store {
	case "sqlite":
		if dir := filepath.Dir(cfg.Quota.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("quota: %w", err)
			}
		}
		sqlStore, err := quota.NewSQLiteStore(cfg.Quota.Path)
		if err != nil {
			return fmt.Errorf("quota: %w", err)
		}
		defer sqlStore.Close()
		store = sqlStore
	default:
		store = quota.NewMemoryStore()
	}

	// 5. Service layer
	svc := usecase.NewScriptService(provider, cfg.Provider.Model, log)
	counter := usecase.NewUsageCounter(store, cfg.Quota.DailyLimit)

	var plans gateway.PlanResolver
	if cfg.Plans.Resolver == "token" {
		plans = gateway.NewTokenPlanResolver(cfg.Plans.Tokens)
	} else {
		plans = gateway.TrustedPlanResolver{}
	}

	// 6. HTTP server
	handlers := gateway.NewHandlers(svc, plans, counter, log)
	server := gateway.NewServer(cfg.Server, handlers, log)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	log.Info("readyscriptpro started",
		"addr", server.BoundAddr(),
		"provider", cfg.Provider.Name,
		"model", cfg.Provider.Model,
		"quota_store", cfg.Quota.Store,
	)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
