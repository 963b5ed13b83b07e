package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kevinai/kevin/internal/config"
	"github.com/kevinai/kevin/internal/logger"
	"github.com/kevinai/kevin/pkg/commandqueue"
	"github.com/kevinai/kevin/pkg/gateway"
	"github.com/kevinai/kevin/pkg/llm"
	"github.com/kevinai/kevin/pkg/orchestrator"
	"github.com/kevinai/kevin/pkg/router"
	"github.com/kevinai/kevin/pkg/store"
	"github.com/kevinai/kevin/pkg/tooldispatch"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "kevind: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	zlog := log.GetZerolog()
	zlog.Info().Msg("Kevin AI daemon starting")

	var sessionStore store.Store
	if cfg.Session.DatabasePath != "" {
		sqliteStore, err := store.NewSQLiteStore(cfg.Session.DatabasePath, zlog)
		if err != nil {
			return fmt.Errorf("failed to open session database: %w", err)
		}
		defer sqliteStore.Close()
		sessionStore = sqliteStore
		zlog.Info().Str("path", cfg.Session.DatabasePath).Msg("Using SQLite session store")
	} else {
		sessionStore = store.NewMemoryStore(zlog)
		zlog.Info().Msg("Using in-memory session store")
	}

	modelRouter := router.New(router.Options{
		OpenAIModels: router.TierModels{
			Fast:     cfg.Models.OpenAI.Fast,
			Standard: cfg.Models.OpenAI.Standard,
			Premium:  cfg.Models.OpenAI.Premium,
		},
		AnthropicModels: router.TierModels{
			Fast:     cfg.Models.Anthropic.Fast,
			Standard: cfg.Models.Anthropic.Standard,
			Premium:  cfg.Models.Anthropic.Premium,
		},
		FastMaxTokens:       cfg.Models.FastMaxTokens,
		StandardMaxTokens:   cfg.Models.StandardMaxTokens,
		PremiumMaxTokens:    cfg.Models.PremiumMaxTokens,
		OpenAIConfigured:    cfg.AI.OpenAIAPIKey != "",
		AnthropicConfigured: cfg.AI.AnthropicAPIKey != "",
		DefaultProvider:     cfg.AI.DefaultProvider,
		Logger:              zlog,
	})

	client := llm.NewClient(llm.ClientOptions{
		OpenAIAPIKey:    cfg.AI.OpenAIAPIKey,
		AnthropicAPIKey: cfg.AI.AnthropicAPIKey,
		Temperature:     cfg.Agent.Temperature,
		Router:          modelRouter,
		Logger:          zlog,
	})

	queue := commandqueue.New(zlog)
	defer queue.Close()

	dispatcher := tooldispatch.New(zlog)
	toolTimeout := time.Duration(cfg.Agent.ToolTimeoutMs) * time.Millisecond

	agent := orchestrator.New(sessionStore, client, dispatcher, queue, orchestrator.Options{
		MaxIterations: cfg.Agent.MaxIterations,
		ToolTimeout:   toolTimeout,
	}, zlog)

	server, err := gateway.NewServer(gateway.Config{
		Port:         cfg.Server.Port,
		Store:        sessionStore,
		Orchestrator: agent,
		Dispatcher:   dispatcher,
		ModelRouter:  modelRouter,
		ToolTimeout:  toolTimeout,
		Logger:       zlog,
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	// Session tools need the gateway for message_user delivery, so they
	// register after it exists.
	if err := dispatcher.RegisterCatalog(tooldispatch.SessionTools(sessionStore, server.NotifyUser, zlog)); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	if cfg.Session.CleanupSchedule != "" {
		cleanup, err := store.NewCleanupService(
			sessionStore,
			cfg.Session.CleanupSchedule,
			time.Duration(cfg.Session.MaxIdleMinutes)*time.Minute,
			zlog,
		)
		if err != nil {
			return fmt.Errorf("failed to create cleanup service: %w", err)
		}
		cleanup.Start()
		defer cleanup.Stop()
	}

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, zlog)
		if err != nil {
			zlog.Warn().Err(err).Msg("Config watcher unavailable, continuing without live reload")
		} else {
			defer watcher.Close()
			watcher.OnReload(func(next *config.Config) {
				zlog.Info().Str("level", next.Logging.Level).Msg("Applying reloaded config")
			})
		}
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	zlog.Info().Str("signal", sig.String()).Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		zlog.Warn().Err(err).Msg("Gateway shutdown incomplete")
	}

	queue.WaitForActive(10 * time.Second)
	zlog.Info().Msg("Kevin AI daemon stopped")
	return nil
}
