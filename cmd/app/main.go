package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"terminal-ai-chat/internal/config"
	"terminal-ai-chat/internal/domain/ports/adapter"
	"terminal-ai-chat/internal/domain/ports/repository"
	aiAdapters "terminal-ai-chat/internal/infra/adapters/ai"
	"terminal-ai-chat/internal/infra/logging"
	"terminal-ai-chat/internal/infra/metrics"
	red "terminal-ai-chat/internal/infra/redis"
	"terminal-ai-chat/internal/infra/sched"
	"terminal-ai-chat/internal/infra/security"
	"terminal-ai-chat/internal/infra/store"
	"terminal-ai-chat/internal/infra/tokenizer"
	"terminal-ai-chat/internal/infra/web"
	"terminal-ai-chat/internal/infra/worker"
	"terminal-ai-chat/internal/usecase"
)

// Set via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", config.DefaultConfigPath, "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, canned AI provider when no key is set")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Snapshot store ----
	var cipher *security.Cipher
	if cfg.Storage.EncryptionKey != "" {
		cipher, err = security.NewCipher(cfg.Storage.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("encryption")
		}
	}
	var snapStore repository.SnapshotStore
	switch cfg.Storage.Backend {
	case "file":
		snapStore = store.NewFileStore(cfg.Storage.Path, cipher)
	case "redis":
		client, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer client.Close()
		snapStore = store.NewRedisStore(client, cipher, cfg.Redis.TTL)
	case "memory":
		snapStore = store.NewMemoryStore()
	}

	sessionStore := usecase.NewSessionStore(ctx, snapStore, cfg.Chat, logger)
	metrics.SetSessionCount(sessionStore.Len())

	// ---- AI provider ----
	ai, err := buildStreamer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("ai provider")
	}
	ai = aiAdapters.NewLimitedAI(ai, cfg.AI.ConcurrentLimit)

	// ---- Orchestrator ----
	registry := usecase.NewPendingRegistry()
	pool := worker.NewPool(2, logger)
	pool.Start(ctx)
	chatUC := usecase.NewChatUC(sessionStore, ai, tokenizer.NewTiktoken(), registry, pool, cfg.SystemPrompt, logger)

	autosave := sched.NewAutosaveWorker(cfg.AutosaveInterval, sessionStore, logger)
	go func() { _ = autosave.Run(ctx) }()

	var debugSrv *web.Server
	if cfg.Web.Enabled {
		debugSrv = web.NewServer(cfg.Web.Port, sessionStore, logger)
		go func() {
			if err := debugSrv.Start(); err != nil {
				logger.Error().Err(err).Msg("debug server")
			}
		}()
	}

	// ---- REPL ----
	ui := newREPL(sessionStore, chatUC, logger)
	replDone := make(chan struct{})
	go func() {
		ui.run(ctx)
		close(replDone)
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-replDone:
	}
	cancel()

	chatUC.StopAll()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := sessionStore.Flush(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("final flush failed")
	}
	if debugSrv != nil {
		_ = debugSrv.Shutdown(shutdownCtx)
	}
	pool.Stop()
}

// buildStreamer wires the configured providers behind a model router. With
// no key configured, dev mode falls back to the canned provider.
func buildStreamer(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (adapter.AIStreamer, error) {
	byProvider := map[string]adapter.AIStreamer{}

	if cfg.AI.OpenAIKey != "" {
		oa, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.OpenAIBaseURL, cfg.Chat.ModelConfig.Model)
		if err != nil {
			return nil, err
		}
		byProvider["openai"] = oa
		logger.Info().Str("provider", "openai").Msg("AI provider configured")
	}
	if cfg.AI.GeminiKey != "" {
		gm, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, "")
		if err != nil {
			return nil, err
		}
		byProvider["gemini"] = gm
		logger.Info().Str("provider", "gemini").Msg("AI provider configured")
	}

	switch len(byProvider) {
	case 0:
		if cfg.Runtime.Dev {
			logger.Warn().Msg("no AI key configured, using canned provider")
			return aiAdapters.NewNoopStreamer(), nil
		}
		return nil, errors.New("no AI provider configured: set ai.openai_key or ai.gemini_key")
	case 1:
		for _, a := range byProvider {
			return a, nil
		}
	}
	defaultProvider := "openai"
	if _, ok := byProvider["openai"]; !ok {
		defaultProvider = "gemini"
	}
	return aiAdapters.NewMultiAIAdapter(defaultProvider, byProvider, nil), nil
}
