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

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rainit/rainit/backend/internal/analysis/intent"
	"github.com/rainit/rainit/backend/internal/config"
	"github.com/rainit/rainit/backend/internal/handler"
	"github.com/rainit/rainit/backend/internal/integrations/paramstore"
	"github.com/rainit/rainit/backend/internal/logging"
	"github.com/rainit/rainit/backend/internal/model/persona"
	"github.com/rainit/rainit/backend/internal/service/ai"
	"github.com/rainit/rainit/backend/internal/service/chat"
	"github.com/rainit/rainit/backend/internal/service/dialogue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Debug("no .env file loaded, using process environment", zap.Error(envErr))
	}

	personaStore, err := loadPersonas(cfg.Persona)
	if err != nil {
		logger.Fatal("failed to load persona catalog", zap.Error(err))
	}
	active := personaStore.Default()
	logger.Info("persona loaded", zap.String("persona", active.ID), zap.String("source", personaSource(cfg.Persona)))

	var completer dialogue.Completer
	if aiService := newAIService(ctx, cfg.AI, logger); aiService != nil {
		completer = aiService
	}

	coordinator := dialogue.New(chat.NewService(), intent.New(active), completer, active, logger)

	router := handler.NewRouter(handler.Dependencies{
		Personas:       personaStore,
		Coordinator:    coordinator,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	startServer(ctx, cfg.Server, router, logger)
}

func loadPersonas(cfg config.PersonaConfig) (persona.Store, error) {
	if cfg.File == "" {
		return persona.NewMemoryStore(persona.Seed()), nil
	}
	items, err := persona.LoadFile(cfg.File)
	if err != nil {
		return nil, err
	}
	return persona.NewMemoryStore(items), nil
}

func personaSource(cfg config.PersonaConfig) string {
	if cfg.File == "" {
		return "built-in"
	}
	return cfg.File
}

// newAIService returns nil when the model cannot be built; the server then
// answers unhandled messages with the fallback reply.
func newAIService(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) *ai.Service {
	if !cfg.Enabled() {
		logger.Warn("AI credentials not configured, skipping model initialization",
			zap.String("provider", string(cfg.Provider)))
		return nil
	}

	var apiKey string
	if cfg.Provider == config.ProviderGemini && cfg.APIKey == "" && cfg.APIKeyParam != "" {
		key, err := fetchAPIKey(ctx, cfg.APIKeyParam)
		if err != nil {
			logger.Warn("failed to read API key from parameter store, continuing without AI",
				zap.String("parameter", cfg.APIKeyParam), zap.Error(err))
			return nil
		}
		apiKey = key
	}

	chatModel, err := ai.NewChatModel(ctx, cfg, apiKey)
	if err != nil {
		logger.Warn("failed to build chat model, continuing without AI", zap.Error(err))
		return nil
	}

	service, err := ai.NewService(ctx, chatModel, ai.Options{
		Timeout:   cfg.Timeout,
		Streaming: cfg.StreamResponse,
		Logger:    logger,
	})
	if err != nil {
		logger.Warn("failed to initialize AI service, continuing without AI", zap.Error(err))
		return nil
	}

	logger.Info("AI service initialized",
		zap.String("provider", string(cfg.Provider)),
		zap.Bool("streaming", cfg.StreamResponse))
	return service
}

func fetchAPIKey(ctx context.Context, parameter string) (string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", err
	}
	client, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return "", err
	}
	return paramstore.FetchAPIKey(ctx, client, parameter)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("Rainit backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
