// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/finbot-ai/agent-platform/internal/config"
	"github.com/finbot-ai/agent-platform/internal/handler"
	"github.com/finbot-ai/agent-platform/internal/llm"
	"github.com/finbot-ai/agent-platform/internal/middleware"
	"github.com/finbot-ai/agent-platform/internal/mongodb"
	"github.com/finbot-ai/agent-platform/internal/service"
	"github.com/finbot-ai/agent-platform/internal/store"
	"github.com/finbot-ai/agent-platform/internal/tool"
	"github.com/finbot-ai/agent-platform/pkg/logger"
	"github.com/finbot-ai/agent-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "agent-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to MongoDB; the profile tool is disabled when the document
	// store is unreachable, but the chat loop still runs.
	var mongoClient *mongodb.Client
	mongoClient, err = mongodb.Connect(ctx, mongodb.Config{
		URI:            cfg.MongoURI,
		Database:       cfg.MongoDatabase,
		ConnectTimeout: cfg.MongoConnectTimeout,
	}, log)
	if err != nil {
		log.Warn("failed to connect to MongoDB, profile tool disabled", zap.Error(err))
		mongoClient = nil
	}

	// Seed the profile collection on first start
	var profiles *mongodb.ProfileRepository
	if mongoClient != nil {
		profiles = mongodb.NewProfileRepository(mongoClient, cfg.ProfileCollection)
		seeder := mongodb.NewSeeder(profiles, cfg.ProfileSeedFile, log)
		if err := seeder.Seed(ctx); err != nil {
			log.Warn("profile seeding failed", zap.Error(err))
		}
		defer mongoClient.Close(ctx)
	}

	// Initialize LLM client; DEFAULT_LLM picks the provider when both
	// keys are configured.
	var llmClient llm.Client
	switch {
	case cfg.DefaultLLM == string(llm.ProviderOpenAI) && cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	case cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	default:
		log.Error("no LLM API key configured")
		os.Exit(1)
	}
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}
	log.Info("LLM client ready", zap.String("provider", llmClient.Name()))

	// Register tools
	registry := tool.NewRegistry()
	if err := registry.Register(tool.NewCalculator()); err != nil {
		log.Error("failed to register calculator tool", zap.Error(err))
		os.Exit(1)
	}
	if profiles != nil {
		if err := registry.Register(tool.NewUserProfile(profiles)); err != nil {
			log.Error("failed to register profile tool", zap.Error(err))
			os.Exit(1)
		}
	}
	log.Info("tool registry ready", zap.Strings("tools", registry.Names()))

	// Initialize conversation store and agent loop
	conversations := store.NewMemoryStore()
	agent := service.NewAgentService(conversations, registry, llmClient, cfg.MaxToolIterations, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(mongoClient)
	chatHandler := handler.NewChatHandler(agent, conversations, log)
	conversationHandler := handler.NewConversationHandler(conversations, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/chat/stream", chatHandler.StreamChat)

		r.Route("/chat/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Delete("/", conversationHandler.Delete)
				r.Get("/summary", conversationHandler.Summary)
			})
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
