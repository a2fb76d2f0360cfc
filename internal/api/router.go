package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/deshawnc/threatlens/internal/api/handler"
	customMiddleware "github.com/deshawnc/threatlens/internal/api/middleware"
	"github.com/deshawnc/threatlens/internal/config"
	"github.com/deshawnc/threatlens/internal/domain"
	"github.com/deshawnc/threatlens/internal/llm"
	"github.com/deshawnc/threatlens/internal/llm/anthropic"
	"github.com/deshawnc/threatlens/internal/llm/gemini"
	"github.com/deshawnc/threatlens/internal/llm/ollama"
	"github.com/deshawnc/threatlens/internal/llm/openai"
	mongoRepo "github.com/deshawnc/threatlens/internal/repository/mongo"
	"github.com/deshawnc/threatlens/internal/repository/postgres"
	"github.com/deshawnc/threatlens/internal/repository/redis"
	"github.com/deshawnc/threatlens/internal/security"
	"github.com/deshawnc/threatlens/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures the HTTP router. redisClient may be
// nil; the recent-events cache is then skipped.
func NewRouter(cfg *config.Config, db *postgres.DB, redisClient *redis.Client) (http.Handler, error) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize security components
	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	// Initialize repositories. The event corpus backend is pluggable;
	// sessions and messages always live in Postgres.
	var eventRepo domain.EventRepository
	switch cfg.Corpus.Backend {
	case "", "postgres":
		eventRepo = postgres.NewEventRepository(db)
	case "mongo":
		repo, err := mongoRepo.NewEventRepository(context.Background(), cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mongo event corpus: %w", err)
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("Using MongoDB event corpus")
		eventRepo = repo
	default:
		return nil, fmt.Errorf("unknown corpus backend: %s", cfg.Corpus.Backend)
	}

	sessionRepo := postgres.NewSessionRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	var eventCache *redis.EventCache
	if redisClient != nil {
		eventCache = redis.NewEventCache(redisClient)
	}

	// Initialize LLM Router with providers
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.Ollama.Host != "" {
		log.Info().Str("host", cfg.LLM.Ollama.Host).Msg("Registering Ollama provider")
		llmRouter.RegisterProvider(ollama.NewProvider(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.DefaultModel))
	}
	if cfg.LLM.OpenAI.APIKey != "" {
		llmRouter.RegisterProvider(openai.NewProvider(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model))
	}
	if cfg.LLM.Anthropic.APIKey != "" {
		llmRouter.RegisterProvider(anthropic.NewProvider(cfg.LLM.Anthropic.APIKey, cfg.LLM.Anthropic.Model))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini.APIKey, cfg.LLM.Gemini.Model))
	} else {
		log.Warn().Msg("Gemini API Key is empty, skipping registration")
	}

	// Initialize services
	analystService := service.NewAnalystService(
		eventRepo,
		sessionRepo,
		messageRepo,
		llmRouter,
		eventCache,
		cfg.Analysis.MaxTokens,
	)

	// Initialize handlers
	analysisHandler := handler.NewAnalysisHandler(analystService)
	sessionHandler := handler.NewSessionHandler(analystService)
	eventHandler := handler.NewEventHandler(analystService)

	// Auth middleware
	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Identify)

			// LLM providers
			r.Get("/llm-providers", handler.ListLLMProviders(llmRouter))

			// Analysis endpoints
			r.Route("/analysis", func(r chi.Router) {
				r.Post("/chat", analysisHandler.Chat)
				r.Post("/quick", analysisHandler.Quick)
			})

			// Session routes
			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.List)
				r.Post("/", sessionHandler.Create)
				r.Get("/{sessionID}/messages", sessionHandler.GetMessages)
			})

			// Event corpus routes (read-only)
			r.Route("/events", func(r chi.Router) {
				r.Get("/", eventHandler.List)
				r.Get("/{eventID}", eventHandler.Get)
			})
		})
	})

	return r, nil
}
