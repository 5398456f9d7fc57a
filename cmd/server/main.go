package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"kakehashi/internal/auth"
	"kakehashi/internal/config"
	"kakehashi/internal/handler"
	"kakehashi/internal/middleware"
	"kakehashi/internal/repository/postgres"
	postgresCommunity "kakehashi/internal/repository/postgres/community"
	postgresConversation "kakehashi/internal/repository/postgres/conversation"
	serviceCommunity "kakehashi/internal/service/community"
	serviceConversation "kakehashi/internal/service/conversation"
	serviceLLM "kakehashi/internal/service/llm"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	verifier, err := auth.NewJWKSVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create token verifier: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	tables := postgres.NewTableNames(cfg.TablePrefix)

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	userRepo := postgres.NewUserRepository(repoConfig)
	postRepo := postgresCommunity.NewPostRepository(repoConfig)
	commentRepo := postgresCommunity.NewCommentRepository(repoConfig)
	upvoteRepo := postgresCommunity.NewUpvoteRepository(repoConfig)
	scenarioRepo := postgresConversation.NewScenarioRepository(repoConfig)
	simulationRepo := postgresConversation.NewSimulationRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Community services
	postService := serviceCommunity.NewPostService(postRepo, commentRepo, upvoteRepo, userRepo, logger)
	commentService := serviceCommunity.NewCommentService(commentRepo, postRepo, upvoteRepo, userRepo, txManager, logger)

	// Conversation services
	provider, err := serviceLLM.NewProviderFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to setup text-generation provider: %v", err)
	}
	logger.Info("text-generation provider ready", "provider", provider.Name(), "model", cfg.LLMModel)

	collaborator := serviceLLM.NewCollaborator(provider, cfg.LLMModel, cfg.LLMTimeout, logger)
	sessionStore := serviceConversation.NewStore(cfg.SessionTTL, logger)
	defer sessionStore.Close()
	simulationService := serviceConversation.NewSimulationService(scenarioRepo, simulationRepo, collaborator, sessionStore, logger)

	communityHandler := handler.NewCommunityHandler(postService, commentService, logger)
	conversationHandler := handler.NewConversationHandler(simulationService, logger)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", conversationHandler.HealthCheck)

	// Community post routes
	mux.HandleFunc("GET /api/community/posts", communityHandler.ListPosts)
	mux.HandleFunc("POST /api/community/posts", communityHandler.CreatePost)
	mux.HandleFunc("GET /api/community/posts/{id}", communityHandler.GetPost)
	mux.HandleFunc("PUT /api/community/posts/{id}", communityHandler.UpdatePost)
	mux.HandleFunc("DELETE /api/community/posts/{id}", communityHandler.DeletePost)
	mux.HandleFunc("POST /api/community/posts/{id}/upvote", communityHandler.TogglePostUpvote)
	mux.HandleFunc("PUT /api/community/posts/{id}/pin", communityHandler.PinPost)

	// Community comment routes
	mux.HandleFunc("GET /api/community/posts/{id}/comments", communityHandler.ListComments)
	mux.HandleFunc("POST /api/community/posts/{id}/comments", communityHandler.CreateComment)
	mux.HandleFunc("GET /api/community/comments/{id}/replies", communityHandler.ListReplies)
	mux.HandleFunc("PUT /api/community/comments/{id}", communityHandler.UpdateComment)
	mux.HandleFunc("DELETE /api/community/comments/{id}", communityHandler.DeleteComment)
	mux.HandleFunc("POST /api/community/comments/{id}/upvote", communityHandler.ToggleCommentUpvote)

	// Tag routes
	mux.HandleFunc("GET /api/community/tags", communityHandler.PopularTags)

	// Conversation routes
	mux.HandleFunc("GET /api/conversation/scenarios", conversationHandler.ListScenarios)
	mux.HandleFunc("GET /api/conversation/scenarios/{id}", conversationHandler.GetScenario)
	mux.HandleFunc("POST /api/conversation/simulation/start", conversationHandler.StartSimulation)
	mux.HandleFunc("GET /api/conversation/simulation/{id}", conversationHandler.GetSimulation)
	mux.HandleFunc("POST /api/conversation/simulation/{id}/reply", conversationHandler.Reply)
	mux.HandleFunc("POST /api/conversation/simulation/{id}/end", conversationHandler.EndSimulation)
	mux.HandleFunc("GET /api/conversation/history", conversationHandler.History)
	mux.HandleFunc("GET /api/conversation/history/{id}", conversationHandler.HistoryDetail)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	root = middleware.Auth(verifier)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
