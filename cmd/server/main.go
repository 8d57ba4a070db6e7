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

	"github.com/jackc/pgx/v5/pgxpool"

	"repochat-backend/internal/api"
	"repochat-backend/internal/config"
	"repochat-backend/internal/crypto"
	githubapi "repochat-backend/internal/github"
	"repochat-backend/internal/handlers"
	"repochat-backend/internal/integrations"
	"repochat-backend/internal/llm"
	integration_models "repochat-backend/internal/models/integrations"
	"repochat-backend/internal/services"
	"repochat-backend/internal/store/postgres"
)

func main() {
	log.Println("Starting RepoChat Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Database Connection Pool
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(dbCtx); err != nil {
		log.Fatalf("FATAL: Unable to ping database: %v\n", err)
	}
	log.Println("Database connection pool established and pinged successfully.")

	// 3. Initialize Dependencies (Store, Services, Handlers)
	pgStore := postgres.NewPostgresStore(dbpool)
	log.Println("Postgres store initialized.")

	// --- Create AEAD Cipher for Encryption ---
	aead, err := crypto.NewAESGCM(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("FATAL: Failed to create AES-GCM cipher: %v", err)
	}
	log.Println("AES-GCM cipher initialized.")

	// --- Initialize LLM Client ---
	completer := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	log.Printf("LLM client initialized for model %s.", cfg.LLMModel)

	// --- Initialize Integration Registry ---
	intRegistry := integrations.NewRegistry()
	intRegistry.Register(services.ServiceTypeGithub, integrations.NewGithubIntegration(githubapi.DefaultFactory))
	intRegistry.Register(services.ServiceTypeOpenAI, integrations.NewOpenAIIntegration(cfg.LLMBaseURL, cfg.LLMModel))
	log.Println("IntegrationRegistry initialized and populated.")

	// Test the configured LLM endpoint so a bad key or URL surfaces at
	// startup instead of on the first chat request. A failure is logged,
	// not fatal; the endpoint may come up after we do.
	llmIntegration := intRegistry.MustGet(services.ServiceTypeOpenAI)
	testCtx, testCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if result, err := llmIntegration.TestConnection(testCtx, integration_models.DecryptedCredentials{"api_key": cfg.LLMAPIKey}); err != nil {
		log.Printf("WARN: LLM endpoint test errored: %v", err)
	} else if !result.Success {
		log.Printf("WARN: LLM endpoint test failed: %s", result.Message)
	} else {
		log.Println("LLM endpoint reachable.")
	}
	testCancel()

	// --- Initialize Services ---
	authService := services.NewAuthService(pgStore, cfg)
	log.Println("AuthService initialized.")
	sessionService := services.NewSessionService(pgStore)
	log.Println("SessionService initialized.")
	promptService := services.NewPromptService(pgStore)
	log.Println("PromptService initialized.")
	chatService := services.NewChatService(pgStore, completer, promptService)
	log.Println("ChatService initialized.")
	credentialService := services.NewCredentialsService(pgStore, aead, intRegistry)
	log.Println("CredentialsService initialized.")
	repositoryService := services.NewRepositoryService(pgStore, credentialService, githubapi.DefaultFactory, completer)
	log.Println("RepositoryService initialized.")

	// --- Initialize Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandler(chatService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	promptHandler := handlers.NewPromptHandler(promptService)
	credentialHandler := handlers.NewCredentialsHandler(credentialService)
	repositoryHandler := handlers.NewRepositoryHandler(repositoryService)
	log.Println("Handlers initialized.")

	// 4. Setup Router & Inject Dependencies
	routerDeps := api.RouterDependencies{
		AuthHandler:        authHandler,
		ChatHandler:        chatHandler,
		SessionHandler:     sessionHandler,
		PromptHandler:      promptHandler,
		CredentialsHandler: credentialHandler,
		RepositoryHandler:  repositoryHandler,
		Config:             cfg,
	}
	router := api.NewRouter(routerDeps)
	log.Println("HTTP router configured.")

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// WriteTimeout must cover a full LLM round trip.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel to listen for OS signals for graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	// Run server in a goroutine so it doesn't block
	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	// Wait for interrupt signal
	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
		log.Fatal("Forcing shutdown due to error.")
	}

	log.Println("Server shutdown complete.")
}
