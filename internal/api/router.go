package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"repochat-backend/internal/config"
	"repochat-backend/internal/handlers"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler        *handlers.AuthHandler
	ChatHandler        *handlers.ChatHandler
	SessionHandler     *handlers.SessionHandler
	PromptHandler      *handlers.PromptHandler
	CredentialsHandler *handlers.CredentialsHandler
	RepositoryHandler  *handlers.RepositoryHandler
	Config             *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second)) // LLM calls can run long

	// --- CORS Configuration ---
	// Adjust AllowedOrigins for your frontend deployment(s)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173", "https://*.vercel.app"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes (No JWT Required) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.AuthHandler == nil {
			panic("AuthHandler dependency is nil in router setup")
		}
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)
	})

	// --- Authenticated Routes (JWT Required) ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JwtAuthMiddleware(deps.Config.JWTSecret))

		// --- Mount Chat Route ---
		if deps.ChatHandler != nil {
			r.Post("/chat", deps.ChatHandler.HandleChat)
		} else {
			log.Println("WARN: ChatHandler dependency is nil, skipping /v1/chat route.")
		}

		// --- Mount Session Routes ---
		if deps.SessionHandler != nil {
			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", deps.SessionHandler.HandleCreateSession)
				r.Get("/", deps.SessionHandler.HandleListSessions)
				r.Get("/{sessionID}", deps.SessionHandler.HandleGetSession)
				r.Patch("/{sessionID}", deps.SessionHandler.HandleRenameSession)
				r.Delete("/{sessionID}", deps.SessionHandler.HandleDeleteSession)
			})
		} else {
			log.Println("WARN: SessionHandler dependency is nil, skipping /v1/sessions routes.")
		}

		// --- Mount Prompt Routes ---
		if deps.PromptHandler != nil {
			r.Route("/prompts", func(r chi.Router) {
				r.Post("/", deps.PromptHandler.HandleCreatePrompt)
				r.Get("/", deps.PromptHandler.HandleListPrompts)
				r.Get("/{promptID}", deps.PromptHandler.HandleGetPrompt)
				r.Patch("/{promptID}", deps.PromptHandler.HandleUpdatePrompt)
				r.Delete("/{promptID}", deps.PromptHandler.HandleDeletePrompt)
			})
		} else {
			log.Println("WARN: PromptHandler dependency is nil, skipping /v1/prompts routes.")
		}

		// --- Mount GitHub Routes ---
		r.Route("/github", func(r chi.Router) {
			if deps.CredentialsHandler != nil {
				r.Route("/credentials", func(r chi.Router) {
					r.Post("/", deps.CredentialsHandler.HandleCreateCredential)
					r.Get("/", deps.CredentialsHandler.HandleListCredentials)
					r.Get("/{credentialID}", deps.CredentialsHandler.HandleGetCredential)
					r.Delete("/{credentialID}", deps.CredentialsHandler.HandleDeleteCredential)
					r.Post("/{credentialID}/test", deps.CredentialsHandler.HandleTestCredential)
				})
			} else {
				log.Println("WARN: CredentialsHandler dependency is nil, skipping /v1/github/credentials routes.")
			}

			if deps.RepositoryHandler != nil {
				r.Route("/repositories", func(r chi.Router) {
					r.Post("/", deps.RepositoryHandler.HandleCreateRepository)
					r.Get("/", deps.RepositoryHandler.HandleListRepositories)
					r.Get("/{repositoryID}", deps.RepositoryHandler.HandleGetRepository)
					r.Delete("/{repositoryID}", deps.RepositoryHandler.HandleDeleteRepository)
					r.Post("/{repositoryID}/analyze", deps.RepositoryHandler.HandleAnalyzeRepository)

					// File change generation and listing per repository
					r.Post("/{repositoryID}/files", deps.RepositoryHandler.HandleGenerateFileChanges)
					r.Get("/{repositoryID}/files", deps.RepositoryHandler.HandleListFileChanges)
				})

				r.Route("/files", func(r chi.Router) {
					r.Get("/{fileChangeID}", deps.RepositoryHandler.HandleGetFileChange)
					r.Delete("/{fileChangeID}", deps.RepositoryHandler.HandleDeleteFileChange)
					r.Post("/{fileChangeID}/commit", deps.RepositoryHandler.HandleCommitFileChange)
				})
			} else {
				log.Println("WARN: RepositoryHandler dependency is nil, skipping /v1/github/repositories routes.")
			}
		})
	})

	return r
}
