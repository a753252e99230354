package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/userdeck-io/userdeck/internal/apperrors"
	"github.com/userdeck-io/userdeck/internal/auth"
	"github.com/userdeck-io/userdeck/internal/config"
	"github.com/userdeck-io/userdeck/internal/service"
)

type Api struct {
	Config   config.Config
	Router   *chi.Mux
	server   *http.Server
	users    *service.UserService
	sessions *service.SessionGateway
	tokens   *auth.TokenManager
}

// NewApi wires the HTTP surface over the orchestration services. The session
// gateway may be nil when no identity provider is configured; its routes then
// answer 503.
func NewApi(cfg config.Config, users *service.UserService, sessions *service.SessionGateway, tokens *auth.TokenManager) (*Api, error) {
	api := &Api{
		Config:   cfg,
		Router:   chi.NewRouter(),
		users:    users,
		sessions: sessions,
		tokens:   tokens,
	}
	api.setupRoutes()
	api.server = &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.APIPort),
		Handler: api.Router,
	}
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "userdeck API"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", api.SignUpHandler)
			r.Post("/signin", api.SignInHandler)
			r.Post("/refresh", api.RefreshHandler)
			r.Post("/signout", api.SignOutHandler)
			r.Post("/reset-password", api.ResetPasswordHandler)
			r.Get("/me", api.MeHandler)
			r.Put("/profile", api.UpdateProfileHandler)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", api.CreateUserHandler)
			r.Post("/login", api.LoginHandler)
			r.Get("/", api.ListUsersHandler)
			r.Get("/username/{username}", api.GetUserByUsernameHandler)
			r.Group(func(r chi.Router) {
				r.Use(api.TokenAuthMiddleware)
				r.Get("/me", api.CurrentUserHandler)
			})
			r.Get("/{userID}", api.GetUserHandler)
			r.Put("/{userID}", api.UpdateUserHandler)
			r.Delete("/{userID}", api.DeleteUserHandler)
		})
	})
}

// Serve starts the HTTP server and blocks until it fails or Shutdown is
// called. A shutdown-triggered stop returns nil.
func (api *Api) Serve() error {
	log.Printf("Starting API server on %s", api.server.Addr)
	if err := api.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests up to the
// context deadline.
func (api *Api) Shutdown(ctx context.Context) error {
	return api.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("Error encoding response: %v", err)
		}
	}
}

// writeError maps a taxonomy error onto the error-body contract. Internal
// and provider detail stays in the log, never in the response.
func writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= 500 {
		log.Printf("Request failed: %v", err)
	}
	writeJSON(w, status, map[string]interface{}{
		"detail":      apperrors.Detail(err),
		"status_code": status,
	})
}
