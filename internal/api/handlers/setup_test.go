package handlers_test

import (
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/go-accounts/internal/api/handlers"
	"github.com/hugh/go-accounts/internal/api/middleware"
	"github.com/hugh/go-accounts/internal/auth"
	"github.com/hugh/go-accounts/internal/store"
	"github.com/hugh/go-accounts/internal/testutil"
	"github.com/hugh/go-accounts/internal/users"
	"gorm.io/gorm"
)

type testEnv struct {
	DB     *gorm.DB
	JWT    *auth.JWTService
	Sink   *testutil.RecordingSink
	Router *chi.Mux
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	jwtService := testutil.CreateTestJWTService()
	sink := &testutil.RecordingSink{}
	logger := testutil.Logger()
	userStore := store.NewGormUserStore(db)

	authService := auth.NewService(userStore, jwtService, sink, logger,
		auth.Config{CodeExpiry: 3 * time.Minute, ExposeCode: true},
		auth.WithHasher(testutil.Hasher()),
	)
	userService := users.NewService(userStore, logger)

	authHandler := handlers.NewAuthHandler(authService, logger)
	userHandler := handlers.NewUserHandler(userService, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authService))

			r.Post("/auth/verify", authHandler.Verify)
			r.Post("/auth/resend-verification", authHandler.ResendVerification)

			r.Get("/users/me", userHandler.Me)
			r.Patch("/users/{id}", userHandler.Update)
			r.Post("/users/{id}/deactivate", userHandler.Deactivate)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/users", userHandler.List)
				r.Get("/users/{id}", userHandler.Get)
				r.Delete("/users/{id}", userHandler.Delete)
				r.Post("/users/{id}/activate", userHandler.Activate)
				r.Put("/users/{id}/role", userHandler.ChangeRole)
			})
		})
	})

	return &testEnv{DB: db, JWT: jwtService, Sink: sink, Router: r}
}
