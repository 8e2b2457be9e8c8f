package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/invsync/invsync/internal/api"
	apiMiddleware "github.com/invsync/invsync/internal/api/middleware"
)

// healthCheckTimeout bounds the database ping of the health endpoint.
const healthCheckTimeout = 2 * time.Second

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	inventoryHandler := api.NewInventoryHandler(app.inventoryService)
	taskHandler := api.NewTaskHandler(app.taskReader)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/orgs/{org}", func(r chi.Router) {
			r.Use(authMiddleware.RequireOrg("org"))
			r.Post("/inventory/refresh", inventoryHandler.RefreshInventory)
			r.Get("/inventory", inventoryHandler.GetInventory)
		})

		r.Get("/tasks/{id}", taskHandler.GetTask)
	})

	r.Get("/health", app.handleHealth)

	return r
}

// handleHealth reports whether the service can reach its database.
func (app *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status, body := http.StatusOK, "OK"
	if err := app.db.PingContext(ctx); err != nil {
		app.logger.Warn("health check failed", "error", err)
		status, body = http.StatusServiceUnavailable, "database unavailable"
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		app.logger.Error("failed to write health check response", "error", err)
	}
}
