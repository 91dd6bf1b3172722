package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/learnplan-api/internal/api"
	apiMiddleware "github.com/phrazzld/learnplan-api/internal/api/middleware"
	"github.com/phrazzld/learnplan-api/internal/store"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)

	authHandler := api.NewAuthHandler(app.userService, app.jwtService, app.logger)
	planHandler := api.NewPlanHandler(app.planService, app.logger)
	notificationHandler := api.NewNotificationHandler(app.userService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Route("/discover", func(r chi.Router) {
			r.Get("/popular", planHandler.Discover(store.DiscoverPopular))
			r.Get("/recent", planHandler.Discover(store.DiscoverRecent))
			r.Get("/search", planHandler.Discover(store.DiscoverSearch))
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Route("/plans", func(r chi.Router) {
				r.Get("/", planHandler.ListMyPlans)
				r.Post("/", planHandler.CreatePlan)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", planHandler.GetPlan)
					r.Put("/", planHandler.UpdatePlan)
					r.Delete("/", planHandler.DeletePlan)
					r.Patch("/visibility", planHandler.SetVisibility)
					r.Get("/topics", planHandler.ListTopics)
					r.Post("/topics", planHandler.AddTopic)
					r.Post("/enroll", planHandler.Enroll)
					r.Get("/enrollments", planHandler.ListParticipants)
					r.Get("/progress", planHandler.PlanProgress)
				})
			})

			r.Route("/topics/{id}", func(r chi.Router) {
				r.Get("/", planHandler.GetTopic)
				r.Put("/", planHandler.UpdateTopic)
				r.Delete("/", planHandler.DeleteTopic)
				r.Patch("/status", planHandler.SetTopicStatus)
			})

			r.Route("/enrollments", func(r chi.Router) {
				r.Get("/", planHandler.ListMyEnrollments)
				r.Get("/{id}", planHandler.GetEnrollment)
				r.Delete("/{id}", planHandler.Unenroll)
				r.Put("/{id}/topics/{topicId}", planHandler.MarkTopic)
			})

			r.Get("/notifications", notificationHandler.List)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
