package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/routes/middlewares"
)

// Wire builds the HTTP handler. Background work started for the handler
// (rate limiter bookkeeping) stops when ctx is done.
func Wire(ctx context.Context, app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID)
	if app.TrustProxy {
		// only behind a proxy that overwrites the forwarding headers
		root.Use(middleware.RealIP)
	}
	root.Use(middleware.Logger, middleware.Recoverer)
	root.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	root.Mount("/api", apiRouter(ctx, app))

	return root
}

func apiRouter(ctx context.Context, app app.App) http.Handler {
	api := chi.NewRouter()
	api.Use(render.SetContentType(render.ContentTypeJSON))

	api.Get("/health", Health)

	api.Route("/auth", func(r chi.Router) {
		r.Post("/register", Register(app))
		r.Post("/login", Login(app))
		r.With(middlewares.Authenticate(app.Tokens)).Get("/me", Me(app))
	})

	api.Route("/forms", func(r chi.Router) {
		// capability-by-id: knowing the id is enough
		r.Group(func(r chi.Router) {
			r.Use(middlewares.RateLimit(ctx, app.PublicRate, app.PublicBurst))
			r.Use(middleware.RequestSize(app.PublicMaxBody))

			r.Get("/public/{id}", PublicGetForm(app))
			r.Post("/public/{id}/submit", PublicSubmitResponse(app))
		})

		r.Group(func(r chi.Router) {
			r.Use(middlewares.Authenticate(app.Tokens))

			r.Post("/", CreateForm(app))
			r.Get("/mine", ListOwnForms(app))
			r.Get("/{id}", GetOwnForm(app))
			r.Delete("/{id}", DeleteForm(app))
			r.Get("/{id}/responses", ListResponses(app))
		})
	})

	return api
}

func Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status": "ok",
	})
}
