package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/routes/middlewares"
	"github.com/mbolis/quick-forms/service"
)

func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := service.Registration{}
		err := render.DecodeJSON(r.Body, &in)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "Invalid request body")
			return
		}

		user, err := app.Register(r.Context(), in)
		if err != nil {
			logServiceError(w, r, "auth.register", err)
			return
		}
		log.Infof("auth.register: new user %s", user.ID)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"message": "User registered successfully",
			"user":    user,
		})
	}
}

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := service.Credentials{}
		err := render.DecodeJSON(r.Body, &in)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "Invalid request body")
			return
		}

		token, user, err := app.Login(r.Context(), in)
		if err != nil {
			logServiceError(w, r, "auth.login", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"token":     token,
			"expiresIn": int64(app.Tokens.TTL().Seconds()),
			"user":      user,
		})
	}
}

func Me(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := middlewares.SessionFrom(r.Context())

		user, err := app.Me(r.Context(), session.UserID)
		if errors.Is(err, service.ErrNotFound) {
			httpx.LogNotFound(w, r, "auth.me", "User", session.UserID)
			return
		}
		if err != nil {
			logServiceError(w, r, "auth.me", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"user": user,
		})
	}
}
