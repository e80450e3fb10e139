package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/routes/middlewares"
	"github.com/mbolis/quick-forms/service"
)

// every handler here runs behind middlewares.Authenticate
func userID(r *http.Request) string {
	session, _ := middlewares.SessionFrom(r.Context())
	return session.UserID
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := service.NewForm{}
		err := render.DecodeJSON(r.Body, &in)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "Invalid request body")
			return
		}

		form, err := app.CreateForm(r.Context(), userID(r), in)
		if err != nil {
			logServiceError(w, r, "forms.create", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"message": "Form created",
			"form":    form,
		})
	}
}

func ListOwnForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forms, err := app.ListOwnForms(r.Context(), userID(r))
		if err != nil {
			logServiceError(w, r, "forms.list", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

func GetOwnForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := app.GetOwnForm(r.Context(), userID(r), chi.URLParam(r, "id"))
		if err != nil {
			logServiceError(w, r, "forms.get", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"form": form,
		})
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := app.DeleteForm(r.Context(), userID(r), chi.URLParam(r, "id"))
		if err != nil {
			logServiceError(w, r, "forms.delete", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"message": "Form deleted",
		})
	}
}

func ListResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses, err := app.ListResponses(r.Context(), userID(r), chi.URLParam(r, "id"))
		if err != nil {
			logServiceError(w, r, "forms.list_responses", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}
