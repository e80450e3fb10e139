package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/service"
)

func PublicGetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := app.GetPublicForm(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			logServiceError(w, r, "public.get_form", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"form": form,
		})
	}
}

func PublicSubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := service.Submission{}
		err := render.DecodeJSON(r.Body, &in)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.LogStatusMsg(w, r, http.StatusRequestEntityTooLarge, log.DebugLevel, "request.body_size", "Request body too large")
			return
		}
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "Invalid answers")
			return
		}

		resp, err := app.SubmitResponse(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			logServiceError(w, r, "public.submit", err)
			return
		}
		log.Debugf("public.submit: response %s to form %s", resp.ID, resp.FormID)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"message": "Response submitted successfully",
			"id":      resp.ID,
		})
	}
}
