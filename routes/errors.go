package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/service"
)

// logServiceError maps an error returned by the service layer to a status
// code and message. Anything unrecognised is a 500. Every operation that can
// fail with service.ErrNotFound is addressed by a form id.
func logServiceError(w http.ResponseWriter, r *http.Request, code string, err error) {
	var inputErr *service.InputError
	switch {
	case errors.As(err, &inputErr):
		httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, code, "%s", inputErr.Error())
	case errors.Is(err, service.ErrNotFound):
		httpx.LogNotFound(w, r, code, "Form", chi.URLParam(r, "id"))
	case errors.Is(err, service.ErrUnauthenticated):
		httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, code, "Invalid credentials")
	case errors.Is(err, service.ErrUnknownUser):
		httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, code, "User not found")
	default:
		httpx.LogInternalError(w, r, code, err)
	}
}
