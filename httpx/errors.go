package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/mbolis/quick-forms/log"
)

// Message is the body of every failed response.
type Message struct {
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Message{msg})
}

// Will log an error, and send an HTTP response with status 500 and a generic message
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Errorf("%s: %+v", code, err)
	writeMessage(w, r, http.StatusInternalServerError, "Server error")
}

// Will log a debug message, and send an HTTP response with status 404
// and the message "<subject> not found"
func LogNotFound(w http.ResponseWriter, r *http.Request, code string, subject string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	writeMessage(w, r, http.StatusNotFound, subject+" not found")
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	writeMessage(w, r, status, errMsg)
}
