package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/service"
)

func TestLogServiceError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", errors.Wrap(service.ErrNotFound, "get form"), http.StatusNotFound, "Form not found"},
		{"unauthenticated", service.ErrUnauthenticated, http.StatusUnauthorized, "Invalid credentials"},
		{"unknown user", errors.Wrap(service.ErrUnknownUser, "create form"), http.StatusUnauthorized, "User not found"},
		{"email taken", service.ErrEmailTaken, http.StatusBadRequest, "Email already registered"},
		{"input", &service.InputError{Msg: "Invalid answers"}, http.StatusBadRequest, "Invalid answers"},
		{"store failure", errors.New("connection reset"), http.StatusInternalServerError, "Server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			logServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), "test", tc.err)

			assert.Equal(t, tc.status, rec.Code)
			var body httpx.Message
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.message, body.Message)
		})
	}
}
