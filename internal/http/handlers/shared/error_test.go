package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/certvault/internal/service"

	"github.com/gin-gonic/gin"
)

func respondServiceErrorStatus(t *testing.T, err error) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	RespondServiceError(c, err)
	return w.Code
}

func TestRespondServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrPermissionDenied, http.StatusForbidden},
		{service.ErrDuplicateRecord, http.StatusBadRequest},
		{service.ErrValidation, http.StatusBadRequest},
		{service.ErrInvalidFile, http.StatusBadRequest},
		{service.ErrWeakPassword, http.StatusBadRequest},
		{service.NewValidationError("学号不能为空"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		if got := respondServiceErrorStatus(t, tc.err); got != tc.want {
			t.Fatalf("%v: want %d got %d", tc.err, tc.want, got)
		}
	}
}
