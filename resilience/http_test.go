package resilience

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/workhub/xerrors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{xerrors.ErrNotFound, http.StatusNotFound},
		{xerrors.Mark(xerrors.ErrConflict, "dup"), http.StatusConflict},
		{xerrors.ErrInvalidInput, http.StatusBadRequest},
		{xerrors.ErrUnauthorized, http.StatusUnauthorized},
		{xerrors.ErrForbidden, http.StatusForbidden},
		{xerrors.ErrUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, StatusClientClosedRequest},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestGuardHandle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)

	router := gin.New()
	router.GET("/users", func(c *gin.Context) {
		f.guard.Handle(c, "user-service", List, "", ok)
	})
	router.POST("/users", func(c *gin.Context) {
		f.guard.Handle(c, "user-service", Modify, "", fail(xerrors.Mark(xerrors.ErrConflict, "User already exists")))
	})
	router.GET("/boom", func(c *gin.Context) {
		f.guard.Handle(c, "user-service", List, "", fail(errDBDown))
	})

	decode := func(w *httptest.ResponseRecorder) map[string]any {
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"alice"}, decode(w)["data"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(w)
	assert.Equal(t, "User already exists", body["message"])
	assert.EqualValues(t, http.StatusConflict, body["status"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body = decode(w)
	assert.Equal(t, MessageListUnavailable, body["message"])
	assert.Equal(t, []any{}, body["data"])
}
