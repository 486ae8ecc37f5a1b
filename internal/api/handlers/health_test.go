package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugh/go-accounts/internal/api/handlers"
	"github.com/hugh/go-accounts/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := handlers.NewHealthHandler(db, nil)

	t.Run("health reports database", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Health(rr, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp handlers.HealthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "healthy", resp.Services["database"])
		assert.NotContains(t, resp.Services, "redis")
	})

	t.Run("ready", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Ready(rr, httptest.NewRequest("GET", "/ready", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ok", rr.Body.String())
	})
}
