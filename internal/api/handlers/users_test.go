package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugh/go-accounts/internal/api/dto"
	"github.com/hugh/go-accounts/internal/database/models"
	"github.com/hugh/go-accounts/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler_Me(t *testing.T) {
	env := setupTestRouter(t)
	user := testutil.CreateTestUser(t, env.DB)
	token := testutil.GenerateTestToken(t, env.JWT, user)

	t.Run("returns own profile", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users/me", nil, token)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.UserResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, user.ExternalID.String(), resp.ID)
		assert.Equal(t, user.Email, resp.Email)
		assert.NotContains(t, rr.Body.String(), "password_hash")
		assert.NotContains(t, rr.Body.String(), "verification_code")
	})

	t.Run("no token", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "GET", "/api/v1/users/me", nil)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("deactivated user", func(t *testing.T) {
		inactive := testutil.CreateTestUser(t, env.DB, testutil.Inactive())
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users/me", nil, testutil.GenerateTestToken(t, env.JWT, inactive))
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestUserHandler_List(t *testing.T) {
	env := setupTestRouter(t)
	admin := testutil.CreateTestUser(t, env.DB, testutil.AsAdmin(), testutil.Verified())
	user := testutil.CreateTestUser(t, env.DB)
	testutil.CreateTestUser(t, env.DB)
	testutil.CreateTestUser(t, env.DB, testutil.Verified())

	adminToken := testutil.GenerateTestToken(t, env.JWT, admin)

	t.Run("admin lists all users", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users?page=1&page_size=2", nil, adminToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.UserListResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Len(t, resp.Users, 2)
		assert.Equal(t, int64(4), resp.Total)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, 2, resp.PageSize)
		assert.Equal(t, 2, resp.TotalPages)
	})

	t.Run("defaults apply", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users", nil, adminToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.UserListResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, dto.DefaultPageSize, resp.PageSize)
	})

	t.Run("filters", func(t *testing.T) {
		tests := []struct {
			query string
			total int64
		}{
			{"is_verified=true", 2},
			{"is_verified=false", 2},
			{"role=admin", 1},
			{"role=user&is_verified=false", 2},
		}

		for _, tt := range tests {
			req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users?"+tt.query, nil, adminToken)
			rr := httptest.NewRecorder()
			env.Router.ServeHTTP(rr, req)

			require.Equal(t, http.StatusOK, rr.Code, tt.query)

			var resp dto.UserListResponse
			testutil.ParseJSONResponse(t, rr, &resp)
			assert.Equal(t, tt.total, resp.Total, tt.query)
		}
	})

	t.Run("invalid query", func(t *testing.T) {
		for _, query := range []string{"page=abc", "page=0", "page_size=101", "is_verified=maybe", "role=owner"} {
			req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users?"+query, nil, adminToken)
			rr := httptest.NewRecorder()
			env.Router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, query)
		}
	})

	t.Run("query errors reported together", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users?page=abc&is_verified=maybe&role=owner", nil, adminToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "role must be one of: user, admin", resp.Details["role"])
		assert.Contains(t, resp.Details, "page")
		assert.Contains(t, resp.Details, "is_verified")
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users", nil, testutil.GenerateTestToken(t, env.JWT, user))
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestUserHandler_Get(t *testing.T) {
	env := setupTestRouter(t)
	admin := testutil.CreateTestUser(t, env.DB, testutil.AsAdmin())
	user := testutil.CreateTestUser(t, env.DB)
	adminToken := testutil.GenerateTestToken(t, env.JWT, admin)

	t.Run("found", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users/"+user.ExternalID.String(), nil, adminToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.UserResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, user.Email, resp.Email)
	})

	t.Run("not found", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users/00000000-0000-0000-0000-000000000000", nil, adminToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users/not-a-uuid", nil, adminToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

func TestUserHandler_Update(t *testing.T) {
	env := setupTestRouter(t)
	admin := testutil.CreateTestUser(t, env.DB, testutil.AsAdmin())
	user := testutil.CreateTestUser(t, env.DB, testutil.WithEmail("owner@example.com"))
	other := testutil.CreateTestUser(t, env.DB, testutil.WithEmail("taken@example.com"))
	userToken := testutil.GenerateTestToken(t, env.JWT, user)
	path := "/api/v1/users/" + user.ExternalID.String()

	t.Run("self update clears last name", func(t *testing.T) {
		body := map[string]interface{}{"first_name": "Renamed", "last_name": nil}
		req := testutil.AuthenticatedRequest(t, "PATCH", path, body, userToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.UserResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.NotNil(t, resp.FirstName)
		assert.Equal(t, "Renamed", *resp.FirstName)
		assert.Nil(t, resp.LastName)
		assert.Equal(t, "owner@example.com", resp.Email)
	})

	t.Run("email in use", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "PATCH", path, map[string]string{"email": "taken@example.com"}, userToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("null email", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "PATCH", path, map[string]interface{}{"email": nil}, userToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("other user forbidden", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "PATCH", "/api/v1/users/"+other.ExternalID.String(), map[string]string{"first_name": "X"}, userToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("admin updates other user", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "PATCH", "/api/v1/users/"+other.ExternalID.String(),
			map[string]string{"email": "moved@example.com"}, testutil.GenerateTestToken(t, env.JWT, admin))
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.UserResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "moved@example.com", resp.Email)
	})
}

func TestUserHandler_Delete(t *testing.T) {
	env := setupTestRouter(t)
	admin := testutil.CreateTestUser(t, env.DB, testutil.AsAdmin())
	user := testutil.CreateTestUser(t, env.DB)
	adminToken := testutil.GenerateTestToken(t, env.JWT, admin)

	t.Run("self deletion rejected", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/users/"+admin.ExternalID.String(), nil, adminToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/users/"+admin.ExternalID.String(), nil, testutil.GenerateTestToken(t, env.JWT, user))
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("deletes user", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/users/"+user.ExternalID.String(), nil, adminToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)

		var count int64
		env.DB.Model(&models.User{}).Where("id = ?", user.ID).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("already deleted", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/users/"+user.ExternalID.String(), nil, adminToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestUserHandler_ActivationAndRole(t *testing.T) {
	env := setupTestRouter(t)
	admin := testutil.CreateTestUser(t, env.DB, testutil.AsAdmin())
	user := testutil.CreateTestUser(t, env.DB)
	other := testutil.CreateTestUser(t, env.DB)
	adminToken := testutil.GenerateTestToken(t, env.JWT, admin)
	userToken := testutil.GenerateTestToken(t, env.JWT, user)

	t.Run("user cannot deactivate others", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/users/"+other.ExternalID.String()+"/deactivate", nil, userToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("user deactivates self", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/users/"+user.ExternalID.String()+"/deactivate", nil, userToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.UserResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.False(t, resp.IsActive)
	})

	t.Run("deactivated token no longer works", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/users/me", nil, userToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("admin activates", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/users/"+user.ExternalID.String()+"/activate", nil, adminToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.UserResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.True(t, resp.IsActive)
	})

	t.Run("admin promotes", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/users/"+other.ExternalID.String()+"/role", map[string]string{"role": "admin"}, adminToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.UserResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, models.RoleAdmin, resp.Role)
	})

	t.Run("unknown role", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/users/"+other.ExternalID.String()+"/role", map[string]string{"role": "owner"}, adminToken)
		rr := httptest.NewRecorder()
		env.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}
