package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/meritan/go-curator/internal/api/handlers"
	"github.com/meritan/go-curator/internal/api/middleware"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/ownership"
	"github.com/meritan/go-curator/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func setupReferenceTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	r := chi.NewRouter()
	r.Use(middleware.Auth(tc.JWTService))

	handler := handlers.NewReferenceHandler(tc.DB, ownership.NewResolver(tc.DB))
	r.Route("/api/v1/materials", func(r chi.Router) {
		r.Get("/", handler.ListMaterials)
		r.Post("/", handler.CreateMaterial)
		r.Get("/{id}", handler.GetMaterial)
	})

	return r, tc
}

func TestReferenceHandler_OrgOwnerGating(t *testing.T) {
	router, tc := setupReferenceTestRouter(t)

	member := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleMember)
	memberToken := testutil.GenerateTestToken(t, tc.JWTService, member)

	t.Run("org owner can create", func(t *testing.T) {
		body := map[string]string{"name": "Oak"}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/materials", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("duplicate name is 409", func(t *testing.T) {
		body := map[string]string{"name": "Oak"}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/materials", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("member cannot create", func(t *testing.T) {
		body := map[string]string{"name": "Pine"}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/materials", body, memberToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("member can read", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/materials", nil, memberToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var materials []models.Material
		testutil.ParseJSONResponse(t, rr, &materials)
		assert.Len(t, materials, 1)
	})
}
