package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meritan/go-curator/internal/api/dto"
	"github.com/meritan/go-curator/internal/api/handlers"
	"github.com/meritan/go-curator/internal/api/middleware"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/ownership"
	"github.com/meritan/go-curator/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProductTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	r := chi.NewRouter()
	r.Use(middleware.Auth(tc.JWTService))

	handler := handlers.NewProductHandler(tc.DB, ownership.NewResolver(tc.DB))
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Get("/{id}", handler.Get)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
	})

	return r, tc
}

func TestProductHandler_Create(t *testing.T) {
	router, tc := setupProductTestRouter(t)

	t.Run("creates product", func(t *testing.T) {
		body := map[string]interface{}{"name": "Oak Chair", "gtin": "1234567890123"}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/products", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp handlers.ProductResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Oak Chair", resp.Name)
		assert.Equal(t, "1234567890123", resp.GTIN)
	})

	t.Run("rejects missing name", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/products", map[string]string{}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects malformed gtin", func(t *testing.T) {
		body := map[string]string{"name": "Bad GTIN", "gtin": "12ab"}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/products", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects dangling category reference", func(t *testing.T) {
		body := map[string]interface{}{"name": "Lost", "category_id": uuid.New().String()}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/products", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects unauthenticated", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/products", map[string]string{"name": "x"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestProductHandler_ListScopedToOwner(t *testing.T) {
	router, tc := setupProductTestRouter(t)

	other := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleMember)
	testutil.CreateTestProduct(t, tc.DB, tc.User.ID, "Mine 1")
	testutil.CreateTestProduct(t, tc.DB, tc.User.ID, "Mine 2")
	testutil.CreateTestProduct(t, tc.DB, other.ID, "Theirs")

	req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/products", nil, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp dto.PaginatedResponse
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
}

func TestProductHandler_OwnershipStatuses(t *testing.T) {
	router, tc := setupProductTestRouter(t)

	other := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleMember)
	theirs := testutil.CreateTestProduct(t, tc.DB, other.ID, "Theirs")

	t.Run("missing product is 404", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/products/"+uuid.New().String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("someone else's product is 403, not 404", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/products/"+theirs.ID.String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("delete is blocked the same way", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/products/"+theirs.ID.String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)

		var count int64
		require.NoError(t, tc.DB.Model(&models.Product{}).Where("id = ?", theirs.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestProductHandler_Update(t *testing.T) {
	router, tc := setupProductTestRouter(t)

	product := testutil.CreateTestProduct(t, tc.DB, tc.User.ID, "Before")

	body := map[string]interface{}{"name": "After", "description": "renamed"}
	req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/products/"+product.ID.String(), body, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var reloaded models.Product
	require.NoError(t, tc.DB.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, "After", reloaded.Name)
	assert.Equal(t, "renamed", reloaded.Description)
}
