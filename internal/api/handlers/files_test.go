package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meritan/go-curator/internal/api/handlers"
	"github.com/meritan/go-curator/internal/api/middleware"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/ownership"
	"github.com/meritan/go-curator/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFileTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	r := chi.NewRouter()
	r.Use(middleware.Auth(tc.JWTService))

	handler := handlers.NewFileHandler(tc.DB, ownership.NewResolver(tc.DB), tc.Store)
	r.Route("/api/v1/products/{productID}/files", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Upload)
		r.Get("/{fileID}", handler.Get)
		r.Get("/{fileID}/content", handler.Content)
		r.Delete("/{fileID}", handler.Delete)
	})

	return r, tc
}

func uploadRequest(t *testing.T, path, contentType string, data []byte, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestFileHandler_Upload(t *testing.T) {
	router, tc := setupFileTestRouter(t)
	product := testutil.CreateTestProduct(t, tc.DB, tc.User.ID, "Lamp")
	base := "/api/v1/products/" + product.ID.String() + "/files"

	t.Run("stores an image", func(t *testing.T) {
		req := uploadRequest(t, base+"?name=front.jpg", "image/jpeg", []byte("jpegdata"), tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp handlers.FileResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "image", resp.Kind)
		assert.Equal(t, "front.jpg", resp.Name)
		assert.Equal(t, int64(8), resp.SizeBytes)
		assert.Equal(t, 1, tc.Store.Len())
	})

	t.Run("rejects non media content type", func(t *testing.T) {
		req := uploadRequest(t, base, "application/pdf", []byte("%PDF"), tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects empty body", func(t *testing.T) {
		req := uploadRequest(t, base, "image/png", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("uploading to someone else's product is 403", func(t *testing.T) {
		other := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleMember)
		theirs := testutil.CreateTestProduct(t, tc.DB, other.ID, "Not Yours")

		req := uploadRequest(t, "/api/v1/products/"+theirs.ID.String()+"/files", "image/jpeg", []byte("x"), tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestFileHandler_Content(t *testing.T) {
	router, tc := setupFileTestRouter(t)
	product := testutil.CreateTestProduct(t, tc.DB, tc.User.ID, "Vase")
	base := "/api/v1/products/" + product.ID.String() + "/files"

	req := uploadRequest(t, base+"?name=side.png", "image/png", []byte("pngbytes"), tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var uploaded handlers.FileResponse
	testutil.ParseJSONResponse(t, rr, &uploaded)

	req = testutil.AuthenticatedRequest(t, "GET", base+"/"+uploaded.ID+"/content", nil, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, "pngbytes", rr.Body.String())
}

func TestFileHandler_DependentResolution(t *testing.T) {
	router, tc := setupFileTestRouter(t)

	product := testutil.CreateTestProduct(t, tc.DB, tc.User.ID, "Mine")
	file := testutil.CreateTestFile(t, tc.DB, product.ID, models.FileKindImage)

	other := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleMember)
	theirProduct := testutil.CreateTestProduct(t, tc.DB, other.ID, "Theirs")
	theirFile := testutil.CreateTestFile(t, tc.DB, theirProduct.ID, models.FileKindImage)

	t.Run("unknown file under owned product is 404", func(t *testing.T) {
		path := "/api/v1/products/" + product.ID.String() + "/files/" + uuid.New().String()
		req := testutil.AuthenticatedRequest(t, "GET", path, nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("file under someone else's product is 403 at the product hop", func(t *testing.T) {
		path := "/api/v1/products/" + theirProduct.ID.String() + "/files/" + theirFile.ID.String()
		req := testutil.AuthenticatedRequest(t, "GET", path, nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("stray file addressed through an owned product is 403", func(t *testing.T) {
		path := "/api/v1/products/" + product.ID.String() + "/files/" + theirFile.ID.String()
		req := testutil.AuthenticatedRequest(t, "GET", path, nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("owned file resolves", func(t *testing.T) {
		path := "/api/v1/products/" + product.ID.String() + "/files/" + file.ID.String()
		req := testutil.AuthenticatedRequest(t, "GET", path, nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestFileHandler_Delete(t *testing.T) {
	router, tc := setupFileTestRouter(t)
	product := testutil.CreateTestProduct(t, tc.DB, tc.User.ID, "Desk")
	base := "/api/v1/products/" + product.ID.String() + "/files"

	req := uploadRequest(t, base, "image/jpeg", []byte("gone"), tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var uploaded handlers.FileResponse
	testutil.ParseJSONResponse(t, rr, &uploaded)
	require.Equal(t, 1, tc.Store.Len())

	req = testutil.AuthenticatedRequest(t, "DELETE", base+"/"+uploaded.ID, nil, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, tc.Store.Len())

	var count int64
	require.NoError(t, tc.DB.Model(&models.File{}).Where("id = ?", uploaded.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
