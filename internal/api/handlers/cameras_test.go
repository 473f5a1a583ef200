package handlers_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meritan/go-curator/internal/api/handlers"
	"github.com/meritan/go-curator/internal/api/middleware"
	"github.com/meritan/go-curator/internal/camera"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/ownership"
	"github.com/meritan/go-curator/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDevice answers every call with a fixed status or error.
type stubDevice struct {
	status    camera.ConnectionStatus
	statusErr error
}

func (d *stubDevice) Status(ctx context.Context) (*camera.DeviceStatus, error) {
	if d.statusErr != nil {
		return nil, d.statusErr
	}
	return &camera.DeviceStatus{Connection: d.status}, nil
}

func (d *stubDevice) Open(ctx context.Context, mode camera.Mode) (*camera.DeviceStatus, error) {
	return &camera.DeviceStatus{Connection: d.status, Mode: string(mode)}, nil
}

func (d *stubDevice) Close(ctx context.Context) (*camera.DeviceStatus, error) {
	return &camera.DeviceStatus{Connection: d.status}, nil
}

func (d *stubDevice) Capture(ctx context.Context) ([]byte, string, error) {
	return []byte("img"), "image/jpeg", nil
}

func setupCameraTestRouter(t *testing.T, device *stubDevice) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	factory := func(baseURL string, headers map[string]string) camera.DeviceClient {
		return device
	}
	svc := camera.NewService(tc.DB, tc.Encryptor, tc.Store, factory, slog.Default())

	r := chi.NewRouter()
	r.Use(middleware.Auth(tc.JWTService))

	handler := handlers.NewCameraHandler(tc.DB, ownership.NewResolver(tc.DB), svc)
	r.Route("/api/v1/cameras", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Get("/{id}", handler.Get)
		r.Delete("/{id}", handler.Delete)
		r.Post("/{id}/regenerate-key", handler.RegenerateKey)
		r.Get("/{id}/status", handler.Status)
		r.Post("/{id}/open", handler.Open)
		r.Post("/{id}/close", handler.Close)
		r.Post("/{id}/capture", handler.Capture)
	})

	return r, tc
}

func TestCameraHandler_Create(t *testing.T) {
	router, tc := setupCameraTestRouter(t, &stubDevice{status: camera.StatusOnline})

	t.Run("returns the api key exactly once", func(t *testing.T) {
		body := map[string]string{"name": "Studio Cam", "connection_url": "http://device.local:8080"}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/cameras", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp handlers.CameraResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.APIKey)

		// Subsequent reads never expose the key
		req = testutil.AuthenticatedRequest(t, "GET", "/api/v1/cameras/"+resp.ID, nil, tc.Token)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var got handlers.CameraResponse
		testutil.ParseJSONResponse(t, rr, &got)
		assert.Empty(t, got.APIKey)
	})

	t.Run("rejects bad connection url", func(t *testing.T) {
		body := map[string]string{"name": "Bad", "connection_url": "not-a-url"}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/cameras", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCameraHandler_DeviceErrorMapping(t *testing.T) {
	t.Run("offline device is 503 on open", func(t *testing.T) {
		router, tc := setupCameraTestRouter(t, &stubDevice{status: camera.StatusOffline})
		cam := testutil.CreateTestCamera(t, tc.DB, tc.Encryptor, tc.User.ID, "http://device.local")

		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/cameras/"+cam.ID.String()+"/open?mode=photo", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("rejected credentials are 401 on close", func(t *testing.T) {
		router, tc := setupCameraTestRouter(t, &stubDevice{statusErr: camera.ErrDeviceUnauthorized})
		cam := testutil.CreateTestCamera(t, tc.DB, tc.Encryptor, tc.User.ID, "http://device.local")

		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/cameras/"+cam.ID.String()+"/close", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unreachable device is 502 on capture", func(t *testing.T) {
		router, tc := setupCameraTestRouter(t, &stubDevice{statusErr: &camera.NetworkError{Op: "status", Err: context.DeadlineExceeded}})
		cam := testutil.CreateTestCamera(t, tc.DB, tc.Encryptor, tc.User.ID, "http://device.local")
		product := testutil.CreateTestProduct(t, tc.DB, tc.User.ID, "Sofa")

		body := map[string]string{"product_id": product.ID.String()}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/cameras/"+cam.ID.String()+"/capture", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("status endpoint reports non-online states with 200", func(t *testing.T) {
		router, tc := setupCameraTestRouter(t, &stubDevice{status: camera.StatusOffline})
		cam := testutil.CreateTestCamera(t, tc.DB, tc.Encryptor, tc.User.ID, "http://device.local")

		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/cameras/"+cam.ID.String()+"/status", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var status camera.DeviceStatus
		testutil.ParseJSONResponse(t, rr, &status)
		assert.Equal(t, camera.StatusOffline, status.Connection)
	})
}

func TestCameraHandler_Capture(t *testing.T) {
	router, tc := setupCameraTestRouter(t, &stubDevice{status: camera.StatusOnline})
	cam := testutil.CreateTestCamera(t, tc.DB, tc.Encryptor, tc.User.ID, "http://device.local")
	product := testutil.CreateTestProduct(t, tc.DB, tc.User.ID, "Table")

	t.Run("stores the capture and links the file", func(t *testing.T) {
		body := map[string]string{"product_id": product.ID.String()}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/cameras/"+cam.ID.String()+"/capture", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp handlers.FileResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, product.ID.String(), resp.ProductID)
		require.NotNil(t, resp.CameraID)
		assert.Equal(t, cam.ID.String(), *resp.CameraID)
		assert.Equal(t, 1, tc.Store.Len())
	})

	t.Run("capturing into someone else's product is 403", func(t *testing.T) {
		other := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleMember)
		theirs := testutil.CreateTestProduct(t, tc.DB, other.ID, "Not Yours")

		body := map[string]string{"product_id": theirs.ID.String()}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/cameras/"+cam.ID.String()+"/capture", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestCameraHandler_Ownership(t *testing.T) {
	router, tc := setupCameraTestRouter(t, &stubDevice{status: camera.StatusOnline})

	other := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleMember)
	theirs := testutil.CreateTestCamera(t, tc.DB, tc.Encryptor, other.ID, "http://device.local")

	t.Run("unknown camera is 404", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/cameras/"+uuid.New().String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("someone else's camera is 403", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/cameras/"+theirs.ID.String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("device control on someone else's camera is 403 before any device call", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/cameras/"+theirs.ID.String()+"/open?mode=photo", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
