package camera_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/meritan/go-curator/internal/camera"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice counts calls so tests can prove the liveness gate fails fast
// without issuing the downstream request.
type fakeDevice struct {
	status    camera.ConnectionStatus
	statusErr error

	statusCalls  int
	openCalls    int
	closeCalls   int
	captureCalls int
}

func (f *fakeDevice) Status(ctx context.Context) (*camera.DeviceStatus, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &camera.DeviceStatus{Connection: f.status}, nil
}

func (f *fakeDevice) Open(ctx context.Context, mode camera.Mode) (*camera.DeviceStatus, error) {
	f.openCalls++
	return &camera.DeviceStatus{Connection: f.status, Mode: string(mode)}, nil
}

func (f *fakeDevice) Close(ctx context.Context) (*camera.DeviceStatus, error) {
	f.closeCalls++
	return &camera.DeviceStatus{Connection: f.status}, nil
}

func (f *fakeDevice) Capture(ctx context.Context) ([]byte, string, error) {
	f.captureCalls++
	return []byte{0xff, 0xd8, 0xff}, "image/jpeg", nil
}

func setupCameraService(t *testing.T, device *fakeDevice) (*camera.Service, *testutil.TestSetup, *models.Camera) {
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	factory := func(baseURL string, headers map[string]string) camera.DeviceClient {
		return device
	}
	svc := camera.NewService(tc.DB, tc.Encryptor, tc.Store, factory, slog.Default())
	cam := testutil.CreateTestCamera(t, tc.DB, tc.Encryptor, tc.User.ID, "http://device.local")
	return svc, tc, cam
}

func TestServiceCreateCamera(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	svc := camera.NewService(tc.DB, tc.Encryptor, tc.Store, camera.NewClientFactory(0), slog.Default())

	cam, apiKey, err := svc.CreateCamera(ctx, tc.User.ID, "Studio", "http://device.local", map[string]string{"X-Extra": "v"})
	require.NoError(t, err)
	assert.NotEmpty(t, apiKey)
	assert.NotEmpty(t, cam.EncryptedAPIKey)
	assert.NotEmpty(t, cam.EncryptedAuthHeaders)

	// Stored key is ciphertext, never the plaintext
	assert.NotContains(t, string(cam.EncryptedAPIKey), apiKey)

	decrypted, err := tc.Encryptor.DecryptString(cam.EncryptedAPIKey)
	require.NoError(t, err)
	assert.Equal(t, apiKey, decrypted)

	t.Run("regenerate replaces the key", func(t *testing.T) {
		newKey, err := svc.RegenerateKey(ctx, cam)
		require.NoError(t, err)
		assert.NotEqual(t, apiKey, newKey)

		var reloaded models.Camera
		require.NoError(t, tc.DB.First(&reloaded, "id = ?", cam.ID).Error)
		decrypted, err := tc.Encryptor.DecryptString(reloaded.EncryptedAPIKey)
		require.NoError(t, err)
		assert.Equal(t, newKey, decrypted)
	})
}

func TestServiceLivenessGate(t *testing.T) {
	ctx := context.Background()

	t.Run("offline device blocks open without calling it", func(t *testing.T) {
		device := &fakeDevice{status: camera.StatusOffline}
		svc, _, cam := setupCameraService(t, device)

		_, err := svc.Open(ctx, cam, camera.ModePhoto)
		assert.ErrorIs(t, err, camera.ErrDeviceOffline)
		assert.Equal(t, 1, device.statusCalls)
		assert.Equal(t, 0, device.openCalls)
	})

	t.Run("offline device blocks close", func(t *testing.T) {
		device := &fakeDevice{status: camera.StatusOffline}
		svc, _, cam := setupCameraService(t, device)

		_, err := svc.CloseDevice(ctx, cam)
		assert.ErrorIs(t, err, camera.ErrDeviceOffline)
		assert.Equal(t, 0, device.closeCalls)
	})

	t.Run("offline device blocks capture", func(t *testing.T) {
		device := &fakeDevice{status: camera.StatusOffline}
		svc, tc, cam := setupCameraService(t, device)

		product := testutil.CreateTestProduct(t, tc.DB, tc.User.ID, "Lamp")
		_, err := svc.Capture(ctx, cam, product.ID, models.FileKindImage)
		assert.ErrorIs(t, err, camera.ErrDeviceOffline)
		assert.Equal(t, 0, device.captureCalls)
		assert.Equal(t, 0, tc.Store.Len())
	})

	t.Run("unauthorized status blocks actions", func(t *testing.T) {
		device := &fakeDevice{statusErr: camera.ErrDeviceUnauthorized}
		svc, _, cam := setupCameraService(t, device)

		_, err := svc.Open(ctx, cam, camera.ModePhoto)
		assert.ErrorIs(t, err, camera.ErrDeviceUnauthorized)
		assert.Equal(t, 0, device.openCalls)
	})

	t.Run("network failure surfaces as unreachable", func(t *testing.T) {
		device := &fakeDevice{statusErr: &camera.NetworkError{Op: "status", Err: context.DeadlineExceeded}}
		svc, _, cam := setupCameraService(t, device)

		_, err := svc.Open(ctx, cam, camera.ModePhoto)
		assert.ErrorIs(t, err, camera.ErrDeviceUnreachable)
		assert.Equal(t, 0, device.openCalls)
	})

	t.Run("online device lets actions through", func(t *testing.T) {
		device := &fakeDevice{status: camera.StatusOnline}
		svc, _, cam := setupCameraService(t, device)

		status, err := svc.Open(ctx, cam, camera.ModeVideo)
		require.NoError(t, err)
		assert.Equal(t, "video", status.Mode)
		assert.Equal(t, 1, device.statusCalls)
		assert.Equal(t, 1, device.openCalls)
	})
}

func TestServiceStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("reports device status verbatim", func(t *testing.T) {
		device := &fakeDevice{status: camera.StatusOnline}
		svc, _, cam := setupCameraService(t, device)

		status, err := svc.Status(ctx, cam)
		require.NoError(t, err)
		assert.Equal(t, camera.StatusOnline, status.Connection)
	})

	t.Run("network failure becomes an unreachable status, not an error", func(t *testing.T) {
		device := &fakeDevice{statusErr: &camera.NetworkError{Op: "status", Err: context.DeadlineExceeded}}
		svc, _, cam := setupCameraService(t, device)

		status, err := svc.Status(ctx, cam)
		require.NoError(t, err)
		assert.Equal(t, camera.StatusUnreachable, status.Connection)
	})

	t.Run("rejected credentials become an unauthorized status", func(t *testing.T) {
		device := &fakeDevice{statusErr: camera.ErrDeviceUnauthorized}
		svc, _, cam := setupCameraService(t, device)

		status, err := svc.Status(ctx, cam)
		require.NoError(t, err)
		assert.Equal(t, camera.StatusUnauthorized, status.Connection)
	})
}

func TestServiceCapture(t *testing.T) {
	ctx := context.Background()

	device := &fakeDevice{status: camera.StatusOnline}
	svc, tc, cam := setupCameraService(t, device)
	product := testutil.CreateTestProduct(t, tc.DB, tc.User.ID, "Desk")

	file, err := svc.Capture(ctx, cam, product.ID, models.FileKindImage)
	require.NoError(t, err)

	assert.Equal(t, product.ID, file.ProductID)
	assert.Equal(t, models.FileKindImage, file.Kind)
	assert.Equal(t, "image/jpeg", file.ContentType)
	assert.Equal(t, int64(3), file.SizeBytes)
	require.NotNil(t, file.CameraID)
	assert.Equal(t, cam.ID, *file.CameraID)

	// One status check plus one capture, nothing more
	assert.Equal(t, 1, device.statusCalls)
	assert.Equal(t, 1, device.captureCalls)

	// Bytes landed in the object store under the recorded key
	assert.Equal(t, 1, tc.Store.Len())
	data, err := tc.Store.Get(ctx, file.ObjectKey)
	require.NoError(t, err)
	assert.Len(t, data, 3)

	// And the row is queryable
	var count int64
	require.NoError(t, tc.DB.Model(&models.File{}).Where("product_id = ?", product.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
