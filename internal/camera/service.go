package camera

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/observability"
	"github.com/meritan/go-curator/internal/storage"
	"github.com/meritan/go-curator/pkg/crypto"
	"gorm.io/gorm"
)

// APIKeyHeader is the header the device expects the stored API key in.
const APIKeyHeader = "X-Api-Key"

// Service manages cameras and mediates all interaction with their remote
// devices. Every open/close/capture re-checks liveness first and fails fast
// on a non-online status without issuing the downstream request: one extra
// round trip buys unambiguous error attribution.
type Service struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
	store     storage.ObjectStore
	clients   ClientFactory
	logger    *slog.Logger
}

func NewService(db *gorm.DB, encryptor *crypto.Encryptor, store storage.ObjectStore, clients ClientFactory, logger *slog.Logger) *Service {
	return &Service{
		db:        db,
		encryptor: encryptor,
		store:     store,
		clients:   clients,
		logger:    logger,
	}
}

// CreateCamera stores a new camera with a freshly generated API key. The
// plaintext key is returned exactly once; afterwards only the ciphertext
// exists.
func (s *Service) CreateCamera(ctx context.Context, ownerID uuid.UUID, name, connectionURL string, authHeaders map[string]string) (*models.Camera, string, error) {
	apiKey, err := crypto.NewAPIKey()
	if err != nil {
		return nil, "", err
	}

	encKey, err := s.encryptor.EncryptString(apiKey)
	if err != nil {
		return nil, "", fmt.Errorf("encrypting api key: %w", err)
	}

	cam := &models.Camera{
		OwnerID:         ownerID,
		Name:            name,
		ConnectionURL:   connectionURL,
		EncryptedAPIKey: encKey,
		IsActive:        true,
	}

	if len(authHeaders) > 0 {
		encHeaders, err := s.encryptor.EncryptJSON(authHeaders)
		if err != nil {
			return nil, "", fmt.Errorf("encrypting auth headers: %w", err)
		}
		cam.EncryptedAuthHeaders = encHeaders
	}

	if err := s.db.WithContext(ctx).Create(cam).Error; err != nil {
		return nil, "", fmt.Errorf("saving camera: %w", err)
	}

	s.logger.Info("created camera", "id", cam.ID, "name", name)
	return cam, apiKey, nil
}

// RegenerateKey replaces the camera's API key and returns the new plaintext.
func (s *Service) RegenerateKey(ctx context.Context, cam *models.Camera) (string, error) {
	apiKey, err := crypto.NewAPIKey()
	if err != nil {
		return "", err
	}
	encKey, err := s.encryptor.EncryptString(apiKey)
	if err != nil {
		return "", fmt.Errorf("encrypting api key: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(cam).Update("encrypted_api_key", encKey).Error; err != nil {
		return "", fmt.Errorf("saving api key: %w", err)
	}

	s.logger.Info("regenerated camera api key", "id", cam.ID)
	return apiKey, nil
}

// Status queries the device's live status. Transport failures are reported
// as an unreachable status rather than an error so callers get one uniform
// shape.
func (s *Service) Status(ctx context.Context, cam *models.Camera) (*DeviceStatus, error) {
	client, err := s.clientFor(cam)
	if err != nil {
		return nil, err
	}
	return s.status(ctx, client)
}

// Open asks the device to enter photo or video mode, gated on liveness.
func (s *Service) Open(ctx context.Context, cam *models.Camera, mode Mode) (*DeviceStatus, error) {
	client, err := s.clientFor(cam)
	if err != nil {
		return nil, err
	}
	if err := s.requireOnline(ctx, client); err != nil {
		return nil, err
	}
	return client.Open(ctx, mode)
}

// CloseDevice releases device resources, gated on liveness.
func (s *Service) CloseDevice(ctx context.Context, cam *models.Camera) (*DeviceStatus, error) {
	client, err := s.clientFor(cam)
	if err != nil {
		return nil, err
	}
	if err := s.requireOnline(ctx, client); err != nil {
		return nil, err
	}
	return client.Close(ctx)
}

// Capture takes one capture from the device, stores the bytes in the object
// store and links the resulting file to the given product. A single
// request/response interaction, gated on liveness like every other call.
func (s *Service) Capture(ctx context.Context, cam *models.Camera, productID uuid.UUID, kind models.FileKind) (*models.File, error) {
	client, err := s.clientFor(cam)
	if err != nil {
		return nil, err
	}
	if err := s.requireOnline(ctx, client); err != nil {
		return nil, err
	}

	start := time.Now()
	data, contentType, err := client.Capture(ctx)
	if err != nil {
		return nil, err
	}
	observability.CaptureDuration.Observe(time.Since(start).Seconds())

	key := fmt.Sprintf("products/%s/captures/%s", productID, uuid.New())
	if err := s.store.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("storing capture: %w", err)
	}

	camID := cam.ID
	file := &models.File{
		ProductID:   productID,
		Kind:        kind,
		Name:        fmt.Sprintf("capture-%s", time.Now().UTC().Format("20060102-150405")),
		ObjectKey:   key,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		CameraID:    &camID,
	}
	if err := s.db.WithContext(ctx).Create(file).Error; err != nil {
		return nil, fmt.Errorf("saving file record: %w", err)
	}

	s.logger.Info("captured file",
		"camera_id", cam.ID,
		"product_id", productID,
		"file_id", file.ID,
		"size", file.SizeBytes,
	)
	return file, nil
}

// requireOnline is the fail-fast liveness gate: one status request, and only
// an online answer lets the action through.
func (s *Service) requireOnline(ctx context.Context, client DeviceClient) error {
	status, err := s.status(ctx, client)
	if err != nil {
		return err
	}
	return status.Connection.ToError()
}

func (s *Service) status(ctx context.Context, client DeviceClient) (*DeviceStatus, error) {
	status, err := client.Status(ctx)
	if err != nil {
		if _, ok := err.(*NetworkError); ok {
			observability.DeviceRequests.WithLabelValues("status", "network_error").Inc()
			return &DeviceStatus{Connection: StatusUnreachable}, nil
		}
		if err == ErrDeviceUnauthorized {
			observability.DeviceRequests.WithLabelValues("status", "unauthorized").Inc()
			return &DeviceStatus{Connection: StatusUnauthorized}, nil
		}
		return nil, err
	}
	observability.DeviceRequests.WithLabelValues("status", string(status.Connection)).Inc()
	return status, nil
}

// clientFor decrypts the camera's credentials and builds a device client.
func (s *Service) clientFor(cam *models.Camera) (DeviceClient, error) {
	apiKey, err := s.encryptor.DecryptString(cam.EncryptedAPIKey)
	if err != nil {
		return nil, fmt.Errorf("decrypting api key: %w", err)
	}

	headers := map[string]string{APIKeyHeader: apiKey}
	if len(cam.EncryptedAuthHeaders) > 0 {
		var extra map[string]string
		if err := s.encryptor.DecryptJSON(cam.EncryptedAuthHeaders, &extra); err != nil {
			return nil, fmt.Errorf("decrypting auth headers: %w", err)
		}
		for k, v := range extra {
			headers[k] = v
		}
	}

	return s.clients(cam.ConnectionURL, headers), nil
}
