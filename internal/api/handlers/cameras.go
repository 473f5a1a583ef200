package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meritan/go-curator/internal/api/dto"
	"github.com/meritan/go-curator/internal/api/middleware"
	"github.com/meritan/go-curator/internal/api/validation"
	"github.com/meritan/go-curator/internal/camera"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/ownership"
	"gorm.io/gorm"
)

type CameraHandler struct {
	db       *gorm.DB
	resolver *ownership.Resolver
	service  *camera.Service
}

func NewCameraHandler(db *gorm.DB, resolver *ownership.Resolver, service *camera.Service) *CameraHandler {
	return &CameraHandler{db: db, resolver: resolver, service: service}
}

type CreateCameraRequest struct {
	Name          string            `json:"name"`
	ConnectionURL string            `json:"connection_url"`
	AuthHeaders   map[string]string `json:"auth_headers,omitempty"`
}

func (r CreateCameraRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	if r.ConnectionURL == "" {
		errors["connection_url"] = "Connection URL is required"
	} else if !validation.IsValidDeviceURL(r.ConnectionURL) {
		errors["connection_url"] = "Connection URL must be an absolute http(s) URL"
	}
	return errors
}

type CameraResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ConnectionURL string `json:"connection_url"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     string `json:"created_at"`

	// Set only on create and key regeneration; never retrievable later.
	APIKey string `json:"api_key,omitempty"`
}

func cameraToResponse(c *models.Camera) CameraResponse {
	return CameraResponse{
		ID:            c.ID.String(),
		Name:          c.Name,
		ConnectionURL: c.ConnectionURL,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt.Format(time.RFC3339),
	}
}

// List handles GET /api/v1/cameras
func (h *CameraHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var cameras []models.Camera
	if err := h.db.Where("owner_id = ?", userID).Order("created_at DESC").Find(&cameras).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list cameras"})
		return
	}

	response := make([]CameraResponse, len(cameras))
	for i := range cameras {
		response[i] = cameraToResponse(&cameras[i])
	}
	writeJSON(w, http.StatusOK, response)
}

// Create handles POST /api/v1/cameras
func (h *CameraHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateCameraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	cam, apiKey, err := h.service.CreateCamera(r.Context(), userID, strings.TrimSpace(req.Name), req.ConnectionURL, req.AuthHeaders)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create camera"})
		return
	}

	resp := cameraToResponse(cam)
	resp.APIKey = apiKey
	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /api/v1/cameras/:id
func (h *CameraHandler) Get(w http.ResponseWriter, r *http.Request) {
	cam, ok := h.resolveCamera(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cameraToResponse(cam))
}

// Delete handles DELETE /api/v1/cameras/:id
func (h *CameraHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cam, ok := h.resolveCamera(w, r)
	if !ok {
		return
	}

	if err := h.db.Delete(cam).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete camera"})
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Camera deleted"})
}

// RegenerateKey handles POST /api/v1/cameras/:id/regenerate-key
func (h *CameraHandler) RegenerateKey(w http.ResponseWriter, r *http.Request) {
	cam, ok := h.resolveCamera(w, r)
	if !ok {
		return
	}

	apiKey, err := h.service.RegenerateKey(r.Context(), cam)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to regenerate key"})
		return
	}

	resp := cameraToResponse(cam)
	resp.APIKey = apiKey
	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /api/v1/cameras/:id/status
//
// Unlike the control endpoints, a non-online device is not an error here:
// the caller asked what the status is and gets the answer with a 200.
func (h *CameraHandler) Status(w http.ResponseWriter, r *http.Request) {
	cam, ok := h.resolveCamera(w, r)
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), cam)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Open handles POST /api/v1/cameras/:id/open?mode=photo|video
func (h *CameraHandler) Open(w http.ResponseWriter, r *http.Request) {
	cam, ok := h.resolveCamera(w, r)
	if !ok {
		return
	}

	mode, err := camera.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Mode must be photo or video"})
		return
	}

	status, err := h.service.Open(r.Context(), cam, mode)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Close handles POST /api/v1/cameras/:id/close
func (h *CameraHandler) Close(w http.ResponseWriter, r *http.Request) {
	cam, ok := h.resolveCamera(w, r)
	if !ok {
		return
	}

	status, err := h.service.CloseDevice(r.Context(), cam)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type CaptureRequest struct {
	ProductID string `json:"product_id"`
	Kind      string `json:"kind,omitempty"` // image (default) or video
}

// Capture handles POST /api/v1/cameras/:id/capture
//
// The caller must own both the camera and the target product.
func (h *CameraHandler) Capture(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	cam, ok := h.resolveCamera(w, r)
	if !ok {
		return
	}

	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	var product models.Product
	if err := h.resolver.ResolveOwned(r.Context(), &product, productID, userID); err != nil {
		writeOwnershipError(w, err, "product")
		return
	}

	kind := models.FileKindImage
	if req.Kind != "" {
		switch models.FileKind(req.Kind) {
		case models.FileKindImage, models.FileKindVideo:
			kind = models.FileKind(req.Kind)
		default:
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Kind must be image or video"})
			return
		}
	}

	file, err := h.service.Capture(r.Context(), cam, productID, kind)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fileToResponse(file))
}

func (h *CameraHandler) resolveCamera(w http.ResponseWriter, r *http.Request) (*models.Camera, bool) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid camera ID"})
		return nil, false
	}

	var cam models.Camera
	if err := h.resolver.ResolveOwned(r.Context(), &cam, id, userID); err != nil {
		writeOwnershipError(w, err, "camera")
		return nil, false
	}
	return &cam, true
}
