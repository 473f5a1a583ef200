package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meritan/go-curator/internal/api/dto"
	"github.com/meritan/go-curator/internal/api/middleware"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/ownership"
	"github.com/meritan/go-curator/internal/storage"
	"gorm.io/gorm"
)

// maxUploadBytes caps a single file upload at 64 MiB.
const maxUploadBytes = 64 << 20

// FileHandler manages product files. Files are dependent resources: every
// operation resolves ownership through the parent product, so access checks
// are two-hop (user owns product, file belongs to product).
type FileHandler struct {
	db       *gorm.DB
	resolver *ownership.Resolver
	store    storage.ObjectStore
}

func NewFileHandler(db *gorm.DB, resolver *ownership.Resolver, store storage.ObjectStore) *FileHandler {
	return &FileHandler{db: db, resolver: resolver, store: store}
}

type FileResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	Kind        string  `json:"kind"`
	Name        string  `json:"name,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	SizeBytes   int64   `json:"size_bytes"`
	CameraID    *string `json:"camera_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func fileToResponse(f *models.File) FileResponse {
	resp := FileResponse{
		ID:          f.ID.String(),
		ProductID:   f.ProductID.String(),
		Kind:        string(f.Kind),
		Name:        f.Name,
		ContentType: f.ContentType,
		SizeBytes:   f.SizeBytes,
		CreatedAt:   f.CreatedAt.Format(time.RFC3339),
	}
	if f.CameraID != nil {
		s := f.CameraID.String()
		resp.CameraID = &s
	}
	return resp
}

func kindFromContentType(contentType string) (models.FileKind, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.FileKindImage, true
	case strings.HasPrefix(contentType, "video/"):
		return models.FileKindVideo, true
	default:
		return "", false
	}
}

// List handles GET /api/v1/products/:productID/files
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	var product models.Product
	if err := h.resolver.ResolveOwned(r.Context(), &product, productID, userID); err != nil {
		writeOwnershipError(w, err, "product")
		return
	}

	query := h.db.Where("product_id = ?", productID)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var files []models.File
	if err := query.Order("created_at DESC").Find(&files).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list files"})
		return
	}

	response := make([]FileResponse, len(files))
	for i := range files {
		response[i] = fileToResponse(&files[i])
	}
	writeJSON(w, http.StatusOK, response)
}

// Upload handles POST /api/v1/products/:productID/files
//
// The body is the raw file; Content-Type decides whether it is stored as an
// image or a video, anything else is rejected.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	var product models.Product
	if err := h.resolver.ResolveOwned(r.Context(), &product, productID, userID); err != nil {
		writeOwnershipError(w, err, "product")
		return
	}

	contentType := r.Header.Get("Content-Type")
	kind, ok := kindFromContentType(contentType)
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Content-Type must be image/* or video/*"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Failed to read upload"})
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Empty upload"})
		return
	}
	if len(data) > maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "File exceeds upload limit"})
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = fmt.Sprintf("upload-%s", time.Now().UTC().Format("20060102-150405"))
	}

	key := fmt.Sprintf("products/%s/uploads/%s", productID, uuid.New())
	if err := h.store.Put(r.Context(), key, data, contentType); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to store file"})
		return
	}

	file := models.File{
		ProductID:   productID,
		Kind:        kind,
		Name:        name,
		ObjectKey:   key,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}
	if err := h.db.Create(&file).Error; err != nil {
		// Best effort cleanup of the orphaned object.
		h.store.Delete(r.Context(), key)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to save file record"})
		return
	}

	writeJSON(w, http.StatusCreated, fileToResponse(&file))
}

// Get handles GET /api/v1/products/:productID/files/:fileID
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	file, ok := h.resolveFile(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, fileToResponse(file))
}

// Content handles GET /api/v1/products/:productID/files/:fileID/content
func (h *FileHandler) Content(w http.ResponseWriter, r *http.Request) {
	file, ok := h.resolveFile(w, r)
	if !ok {
		return
	}

	data, err := h.store.Get(r.Context(), file.ObjectKey)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to read file"})
		return
	}

	if file.ContentType != "" {
		w.Header().Set("Content-Type", file.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Delete handles DELETE /api/v1/products/:productID/files/:fileID
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	file, ok := h.resolveFile(w, r)
	if !ok {
		return
	}

	if err := h.db.Delete(file).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete file"})
		return
	}
	// Object removal after the row: a dangling object is recoverable, a
	// dangling row is not.
	h.store.Delete(r.Context(), file.ObjectKey)

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "File deleted"})
}

func (h *FileHandler) resolveFile(w http.ResponseWriter, r *http.Request) (*models.File, bool) {
	userID := middleware.GetUserID(r.Context())

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid product ID"})
		return nil, false
	}
	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid file ID"})
		return nil, false
	}

	var product models.Product
	var file models.File
	if err := h.resolver.ResolveDependent(r.Context(), &product, productID, userID, &file, fileID); err != nil {
		writeOwnershipError(w, err, "file")
		return nil, false
	}
	return &file, true
}
