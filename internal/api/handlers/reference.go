package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meritan/go-curator/internal/api/dto"
	"github.com/meritan/go-curator/internal/api/middleware"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/ownership"
	"gorm.io/gorm"
)

// ReferenceHandler serves shared reference data: materials and product types.
// Anyone authenticated can read them; creating requires the organization
// owner role, since reference rows are visible to every user.
type ReferenceHandler struct {
	db       *gorm.DB
	resolver *ownership.Resolver
}

func NewReferenceHandler(db *gorm.DB, resolver *ownership.Resolver) *ReferenceHandler {
	return &ReferenceHandler{db: db, resolver: resolver}
}

type CreateReferenceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (r CreateReferenceRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	return errors
}

func (h *ReferenceHandler) requireOrgOwner(w http.ResponseWriter, r *http.Request) bool {
	orgID := middleware.GetOrganizationID(r.Context())
	userID := middleware.GetUserID(r.Context())

	if _, err := h.resolver.OrgAsOwner(r.Context(), orgID, userID); err != nil {
		writeOwnershipError(w, err, "organization")
		return false
	}
	return true
}

// ListMaterials handles GET /api/v1/materials
func (h *ReferenceHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	var materials []models.Material
	if err := h.db.Order("name ASC").Find(&materials).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list materials"})
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

// CreateMaterial handles POST /api/v1/materials
func (h *ReferenceHandler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	if !h.requireOrgOwner(w, r) {
		return
	}

	var req CreateReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	material := models.Material{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := h.db.Create(&material).Error; err != nil {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Material already exists"})
		return
	}

	writeJSON(w, http.StatusCreated, material)
}

// GetMaterial handles GET /api/v1/materials/:id
func (h *ReferenceHandler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid material ID"})
		return
	}

	var material models.Material
	if err := h.db.First(&material, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Material not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get material"})
		return
	}
	writeJSON(w, http.StatusOK, material)
}

// ListProductTypes handles GET /api/v1/product-types
func (h *ReferenceHandler) ListProductTypes(w http.ResponseWriter, r *http.Request) {
	var types []models.ProductType
	if err := h.db.Order("name ASC").Find(&types).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list product types"})
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// CreateProductType handles POST /api/v1/product-types
func (h *ReferenceHandler) CreateProductType(w http.ResponseWriter, r *http.Request) {
	if !h.requireOrgOwner(w, r) {
		return
	}

	var req CreateReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	pt := models.ProductType{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := h.db.Create(&pt).Error; err != nil {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Product type already exists"})
		return
	}

	writeJSON(w, http.StatusCreated, pt)
}

// GetProductType handles GET /api/v1/product-types/:id
func (h *ReferenceHandler) GetProductType(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid product type ID"})
		return
	}

	var pt models.ProductType
	if err := h.db.First(&pt, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Product type not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get product type"})
		return
	}
	writeJSON(w, http.StatusOK, pt)
}
