package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meritan/go-curator/internal/api/dto"
	"github.com/meritan/go-curator/internal/database/models"
	"gorm.io/gorm"
)

type TaxonomyHandler struct {
	db *gorm.DB
}

func NewTaxonomyHandler(db *gorm.DB) *TaxonomyHandler {
	return &TaxonomyHandler{db: db}
}

type TaxonomyResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
	Domains     string `json:"domains,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func taxonomyToResponse(t *models.Taxonomy) TaxonomyResponse {
	return TaxonomyResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		Version:     t.Version,
		Description: t.Description,
		Source:      t.Source,
		Domains:     t.Domains,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

type CategoryResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	ExternalID      string  `json:"external_id"`
	TaxonomyID      string  `json:"taxonomy_id"`
	SupercategoryID *string `json:"supercategory_id,omitempty"`
}

func categoryToResponse(c *models.Category) CategoryResponse {
	resp := CategoryResponse{
		ID:         c.ID.String(),
		Name:       c.Name,
		ExternalID: c.ExternalID,
		TaxonomyID: c.TaxonomyID.String(),
	}
	if c.SupercategoryID != nil {
		s := c.SupercategoryID.String()
		resp.SupercategoryID = &s
	}
	return resp
}

// List handles GET /api/v1/taxonomies
func (h *TaxonomyHandler) List(w http.ResponseWriter, r *http.Request) {
	var taxonomies []models.Taxonomy
	query := h.db.Model(&models.Taxonomy{})

	if name := r.URL.Query().Get("name"); name != "" {
		query = query.Where("name = ?", name)
	}

	if err := query.Order("name ASC, version DESC").Find(&taxonomies).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list taxonomies"})
		return
	}

	response := make([]TaxonomyResponse, len(taxonomies))
	for i := range taxonomies {
		response[i] = taxonomyToResponse(&taxonomies[i])
	}
	writeJSON(w, http.StatusOK, response)
}

// Get handles GET /api/v1/taxonomies/:id
func (h *TaxonomyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid taxonomy ID"})
		return
	}

	var tax models.Taxonomy
	if err := h.db.First(&tax, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Taxonomy not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get taxonomy"})
		return
	}

	writeJSON(w, http.StatusOK, taxonomyToResponse(&tax))
}

// ListCategories handles GET /api/v1/taxonomies/:id/categories
//
// Supported filters: supercategory_id (list children of a node), roots=true
// (list top-level categories), search (name substring).
func (h *TaxonomyHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	taxID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid taxonomy ID"})
		return
	}

	var tax models.Taxonomy
	if err := h.db.First(&tax, "id = ?", taxID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Taxonomy not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get taxonomy"})
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	query := h.db.Model(&models.Category{}).Where("taxonomy_id = ?", taxID)

	if super := r.URL.Query().Get("supercategory_id"); super != "" {
		superID, err := uuid.Parse(super)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid supercategory ID"})
			return
		}
		query = query.Where("supercategory_id = ?", superID)
	} else if r.URL.Query().Get("roots") == "true" {
		query = query.Where("supercategory_id IS NULL")
	}

	if search := r.URL.Query().Get("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count categories"})
		return
	}

	var categories []models.Category
	if err := query.
		Order("external_id ASC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&categories).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list categories"})
		return
	}

	response := make([]CategoryResponse, len(categories))
	for i := range categories {
		response[i] = categoryToResponse(&categories[i])
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       response,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// GetCategory handles GET /api/v1/categories/:id
func (h *TaxonomyHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid category ID"})
		return
	}

	var cat models.Category
	if err := h.db.First(&cat, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Category not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get category"})
		return
	}

	writeJSON(w, http.StatusOK, categoryToResponse(&cat))
}
