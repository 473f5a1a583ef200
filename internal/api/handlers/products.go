package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meritan/go-curator/internal/api/dto"
	"github.com/meritan/go-curator/internal/api/middleware"
	"github.com/meritan/go-curator/internal/api/validation"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/ownership"
	"gorm.io/gorm"
)

type ProductHandler struct {
	db       *gorm.DB
	resolver *ownership.Resolver
}

func NewProductHandler(db *gorm.DB, resolver *ownership.Resolver) *ProductHandler {
	return &ProductHandler{db: db, resolver: resolver}
}

type ProductRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	GTIN          string   `json:"gtin,omitempty"`
	CategoryID    *string  `json:"category_id,omitempty"`
	ProductTypeID *string  `json:"product_type_id,omitempty"`
	MaterialIDs   []string `json:"material_ids,omitempty"`
}

func (r ProductRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	if r.GTIN != "" && !validation.IsValidGTIN(r.GTIN) {
		errors["gtin"] = "Invalid GTIN format"
	}
	if r.CategoryID != nil && *r.CategoryID != "" && !validation.IsValidUUID(*r.CategoryID) {
		errors["category_id"] = "Invalid category ID format"
	}
	if r.ProductTypeID != nil && *r.ProductTypeID != "" && !validation.IsValidUUID(*r.ProductTypeID) {
		errors["product_type_id"] = "Invalid product type ID format"
	}
	for _, id := range r.MaterialIDs {
		if !validation.IsValidUUID(id) {
			errors["material_ids"] = "Invalid material ID format"
			break
		}
	}
	return errors
}

type ProductResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	GTIN          string   `json:"gtin,omitempty"`
	CategoryID    *string  `json:"category_id,omitempty"`
	ProductTypeID *string  `json:"product_type_id,omitempty"`
	MaterialIDs   []string `json:"material_ids,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

func productToResponse(p *models.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		GTIN:        p.GTIN,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	if p.CategoryID != nil {
		s := p.CategoryID.String()
		resp.CategoryID = &s
	}
	if p.ProductTypeID != nil {
		s := p.ProductTypeID.String()
		resp.ProductTypeID = &s
	}
	for _, m := range p.Materials {
		resp.MaterialIDs = append(resp.MaterialIDs, m.ID.String())
	}
	return resp
}

// resolveRefs validates that referenced category/type/materials exist. Broken
// references are a 400, not a 500: the caller sent an id that points nowhere.
func (h *ProductHandler) resolveRefs(req ProductRequest, product *models.Product) (materials []models.Material, errMsg string) {
	if req.CategoryID != nil && *req.CategoryID != "" {
		id, _ := uuid.Parse(*req.CategoryID)
		var cat models.Category
		if err := h.db.First(&cat, "id = ?", id).Error; err != nil {
			return nil, "Category not found"
		}
		product.CategoryID = &id
	} else {
		product.CategoryID = nil
	}

	if req.ProductTypeID != nil && *req.ProductTypeID != "" {
		id, _ := uuid.Parse(*req.ProductTypeID)
		var pt models.ProductType
		if err := h.db.First(&pt, "id = ?", id).Error; err != nil {
			return nil, "Product type not found"
		}
		product.ProductTypeID = &id
	} else {
		product.ProductTypeID = nil
	}

	if len(req.MaterialIDs) > 0 {
		ids := make([]uuid.UUID, len(req.MaterialIDs))
		for i, s := range req.MaterialIDs {
			ids[i], _ = uuid.Parse(s)
		}
		if err := h.db.Where("id IN ?", ids).Find(&materials).Error; err != nil || len(materials) != len(ids) {
			return nil, "One or more materials not found"
		}
	}
	return materials, ""
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	query := h.db.Model(&models.Product{}).Where("owner_id = ?", userID)

	if gtin := r.URL.Query().Get("gtin"); gtin != "" {
		query = query.Where("gtin = ?", gtin)
	}
	if catID := r.URL.Query().Get("category_id"); catID != "" {
		id, err := uuid.Parse(catID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid category ID"})
			return
		}
		query = query.Where("category_id = ?", id)
	}
	if typeID := r.URL.Query().Get("product_type_id"); typeID != "" {
		id, err := uuid.Parse(typeID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid product type ID"})
			return
		}
		query = query.Where("product_type_id = ?", id)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count products"})
		return
	}

	var products []models.Product
	if err := query.
		Preload("Materials").
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&products).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list products"})
		return
	}

	response := make([]ProductResponse, len(products))
	for i := range products {
		response[i] = productToResponse(&products[i])
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       response,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// Create handles POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	product := models.Product{
		OwnerID:     userID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		GTIN:        req.GTIN,
	}

	materials, errMsg := h.resolveRefs(req, &product)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: errMsg})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		if len(materials) > 0 {
			return tx.Model(&product).Association("Materials").Replace(materials)
		}
		return nil
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create product"})
		return
	}

	product.Materials = materials
	writeJSON(w, http.StatusCreated, productToResponse(&product))
}

// Get handles GET /api/v1/products/:id
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	var product models.Product
	if err := h.resolver.ResolveOwned(r.Context(), &product, id, userID); err != nil {
		writeOwnershipError(w, err, "product")
		return
	}

	if err := h.db.Preload("Materials").First(&product, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get product"})
		return
	}

	writeJSON(w, http.StatusOK, productToResponse(&product))
}

// Update handles PUT /api/v1/products/:id
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	var product models.Product
	if err := h.resolver.ResolveOwned(r.Context(), &product, id, userID); err != nil {
		writeOwnershipError(w, err, "product")
		return
	}

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	product.Name = strings.TrimSpace(req.Name)
	product.Description = req.Description
	product.GTIN = req.GTIN

	materials, errMsg := h.resolveRefs(req, &product)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: errMsg})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&product).Error; err != nil {
			return err
		}
		return tx.Model(&product).Association("Materials").Replace(materials)
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update product"})
		return
	}

	product.Materials = materials
	writeJSON(w, http.StatusOK, productToResponse(&product))
}

// Delete handles DELETE /api/v1/products/:id
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	var product models.Product
	if err := h.resolver.ResolveOwned(r.Context(), &product, id, userID); err != nil {
		writeOwnershipError(w, err, "product")
		return
	}

	if err := h.db.Delete(&product).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete product"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Product deleted"})
}
