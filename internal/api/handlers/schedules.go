package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/meritan/go-curator/internal/api/dto"
	"github.com/meritan/go-curator/internal/api/middleware"
	"github.com/meritan/go-curator/internal/camera"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/ownership"
	"github.com/meritan/go-curator/internal/tasks"
	"github.com/meritan/go-curator/pkg/util"
	"gorm.io/gorm"
)

// ScheduleHandler manages recurring capture schedules. Creating one requires
// owning both the camera and the product it targets.
type ScheduleHandler struct {
	db          *gorm.DB
	resolver    *ownership.Resolver
	asynqClient *asynq.Client
}

func NewScheduleHandler(db *gorm.DB, resolver *ownership.Resolver, asynqClient *asynq.Client) *ScheduleHandler {
	return &ScheduleHandler{db: db, resolver: resolver, asynqClient: asynqClient}
}

type ScheduleRequest struct {
	Name      string `json:"name"`
	CameraID  string `json:"camera_id"`
	ProductID string `json:"product_id"`
	CronExpr  string `json:"cron_expr"`
	Mode      string `json:"mode,omitempty"`
	IsEnabled *bool  `json:"is_enabled,omitempty"`
}

func (r ScheduleRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	if r.CameraID == "" {
		errors["camera_id"] = "Camera ID is required"
	} else if _, err := uuid.Parse(r.CameraID); err != nil {
		errors["camera_id"] = "Invalid camera ID format"
	}
	if r.ProductID == "" {
		errors["product_id"] = "Product ID is required"
	} else if _, err := uuid.Parse(r.ProductID); err != nil {
		errors["product_id"] = "Invalid product ID format"
	}
	if r.CronExpr == "" {
		errors["cron_expr"] = "Cron expression is required"
	} else if err := util.ValidateCronExpr(r.CronExpr); err != nil {
		errors["cron_expr"] = "Invalid cron expression"
	}
	if r.Mode != "" {
		if _, err := camera.ParseMode(r.Mode); err != nil {
			errors["mode"] = "Mode must be photo or video"
		}
	}
	return errors
}

type ScheduleResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	CameraID   string  `json:"camera_id"`
	ProductID  string  `json:"product_id"`
	CronExpr   string  `json:"cron_expr"`
	Mode       string  `json:"mode"`
	IsEnabled  bool    `json:"is_enabled"`
	NextRunAt  int64   `json:"next_run_at"`
	LastRunAt  *int64  `json:"last_run_at,omitempty"`
	LastFileID *string `json:"last_file_id,omitempty"`
	LastError  string  `json:"last_error,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

func scheduleToResponse(s *models.ScheduledCapture) ScheduleResponse {
	resp := ScheduleResponse{
		ID:        s.ID.String(),
		Name:      s.Name,
		CameraID:  s.CameraID.String(),
		ProductID: s.ProductID.String(),
		CronExpr:  s.CronExpr,
		Mode:      s.Mode,
		IsEnabled: s.IsEnabled,
		NextRunAt: s.NextRunAt,
		LastRunAt: s.LastRunAt,
		LastError: s.LastError,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
	if s.LastFileID != nil {
		id := s.LastFileID.String()
		resp.LastFileID = &id
	}
	return resp
}

// List handles GET /api/v1/schedules
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var schedules []models.ScheduledCapture
	if err := h.db.Where("owner_id = ?", userID).Order("created_at DESC").Find(&schedules).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list schedules"})
		return
	}

	response := make([]ScheduleResponse, len(schedules))
	for i := range schedules {
		response[i] = scheduleToResponse(&schedules[i])
	}
	writeJSON(w, http.StatusOK, response)
}

// Create handles POST /api/v1/schedules
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	cameraID, _ := uuid.Parse(req.CameraID)
	productID, _ := uuid.Parse(req.ProductID)

	var cam models.Camera
	if err := h.resolver.ResolveOwned(r.Context(), &cam, cameraID, userID); err != nil {
		writeOwnershipError(w, err, "camera")
		return
	}
	var product models.Product
	if err := h.resolver.ResolveOwned(r.Context(), &product, productID, userID); err != nil {
		writeOwnershipError(w, err, "product")
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = string(camera.ModePhoto)
	}

	next, err := util.NextCronTime(req.CronExpr, time.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid cron expression"})
		return
	}

	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}

	schedule := models.ScheduledCapture{
		OwnerID:   userID,
		CameraID:  cameraID,
		ProductID: productID,
		Name:      strings.TrimSpace(req.Name),
		CronExpr:  req.CronExpr,
		Mode:      mode,
		IsEnabled: enabled,
		NextRunAt: next.Unix(),
	}
	if err := h.db.Create(&schedule).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create schedule"})
		return
	}

	writeJSON(w, http.StatusCreated, scheduleToResponse(&schedule))
}

// Get handles GET /api/v1/schedules/:id
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	schedule, ok := h.resolveSchedule(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, scheduleToResponse(schedule))
}

// Update handles PUT /api/v1/schedules/:id
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	schedule, ok := h.resolveSchedule(w, r)
	if !ok {
		return
	}

	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	cameraID, _ := uuid.Parse(req.CameraID)
	productID, _ := uuid.Parse(req.ProductID)

	var cam models.Camera
	if err := h.resolver.ResolveOwned(r.Context(), &cam, cameraID, userID); err != nil {
		writeOwnershipError(w, err, "camera")
		return
	}
	var product models.Product
	if err := h.resolver.ResolveOwned(r.Context(), &product, productID, userID); err != nil {
		writeOwnershipError(w, err, "product")
		return
	}

	next, err := util.NextCronTime(req.CronExpr, time.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid cron expression"})
		return
	}

	schedule.Name = strings.TrimSpace(req.Name)
	schedule.CameraID = cameraID
	schedule.ProductID = productID
	schedule.CronExpr = req.CronExpr
	schedule.NextRunAt = next.Unix()
	if req.Mode != "" {
		schedule.Mode = req.Mode
	}
	if req.IsEnabled != nil {
		schedule.IsEnabled = *req.IsEnabled
	}

	if err := h.db.Save(schedule).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update schedule"})
		return
	}

	writeJSON(w, http.StatusOK, scheduleToResponse(schedule))
}

// Delete handles DELETE /api/v1/schedules/:id
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	schedule, ok := h.resolveSchedule(w, r)
	if !ok {
		return
	}

	if err := h.db.Delete(schedule).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete schedule"})
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Schedule deleted"})
}

// Trigger handles POST /api/v1/schedules/:id/trigger
//
// Enqueues one capture run immediately without touching the cron cadence.
func (h *ScheduleHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	schedule, ok := h.resolveSchedule(w, r)
	if !ok {
		return
	}

	task, err := tasks.NewCaptureRunTask(tasks.CaptureRunPayload{ScheduleID: schedule.ID})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to build task"})
		return
	}
	if _, err := h.asynqClient.EnqueueContext(r.Context(), task, asynq.Queue("critical")); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to enqueue capture"})
		return
	}

	writeJSON(w, http.StatusAccepted, dto.SuccessResponse{Message: "Capture enqueued"})
}

func (h *ScheduleHandler) resolveSchedule(w http.ResponseWriter, r *http.Request) (*models.ScheduledCapture, bool) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid schedule ID"})
		return nil, false
	}

	var schedule models.ScheduledCapture
	if err := h.resolver.ResolveOwned(r.Context(), &schedule, id, userID); err != nil {
		writeOwnershipError(w, err, "schedule")
		return nil, false
	}
	return &schedule, true
}
