package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/meritan/go-curator/internal/camera"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/newsletter"
	"github.com/meritan/go-curator/pkg/util"
	"gorm.io/gorm"
)

type Handler struct {
	db            *gorm.DB
	logger        *slog.Logger
	cameraService *camera.Service
	disposable    *newsletter.DisposableList
	asynqClient   *asynq.Client
}

func NewHandler(db *gorm.DB, logger *slog.Logger, cameraService *camera.Service, disposable *newsletter.DisposableList, asynqClient *asynq.Client) *Handler {
	return &Handler{
		db:            db,
		logger:        logger,
		cameraService: cameraService,
		disposable:    disposable,
		asynqClient:   asynqClient,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCaptureRun, h.HandleCaptureRun)
	mux.HandleFunc(TypeSchedulerTick, h.HandleSchedulerTick)
	mux.HandleFunc(TypeBlocklistRefresh, h.HandleBlocklistRefresh)
}

// HandleCaptureRun performs one scheduled capture. Device failures are
// recorded on the schedule and do not fail the task; the next tick will try
// again on schedule.
func (h *Handler) HandleCaptureRun(ctx context.Context, t *asynq.Task) error {
	var payload CaptureRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var schedule models.ScheduledCapture
	if err := h.db.WithContext(ctx).First(&schedule, "id = ?", payload.ScheduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Warn("scheduled capture vanished", "schedule_id", payload.ScheduleID)
			return nil
		}
		return err
	}
	if !schedule.IsEnabled {
		return nil
	}

	var cam models.Camera
	if err := h.db.WithContext(ctx).First(&cam, "id = ?", schedule.CameraID).Error; err != nil {
		return fmt.Errorf("loading camera: %w", err)
	}

	mode, err := camera.ParseMode(schedule.Mode)
	if err != nil {
		mode = camera.ModePhoto
	}
	kind := models.FileKindImage
	if mode == camera.ModeVideo {
		kind = models.FileKindVideo
	}

	now := time.Now().Unix()
	updates := map[string]interface{}{
		"last_run_at": now,
		"last_error":  "",
	}

	file, err := h.cameraService.Capture(ctx, &cam, schedule.ProductID, kind)
	if err != nil {
		h.logger.Error("scheduled capture failed",
			"schedule_id", schedule.ID,
			"camera_id", cam.ID,
			"error", err,
		)
		updates["last_error"] = err.Error()
	} else {
		updates["last_file_id"] = file.ID
	}

	if err := h.db.WithContext(ctx).Model(&schedule).Updates(updates).Error; err != nil {
		return fmt.Errorf("updating schedule: %w", err)
	}

	return nil
}

// HandleSchedulerTick finds due schedules, enqueues a capture for each and
// advances their next run time.
func (h *Handler) HandleSchedulerTick(ctx context.Context, t *asynq.Task) error {
	now := time.Now()

	var due []models.ScheduledCapture
	if err := h.db.WithContext(ctx).
		Where("is_enabled = ? AND next_run_at <= ?", true, now.Unix()).
		Find(&due).Error; err != nil {
		return fmt.Errorf("loading due schedules: %w", err)
	}

	for i := range due {
		schedule := &due[i]

		task, err := NewCaptureRunTask(CaptureRunPayload{ScheduleID: schedule.ID})
		if err != nil {
			return err
		}
		if _, err := h.asynqClient.EnqueueContext(ctx, task); err != nil {
			h.logger.Error("failed to enqueue capture", "schedule_id", schedule.ID, "error", err)
			continue
		}

		next, err := util.NextCronTime(schedule.CronExpr, now)
		if err != nil {
			h.logger.Error("invalid cron expression on schedule",
				"schedule_id", schedule.ID,
				"cron", schedule.CronExpr,
				"error", err,
			)
			continue
		}
		if err := h.db.WithContext(ctx).Model(schedule).Update("next_run_at", next.Unix()).Error; err != nil {
			h.logger.Error("failed to advance schedule", "schedule_id", schedule.ID, "error", err)
		}
	}

	if len(due) > 0 {
		h.logger.Info("scheduler tick", "due", len(due))
	}
	return nil
}

// HandleBlocklistRefresh re-downloads the disposable email domain list.
func (h *Handler) HandleBlocklistRefresh(ctx context.Context, t *asynq.Task) error {
	if err := h.disposable.Refresh(ctx); err != nil {
		h.logger.Error("blocklist refresh failed", "error", err)
		return err
	}
	return nil
}
