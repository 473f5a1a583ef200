package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/meritan/go-curator/internal/storage"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	store storage.ObjectStore
	redis *redis.Client
}

func NewHealthHandler(db *gorm.DB, store storage.ObjectStore, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, store: store, redis: redisClient}
}

type healthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Services: map[string]string{},
	}

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		resp.Services["database"] = "down"
		resp.Status = "degraded"
	} else {
		resp.Services["database"] = "ok"
	}

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			resp.Services["storage"] = "down"
			resp.Status = "degraded"
		} else {
			resp.Services["storage"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			resp.Services["redis"] = "down"
			resp.Status = "degraded"
		} else {
			resp.Services["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// Ready handles GET /ready. It only checks the database: the server can
// serve most traffic with storage or redis degraded, but not without a DB.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
