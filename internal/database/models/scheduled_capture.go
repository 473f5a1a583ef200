package models

import "github.com/google/uuid"

// ScheduledCapture is a recurring capture job for a camera. The worker's
// scheduler tick enqueues a capture task for every enabled schedule whose
// NextRunAt has passed.
type ScheduledCapture struct {
	Base
	OwnerID   uuid.UUID `gorm:"type:uuid;index;not null" json:"owner_id"`
	CameraID  uuid.UUID `gorm:"type:uuid;index;not null" json:"camera_id"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null" json:"product_id"`

	Name      string `gorm:"size:255;not null" json:"name"`
	CronExpr  string `gorm:"size:100;not null" json:"cron_expr"` // e.g. "0 6 * * *"
	Mode      string `gorm:"not null;default:'photo'" json:"mode"`
	IsEnabled bool   `gorm:"default:true;index" json:"is_enabled"`

	// Timing (Unix timestamps, UTC)
	NextRunAt int64  `gorm:"index" json:"next_run_at"`
	LastRunAt *int64 `json:"last_run_at,omitempty"`

	LastFileID *uuid.UUID `gorm:"type:uuid" json:"last_file_id,omitempty"`
	LastError  string     `json:"last_error,omitempty"`

	// Relationships
	Owner   *User    `gorm:"foreignKey:OwnerID" json:"-"`
	Camera  *Camera  `gorm:"foreignKey:CameraID" json:"-"`
	Product *Product `gorm:"foreignKey:ProductID" json:"-"`
}

func (ScheduledCapture) TableName() string {
	return "scheduled_captures"
}

// OwnedBy implements ownership.Owned.
func (s *ScheduledCapture) OwnedBy() uuid.UUID {
	return s.OwnerID
}
