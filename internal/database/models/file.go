package models

import "github.com/google/uuid"

type FileKind string

const (
	FileKindImage FileKind = "image"
	FileKindVideo FileKind = "video"
)

// File is a stored image or video belonging to a product. The bytes live in
// the object store under ObjectKey; only metadata is kept here.
type File struct {
	Base
	ProductID   uuid.UUID `gorm:"type:uuid;index;not null" json:"product_id"`
	Kind        FileKind  `gorm:"not null" json:"kind"`
	Name        string    `json:"name,omitempty"`
	ObjectKey   string    `gorm:"uniqueIndex;not null" json:"-"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`

	// Set when the file was captured by a camera device.
	CameraID *uuid.UUID `gorm:"type:uuid;index" json:"camera_id,omitempty"`

	// Relationships
	Product *Product `gorm:"foreignKey:ProductID" json:"-"`
	Camera  *Camera  `gorm:"foreignKey:CameraID" json:"-"`
}

func (File) TableName() string {
	return "files"
}

// ParentRef implements ownership.Dependent; a file is owned through its
// product.
func (f *File) ParentRef() uuid.UUID {
	return f.ProductID
}
