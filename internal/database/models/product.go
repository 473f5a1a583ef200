package models

import "github.com/google/uuid"

type Product struct {
	Base
	OwnerID     uuid.UUID `gorm:"type:uuid;index;not null" json:"owner_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description,omitempty"`
	GTIN        string    `gorm:"index" json:"gtin,omitempty"`

	CategoryID    *uuid.UUID `gorm:"type:uuid;index" json:"category_id,omitempty"`
	ProductTypeID *uuid.UUID `gorm:"type:uuid;index" json:"product_type_id,omitempty"`

	// Relationships
	Owner       *User        `gorm:"foreignKey:OwnerID" json:"-"`
	Category    *Category    `gorm:"foreignKey:CategoryID" json:"-"`
	ProductType *ProductType `gorm:"foreignKey:ProductTypeID" json:"-"`
	Materials   []Material   `gorm:"many2many:product_materials" json:"-"`
	Files       []File       `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// OwnedBy implements ownership.Owned.
func (p *Product) OwnedBy() uuid.UUID {
	return p.OwnerID
}
