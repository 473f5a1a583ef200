package models

// Material is shared reference data describing what a product is made of.
type Material struct {
	Base
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description,omitempty"`

	// Relationships
	Products []Product `gorm:"many2many:product_materials" json:"-"`
}

func (Material) TableName() string {
	return "materials"
}
